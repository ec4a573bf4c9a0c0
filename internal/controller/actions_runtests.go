package controller

import (
	"context"
	"path/filepath"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/runner"
)

// #region run-tests

// execRunTests delegates to the configured runner.Runner. The Controller
// does not interpret stdout/stderr, only the exit code: 0 is pass (OK=true),
// non-zero is fail (OK=false with no ErrorKind, so later actions still
// run). ErrorKind is set only when the workspace root cannot be resolved,
// on timeout, or when the runner itself fails.
func (c *Controller) execRunTests(ctx context.Context, state kernel.StateSnapshot, action kernel.Action, res *kernel.ExecResult) {
	root, err := filepath.EvalSymlinks(state.WorkspaceRoot)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	limits := runner.Limits{
		WallSeconds: int(c.config.MaxRunTestsWall.Seconds()),
		MemBytes:    c.config.ContainerMemBytes,
		CPUQuota:    c.config.ContainerCPUQuota,
		Network:     false,
	}

	result, err := c.runner.Run(ctx, root, action.Argv, limits)
	if err != nil {
		if ctx.Err() != nil {
			res.OK = false
			res.ErrorKind = kernel.ErrorTimeout
			res.Stderr = err.Error()
			return
		}
		res.OK = false
		res.ErrorKind = kernel.ErrorRunnerUnavailable
		res.Stderr = err.Error()
		return
	}

	res.OK = result.ExitCode == 0
	res.Stdout = result.Stdout
	res.Stderr = result.Stderr
}

// #endregion run-tests
