package controller

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
)

// #region apply-patch

// execApplyPatch mirrors rfsn_kernel/controller.py's _apply_patch_minimal:
// require a .git directory at the workspace root, run `git apply --check`
// first so a failing hunk never leaves .rej files behind, then apply for
// real only if the check passed. Partial application is never committed —
// a failed --check means nothing was touched.
func (c *Controller) execApplyPatch(ctx context.Context, state kernel.StateSnapshot, action kernel.Action, res *kernel.ExecResult) {
	root, err := filepath.EvalSymlinks(state.WorkspaceRoot)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	if info, err := os.Stat(filepath.Join(root, ".git")); err != nil || !info.IsDir() {
		res.OK = false
		res.ErrorKind = kernel.ErrorPatchFailed
		res.Stderr = "workspace is not a git repository (.git missing)"
		return
	}

	checkArgs := []string{"apply", "--check", "--forward", "--whitespace=nowarn", "--reject-file=/dev/null", "--strip=1", "-"}
	if out, errOut, err := runGit(ctx, root, action.UnifiedDiff, checkArgs); err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorPatchFailed
		res.Stdout = out
		res.Stderr = errOut
		return
	}

	applyArgs := []string{"apply", "--forward", "--whitespace=nowarn", "--reject-file=/dev/null", "--strip=1", "-"}
	out, errOut, err := runGit(ctx, root, action.UnifiedDiff, applyArgs)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorPatchFailed
		res.Stdout = out
		res.Stderr = errOut
		return
	}

	res.OK = true
	res.Stdout = out
	res.Stderr = errOut
}

func runGit(ctx context.Context, workdir, stdin string, args []string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workdir
	cmd.Stdin = bytes.NewBufferString(stdin)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if runErr := cmd.Run(); runErr != nil {
		return outBuf.String(), errBuf.String(), fmt.Errorf("git %v: %w", args, runErr)
	}
	return outBuf.String(), errBuf.String(), nil
}

// #endregion apply-patch
