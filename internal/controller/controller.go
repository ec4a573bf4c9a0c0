package controller

import (
	"context"
	"time"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/runner"
)

// #region controller

// Controller executes a Gate-approved Decision's actions, in order, against
// a workspace. It refuses any Decision whose signature fails to verify or
// whose input_hash was already consumed this episode.
type Controller struct {
	config Config
	key    kernel.KernelKey
	runner runner.Runner
	seen   *seenSet
}

// New constructs a Controller. runner backs RUN_TESTS; pass
// runner.NewSubprocess() for the default direct-subprocess backend, or a
// *runner.GRPCClient to delegate to a sandbox process.
func New(config Config, key kernel.KernelKey, r runner.Runner) *Controller {
	return &Controller{
		config: config,
		key:    key,
		runner: r,
		seen:   newSeenSet(config.DecisionLRUSize),
	}
}

// #endregion controller

// #region execute

// Execute runs decision.ApprovedActions against state.WorkspaceRoot in
// order, returning one ExecResult per action in the original proposal
// (spec.md §4.2, "Ordering and errors"). It returns a non-nil error only
// for conditions the Controller must refuse outright: an unverifiable
// signature or a replayed input_hash. A validly signed denied Decision
// returns no results and a nil error. None of these produce ExecResults,
// because no action was ever eligible to run.
func (c *Controller) Execute(ctx context.Context, state kernel.StateSnapshot, decision kernel.Decision) ([]kernel.ExecResult, error) {
	ok, err := kernel.Verify(c.key, decision)
	if err != nil {
		return nil, &Error{Kind: kernel.ErrorSignatureInvalid, Msg: err.Error()}
	}
	if !ok {
		return nil, &Error{Kind: kernel.ErrorSignatureInvalid, Msg: "decision signature does not verify"}
	}
	if !decision.Allowed {
		// A denied Decision carries no approved_actions (spec.md §3,
		// Decision invariant); there is nothing for the Controller to run.
		return nil, nil
	}

	if c.seen.CheckAndAdd(decision.InputHash.String()) {
		return nil, &Error{Kind: kernel.ErrorDecisionReused, Msg: "decision input_hash already consumed this episode"}
	}

	results := make([]kernel.ExecResult, 0, len(decision.ApprovedActions))
	halted := false

	for i, action := range decision.ApprovedActions {
		if halted {
			results = append(results, kernel.ExecResult{
				ActionIndex: i,
				Kind:        action.Kind,
				OK:          false,
				ErrorKind:   kernel.ErrorNotAttempted,
			})
			continue
		}

		res := c.executeOne(ctx, state, i, action)
		results = append(results, res)

		if !res.OK {
			switch res.ErrorKind {
			case kernel.ErrorTimeout, kernel.ErrorIO, kernel.ErrorPatchFailed, kernel.ErrorWriteRefused:
				halted = true
			}
		}
	}

	return results, nil
}

// executeOne dispatches on action.Kind, always returning a populated
// ExecResult rather than propagating an error — every failure mode is
// represented by OK=false plus an ErrorKind, per spec.md §7's error
// taxonomy for Execution errors.
func (c *Controller) executeOne(ctx context.Context, state kernel.StateSnapshot, index int, action kernel.Action) kernel.ExecResult {
	start := time.Now()
	timeout := c.config.DefaultActionTimeout
	if action.Kind == kernel.ActionRunTests {
		timeout = c.config.MaxRunTestsWall
	}
	if timeout > c.config.MaxActionTimeout && action.Kind != kernel.ActionRunTests {
		timeout = c.config.MaxActionTimeout
	}

	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := kernel.ExecResult{ActionIndex: index, Kind: action.Kind}

	switch action.Kind {
	case kernel.ActionReadFile:
		c.execReadFile(state, action, &res)
	case kernel.ActionWriteFile:
		c.execWriteFile(state, action, &res)
	case kernel.ActionApplyPatch:
		c.execApplyPatch(actionCtx, state, action, &res)
	case kernel.ActionRunTests:
		c.execRunTests(actionCtx, state, action, &res)
	case kernel.ActionGitDiff:
		c.execGitDiff(actionCtx, state, action, &res)
	case kernel.ActionGrep:
		c.execGrep(actionCtx, state, action, &res)
	default:
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = "unknown action kind"
	}

	if actionCtx.Err() == context.DeadlineExceeded && res.ErrorKind == "" {
		res.OK = false
		res.ErrorKind = kernel.ErrorTimeout
	}

	res.DurationMS = time.Since(start).Milliseconds()
	var trunc bool
	res.Stdout, trunc = truncate(res.Stdout, c.config.MaxStreamBytes)
	res.StdoutTrunc = res.StdoutTrunc || trunc
	res.Stderr, trunc = truncate(res.Stderr, c.config.MaxStreamBytes)
	res.StderrTrunc = res.StderrTrunc || trunc
	return res
}

func truncate(s string, max int64) (string, bool) {
	if int64(len(s)) <= max {
		return s, false
	}
	cut := max - int64(len(truncationMarker))
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + truncationMarker, true
}

// #endregion execute

// #region errors

// Error carries a kernel.ErrorKind so Controller-level refusals (invalid
// signature, reused decision) share the same closed enumeration as
// per-action ExecResult.ErrorKind values.
type Error struct {
	Kind kernel.ErrorKind
	Msg  string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Msg }

// #endregion errors
