package controller

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
)

// #region git-diff

const defaultGitDiffContext = 3

// execGitDiff mirrors rfsn_kernel/controller.py's _git_diff: working-tree
// changes (spec.md §9 Open Question (a), resolved in favor of the working
// tree over the index), with context clamped to [MinGitDiffContext,
// MaxGitDiffContext] rather than rejected (supplemented from the original's
// permissive clamping).
func (c *Controller) execGitDiff(ctx context.Context, state kernel.StateSnapshot, action kernel.Action, res *kernel.ExecResult) {
	root, err := filepath.EvalSymlinks(state.WorkspaceRoot)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	if info, statErr := os.Stat(filepath.Join(root, ".git")); statErr != nil || !info.IsDir() {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = "not a git repository"
		return
	}

	contextLines := action.Context
	if contextLines == 0 {
		contextLines = defaultGitDiffContext
	}
	if contextLines < c.config.MinGitDiffContext {
		contextLines = c.config.MinGitDiffContext
	}
	if contextLines > c.config.MaxGitDiffContext {
		contextLines = c.config.MaxGitDiffContext
	}

	args := []string{"diff", "-U" + strconv.Itoa(contextLines)}
	if len(action.Paths) > 0 {
		args = append(args, "--")
		args = append(args, action.Paths...)
	}

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			res.OK = false
			res.ErrorKind = kernel.ErrorTimeout
			res.Stderr = errOut.String()
			return
		}
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = errOut.String()
		return
	}

	diff, truncated := truncate(out.String(), c.config.MaxGitDiffBytes)
	res.OK = true
	res.Stdout = diff
	res.StdoutTrunc = truncated
}

// #endregion git-diff

// #region grep

var grepIncludeGlobs = []string{
	"--include=*.go", "--include=*.py", "--include=*.txt", "--include=*.md",
	"--include=*.json", "--include=*.yaml", "--include=*.yml", "--include=*.toml",
}

// execGrep mirrors rfsn_kernel/controller.py's _grep: recursive,
// line-numbered, result- and byte-capped.
func (c *Controller) execGrep(ctx context.Context, state kernel.StateSnapshot, action kernel.Action, res *kernel.ExecResult) {
	root, err := filepath.EvalSymlinks(state.WorkspaceRoot)
	if err != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorIO
		res.Stderr = err.Error()
		return
	}

	target := root
	if len(action.Paths) > 0 {
		resolved, err := resolvePath(state.WorkspaceRoot, action.Paths[0])
		if err != nil {
			res.OK = false
			res.ErrorKind = kernel.ErrorIO
			res.Stderr = err.Error()
			return
		}
		target = resolved
	}

	args := append([]string{"-rn", "-E"}, grepIncludeGlobs...)
	args = append(args, action.Pattern, target)

	cmd := exec.CommandContext(ctx, "grep", args...)
	cmd.Dir = root
	var out bytes.Buffer
	cmd.Stdout = &out
	// grep exits 1 when it finds no matches; that is not a Controller error.
	_ = cmd.Run()

	if ctx.Err() != nil {
		res.OK = false
		res.ErrorKind = kernel.ErrorTimeout
		return
	}

	raw, truncatedBytes := truncate(out.String(), c.config.MaxGrepOutputBytes)

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() && len(lines) < c.config.MaxGrepResults {
		lines = append(lines, scanner.Text())
	}

	res.OK = true
	res.Stdout = strings.Join(lines, "\n")
	res.StdoutTrunc = truncatedBytes || len(lines) >= c.config.MaxGrepResults
}

// #endregion grep
