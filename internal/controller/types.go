// Package controller executes a Gate-approved Decision's actions against a
// workspace under path and budget confinement, producing one ExecResult per
// action (spec.md §4.2). It is the only component that performs
// filesystem mutation, process invocation, or other side effects; the Gate
// that approved the actions never touches the filesystem itself.
package controller

import "time"

// #region config

// Config holds the Controller's execution caps, each with the spec-mandated
// default via DefaultConfig, following the teacher's Default*Config
// convention (internal/gate.DefaultGateConfig and friends).
type Config struct {
	DefaultActionTimeout time.Duration
	MaxActionTimeout     time.Duration
	MaxRunTestsWall      time.Duration
	MaxStreamBytes       int64
	MaxWriteBytes        int64
	MaxReadBytes         int64
	MaxGrepResults       int
	MaxGrepOutputBytes   int64
	MaxGitDiffBytes      int64
	MinGitDiffContext    int
	MaxGitDiffContext    int
	KillGrace            time.Duration
	DecisionLRUSize      int
	ContainerMemBytes    int64
	ContainerCPUQuota    float64
}

// DefaultConfig returns the limits stated in spec.md §4.2's execution caps
// and the GREP/GIT_DIFF caps supplemented from rfsn_kernel/controller.py.
func DefaultConfig() Config {
	return Config{
		DefaultActionTimeout: 60 * time.Second,
		MaxActionTimeout:     600 * time.Second,
		MaxRunTestsWall:      900 * time.Second,
		MaxStreamBytes:       1024 * 1024,
		MaxWriteBytes:        512 * 1024,
		MaxReadBytes:         512 * 1024,
		MaxGrepResults:       500,
		MaxGrepOutputBytes:   256 * 1024,
		MaxGitDiffBytes:      512 * 1024,
		MinGitDiffContext:    0,
		MaxGitDiffContext:    32,
		KillGrace:            5 * time.Second,
		DecisionLRUSize:      256,
		ContainerMemBytes:    512 * 1024 * 1024,
		ContainerCPUQuota:    0.5,
	}
}

// #endregion config

const truncationMarker = "…[TRUNCATED]"
