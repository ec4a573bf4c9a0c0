// Package gate implements the kernel's pure validator: a deterministic
// function from (StateSnapshot, Proposal) to Decision. It performs no I/O,
// holds no clock, and consults no randomness — every rule is structural,
// path-based, or a static budget comparison.
package gate

// #region reasons

// Reason is the closed enumeration of Decision.reason values the Gate can
// produce. "ok" is the only value that accompanies Allowed=true.
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonEmptyProposal    Reason = "empty_proposal"
	ReasonUnknownAction    Reason = "unknown_action"
	ReasonDuplicateWrite   Reason = "duplicate_write"
	ReasonBadTestArgv      Reason = "bad_test_argv"
	ReasonPathEscape       Reason = "path_escape"
	ReasonBlockedSegment   Reason = "blocked_segment"
	ReasonNulInPayload     Reason = "nul_in_payload"
	ReasonPatchParseError  Reason = "patch_parse_error"
	ReasonBudgetExceeded   Reason = "budget_exceeded"
	ReasonTooManyActions   Reason = "too_many_actions"
)

// #endregion reasons

// #region config

// Config holds the Gate's static, compile-time-overridable limits. Every
// field has a spec-mandated default via DefaultConfig.
type Config struct {
	KernelVersion  string
	RulesetVersion string

	MaxActionsPerProposal int
	MaxTotalWriteBytes    int64
	MaxPerFileWriteBytes  int64
	MaxPathBytes          int

	AllowedTestArgvPrefixes [][]string
	TestNodeIDPattern       string
	MaxTestNodeIDLen        int

	BlockedSegments []string
}

// DefaultConfig returns the limits stated in spec.md §3 invariant 2, §4.1.
func DefaultConfig() Config {
	return Config{
		KernelVersion:         "1",
		RulesetVersion:        "1",
		MaxActionsPerProposal: 64,
		MaxTotalWriteBytes:    2 * 1024 * 1024,
		MaxPerFileWriteBytes:  512 * 1024,
		MaxPathBytes:          4096,
		AllowedTestArgvPrefixes: [][]string{
			{"pytest", "-q"},
			{"python", "-m", "pytest", "-q"},
		},
		TestNodeIDPattern: `^[A-Za-z0-9_./:\-]+$`,
		MaxTestNodeIDLen:  256,
		BlockedSegments:   []string{".git", ".ssh"},
	}
}

// #endregion config
