// Package kernel holds the core immutable value types shared by the Gate,
// Controller, Ledger, Patch Safety, and Replay Verifier: StateSnapshot,
// Action, Proposal, Decision, ExecResult, and the ledger event payloads.
// Values here carry no behavior beyond construction and canonical encoding;
// every rule lives in the component packages that consume them.
package kernel

// #region state

// StateSnapshot is the workspace context visible to the Gate. It is created
// once per episode by the caller and never mutated.
type StateSnapshot struct {
	WorkspaceRoot string            `json:"workspace_root"`
	Notes         map[string]string `json:"notes"`
}

// #endregion state

// #region action

// ActionKind is the closed set of action variants the Gate can approve.
// The Gate dispatches on this via explicit case analysis, never open
// polymorphism, so every action the kernel can execute is enumerable here.
type ActionKind string

const (
	ActionReadFile  ActionKind = "READ_FILE"
	ActionWriteFile ActionKind = "WRITE_FILE"
	ActionApplyPatch ActionKind = "APPLY_PATCH"
	ActionRunTests  ActionKind = "RUN_TESTS"
	ActionGitDiff   ActionKind = "GIT_DIFF"
	ActionGrep      ActionKind = "GREP"
)

// Action is a tagged value. Only the fields relevant to Kind are populated;
// this mirrors a closed sum type in a language without one, and every
// consumer switches on Kind rather than testing fields for presence.
type Action struct {
	Kind ActionKind `json:"kind"`

	// READ_FILE, WRITE_FILE
	Path string `json:"path,omitempty"`

	// WRITE_FILE
	Content string `json:"content,omitempty"`

	// APPLY_PATCH
	UnifiedDiff string `json:"unified_diff,omitempty"`

	// RUN_TESTS
	Argv []string `json:"argv,omitempty"`

	// GIT_DIFF (Paths, Context), GREP (Paths)
	Paths   []string `json:"paths,omitempty"`
	Context int      `json:"context,omitempty"`

	// GREP
	Pattern string `json:"pattern,omitempty"`
}

// #endregion action

// #region proposal

// Proposal is an ordered, non-empty sequence of Actions plus caller metadata.
// It is frozen by the proposer before reaching the Gate.
type Proposal struct {
	ProposalID string            `json:"proposal_id"`
	Actions    []Action          `json:"actions"`
	Rationale  string            `json:"rationale,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// #endregion proposal

// #region decision

// Decision is the Gate's signed verdict on a Proposal.
type Decision struct {
	Allowed         bool     `json:"allowed"`
	Reason          string   `json:"reason"`
	ApprovedActions []Action `json:"approved_actions"`
	InputHash       Hash32   `json:"input_hash"`
	Signature       Hash32   `json:"signature"`
}

// #endregion decision

// #region exec-result

// ErrorKind is the closed set of Controller-observable execution failures
// (spec error taxonomy §7, "Execution errors").
type ErrorKind string

const (
	ErrorTimeout          ErrorKind = "timeout"
	ErrorIO               ErrorKind = "io_error"
	ErrorPatchFailed      ErrorKind = "patch_failed"
	ErrorWriteRefused     ErrorKind = "write_refused"
	ErrorRunnerUnavailable ErrorKind = "runner_unavailable"
	ErrorSignatureInvalid ErrorKind = "signature_invalid"
	ErrorDecisionReused   ErrorKind = "decision_reused"
	ErrorNotAttempted     ErrorKind = "not_attempted"
)

// ExecResult is the per-action outcome of Controller execution.
type ExecResult struct {
	ActionIndex   int        `json:"action_index"`
	Kind          ActionKind `json:"kind"`
	OK            bool       `json:"ok"`
	Stdout        string     `json:"stdout"`
	Stderr        string     `json:"stderr"`
	BytesRead     int64      `json:"bytes_read"`
	BytesWritten  int64      `json:"bytes_written"`
	DurationMS    int64      `json:"duration_ms"`
	ErrorKind     ErrorKind  `json:"error_kind,omitempty"`
	StdoutTrunc   bool       `json:"stdout_truncated,omitempty"`
	StderrTrunc   bool       `json:"stderr_truncated,omitempty"`
}

// #endregion exec-result

// #region ledger-payloads

// EventType is the closed set of valid LedgerEntry.event_type values.
type EventType string

const (
	EventEpisodeBegin EventType = "episode_begin"
	EventProposalSeen EventType = "proposal_seen"
	EventGateDecision EventType = "gate_decision"
	EventExecResult   EventType = "exec_result"
	EventEpisodeEnd   EventType = "episode_end"
)

// EpisodeBeginPayload opens an episode.
type EpisodeBeginPayload struct {
	EpisodeID string        `json:"episode_id"`
	State     StateSnapshot `json:"state"`
	KernelVersion  string   `json:"kernel_version"`
	RulesetVersion string   `json:"ruleset_version"`
}

// ProposalSeenPayload records a proposal before gating.
type ProposalSeenPayload struct {
	EpisodeID string   `json:"episode_id"`
	Proposal  Proposal `json:"proposal"`
}

// GateDecisionPayload records the Gate's verdict, encoded as hex strings so
// the canonical JSON hashed into the ledger matches the wire-format example
// in the external interfaces (hash values are hex, not base64 or raw bytes).
type GateDecisionPayload struct {
	EpisodeID       string   `json:"episode_id"`
	InputHash       string   `json:"input_hash"`
	Allowed         bool     `json:"allowed"`
	Reason          string   `json:"reason"`
	ApprovedActions []Action `json:"approved_actions"`
	Signature       string   `json:"signature"`
}

// ExecResultPayload records one action's outcome.
type ExecResultPayload struct {
	EpisodeID string     `json:"episode_id"`
	Result    ExecResult `json:"result"`
}

// EpisodeEndPayload closes an episode.
type EpisodeEndPayload struct {
	EpisodeID string `json:"episode_id"`
	Status    string `json:"status"` // "completed" | "denied" | "cancelled" | "aborted"
}

// #endregion ledger-payloads

// #region bandit-state

// BanditState is one arm's Beta-Bernoulli parameters, prior (1,1).
type BanditState struct {
	ArmID     string `json:"arm_id"`
	Alpha     int64  `json:"alpha"`
	Beta      int64  `json:"beta"`
	UpdatedAt int64  `json:"updated_at"`
}

// #endregion bandit-state
