package gate

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/patchsafety"
)

// #region gate

// Gate is a pure, deterministic validator: (StateSnapshot, Proposal) →
// Decision. It performs no I/O, holds no clock, and consults no randomness;
// map iteration is avoided throughout so repeated evaluations of the same
// input are byte-identical.
type Gate struct {
	config Config
	key    kernel.KernelKey
	testRE *regexp.Regexp
}

// New constructs a Gate with the given config and signing key. The key is
// read once at process startup and held immutably (spec §5, "Shared
// resources").
func New(config Config, key kernel.KernelKey) *Gate {
	return &Gate{
		config: config,
		key:    key,
		testRE: regexp.MustCompile(config.TestNodeIDPattern),
	}
}

// Evaluate never panics; every anomalous input becomes a denied Decision
// with an enumerated reason.
func (g *Gate) Evaluate(state kernel.StateSnapshot, proposal kernel.Proposal) kernel.Decision {
	reason := g.check(state, proposal)
	return g.finalize(state, proposal, reason)
}

func (g *Gate) finalize(state kernel.StateSnapshot, proposal kernel.Proposal, reason Reason) kernel.Decision {
	inputHash, err := kernel.InputHash(state, proposal)
	if err != nil {
		// Canonicalization can only fail on NaN/Inf floats or unsupported
		// types, neither of which this value set can contain; treat as a
		// denial rather than propagating an error the Gate contract forbids.
		reason = ReasonNulInPayload
	}

	allowed := reason == ReasonOK
	var approved []kernel.Action
	if allowed {
		approved = proposal.Actions
	}

	sig, err := kernel.Sign(g.key, inputHash, allowed, string(reason), approved)
	if err != nil {
		allowed = false
		reason = ReasonNulInPayload
		approved = nil
		sig, _ = kernel.Sign(g.key, inputHash, false, string(reason), nil)
	}

	return kernel.Decision{
		Allowed:         allowed,
		Reason:          string(reason),
		ApprovedActions: approved,
		InputHash:       inputHash,
		Signature:       sig,
	}
}

// check runs the full ruleset and returns the first violated reason, or
// ReasonOK if every rule passes.
func (g *Gate) check(state kernel.StateSnapshot, proposal kernel.Proposal) Reason {
	if len(proposal.Actions) == 0 {
		return ReasonEmptyProposal
	}
	if len(proposal.Actions) > g.config.MaxActionsPerProposal {
		return ReasonTooManyActions
	}

	seenWrites := make(map[string]bool, len(proposal.Actions))
	var totalWriteBytes int64

	for _, action := range proposal.Actions {
		if r := g.checkStructural(action, seenWrites); r != ReasonOK {
			return r
		}
		if r := g.checkPathConfinement(state, action); r != ReasonOK {
			return r
		}
		if r := g.checkPatchConfinement(state, action); r != ReasonOK {
			return r
		}
		if action.Kind == kernel.ActionWriteFile {
			n := int64(len(action.Content))
			if n > g.config.MaxPerFileWriteBytes {
				return ReasonBudgetExceeded
			}
			totalWriteBytes += n
		}
	}

	if totalWriteBytes > g.config.MaxTotalWriteBytes {
		return ReasonBudgetExceeded
	}

	return ReasonOK
}

// #endregion gate

// #region structural

func (g *Gate) checkStructural(action kernel.Action, seenWrites map[string]bool) Reason {
	switch action.Kind {
	case kernel.ActionReadFile, kernel.ActionWriteFile, kernel.ActionApplyPatch,
		kernel.ActionRunTests, kernel.ActionGitDiff, kernel.ActionGrep:
		// known kind
	default:
		return ReasonUnknownAction
	}

	if action.Kind == kernel.ActionWriteFile {
		clean := filepath.Clean(action.Path)
		if seenWrites[clean] {
			return ReasonDuplicateWrite
		}
		seenWrites[clean] = true
	}

	if action.Kind == kernel.ActionRunTests {
		if !g.allowedTestArgv(action.Argv) {
			return ReasonBadTestArgv
		}
	}

	if containsNUL(action) {
		return ReasonNulInPayload
	}

	return ReasonOK
}

func containsNUL(a kernel.Action) bool {
	fields := []string{a.Path, a.Content, a.UnifiedDiff, a.Pattern}
	for _, f := range fields {
		if strings.ContainsRune(f, 0) {
			return true
		}
	}
	for _, s := range a.Argv {
		if strings.ContainsRune(s, 0) {
			return true
		}
	}
	for _, s := range a.Paths {
		if strings.ContainsRune(s, 0) {
			return true
		}
	}
	return false
}

// allowedTestArgv checks argv against the allowlisted prefixes; any tokens
// after the prefix must be literal test-node-id tokens matching the node-id
// pattern (no additional flags of any kind).
func (g *Gate) allowedTestArgv(argv []string) bool {
	for _, prefix := range g.config.AllowedTestArgvPrefixes {
		if !hasPrefix(argv, prefix) {
			continue
		}
		rest := argv[len(prefix):]
		for _, tok := range rest {
			if strings.HasPrefix(tok, "-") {
				return false
			}
			if len(tok) > g.config.MaxTestNodeIDLen {
				return false
			}
			if !g.testRE.MatchString(tok) {
				return false
			}
			if strings.Contains(tok, "..") {
				return false
			}
		}
		return true
	}
	return false
}

func hasPrefix(argv, prefix []string) bool {
	if len(argv) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if argv[i] != p {
			return false
		}
	}
	return true
}

// #endregion structural

// #region path-confinement

func (g *Gate) checkPathConfinement(state kernel.StateSnapshot, action kernel.Action) Reason {
	var paths []string
	switch action.Kind {
	case kernel.ActionReadFile, kernel.ActionWriteFile:
		paths = []string{action.Path}
	case kernel.ActionGitDiff, kernel.ActionGrep:
		paths = action.Paths
	default:
		return ReasonOK
	}

	for _, p := range paths {
		if r := g.confinePath(state.WorkspaceRoot, p); r != ReasonOK {
			return r
		}
	}
	return ReasonOK
}

// confinePath applies spec.md invariant 1's lexical checks. Symlink
// resolution against the live filesystem is the Controller's job at
// execution time (defense in depth per §4.2); the Gate, being pure, can only
// reason about the path text itself plus the workspace root text it was
// given.
func (g *Gate) confinePath(workspaceRoot, rel string) Reason {
	if rel == "" {
		return ReasonPathEscape
	}
	if strings.ContainsRune(rel, 0) {
		return ReasonNulInPayload
	}
	if len(rel) > g.config.MaxPathBytes {
		return ReasonPathEscape
	}
	if filepath.IsAbs(rel) {
		return ReasonPathEscape
	}

	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return ReasonPathEscape
	}

	for _, blocked := range g.config.BlockedSegments {
		for _, seg := range strings.Split(clean, string(filepath.Separator)) {
			if seg == blocked {
				return ReasonBlockedSegment
			}
		}
	}

	joined := filepath.Join(workspaceRoot, clean)
	relToRoot, err := filepath.Rel(workspaceRoot, joined)
	if err != nil || relToRoot == ".." || strings.HasPrefix(relToRoot, "../") {
		return ReasonPathEscape
	}

	return ReasonOK
}

// #endregion path-confinement

// #region patch-confinement

func (g *Gate) checkPatchConfinement(state kernel.StateSnapshot, action kernel.Action) Reason {
	if action.Kind != kernel.ActionApplyPatch {
		return ReasonOK
	}

	files, err := patchsafety.Parse(action.UnifiedDiff)
	if err == nil {
		err = patchsafety.Confine(state.WorkspaceRoot, files, g.config.MaxTotalWriteBytes)
	}
	if err != nil {
		if pe, ok := err.(*patchsafety.Error); ok {
			switch pe.Kind {
			case patchsafety.ErrPathEscape:
				return ReasonPathEscape
			case patchsafety.ErrBudgetExceeded:
				return ReasonBudgetExceeded
			}
		}
		return ReasonPatchParseError
	}

	return ReasonOK
}

// #endregion patch-confinement
