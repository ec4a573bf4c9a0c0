package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/rfsnkernel/internal/gate"
	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/ledger"
)

func testKey() kernel.KernelKey {
	var k kernel.KernelKey
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

// writeEpisode drives one S1-style episode (approve & execute) through the
// Gate and Ledger, mirroring what an episode supervisor would record, and
// returns the ledger path.
func writeEpisode(t *testing.T, workspaceRoot string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer l.Close()

	key := testKey()
	g := gate.New(gate.DefaultConfig(), key)

	state := kernel.StateSnapshot{WorkspaceRoot: workspaceRoot}
	proposal := kernel.Proposal{
		ProposalID: "p1",
		Actions: []kernel.Action{
			{Kind: kernel.ActionWriteFile, Path: "src/a.py", Content: "x=2\n"},
			{Kind: kernel.ActionRunTests, Argv: []string{"pytest", "-q"}},
		},
	}

	if _, err := l.Append(kernel.EventEpisodeBegin, kernel.EpisodeBeginPayload{
		EpisodeID: "ep1", State: state, KernelVersion: "v1", RulesetVersion: "v1",
	}, 1000); err != nil {
		t.Fatalf("append episode_begin: %v", err)
	}
	if _, err := l.Append(kernel.EventProposalSeen, kernel.ProposalSeenPayload{
		EpisodeID: "ep1", Proposal: proposal,
	}, 1001); err != nil {
		t.Fatalf("append proposal_seen: %v", err)
	}

	d := g.Evaluate(state, proposal)
	if _, err := l.Append(kernel.EventGateDecision, kernel.GateDecisionPayload{
		EpisodeID: "ep1", InputHash: d.InputHash.String(), Allowed: d.Allowed,
		Reason: d.Reason, ApprovedActions: d.ApprovedActions, Signature: d.Signature.String(),
	}, 1002); err != nil {
		t.Fatalf("append gate_decision: %v", err)
	}

	for i, a := range d.ApprovedActions {
		if _, err := l.Append(kernel.EventExecResult, kernel.ExecResultPayload{
			EpisodeID: "ep1",
			Result:    kernel.ExecResult{ActionIndex: i, Kind: a.Kind, OK: true},
		}, int64(1003+i)); err != nil {
			t.Fatalf("append exec_result %d: %v", i, err)
		}
	}

	if _, err := l.Append(kernel.EventEpisodeEnd, kernel.EpisodeEndPayload{
		EpisodeID: "ep1", Status: "completed",
	}, 1010); err != nil {
		t.Fatalf("append episode_end: %v", err)
	}

	return path
}

func TestVerifyValidEpisode(t *testing.T) {
	ws := t.TempDir()
	path := writeEpisode(t, ws)

	v, err := Verify(path, testKey(), gate.DefaultConfig())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Valid || v.Reason != ReasonOK {
		t.Fatalf("verdict = %+v, want valid", v)
	}
	if v.EntryCount != 5 {
		t.Fatalf("entry_count = %d, want 5", v.EntryCount)
	}
}

// TestVerifyDetectsTampering is spec.md §8 scenario S4: flip a bit in the
// payload of an entry and expect hash_mismatch with the right first
// divergence.
func TestVerifyDetectsTampering(t *testing.T) {
	ws := t.TempDir()
	path := writeEpisode(t, ws)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(raw)
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %d", len(lines))
	}
	// entry 2 (gate_decision) payload contains `"allowed":true`; flip it.
	tampered := []byte(replaceOnce(string(lines[2]), `"allowed":true`, `"allowed":false`))
	lines[2] = tampered
	if err := os.WriteFile(path, joinLines(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Verify(path, testKey(), gate.DefaultConfig())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Valid {
		t.Fatal("expected invalid verdict after tampering")
	}
	if v.Reason != ReasonHashMismatch {
		t.Fatalf("reason = %q, want hash_mismatch", v.Reason)
	}
	if v.FirstDivergence == nil || v.FirstDivergence.Seq != 2 {
		t.Fatalf("first_divergence = %+v, want seq=2", v.FirstDivergence)
	}
}

func TestVerifyEmptyLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Verify(path, testKey(), gate.DefaultConfig())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Valid || v.Reason != ReasonEmptyLedger {
		t.Fatalf("verdict = %+v, want empty_ledger", v)
	}
}

// TestVerifySignatureInvalid checks that a Decision signed under one key
// fails verification under another, without the chain hash itself being
// touched.
func TestVerifySignatureInvalid(t *testing.T) {
	ws := t.TempDir()
	path := writeEpisode(t, ws)

	var otherKey kernel.KernelKey
	for i := range otherKey {
		otherKey[i] = byte(255 - i)
	}

	v, err := Verify(path, otherKey, gate.DefaultConfig())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.Valid || v.Reason != ReasonSignatureInvalid {
		t.Fatalf("verdict = %+v, want signature_invalid", v)
	}
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}

func joinLines(lines [][]byte) []byte {
	var out []byte
	for _, l := range lines {
		out = append(out, l...)
		out = append(out, '\n')
	}
	return out
}

func replaceOnce(s, old, new string) string {
	idx := indexOf(s, old)
	if idx < 0 {
		return s
	}
	return s[:idx] + new + s[idx+len(old):]
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
