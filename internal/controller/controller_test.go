package controller

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/rfsnkernel/internal/gate"
	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/runner"
)

func testKey() kernel.KernelKey {
	var k kernel.KernelKey
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func newTestController() *Controller {
	return New(DefaultConfig(), testKey(), runner.NewSubprocess())
}

func approve(t *testing.T, workspaceRoot string, actions ...kernel.Action) kernel.Decision {
	t.Helper()
	g := gate.New(gate.DefaultConfig(), testKey())
	state := kernel.StateSnapshot{WorkspaceRoot: workspaceRoot}
	proposal := kernel.Proposal{ProposalID: "p1", Actions: actions}
	d := g.Evaluate(state, proposal)
	if !d.Allowed {
		t.Fatalf("setup: gate denied proposal: %s", d.Reason)
	}
	return d
}

func TestWriteFileThenReadFile(t *testing.T) {
	ws := t.TempDir()
	c := newTestController()
	d := approve(t, ws, kernel.Action{Kind: kernel.ActionWriteFile, Path: "src/a.py", Content: "x=2\n"})

	results, err := c.Execute(context.Background(), kernel.StateSnapshot{WorkspaceRoot: ws}, d)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 1 || !results[0].OK {
		t.Fatalf("unexpected results: %+v", results)
	}

	data, err := os.ReadFile(filepath.Join(ws, "src/a.py"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "x=2\n" {
		t.Fatalf("content = %q, want %q", data, "x=2\n")
	}
}

func TestDecisionReusedRefused(t *testing.T) {
	ws := t.TempDir()
	c := newTestController()
	d := approve(t, ws, kernel.Action{Kind: kernel.ActionWriteFile, Path: "a.txt", Content: "hi"})
	state := kernel.StateSnapshot{WorkspaceRoot: ws}

	if _, err := c.Execute(context.Background(), state, d); err != nil {
		t.Fatalf("first execute: %v", err)
	}
	_, err := c.Execute(context.Background(), state, d)
	if err == nil {
		t.Fatal("expected decision_reused error on second execute")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Kind != kernel.ErrorDecisionReused {
		t.Fatalf("err = %v, want decision_reused", err)
	}
}

func TestInvalidSignatureRefused(t *testing.T) {
	ws := t.TempDir()
	c := New(DefaultConfig(), testKey(), runner.NewSubprocess())
	d := approve(t, ws, kernel.Action{Kind: kernel.ActionWriteFile, Path: "a.txt", Content: "hi"})
	d.Signature[0] ^= 0xFF // tamper

	_, err := c.Execute(context.Background(), kernel.StateSnapshot{WorkspaceRoot: ws}, d)
	if err == nil {
		t.Fatal("expected signature_invalid error")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Kind != kernel.ErrorSignatureInvalid {
		t.Fatalf("err = %v, want signature_invalid", err)
	}
}

func TestDeniedDecisionExecutesNothing(t *testing.T) {
	ws := t.TempDir()
	c := newTestController()
	g := gate.New(gate.DefaultConfig(), testKey())
	d := g.Evaluate(kernel.StateSnapshot{WorkspaceRoot: ws}, kernel.Proposal{ProposalID: "p1"})
	if d.Allowed {
		t.Fatal("setup: expected denial for empty proposal")
	}

	results, err := c.Execute(context.Background(), kernel.StateSnapshot{WorkspaceRoot: ws}, d)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for denied decision, got %d", len(results))
	}
}

func TestWriteThenRunTests(t *testing.T) {
	ws := t.TempDir()
	if err := os.WriteFile(filepath.Join(ws, "a.py"), []byte("x=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newTestController()
	d := approve(t, ws,
		kernel.Action{Kind: kernel.ActionWriteFile, Path: "a.py", Content: "x=2\n"},
		kernel.Action{Kind: kernel.ActionRunTests, Argv: []string{"pytest", "-q"}},
	)

	results, err := c.Execute(context.Background(), kernel.StateSnapshot{WorkspaceRoot: ws}, d)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// RUN_TESTS will fail to even launch pytest in a bare tmp dir (no
	// interpreter guaranteed); what matters is it ran and didn't halt
	// propagation of the earlier write.
	if !results[0].OK {
		t.Fatalf("write result not ok: %+v", results[0])
	}
}

// TestNotAttemptedAfterPatchFailed exercises the Controller's own halt
// behavior: a failing APPLY_PATCH (no .git directory present) must stop
// the proposal, leaving the following action marked not_attempted even
// though the Gate approved both.
func TestNotAttemptedAfterPatchFailed(t *testing.T) {
	ws := t.TempDir()
	c := newTestController()
	d := approve(t, ws,
		kernel.Action{Kind: kernel.ActionApplyPatch, UnifiedDiff: "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1 +1 @@\n-a\n+b\n"},
		kernel.Action{Kind: kernel.ActionWriteFile, Path: "after.txt", Content: "hi"},
	)

	results, err := c.Execute(context.Background(), kernel.StateSnapshot{WorkspaceRoot: ws}, d)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].OK || results[0].ErrorKind != kernel.ErrorPatchFailed {
		t.Fatalf("result[0] = %+v, want patch_failed", results[0])
	}
	if results[1].OK || results[1].ErrorKind != kernel.ErrorNotAttempted {
		t.Fatalf("result[1] = %+v, want not_attempted", results[1])
	}
	if _, err := os.Stat(filepath.Join(ws, "after.txt")); !os.IsNotExist(err) {
		t.Fatal("after.txt should not have been written")
	}
}
