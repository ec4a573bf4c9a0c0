package ledger

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/rfsnkernel/internal/canon"
	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
)

func openTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestFirstEntryPrevHashIsZero(t *testing.T) {
	l, _ := openTestLedger(t)
	e, err := l.Append(kernel.EventEpisodeBegin, map[string]string{"episode_id": "e1"}, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if e.Seq != 0 {
		t.Fatalf("seq = %d, want 0", e.Seq)
	}
	if e.PrevHash != (kernel.Hash32{}) {
		t.Fatal("first entry prev_hash must be zero")
	}
}

func TestAppendChainsHashes(t *testing.T) {
	l, _ := openTestLedger(t)
	e1, err := l.Append(kernel.EventEpisodeBegin, map[string]string{"episode_id": "e1"}, 1000)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(kernel.EventProposalSeen, map[string]string{"episode_id": "e1"}, 1001)
	if err != nil {
		t.Fatal(err)
	}
	if e2.Seq != 1 {
		t.Fatalf("seq = %d, want 1", e2.Seq)
	}
	if e2.PrevHash != e1.EntryHash {
		t.Fatal("second entry's prev_hash must equal first entry's entry_hash")
	}
}

func TestEntryHashReproducible(t *testing.T) {
	l, _ := openTestLedger(t)
	payload := map[string]string{"episode_id": "e1"}
	e, err := l.Append(kernel.EventEpisodeBegin, payload, 1000)
	if err != nil {
		t.Fatal(err)
	}

	payloadCanon, err := canon.MarshalStruct(payload)
	if err != nil {
		t.Fatal(err)
	}
	want := ComputeEntryHash(kernel.Hash32{}, 0, 1000, kernel.EventEpisodeBegin, payloadCanon)
	if e.EntryHash != want {
		t.Fatal("entry_hash does not match independently recomputed hash")
	}
}

func TestReopenResumesAtLastGoodPlusOne(t *testing.T) {
	l, path := openTestLedger(t)
	if _, err := l.Append(kernel.EventEpisodeBegin, map[string]string{"episode_id": "e1"}, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(kernel.EventEpisodeEnd, map[string]string{"episode_id": "e1"}, 1001); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	e3, err := l2.Append(kernel.EventEpisodeBegin, map[string]string{"episode_id": "e2"}, 1002)
	if err != nil {
		t.Fatal(err)
	}
	if e3.Seq != 2 {
		t.Fatalf("seq = %d, want 2", e3.Seq)
	}
}

func TestRecoveryTruncatesPartialFinalLine(t *testing.T) {
	l, path := openTestLedger(t)
	e1, err := l.Append(kernel.EventEpisodeBegin, map[string]string{"episode_id": "e1"}, 1000)
	if err != nil {
		t.Fatal(err)
	}
	l.Close()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"seq":1,"ts":1001,"prev_hash":"`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()

	e2, err := l2.Append(kernel.EventEpisodeEnd, map[string]string{"episode_id": "e1"}, 1002)
	if err != nil {
		t.Fatal(err)
	}
	if e2.Seq != 1 {
		t.Fatalf("seq = %d, want 1 (partial line should have been truncated)", e2.Seq)
	}
	if e2.PrevHash != e1.EntryHash {
		t.Fatal("prev_hash after recovery should chain from the last good entry")
	}
}

func TestSecondWriterLockContention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l1.Close()

	_, err = Open(path)
	if err == nil {
		t.Fatal("expected second Open to fail with lock contention")
	}
	lerr, ok := err.(*Error)
	if !ok || lerr.Kind != ErrLockContention {
		t.Fatalf("got %v, want ErrLockContention", err)
	}
}

func TestReadAllMatchesAppendedEntries(t *testing.T) {
	l, path := openTestLedger(t)
	if _, err := l.Append(kernel.EventEpisodeBegin, map[string]string{"episode_id": "e1"}, 1000); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(kernel.EventEpisodeEnd, map[string]string{"episode_id": "e1"}, 1001); err != nil {
		t.Fatal(err)
	}
	l.Close()

	entries, err := ReadAll(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Seq != 0 || entries[1].Seq != 1 {
		t.Fatal("entries out of order")
	}
}

func TestComputeEntryHashMatchesManualConcatenation(t *testing.T) {
	prev := kernel.Hash32{}
	payloadCanon := []byte(`{"a":1}`)
	got := ComputeEntryHash(prev, 7, 1234, kernel.EventExecResult, payloadCanon)

	var buf []byte
	buf = append(buf, prev[:]...)
	var seqB, tsB [8]byte
	binary.BigEndian.PutUint64(seqB[:], 7)
	binary.BigEndian.PutUint64(tsB[:], 1234)
	buf = append(buf, seqB[:]...)
	buf = append(buf, tsB[:]...)
	buf = append(buf, []byte(kernel.EventExecResult)...)
	buf = append(buf, payloadCanon...)
	want := canon.HashBytes(buf)

	if got != kernel.Hash32(want) {
		t.Fatal("ComputeEntryHash does not match manual binary concatenation")
	}
}
