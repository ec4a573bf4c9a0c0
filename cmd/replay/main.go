// Command replay verifies a ledger produced by a kernel episode run: chain
// integrity, gate determinism, and signature validity (spec.md §4.5, §6).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/rfsnkernel/internal/gate"
	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/replay"
)

// #region exit-codes

// Exit codes per spec.md §6: 0 success, 2 ledger invalid, 3 gate
// divergence, 4 I/O error, 64 usage error.
const (
	exitOK             = 0
	exitLedgerInvalid  = 2
	exitGateDivergence = 3
	exitIOError        = 4
	exitUsage          = 64
)

// #endregion exit-codes

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	ledgerPath := fs.String("ledger", "", "path to ledger.jsonl")
	jsonOut := fs.Bool("json", false, "emit the verdict as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *ledgerPath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --ledger <path> [--json]")
		return exitUsage
	}

	key, err := envKernelKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return exitUsage
	}

	verdict, err := replay.Verify(*ledgerPath, key, gate.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return exitIOError
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		if err := enc.Encode(verdict); err != nil {
			fmt.Fprintf(os.Stderr, "replay: encode verdict: %v\n", err)
			return exitIOError
		}
	} else {
		printVerdict(verdict)
	}

	if verdict.Valid {
		return exitOK
	}
	if verdict.Reason == replay.ReasonGateDivergence {
		return exitGateDivergence
	}
	return exitLedgerInvalid
}

func printVerdict(v replay.Verdict) {
	if v.Valid {
		fmt.Printf("valid: entry_count=%d\n", v.EntryCount)
		return
	}
	fmt.Printf("invalid: reason=%s entry_count=%d", v.Reason, v.EntryCount)
	if v.FirstDivergence != nil {
		fmt.Printf(" first_divergence.seq=%d first_divergence.event_type=%s", v.FirstDivergence.Seq, v.FirstDivergence.EventType)
	}
	fmt.Println()
}

func envKernelKey() (kernel.KernelKey, error) {
	hexKey := os.Getenv("RFSN_KERNEL_KEY")
	if hexKey == "" {
		return kernel.KernelKey{}, fmt.Errorf("RFSN_KERNEL_KEY is not set")
	}
	return kernel.KeyFromHex(hexKey)
}
