// Command run drives the episode loop against a workspace: select an arm,
// obtain a proposal, gate it, execute approved actions, and record every
// step to the ledger (spec.md §6, "CLI surface of the episode runner").
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/rfsnkernel/internal/bandit"
	"github.com/danielpatrickdp/rfsnkernel/internal/controller"
	"github.com/danielpatrickdp/rfsnkernel/internal/episode"
	"github.com/danielpatrickdp/rfsnkernel/internal/gate"
	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
	"github.com/danielpatrickdp/rfsnkernel/internal/klog"
	"github.com/danielpatrickdp/rfsnkernel/internal/ledger"
	"github.com/danielpatrickdp/rfsnkernel/internal/proposer"
	"github.com/danielpatrickdp/rfsnkernel/internal/runner"
)

const (
	kernelVersion  = "1.0.0"
	rulesetVersion = "1.0.0"
	defaultArm     = "deterministic_stub"
)

func main() {
	workspace := flag.String("workspace", "", "path to the workspace to operate on")
	episodes := flag.Int("episodes", 1, "number of episodes to run")
	verbose := flag.Bool("verbose", false, "log every episode's decision and results")
	flag.Parse()

	if *workspace == "" || *episodes < 1 {
		fmt.Fprintln(os.Stderr, "usage: run --workspace <path> --episodes <n> [--verbose]")
		os.Exit(64)
	}

	log := klog.New("run")

	resolved, err := filepath.EvalSymlinks(*workspace)
	if err != nil {
		log.Fatal("resolve workspace root", klog.F("err", err.Error()))
	}
	*workspace = resolved

	key, err := envOrGeneratedKey(log)
	if err != nil {
		log.Fatal("load kernel key", klog.F("err", err.Error()))
	}

	runLogsDir := filepath.Join(*workspace, "run_logs")
	if err := os.MkdirAll(runLogsDir, 0o755); err != nil {
		log.Fatal("create run_logs dir", klog.F("err", err.Error()))
	}

	l, err := ledger.Open(filepath.Join(runLogsDir, "ledger.jsonl"))
	if err != nil {
		log.Fatal("open ledger", klog.F("err", err.Error()))
	}
	defer l.Close()

	store, err := bandit.Open(filepath.Join(*workspace, "outcomes.sqlite"))
	if err != nil {
		log.Fatal("open bandit store", klog.F("err", err.Error()))
	}
	defer store.Close()

	sup := &episode.Supervisor{
		Gate:           gate.New(gate.DefaultConfig(), key),
		Controller:     controller.New(controller.DefaultConfig(), key, runner.NewSubprocess()),
		Ledger:         l,
		Bandit:         bandit.New(store, []string{defaultArm}),
		Proposer:       proposer.DeterministicStub{},
		Log:            log,
		KernelVersion:  kernelVersion,
		RulesetVersion: rulesetVersion,
	}

	ctx := context.Background()
	for i := 0; i < *episodes; i++ {
		result, err := sup.Run(ctx, *workspace, int64(i))
		if err != nil {
			log.Fatal("episode failed", klog.F("episode", i), klog.F("err", err.Error()))
		}
		if *verbose {
			log.Info("episode finished",
				klog.F("episode_id", result.EpisodeID),
				klog.F("status", result.Status),
				klog.F("allowed", result.Allowed),
				klog.F("reason", result.Reason),
			)
		}
	}
}

// envOrGeneratedKey reads RFSN_KERNEL_KEY if set, otherwise generates a
// fresh key for this process and logs a warning that it is ephemeral; the
// generated key itself is not printed (spec.md §5, "the kernel signing key
// is read once at startup and held immutably").
func envOrGeneratedKey(log *klog.Logger) (kernel.KernelKey, error) {
	if hexKey := os.Getenv("RFSN_KERNEL_KEY"); hexKey != "" {
		return kernel.KeyFromHex(hexKey)
	}
	key, err := kernel.GenerateKey()
	if err != nil {
		return kernel.KernelKey{}, err
	}
	log.Warn("RFSN_KERNEL_KEY not set, generated an ephemeral key for this process; replay of this run's ledger will require the same key")
	return key, nil
}
