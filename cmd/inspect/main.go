// Command inspect prints the bandit arm leaderboard: current Beta
// parameters, pull/win counts, and posterior/empirical means (SPEC_FULL.md
// supplemented features, adapted from the teacher's cmd/inspect).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/rfsnkernel/internal/bandit"
)

func main() {
	dbPath := flag.String("db", "", "path to outcomes.sqlite")
	arms := flag.String("arms", "deterministic_stub", "comma-separated enabled arm ids")
	jsonOut := flag.Bool("json", false, "output as JSON instead of a table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/outcomes.sqlite [--arms a,b,c] [--json]")
		os.Exit(2)
	}

	store, err := bandit.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	b := bandit.New(store, splitArms(*arms))

	stats, err := b.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "stats: %v\n", err)
		os.Exit(1)
	}
	summary, err := b.Summary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "summary: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{"arms": stats, "summary": summary}); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printTable(stats, summary)
}

func printTable(stats []bandit.ArmStats, summary bandit.Summary) {
	fmt.Printf("%-24s  %6s  %6s  %6s  %6s  %10s  %10s\n",
		"Arm", "Alpha", "Beta", "Pulls", "Wins", "Posterior", "Empirical")
	fmt.Printf("%-24s  %6s  %6s  %6s  %6s  %10s  %10s\n",
		"------------------------", "------", "------", "------", "------", "----------", "----------")
	for _, s := range stats {
		fmt.Printf("%-24s  %6d  %6d  %6d  %6d  %10.4f  %10.4f\n",
			s.ArmID, s.Alpha, s.Beta, s.Pulls, s.Wins, s.PosteriorMean, s.EmpiricalMean)
	}
	fmt.Printf("\n%d arms, %d pulls, %d wins\n", summary.ArmCount, summary.TotalPulls, summary.TotalWins)
}

func splitArms(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
