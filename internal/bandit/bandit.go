package bandit

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/danielpatrickdp/rfsnkernel/internal/kernel"
)

// #region bandit

// Bandit selects among a fixed registry of named strategy arms using
// Beta-Bernoulli Thompson sampling, and learns from binary rewards (spec.md
// §4.6). It exposes only Select and Update to the proposer; arm semantics
// are defined entirely outside the kernel, which never calls either
// method itself.
type Bandit struct {
	store *Store
	arms  []string
}

// New constructs a Bandit over the given enabled arm registry, persisting
// state through store.
func New(store *Store, enabledArmIDs []string) *Bandit {
	arms := make([]string, len(enabledArmIDs))
	copy(arms, enabledArmIDs)
	sort.Strings(arms) // fixed iteration order; selection itself still depends on the seed, not map order
	return &Bandit{store: store, arms: arms}
}

// #endregion bandit

// #region select

// Select samples theta_a ~ Beta(alpha_a, beta_a) for every enabled arm and
// returns the arg-max. Ties are broken using seed, so the same seed over
// the same persisted state reproduces the same choice (spec.md §4.6,
// "random tie-break using a caller-supplied seed for reproducibility in
// tests").
func (b *Bandit) Select(seed int64) (string, error) {
	if len(b.arms) == 0 {
		return "", fmt.Errorf("bandit: no enabled arms")
	}

	params, err := b.store.loadAllArms(b.arms)
	if err != nil {
		return "", err
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed>>32)|1))

	bestID := ""
	bestVal := -1.0
	bestTieBreak := 0.0
	for _, armID := range b.arms {
		p := params[armID]
		val := sampleBeta(rng, float64(p[0]), float64(p[1]))
		tie := rng.Float64()
		if val > bestVal || (val == bestVal && tie > bestTieBreak) {
			bestVal = val
			bestTieBreak = tie
			bestID = armID
		}
	}
	return bestID, nil
}

// #endregion select

// #region update

// Update increments alpha (reward=1) or beta (reward=0) for armID and
// records the outcome. alpha_a and beta_a are non-decreasing across calls
// (spec.md §8, "Bandit update is monotonic").
func (b *Bandit) Update(armID string, reward int, episodeID string, now time.Time) error {
	return b.store.updateArm(armID, reward, episodeID, now)
}

// #endregion update

// #region state

// State returns the current persisted (alpha,beta) for every enabled arm
// as kernel.BanditState values, for inspection or ledger auditing.
func (b *Bandit) State() ([]kernel.BanditState, error) {
	params, err := b.store.loadAllArms(b.arms)
	if err != nil {
		return nil, err
	}
	out := make([]kernel.BanditState, 0, len(b.arms))
	for _, armID := range b.arms {
		p := params[armID]
		out = append(out, kernel.BanditState{ArmID: armID, Alpha: p[0], Beta: p[1]})
	}
	return out, nil
}

// #endregion state
