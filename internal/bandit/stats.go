package bandit

import "fmt"

// #region arm-stats

// ArmStats is one row of the read-only leaderboard, adapted from
// upstream_learner/outcomes_db.py's get_arm_stats: per-arm pull count,
// empirical mean, and current posterior mean. It does not feed back into
// Select/Update — it exists purely for operator-facing inspection (the
// kernel's "inspect" CLI, spec.md §6).
type ArmStats struct {
	ArmID         string
	Alpha         int64
	Beta          int64
	Pulls         int64
	Wins          int64
	PosteriorMean float64
	EmpiricalMean float64
}

// Stats returns a leaderboard row per enabled arm, ordered by posterior
// mean descending.
func (b *Bandit) Stats() ([]ArmStats, error) {
	params, err := b.store.loadAllArms(b.arms)
	if err != nil {
		return nil, err
	}

	out := make([]ArmStats, 0, len(b.arms))
	for _, armID := range b.arms {
		p := params[armID]
		pulls, wins, err := b.store.armOutcomeCounts(armID)
		if err != nil {
			return nil, err
		}
		stat := ArmStats{
			ArmID:         armID,
			Alpha:         p[0],
			Beta:          p[1],
			Pulls:         pulls,
			Wins:          wins,
			PosteriorMean: float64(p[0]) / float64(p[0]+p[1]),
		}
		if pulls > 0 {
			stat.EmpiricalMean = float64(wins) / float64(pulls)
		}
		out = append(out, stat)
	}

	sortArmStatsByPosteriorMeanDesc(out)
	return out, nil
}

func sortArmStatsByPosteriorMeanDesc(stats []ArmStats) {
	for i := 1; i < len(stats); i++ {
		j := i
		for j > 0 && stats[j-1].PosteriorMean < stats[j].PosteriorMean {
			stats[j-1], stats[j] = stats[j], stats[j-1]
			j--
		}
	}
}

// #endregion arm-stats

// #region summary

// Summary mirrors outcomes_db.py's get_summary: aggregate pulls/wins across
// every enabled arm.
type Summary struct {
	TotalPulls int64
	TotalWins  int64
	ArmCount   int
}

// Summary aggregates Stats() across all enabled arms.
func (b *Bandit) Summary() (Summary, error) {
	stats, err := b.Stats()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{ArmCount: len(stats)}
	for _, a := range stats {
		s.TotalPulls += a.Pulls
		s.TotalWins += a.Wins
	}
	return s, nil
}

// #endregion summary

func (s *Store) armOutcomeCounts(armID string) (pulls, wins int64, err error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(reward), 0) FROM outcomes WHERE arm_id = ?`, armID,
	)
	if err := row.Scan(&pulls, &wins); err != nil {
		return 0, 0, fmt.Errorf("bandit: outcome counts for %s: %w", armID, err)
	}
	return pulls, wins, nil
}
