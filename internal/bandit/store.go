// Package bandit implements the kernel's Beta-Bernoulli Thompson-sampling
// arm selector (spec.md §4.6). It is the smallest learning component whose
// contract is well-defined and whose outputs feed the proposer; the kernel
// itself never consults it.
package bandit

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema

// schema follows the teacher's schema-as-string-constant convention
// (internal/state/store.go, internal/orchestrator/memory.go): one constant
// per table, applied with CREATE TABLE IF NOT EXISTS, no migration
// framework.
const schema = `
CREATE TABLE IF NOT EXISTS arms (
	arm_id     TEXT PRIMARY KEY,
	alpha      INTEGER NOT NULL,
	beta       INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS outcomes (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	ts         INTEGER NOT NULL,
	arm_id     TEXT NOT NULL,
	reward     INTEGER NOT NULL,
	episode_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_arm ON outcomes(arm_id);
`

// #endregion schema

// #region store

// Store persists BanditState in SQLite, single-writer, transactional
// (spec.md §4.6, "Persistence"), matching the teacher's
// internal/state.Store and internal/orchestrator.StrategyMemory: open,
// PRAGMA journal_mode=WAL, run the schema, done.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the bandit's SQLite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("bandit: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("bandit: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bandit: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// #endregion store

// #region arm-io

// loadArm returns an arm's Beta parameters, or the (1,1) prior if the arm
// has never been seen.
func (s *Store) loadArm(armID string) (alpha, beta int64, err error) {
	row := s.db.QueryRow(`SELECT alpha, beta FROM arms WHERE arm_id = ?`, armID)
	err = row.Scan(&alpha, &beta)
	if err == sql.ErrNoRows {
		return 1, 1, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("bandit: load arm %s: %w", armID, err)
	}
	return alpha, beta, nil
}

// loadAllArms returns every enabled arm's parameters, seeding any arm in
// enabledArmIDs that has no row yet with the (1,1) prior.
func (s *Store) loadAllArms(enabledArmIDs []string) (map[string][2]int64, error) {
	out := make(map[string][2]int64, len(enabledArmIDs))
	for _, id := range enabledArmIDs {
		alpha, beta, err := s.loadArm(id)
		if err != nil {
			return nil, err
		}
		out[id] = [2]int64{alpha, beta}
	}
	return out, nil
}

// updateArm applies a reward transactionally: upsert the arm's (alpha,beta)
// and append an outcomes row, matching spec.md §4.6 ("Updates are
// transactional").
func (s *Store) updateArm(armID string, reward int, episodeID string, now time.Time) error {
	if reward != 0 && reward != 1 {
		return fmt.Errorf("bandit: reward must be 0 or 1, got %d", reward)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("bandit: begin tx: %w", err)
	}
	defer tx.Rollback()

	alpha, beta, err := txLoadArm(tx, armID)
	if err != nil {
		return err
	}
	if reward == 1 {
		alpha++
	} else {
		beta++
	}

	nowUnix := now.UnixMicro()
	if _, err := tx.Exec(
		`INSERT INTO arms (arm_id, alpha, beta, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(arm_id) DO UPDATE SET alpha=excluded.alpha, beta=excluded.beta, updated_at=excluded.updated_at`,
		armID, alpha, beta, nowUnix,
	); err != nil {
		return fmt.Errorf("bandit: upsert arm: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO outcomes (ts, arm_id, reward, episode_id) VALUES (?, ?, ?, ?)`,
		nowUnix, armID, reward, episodeID,
	); err != nil {
		return fmt.Errorf("bandit: insert outcome: %w", err)
	}

	return tx.Commit()
}

func txLoadArm(tx *sql.Tx, armID string) (alpha, beta int64, err error) {
	row := tx.QueryRow(`SELECT alpha, beta FROM arms WHERE arm_id = ?`, armID)
	err = row.Scan(&alpha, &beta)
	if err == sql.ErrNoRows {
		return 1, 1, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("load arm %s: %w", armID, err)
	}
	return alpha, beta, nil
}

// #endregion arm-io
