// Package history keeps a queryable sqlite archive of per-run
// governance metrics. The JSONL logs remain the canonical record; the
// archive exists so the Threshold Tuner and RDGL trend computation can
// run 7/14/21-day window aggregates without rescanning every log.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS metric_runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at   TEXT NOT NULL,
	fusion_level  TEXT NOT NULL,
	integrity     REAL NOT NULL,
	consensus     REAL NOT NULL,
	reputation    REAL NOT NULL,
	forecast_risk TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS response_runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at   TEXT NOT NULL,
	risk_level    TEXT NOT NULL,
	status        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS intervention_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at   TEXT NOT NULL,
	kind          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reward_runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at   TEXT NOT NULL,
	reward        REAL NOT NULL,
	policy_score  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metric_runs_at ON metric_runs(recorded_at);
CREATE INDEX IF NOT EXISTS idx_response_runs_at ON response_runs(recorded_at);
`

// #endregion schema

// #region archive-struct
// Archive manages the metrics archive in SQLite.
type Archive struct {
	db *sql.DB
}

// #endregion archive-struct

// #region constructor
// Open opens the archive database and runs migrations.
func Open(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// #endregion constructor

// #region record

// RecordMetrics appends one fusion-cycle metric row.
func (a *Archive) RecordMetrics(at time.Time, fusionLevel string, integrity, consensus, reputation float64, forecastRisk string) error {
	_, err := a.db.Exec(
		`INSERT INTO metric_runs (recorded_at, fusion_level, integrity, consensus, reputation, forecast_risk)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339), fusionLevel, integrity, consensus, reputation, forecastRisk,
	)
	return err
}

// RecordResponse appends one response-run row.
func (a *Archive) RecordResponse(at time.Time, riskLevel, status string) error {
	_, err := a.db.Exec(
		`INSERT INTO response_runs (recorded_at, risk_level, status) VALUES (?, ?, ?)`,
		at.UTC().Format(time.RFC3339), riskLevel, status,
	)
	return err
}

// RecordIntervention appends one manual-intervention event
// (kind: "manual_unlock", "force_apply", ...).
func (a *Archive) RecordIntervention(at time.Time, kind string) error {
	_, err := a.db.Exec(
		`INSERT INTO intervention_events (recorded_at, kind) VALUES (?, ?)`,
		at.UTC().Format(time.RFC3339), kind,
	)
	return err
}

// RecordReward appends one reward-cycle row.
func (a *Archive) RecordReward(at time.Time, reward, score float64) error {
	_, err := a.db.Exec(
		`INSERT INTO reward_runs (recorded_at, reward, policy_score) VALUES (?, ?, ?)`,
		at.UTC().Format(time.RFC3339), reward, score,
	)
	return err
}

// #endregion record
