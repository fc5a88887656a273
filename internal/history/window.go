package history

import (
	"fmt"
	"time"
)

// #region rows

// MetricRow is one archived fusion-cycle measurement.
type MetricRow struct {
	RecordedAt   time.Time
	FusionLevel  string
	Integrity    float64
	Consensus    float64
	Reputation   float64
	ForecastRisk string
}

// ResponseRow is one archived response run.
type ResponseRow struct {
	RecordedAt time.Time
	RiskLevel  string
	Status     string
}

// RewardRow is one archived reward cycle.
type RewardRow struct {
	RecordedAt  time.Time
	Reward      float64
	PolicyScore float64
}

// #endregion rows

// #region queries

// MetricsSince returns metric rows in [since, until], oldest first.
func (a *Archive) MetricsSince(since, until time.Time) ([]MetricRow, error) {
	rows, err := a.db.Query(
		`SELECT recorded_at, fusion_level, integrity, consensus, reputation, forecast_risk
		 FROM metric_runs WHERE recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at ASC`,
		since.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	var out []MetricRow
	for rows.Next() {
		var r MetricRow
		var at string
		if err := rows.Scan(&at, &r.FusionLevel, &r.Integrity, &r.Consensus, &r.Reputation, &r.ForecastRisk); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResponsesSince returns response rows in [since, until], oldest first.
func (a *Archive) ResponsesSince(since, until time.Time) ([]ResponseRow, error) {
	rows, err := a.db.Query(
		`SELECT recorded_at, risk_level, status
		 FROM response_runs WHERE recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at ASC`,
		since.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []ResponseRow
	for rows.Next() {
		var r ResponseRow
		var at string
		if err := rows.Scan(&at, &r.RiskLevel, &r.Status); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// InterventionCount counts manual-intervention events in [since, until].
func (a *Archive) InterventionCount(since, until time.Time) (int, error) {
	var n int
	err := a.db.QueryRow(
		`SELECT COUNT(*) FROM intervention_events WHERE recorded_at >= ? AND recorded_at <= ?`,
		since.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

// RewardsSince returns reward rows in [since, until], oldest first.
func (a *Archive) RewardsSince(since, until time.Time) ([]RewardRow, error) {
	rows, err := a.db.Query(
		`SELECT recorded_at, reward, policy_score
		 FROM reward_runs WHERE recorded_at >= ? AND recorded_at <= ? ORDER BY recorded_at ASC`,
		since.UTC().Format(time.RFC3339), until.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var out []RewardRow
	for rows.Next() {
		var r RewardRow
		var at string
		if err := rows.Scan(&at, &r.Reward, &r.PolicyScore); err != nil {
			return nil, err
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DaysCovered counts distinct calendar days with metric rows since the
// given instant; the tuner refuses to adjust on thin history.
func (a *Archive) DaysCovered(since time.Time) (int, error) {
	var n int
	err := a.db.QueryRow(
		`SELECT COUNT(DISTINCT substr(recorded_at, 1, 10)) FROM metric_runs WHERE recorded_at >= ?`,
		since.UTC().Format(time.RFC3339),
	).Scan(&n)
	return n, err
}

// #endregion queries
