// Package signal reads the upstream-producer snapshots the governance
// loop consumes. The core only reads these files; a missing or
// malformed snapshot degrades to a neutral default rather than failing
// the run.
package signal

import (
	"log"
	"strings"
	"time"

	"github.com/clinsight/governor/internal/store"
)

// #region reader

// Reader loads signal snapshots from the state store.
type Reader struct {
	store *store.Store
	now   func() time.Time
}

// NewReader creates a Reader. now may be nil (wall clock).
func NewReader(s *store.Store, now func() time.Time) *Reader {
	if now == nil {
		now = time.Now
	}
	return &Reader{store: s, now: now}
}

// #endregion reader

// #region snapshot-read

// Snapshot reads the latest value of every upstream signal.
// Neutral defaults: policy GREEN, consensus 100, reputation 100,
// integrity 100, forecast low.
func (r *Reader) Snapshot() Snapshot {
	snap := Snapshot{
		Policy:          PolicyGreen,
		ConsensusPct:    100.0,
		ReputationIndex: 100.0,
		IntegrityScore:  100.0,
		Forecast:        ForecastLow,
		ReadAt:          r.now().UTC(),
	}

	var pol policyStateFile
	if ok, _ := r.store.ReadJSON(store.PolicyStateFile, &pol); ok {
		snap.Policy = NormalizePolicy(pol.State)
	}
	var cons consensusFile
	if ok, _ := r.store.ReadJSON(store.WeightedConsensusFile, &cons); ok {
		snap.ConsensusPct = cons.WeightedConsensusPct
	}
	var rep reputationFile
	if ok, _ := r.store.ReadJSON(store.ReputationIndexFile, &rep); ok {
		snap.ReputationIndex = rep.ReputationIndex
	}
	var integ integrityFile
	if ok, _ := r.store.ReadJSON(store.IntegrityScoresFile, &integ); ok {
		snap.IntegrityScore = integ.Score
	}
	var fc forecastFile
	if ok, _ := r.store.ReadJSON(store.ForecastStateFile, &fc); ok {
		snap.Forecast = NormalizeForecast(fc.RiskLevel)
	}

	return snap
}

// #endregion snapshot-read

// #region normalize

// NormalizePolicy maps a raw policy string to a PolicyState. Unknown
// values are logged and treated as RED, the most conservative branch.
func NormalizePolicy(raw string) PolicyState {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "GREEN":
		return PolicyGreen
	case "YELLOW":
		return PolicyYellow
	case "RED":
		return PolicyRed
	default:
		log.Printf("[SIGNAL] unknown policy state %q, treating as RED", raw)
		return PolicyRed
	}
}

// NormalizeForecast maps a raw forecast string to a ForecastRisk.
// Unknown values are logged and treated as high.
func NormalizeForecast(raw string) ForecastRisk {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return ForecastLow
	case "medium":
		return ForecastMedium
	case "high":
		return ForecastHigh
	default:
		log.Printf("[SIGNAL] unknown forecast risk %q, treating as high", raw)
		return ForecastHigh
	}
}

// #endregion normalize
