package signal

import "time"

// #region policy-state

// PolicyState is the tri-state pipeline policy signal.
type PolicyState string

const (
	PolicyGreen  PolicyState = "GREEN"
	PolicyYellow PolicyState = "YELLOW"
	PolicyRed    PolicyState = "RED"
)

// #endregion policy-state

// #region forecast

// ForecastRisk is the externally produced forecast risk level.
type ForecastRisk string

const (
	ForecastLow    ForecastRisk = "low"
	ForecastMedium ForecastRisk = "medium"
	ForecastHigh   ForecastRisk = "high"
)

// Rank orders forecast levels for improvement comparisons.
func (f ForecastRisk) Rank() int {
	switch f {
	case ForecastLow:
		return 0
	case ForecastMedium:
		return 1
	default:
		return 2
	}
}

// #endregion forecast

// #region snapshot

// Snapshot is the read-only per-cycle view of the upstream signals.
// Every field has a neutral default used when its file is missing or
// malformed, so an incomplete state dir never fails a run.
type Snapshot struct {
	Policy          PolicyState
	ConsensusPct    float64
	ReputationIndex float64
	IntegrityScore  float64
	Forecast        ForecastRisk
	ReadAt          time.Time
}

// #endregion snapshot

// #region file-shapes

// policyStateFile mirrors policy_state.json.
type policyStateFile struct {
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// consensusFile mirrors weighted_consensus.json.
type consensusFile struct {
	WeightedConsensusPct float64 `json:"weighted_consensus_pct"`
}

// reputationFile mirrors reputation_index.json.
type reputationFile struct {
	ReputationIndex float64 `json:"reputation_index"`
}

// integrityFile mirrors integrity_scores.json; Score is the latest
// value, History the bounded trailing series kept by the producer.
type integrityFile struct {
	Score   float64   `json:"score"`
	History []float64 `json:"history"`
}

// forecastFile mirrors forecast_state.json.
type forecastFile struct {
	RiskLevel string `json:"risk_level"`
}

// #endregion file-shapes
