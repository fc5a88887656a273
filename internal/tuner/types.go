package tuner

import "time"

// #region policy

// Band holds the green/yellow bars for a quality metric.
type Band struct {
	Green  float64 `json:"green"`
	Yellow float64 `json:"yellow"`
}

// ForecastThresholds are the numeric triggers per forecast level.
type ForecastThresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// ResponseLimits are the soft/hard response-count thresholds. Not
// nudged by the tuner; carried through for the Response Planner.
type ResponseLimits struct {
	Soft int `json:"soft"`
	Hard int `json:"hard"`
}

// Reputation holds the minimum acceptable peer score.
type Reputation struct {
	MinPeerScore float64 `json:"min_peer_score"`
}

// Status values of the threshold policy.
const (
	StatusStable  = "stable"
	StatusRising  = "rising"
	StatusFalling = "falling"
	StatusLocked  = "locked"
)

// Policy is the tunable threshold set, mutated in place each cycle
// and always re-clamped to the hard safety floors before writing.
type Policy struct {
	Integrity              Band               `json:"integrity"`
	Consensus              Band               `json:"consensus"`
	Forecast               ForecastThresholds `json:"forecast"`
	Responses              ResponseLimits     `json:"responses"`
	Reputation             Reputation         `json:"reputation"`
	Status                 string             `json:"status"`
	RDGLModeUsed           string             `json:"rdgl_mode_used"`
	RDGLShiftRangeUsed     [2]float64         `json:"rdgl_shift_range_used"`
	RDGLScaledPercentRange [2]float64         `json:"rdgl_scaled_percent_range"`
	StabilityScore         float64            `json:"stability_score"`
	LastUpdated            time.Time          `json:"last_updated"`
}

// DefaultPolicy returns the shipped thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Integrity:  Band{Green: 95.0, Yellow: 90.0},
		Consensus:  Band{Green: 96.0, Yellow: 92.0},
		Forecast:   ForecastThresholds{Low: 0.30, Medium: 0.60, High: 0.85},
		Responses:  ResponseLimits{Soft: 5, Hard: 10},
		Reputation: Reputation{MinPeerScore: 60.0},
		Status:     StatusStable,
	}
}

// #endregion policy

// #region history

// historyEntry is one line of the tuning-history log.
type historyEntry struct {
	Timestamp      time.Time  `json:"timestamp"`
	Status         string     `json:"status"`
	Reasons        []string   `json:"reasons"`
	StabilityScore float64    `json:"stability_score"`
	RDGLMode       string     `json:"rdgl_mode"`
	ScaledRange    [2]float64 `json:"scaled_range"`
	Before         Policy     `json:"before"`
	After          Policy     `json:"after"`
}

// Result is what one tuner cycle produced.
type Result struct {
	Policy         Policy   `json:"policy"`
	Status         string   `json:"status"`
	Reasons        []string `json:"reasons"`
	StabilityScore float64  `json:"stability_score"`
	DryRun         bool     `json:"dry_run"`
}

// #endregion history
