package rdgl

import (
	"time"

	"github.com/clinsight/governor/internal/fusion"
	"github.com/clinsight/governor/internal/signal"
)

// #region mode

// Mode is the discrete behavior mode derived from the policy score.
type Mode string

const (
	ModeRelaxed    Mode = "relaxed"
	ModeNormal     Mode = "normal"
	ModeTightening Mode = "tightening"
	ModeLocked     Mode = "locked"
)

// #endregion mode

// #region policy-score

// Trend labels for the short-window reward trend.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// PolicyScore is the persisted learner state, recomputed once per
// cycle and archived through the append-only reward log.
type PolicyScore struct {
	Score             float64    `json:"policy_score"` // always within [0,100]
	PreviousScore     float64    `json:"previous_score"`
	Reward24h         float64    `json:"reward_24h"`
	Mode              Mode       `json:"mode"`
	ShiftPercentRange [2]float64 `json:"shift_percent_range"`
	LastUpdated       time.Time  `json:"last_updated"`
	Trend             string     `json:"trend"`
}

// #endregion policy-score

// #region features

// Features are the 24h outcome signals the reward derives from.
// Sign contract: the first four raise the reward, the last three
// lower it.
type Features struct {
	ForecastImproved    bool `json:"forecast_improved"`
	ReducedHighRiskDays bool `json:"reduced_high_risk_days"`
	SelfHealCount       int  `json:"self_heal_count_24h"`
	AvoidedRed          bool `json:"avoided_red"`
	UnnecessaryActions  int  `json:"unnecessary_actions"`
	BrakeEngagements    int  `json:"brake_engagements"`
	ManualUnlocks       int  `json:"manual_unlocks"`
}

// Breakdown records each feature's signed reward contribution.
type Breakdown map[string]float64

// #endregion features

// #region reward-log

// rewardLogEntry is one line of the append-only reward log.
type rewardLogEntry struct {
	Timestamp    time.Time           `json:"timestamp"`
	Reward       float64             `json:"reward"`
	Breakdown    Breakdown           `json:"breakdown"`
	PolicyScore  float64             `json:"policy_score"`
	ForecastRisk signal.ForecastRisk `json:"forecast_risk"`
	FusionLevel  fusion.Level        `json:"fusion_level"`
	LearningRate float64             `json:"learning_rate"`
}

// #endregion reward-log

// #region result

// Result is what one learner cycle produced.
type Result struct {
	State     PolicyScore `json:"state"`
	Features  Features    `json:"features"`
	Breakdown Breakdown   `json:"breakdown"`
	DryRun    bool        `json:"dry_run"`
}

// #endregion result
