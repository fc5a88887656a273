package fusion

import (
	"time"

	"github.com/clinsight/governor/internal/signal"
)

// #region level

// Level is the tri-state aggregate risk signal.
type Level string

const (
	LevelGreen  Level = "GREEN"
	LevelYellow Level = "YELLOW"
	LevelRed    Level = "RED"
)

// Rank orders levels for monotone-escalation checks.
func (l Level) Rank() int {
	switch l {
	case LevelGreen:
		return 0
	case LevelYellow:
		return 1
	default:
		return 2
	}
}

// Escalate raises a level exactly one step, saturating at RED.
func Escalate(l Level) Level {
	switch l {
	case LevelGreen:
		return LevelYellow
	default:
		return LevelRed
	}
}

// #endregion level

// #region inputs

// Inputs is the snapshot of signals one fusion cycle consumes.
type Inputs struct {
	Policy          signal.PolicyState `json:"policy"`
	TrustLocked     bool               `json:"trust_locked"`
	ConsensusPct    float64            `json:"consensus_pct"`
	BrakeEngaged    bool               `json:"brake_engaged"`
	RecentResponses int                `json:"recent_responses"`
}

// Thresholds records the escalation constants used for the cycle.
type Thresholds struct {
	ConsensusEscalationPct float64 `json:"consensus_escalation_pct"`
}

// #endregion inputs

// #region state

// State is the fusion output, created fresh each cycle and superseded
// (not merged) by the next run. Reasons keep rule evaluation order and
// must reproduce byte-identically for identical inputs.
type State struct {
	Level      Level      `json:"level"`
	ComputedAt time.Time  `json:"computed_at"`
	Inputs     Inputs     `json:"inputs"`
	Reasons    []string   `json:"reasons"`
	Thresholds Thresholds `json:"thresholds"`
}

// #endregion state
