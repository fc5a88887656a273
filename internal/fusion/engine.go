// Package fusion combines the independent governance signals into one
// aggregate risk level. Rules run in a fixed order and may only
// escalate relative to the level computed so far, never de-escalate.
package fusion

import (
	"fmt"
	"time"

	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/signal"
)

// #region engine

// Engine evaluates the fusion rules.
type Engine struct {
	cfg config.Fusion
	now func() time.Time
}

// NewEngine creates an Engine. now may be nil (wall clock).
func NewEngine(cfg config.Fusion, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{cfg: cfg, now: now}
}

// #endregion engine

// #region evaluate

// Reason strings are stable identifiers; automation matches on them.
const (
	ReasonPolicyRed           = "policy_red"
	ReasonBrakeEngaged        = "safety_brake_engaged"
	ReasonPolicyYellowTrustOK = "policy_yellow_trust_unlocked"
	ReasonPolicyYellowLocked  = "policy_yellow_trust_locked"
)

// Evaluate runs the ordered rule pass over one input snapshot. Pure:
// identical inputs produce identical levels and reason ordering.
func (e *Engine) Evaluate(in Inputs) State {
	level := LevelGreen
	var reasons []string

	// 1. Policy RED is terminal on its own.
	if in.Policy == signal.PolicyRed {
		level = LevelRed
		reasons = append(reasons, ReasonPolicyRed)
	}

	// 2. Safety brake is a hard override, independent of rule 1.
	if in.BrakeEngaged {
		level = LevelRed
		reasons = append(reasons, ReasonBrakeEngaged)
	}

	// 3. Elevated policy with trust intact raises to YELLOW.
	if in.Policy == signal.PolicyYellow && !in.TrustLocked && level != LevelRed {
		level = LevelYellow
		reasons = append(reasons, ReasonPolicyYellowTrustOK)
	}

	// 4. Low consensus escalates exactly one step.
	if in.ConsensusPct < e.cfg.ConsensusEscalationPct {
		level = Escalate(level)
		reasons = append(reasons, fmt.Sprintf("consensus_low_%.1f%%", in.ConsensusPct))
	}

	// 5. A trust lock during elevated policy is itself a risk signal.
	if in.Policy == signal.PolicyYellow && in.TrustLocked && level == LevelYellow {
		level = LevelRed
		reasons = append(reasons, ReasonPolicyYellowLocked)
	}

	return State{
		Level:      level,
		ComputedAt: e.now().UTC(),
		Inputs:     in,
		Reasons:    reasons,
		Thresholds: Thresholds{ConsensusEscalationPct: e.cfg.ConsensusEscalationPct},
	}
}

// #endregion evaluate
