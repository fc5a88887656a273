// Package config holds every tunable the governance engines consult:
// escalation thresholds, trust minimums, reward weights, mode bands,
// shift factors, and hard safety floors. Values load from an optional
// YAML file; anything absent keeps its default. The heuristic
// coefficients are configuration, not proven constants — only the sign
// and monotonicity contracts are load-bearing.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileEnv points at an alternate config file; defaults to
// governor.yaml in the base dir when unset.
const FileEnv = "GOVERNOR_CONFIG"

// #region sections

// Fusion configures the Fusion Engine.
type Fusion struct {
	// ConsensusEscalationPct escalates one step when weighted
	// consensus falls below it.
	ConsensusEscalationPct float64 `yaml:"consensus_escalation_pct"`
}

// TrustGuard configures the lock state machine.
type TrustGuard struct {
	IntegrityMin           float64 `yaml:"integrity_min"`
	ConsensusMin           float64 `yaml:"consensus_min"`
	ReputationMin          float64 `yaml:"reputation_min"`
	AutoUnlockAfterMinutes int     `yaml:"auto_unlock_after_minutes"`
	LockWindowMinutes      int     `yaml:"lock_window_minutes"`
	MaxManualUnlocksPerDay int     `yaml:"max_manual_unlocks_per_day"`
}

// Brake configures the 24h sliding-window rate limiter.
type Brake struct {
	MaxResponses24h int `yaml:"max_responses_24h"`
}

// Response configures the planner/executor.
type Response struct {
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`
}

// RewardWeights are the per-feature reward contributions. Sign
// contract: improvement-like features positive, waste/override
// features negative.
type RewardWeights struct {
	ForecastImproved    float64 `yaml:"forecast_improved"`
	ReducedHighRiskDays float64 `yaml:"reduced_high_risk_days"`
	SelfHealAction      float64 `yaml:"self_heal_action"`
	AvoidedRed          float64 `yaml:"avoided_red"`
	UnnecessaryAction   float64 `yaml:"unnecessary_action"`
	BrakeEngagement     float64 `yaml:"brake_engagement"`
	ManualUnlock        float64 `yaml:"manual_unlock"`
}

// ModeBand maps a score interval to a behavior mode and its permitted
// threshold shift range in percent.
type ModeBand struct {
	MinScore float64 `yaml:"min_score"`
	// ExclusiveMin makes the band start strictly above MinScore; a
	// score equal to MinScore falls through to the next band.
	ExclusiveMin bool       `yaml:"exclusive_min"`
	Mode         string     `yaml:"mode"`
	ShiftRange   [2]float64 `yaml:"shift_range"`
}

// RDGL configures the policy learner.
type RDGL struct {
	LearningRate float64       `yaml:"learning_rate"`
	Weights      RewardWeights `yaml:"weights"`
	// Bands are evaluated top-down; the first band whose MinScore the
	// score meets wins. Must be sorted by MinScore descending.
	Bands []ModeBand `yaml:"bands"`
	// TrendEpsilon separates Improving/Declining from Stable on the
	// 7-day mean reward.
	TrendEpsilon float64 `yaml:"trend_epsilon"`
}

// Floors are the absolute safety floors no tuning may cross.
type Floors struct {
	Integrity    float64 `yaml:"integrity"`
	Consensus    float64 `yaml:"consensus"`
	Reputation   float64 `yaml:"reputation"`
	ForecastHigh float64 `yaml:"forecast_high"`
}

// StabilityWeights combine the four stability components; they must
// sum to 1.0.
type StabilityWeights struct {
	FlipRate           float64 `yaml:"flip_rate"`
	ConsensusVariance  float64 `yaml:"consensus_variance"`
	ResponseSuccess    float64 `yaml:"response_success"`
	ManualIntervention float64 `yaml:"manual_intervention"`
}

// Tuner configures autonomous threshold tuning.
type Tuner struct {
	StabilityMin     float64            `yaml:"stability_min"`
	MaxShiftPercent  float64            `yaml:"max_shift_percent"`
	ModeFactors      map[string]float64 `yaml:"mode_factors"`
	Floors           Floors             `yaml:"floors"`
	StabilityWeights StabilityWeights   `yaml:"stability_weights"`
	MinHistoryDays   int                `yaml:"min_history_days"`
}

// #endregion sections

// #region config

// Config is the root of all engine tunables.
type Config struct {
	Fusion     Fusion     `yaml:"fusion"`
	TrustGuard TrustGuard `yaml:"trust_guard"`
	Brake      Brake      `yaml:"brake"`
	Response   Response   `yaml:"response"`
	RDGL       RDGL       `yaml:"rdgl"`
	Tuner      Tuner      `yaml:"tuner"`
}

// Default returns the shipped defaults.
func Default() Config {
	return Config{
		Fusion: Fusion{ConsensusEscalationPct: 92.0},
		TrustGuard: TrustGuard{
			IntegrityMin:           90.0,
			ConsensusMin:           90.0,
			ReputationMin:          60.0,
			AutoUnlockAfterMinutes: 60,
			LockWindowMinutes:      60,
			MaxManualUnlocksPerDay: 2,
		},
		Brake:    Brake{MaxResponses24h: 10},
		Response: Response{CommandTimeoutSeconds: 120},
		RDGL: RDGL{
			LearningRate: 0.05,
			Weights: RewardWeights{
				ForecastImproved:    2.0,
				ReducedHighRiskDays: 1.5,
				SelfHealAction:      0.5,
				AvoidedRed:          1.0,
				UnnecessaryAction:   -1.0,
				BrakeEngagement:     -2.0,
				ManualUnlock:        -1.5,
			},
			Bands: []ModeBand{
				{MinScore: 70.0, ExclusiveMin: true, Mode: "relaxed", ShiftRange: [2]float64{1.0, 3.0}},
				{MinScore: 40.0, Mode: "normal", ShiftRange: [2]float64{0.5, 2.0}},
				{MinScore: 20.0, Mode: "tightening", ShiftRange: [2]float64{0.2, 1.0}},
				{MinScore: 0.0, Mode: "locked", ShiftRange: [2]float64{0.0, 0.0}},
			},
			TrendEpsilon: 0.5,
		},
		Tuner: Tuner{
			StabilityMin:    0.85,
			MaxShiftPercent: 3.0,
			ModeFactors: map[string]float64{
				"relaxed":    1.2,
				"normal":     1.0,
				"tightening": 0.7,
				"locked":     0.0,
			},
			Floors: Floors{
				Integrity:    85.0,
				Consensus:    90.0,
				Reputation:   50.0,
				ForecastHigh: 0.60,
			},
			StabilityWeights: StabilityWeights{
				FlipRate:           0.3,
				ConsensusVariance:  0.2,
				ResponseSuccess:    0.3,
				ManualIntervention: 0.2,
			},
			MinHistoryDays: 7,
		},
	}
}

// Load reads the YAML config at path over the defaults. A missing
// file returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// #endregion config
