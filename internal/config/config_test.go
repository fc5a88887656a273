package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInvariants(t *testing.T) {
	cfg := Default()

	// Stability weights must sum to 1.0.
	w := cfg.Tuner.StabilityWeights
	sum := w.FlipRate + w.ConsensusVariance + w.ResponseSuccess + w.ManualIntervention
	assert.InDelta(t, 1.0, sum, 1e-9)

	// Mode bands are sorted by MinScore descending and cover zero.
	bands := cfg.RDGL.Bands
	require.NotEmpty(t, bands)
	for i := 1; i < len(bands); i++ {
		assert.Greater(t, bands[i-1].MinScore, bands[i].MinScore)
	}
	assert.Equal(t, 0.0, bands[len(bands)-1].MinScore)
	assert.Equal(t, "locked", bands[len(bands)-1].Mode)
	assert.Equal(t, [2]float64{0, 0}, bands[len(bands)-1].ShiftRange)

	// Reward weight sign contract.
	rw := cfg.RDGL.Weights
	for name, v := range map[string]float64{
		"forecast_improved":      rw.ForecastImproved,
		"reduced_high_risk_days": rw.ReducedHighRiskDays,
		"self_heal_action":       rw.SelfHealAction,
		"avoided_red":            rw.AvoidedRed,
	} {
		assert.Positive(t, v, name)
	}
	for name, v := range map[string]float64{
		"unnecessary_action": rw.UnnecessaryAction,
		"brake_engagement":   rw.BrakeEngagement,
		"manual_unlock":      rw.ManualUnlock,
	} {
		assert.Negative(t, v, name)
	}

	// Every mode band has a factor entry.
	for _, b := range bands {
		_, ok := cfg.Tuner.ModeFactors[b.Mode]
		assert.True(t, ok, "missing mode factor for %s", b.Mode)
	}
	assert.Equal(t, 0.0, cfg.Tuner.ModeFactors["locked"])

	// Floors sit at or below the shipped trust minimums.
	assert.LessOrEqual(t, cfg.Tuner.Floors.Integrity, cfg.TrustGuard.IntegrityMin)
	assert.LessOrEqual(t, cfg.Tuner.Floors.Consensus, cfg.Fusion.ConsensusEscalationPct)
	assert.False(t, math.IsNaN(cfg.Tuner.MaxShiftPercent))
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesSelectedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governor.yaml")
	doc := `
fusion:
  consensus_escalation_pct: 95.0
brake:
  max_responses_24h: 3
trust_guard:
  max_manual_unlocks_per_day: 1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 95.0, cfg.Fusion.ConsensusEscalationPct)
	assert.Equal(t, 3, cfg.Brake.MaxResponses24h)
	assert.Equal(t, 1, cfg.TrustGuard.MaxManualUnlocksPerDay)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().RDGL, cfg.RDGL)
	assert.Equal(t, Default().Tuner, cfg.Tuner)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fusion: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
