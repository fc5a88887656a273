package tuner

import (
	"math"

	"github.com/clinsight/governor/internal/config"
)

// #region window-stats

// WindowStats summarize the rolling 21-day metric window.
type WindowStats struct {
	// FlipRate is the share of consecutive fusion observations that
	// changed level.
	FlipRate float64
	// ConsensusStdDev is the standard deviation of consensus values,
	// in percentage points.
	ConsensusStdDev float64
	// ResponseSuccessRate is completed responses over all responses.
	ResponseSuccessRate float64
	// ManualInterventionsPerDay is the manual-intervention rate.
	ManualInterventionsPerDay float64
}

// consensusSpread is the stddev (pct points) treated as fully
// unstable when normalizing the variance component.
const consensusSpread = 10.0

// #endregion window-stats

// #region stability-score

// StabilityScore combines the four components into [0,1] using the
// configured weights (which sum to 1.0). Each component is oriented so
// that 1 means stable.
func StabilityScore(ws WindowStats, w config.StabilityWeights) float64 {
	return w.FlipRate*(1-clamp01(ws.FlipRate)) +
		w.ConsensusVariance*(1-clamp01(ws.ConsensusStdDev/consensusSpread)) +
		w.ResponseSuccess*clamp01(ws.ResponseSuccessRate) +
		w.ManualIntervention*(1-clamp01(ws.ManualInterventionsPerDay))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion stability-score

// #region series-helpers

// mean of a float series; 0 for empty.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// stddev of a float series; 0 for fewer than two points.
func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// flipRate counts level changes between consecutive observations.
func flipRate(levels []string) float64 {
	if len(levels) < 2 {
		return 0
	}
	flips := 0
	for i := 1; i < len(levels); i++ {
		if levels[i] != levels[i-1] {
			flips++
		}
	}
	return float64(flips) / float64(len(levels)-1)
}

// #endregion series-helpers
