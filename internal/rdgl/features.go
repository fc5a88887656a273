package rdgl

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/clinsight/governor/internal/fusion"
	"github.com/clinsight/governor/internal/signal"
	"github.com/clinsight/governor/internal/store"
)

// #region observation

// observation is the raw 24h outcome view the features derive from.
type observation struct {
	features    Features
	fusionLevel fusion.Level
	forecast    signal.ForecastRisk
}

// observe extracts the outcome features from the fusion log, response
// history, trust-lock log, current snapshots, and (when available) the
// metrics archive.
func (l *Learner) observe(now time.Time) (observation, error) {
	cutoff := now.Add(-24 * time.Hour)
	obs := observation{fusionLevel: fusion.LevelGreen, forecast: signal.ForecastLow}
	obs.features.AvoidedRed = true

	// --- Fusion log: current level and whether RED was avoided ---
	err := l.store.EachLine(store.FusionLogFile, func(line []byte) error {
		var st fusion.State
		if err := json.Unmarshal(line, &st); err != nil {
			return nil
		}
		if st.ComputedAt.Before(cutoff) {
			return nil
		}
		obs.fusionLevel = st.Level
		if st.Level == fusion.LevelRed {
			obs.features.AvoidedRed = false
		}
		return nil
	})
	if err != nil {
		return obs, err
	}

	// --- Current forecast, compared against the previous cycle ---
	snap := signal.NewReader(l.store, l.now).Snapshot()
	obs.forecast = snap.Forecast
	if prevForecast, ok := l.lastLoggedForecast(); ok {
		obs.features.ForecastImproved = snap.Forecast.Rank() < prevForecast.Rank()
	}

	// --- Response history: self-heals, waste, brake blocks ---
	type responseLine struct {
		Timestamp     time.Time `json:"timestamp"`
		ActionsTaken  []string  `json:"actions_taken"`
		Status        string    `json:"status"`
		BlockedReason string    `json:"blocked_reason"`
	}
	fusionGreenQuiet := obs.fusionLevel == fusion.LevelGreen && snap.Forecast == signal.ForecastLow
	err = l.store.EachLine(store.ResponseHistoryFile, func(line []byte) error {
		var r responseLine
		if err := json.Unmarshal(line, &r); err != nil {
			return nil
		}
		if r.Timestamp.Before(cutoff) {
			return nil
		}
		for _, a := range r.ActionsTaken {
			if a == "self_heal_trigger" {
				obs.features.SelfHealCount++
			}
		}
		if r.BlockedReason == "safety_brake_engaged" {
			obs.features.BrakeEngagements++
		}
		// Actions taken while fusion is GREEN and the forecast is low
		// count as waste.
		if fusionGreenQuiet && r.Status != "blocked" && len(r.ActionsTaken) > 0 {
			obs.features.UnnecessaryActions++
		}
		return nil
	})
	if err != nil {
		return obs, err
	}

	// --- Trust-lock log: manual unlocks ---
	type lockLine struct {
		Timestamp time.Time `json:"timestamp"`
		Event     string    `json:"event"`
	}
	err = l.store.EachLine(store.TrustLockLogFile, func(line []byte) error {
		var e lockLine
		if err := json.Unmarshal(line, &e); err != nil {
			return nil
		}
		if e.Timestamp.Before(cutoff) {
			return nil
		}
		if e.Event == "manual_unlock" {
			obs.features.ManualUnlocks++
		}
		return nil
	})
	if err != nil {
		return obs, err
	}

	// --- Archive: high-risk-day comparison over the last two weeks ---
	if l.archive != nil {
		obs.features.ReducedHighRiskDays = l.reducedHighRiskDays(now)
	}

	return obs, nil
}

// lastLoggedForecast returns the forecast risk recorded by the most
// recent reward-log entry.
func (l *Learner) lastLoggedForecast() (signal.ForecastRisk, bool) {
	var last signal.ForecastRisk
	found := false
	_ = l.store.EachLine(store.RewardLogFile, func(line []byte) error {
		var e rewardLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil
		}
		last = e.ForecastRisk
		found = true
		return nil
	})
	return last, found
}

// reducedHighRiskDays compares high-forecast days in the last 7 days
// against the 7 days before that.
func (l *Learner) reducedHighRiskDays(now time.Time) bool {
	recent := l.highRiskDayCount(now.Add(-7*24*time.Hour), now)
	prior := l.highRiskDayCount(now.Add(-14*24*time.Hour), now.Add(-7*24*time.Hour))
	return recent < prior
}

func (l *Learner) highRiskDayCount(since, until time.Time) int {
	rows, err := l.archive.MetricsSince(since, until)
	if err != nil {
		return 0
	}
	days := map[string]struct{}{}
	for _, r := range rows {
		if r.ForecastRisk == string(signal.ForecastHigh) {
			days[r.RecordedAt.Format("2006-01-02")] = struct{}{}
		}
	}
	return len(days)
}

// #endregion observation

// #region helpers

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func fmtScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64)
}

// #endregion helpers
