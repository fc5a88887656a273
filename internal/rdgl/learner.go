// Package rdgl is the reinforcement-driven governance learner: it
// scores the last 24 hours of observed outcomes, folds the reward into
// a bounded scalar policy score, and derives the behavior mode that
// scales how far the Threshold Tuner may move.
package rdgl

import (
	"log"
	"time"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/history"
	"github.com/clinsight/governor/internal/store"
)

// #region pure

// ComputeReward folds the outcome features through the weight table.
// Improvement-like features contribute positively, waste and override
// features negatively; that sign contract is load-bearing even though
// the magnitudes are configuration.
func ComputeReward(f Features, w config.RewardWeights) (float64, Breakdown) {
	b := Breakdown{}
	if f.ForecastImproved {
		b["forecast_improved"] = w.ForecastImproved
	}
	if f.ReducedHighRiskDays {
		b["reduced_high_risk_days"] = w.ReducedHighRiskDays
	}
	if f.SelfHealCount > 0 {
		b["self_heal_actions"] = w.SelfHealAction * float64(f.SelfHealCount)
	}
	if f.AvoidedRed {
		b["avoided_red"] = w.AvoidedRed
	}
	if f.UnnecessaryActions > 0 {
		b["unnecessary_actions"] = w.UnnecessaryAction * float64(f.UnnecessaryActions)
	}
	if f.BrakeEngagements > 0 {
		b["brake_engagements"] = w.BrakeEngagement * float64(f.BrakeEngagements)
	}
	if f.ManualUnlocks > 0 {
		b["manual_unlocks"] = w.ManualUnlock * float64(f.ManualUnlocks)
	}
	var total float64
	for _, v := range b {
		total += v
	}
	return total, b
}

// UpdateScore applies the clamped update rule.
func UpdateScore(old, reward, learningRate float64) float64 {
	s := old + reward*learningRate
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// ModeFor maps a score to its band. Bands are ordered by MinScore
// descending; the first band the score meets wins. A score exactly on
// an exclusive bound falls through to the next band, so 70 is Normal
// while anything above it is Relaxed.
func ModeFor(score float64, bands []config.ModeBand) (Mode, [2]float64) {
	for _, b := range bands {
		if score > b.MinScore || (score == b.MinScore && !b.ExclusiveMin) {
			return Mode(b.Mode), b.ShiftRange
		}
	}
	return ModeLocked, [2]float64{0, 0}
}

// #endregion pure

// #region learner

// Learner runs the daily policy-score cycle.
type Learner struct {
	store   *store.Store
	cfg     config.RDGL
	archive *history.Archive
	audit   *audit.Writer
	now     func() time.Time
}

// NewLearner wires a Learner. archive and now may be nil.
func NewLearner(s *store.Store, cfg config.RDGL, archive *history.Archive, now func() time.Time) *Learner {
	if now == nil {
		now = time.Now
	}
	return &Learner{
		store:   s,
		cfg:     cfg,
		archive: archive,
		audit:   audit.NewWriter(s.Path(store.AuditFile)),
		now:     now,
	}
}

// Load reads the persisted policy score; absent file starts at a
// neutral 50 in normal mode.
func (l *Learner) Load() (PolicyScore, error) {
	st := PolicyScore{Score: 50, PreviousScore: 50, Mode: ModeNormal, Trend: TrendStable}
	mode, rng := ModeFor(st.Score, l.cfg.Bands)
	st.Mode = mode
	st.ShiftPercentRange = rng
	if _, err := l.store.ReadJSON(store.RDGLAdjustmentsFile, &st); err != nil {
		return st, err
	}
	return st, nil
}

// #endregion learner

// #region run

// Run performs one learner cycle. Dry runs compute everything but
// persist nothing.
func (l *Learner) Run(dryRun bool) (Result, error) {
	now := l.now().UTC()
	prev, err := l.Load()
	if err != nil {
		return Result{}, err
	}

	obs, err := l.observe(now)
	if err != nil {
		return Result{}, err
	}

	reward, breakdown := ComputeReward(obs.features, l.cfg.Weights)
	newScore := UpdateScore(prev.Score, reward, l.cfg.LearningRate)
	mode, shiftRange := ModeFor(newScore, l.cfg.Bands)

	st := PolicyScore{
		Score:             newScore,
		PreviousScore:     prev.Score,
		Reward24h:         reward,
		Mode:              mode,
		ShiftPercentRange: shiftRange,
		LastUpdated:       now,
		Trend:             l.trend(now, reward),
	}
	res := Result{State: st, Features: obs.features, Breakdown: breakdown, DryRun: dryRun}
	if dryRun {
		log.Printf("[RDGL] dry-run: reward=%.2f score=%.2f→%.2f mode=%s", reward, prev.Score, newScore, mode)
		return res, nil
	}

	if err := l.store.WriteJSON(store.RDGLAdjustmentsFile, st); err != nil {
		return Result{}, err
	}
	err = l.store.AppendLine(store.RewardLogFile, rewardLogEntry{
		Timestamp:    now,
		Reward:       reward,
		Breakdown:    breakdown,
		PolicyScore:  newScore,
		ForecastRisk: obs.forecast,
		FusionLevel:  obs.fusionLevel,
		LearningRate: l.cfg.LearningRate,
	})
	if err != nil {
		return Result{}, err
	}
	marker := audit.Stamp("UPDATED", now, "score="+fmtScore(newScore)+" mode="+string(mode))
	if err := l.audit.Upsert(audit.PrefixRDGL, marker); err != nil {
		return Result{}, err
	}
	if l.archive != nil {
		if err := l.archive.RecordReward(now, reward, newScore); err != nil {
			log.Printf("[RDGL] archive write failed: %v", err)
		}
	}

	log.Printf("[RDGL] reward=%.2f score=%.2f→%.2f mode=%s trend=%s", reward, prev.Score, newScore, mode, st.Trend)
	return res, nil
}

// trend labels the last 7 days of rewards by mean. The archive window
// query is preferred when available; the JSONL reward log stays the
// fallback and the canonical record.
func (l *Learner) trend(now time.Time, current float64) string {
	cutoff := now.Add(-7 * 24 * time.Hour)
	sum := current
	n := 1

	if l.archive != nil {
		if rows, err := l.archive.RewardsSince(cutoff, now); err == nil {
			for _, r := range rows {
				sum += r.Reward
				n++
			}
			return l.trendLabel(sum / float64(n))
		}
	}

	_ = l.store.EachLine(store.RewardLogFile, func(line []byte) error {
		var e rewardLogEntry
		if err := jsonUnmarshal(line, &e); err != nil {
			return nil
		}
		if e.Timestamp.Before(cutoff) {
			return nil
		}
		sum += e.Reward
		n++
		return nil
	})
	return l.trendLabel(sum / float64(n))
}

func (l *Learner) trendLabel(mean float64) string {
	switch {
	case mean > l.cfg.TrendEpsilon:
		return TrendImproving
	case mean < -l.cfg.TrendEpsilon:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// #endregion run
