// Package tuner adjusts the numeric decision thresholds within hard
// safety floors. The permitted shift per cycle is scaled by the RDGL
// behavior mode; an unstable window, a trust lock, an engaged brake,
// or a RED fusion level each force the locked branch.
package tuner

import (
	"fmt"
	"log"
	"time"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/brake"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/fusion"
	"github.com/clinsight/governor/internal/history"
	"github.com/clinsight/governor/internal/rdgl"
	"github.com/clinsight/governor/internal/signal"
	"github.com/clinsight/governor/internal/store"
	"github.com/clinsight/governor/internal/trustguard"
)

// #region tuner

// Tuner runs the autonomous threshold-tuning cycle.
type Tuner struct {
	store   *store.Store
	cfg     config.Config
	archive *history.Archive
	guard   *trustguard.Guard
	brake   *brake.Brake
	audit   *audit.Writer
	now     func() time.Time
}

// NewTuner wires a Tuner. archive and now may be nil.
func NewTuner(s *store.Store, cfg config.Config, archive *history.Archive, now func() time.Time) *Tuner {
	if now == nil {
		now = time.Now
	}
	return &Tuner{
		store:   s,
		cfg:     cfg,
		archive: archive,
		guard:   trustguard.NewGuard(s, cfg.TrustGuard, now),
		brake:   brake.NewBrake(s, cfg.Brake, now),
		audit:   audit.NewWriter(s.Path(store.AuditFile)),
		now:     now,
	}
}

// LoadPolicy reads the persisted threshold policy; absent file means
// defaults.
func (t *Tuner) LoadPolicy() (Policy, error) {
	p := DefaultPolicy()
	if _, err := t.store.ReadJSON(store.ThresholdPolicyFile, &p); err != nil {
		return p, err
	}
	return p, nil
}

// #endregion tuner

// #region run

// Run performs one tuning cycle. Dry runs compute everything but
// persist nothing.
func (t *Tuner) Run(dryRun bool) (Result, error) {
	now := t.now().UTC()
	before, err := t.LoadPolicy()
	if err != nil {
		return Result{}, err
	}
	policy := before

	// RDGL consultation: mode scales the permitted shift.
	learner := rdgl.NewLearner(t.store, t.cfg.RDGL, t.archive, t.now)
	policyScore, err := learner.Load()
	if err != nil {
		return Result{}, err
	}
	factor := t.cfg.Tuner.ModeFactors[string(policyScore.Mode)]
	scaled := [2]float64{
		policyScore.ShiftPercentRange[0] * factor,
		policyScore.ShiftPercentRange[1] * factor,
	}
	if scaled[1] > t.cfg.Tuner.MaxShiftPercent {
		scaled[1] = t.cfg.Tuner.MaxShiftPercent
	}
	if scaled[0] > scaled[1] {
		scaled[0] = scaled[1]
	}

	window, stats, err := t.collectWindow(now)
	if err != nil {
		return Result{}, err
	}
	stability := StabilityScore(stats, t.cfg.Tuner.StabilityWeights)

	// Locked-branch reasons are not mutually exclusive; record all.
	reasons, err := t.lockReasons(window, scaled, stability)
	if err != nil {
		return Result{}, err
	}

	status := StatusStable
	if len(reasons) > 0 {
		status = StatusLocked
	} else {
		status = t.adjust(&policy, window, scaled[1])
	}

	policy.Status = status
	policy.RDGLModeUsed = string(policyScore.Mode)
	policy.RDGLShiftRangeUsed = policyScore.ShiftPercentRange
	policy.RDGLScaledPercentRange = scaled
	policy.StabilityScore = stability
	policy.LastUpdated = now
	applyFloors(&policy, t.cfg.Tuner.Floors)

	res := Result{
		Policy:         policy,
		Status:         status,
		Reasons:        reasons,
		StabilityScore: stability,
		DryRun:         dryRun,
	}
	if dryRun {
		log.Printf("[TUNER] dry-run: status=%s stability=%.3f reasons=%v", status, stability, reasons)
		return res, nil
	}

	if err := t.persist(before, policy, res, policyScore, now); err != nil {
		return Result{}, err
	}
	log.Printf("[TUNER] status=%s stability=%.3f mode=%s shift<=%.2f%%", status, stability, policyScore.Mode, scaled[1])
	return res, nil
}

// lockReasons collects every condition that forces the locked branch.
func (t *Tuner) lockReasons(w windowData, scaled [2]float64, stability float64) ([]string, error) {
	var reasons []string
	if w.daysCovered < t.cfg.Tuner.MinHistoryDays {
		reasons = append(reasons, "insufficient_history")
	}
	if stability < t.cfg.Tuner.StabilityMin {
		reasons = append(reasons, fmt.Sprintf("stability_%.2f_below_%.2f", stability, t.cfg.Tuner.StabilityMin))
	}
	if scaled[1] <= 0 {
		reasons = append(reasons, "rdgl_mode_locked")
	}
	lock, err := t.guard.Load()
	if err != nil {
		return nil, err
	}
	if lock.Locked {
		reasons = append(reasons, "trust_guard_locked")
	}
	brakeState, err := t.brake.Load()
	if err != nil {
		return nil, err
	}
	if brakeState.IsEngaged {
		reasons = append(reasons, "safety_brake_engaged")
	}
	var fs fusion.State
	if ok, err := t.store.ReadJSON(store.FusionStateFile, &fs); err != nil {
		return nil, err
	} else if ok && fs.Level == fusion.LevelRed {
		reasons = append(reasons, "fusion_red")
	}
	return reasons, nil
}

// #endregion run

// #region adjust

// adjust applies the per-metric trend nudges in place and returns the
// resulting status. shiftPct is the effective maximum shift for the
// cycle; every nudge uses exactly that percentage, so the per-cycle
// shift invariant holds by construction.
func (t *Tuner) adjust(p *Policy, w windowData, shiftPct float64) string {
	tightened, relaxed := false, false
	floors := t.cfg.Tuner.Floors

	// Integrity: declining quality raises the bars, improving lowers.
	switch trendOf(w.integrityRecent, w.integrityPrior) {
	case trendDeclining:
		p.Integrity.Green = raise(p.Integrity.Green, shiftPct, 100)
		p.Integrity.Yellow = raise(p.Integrity.Yellow, shiftPct, 100)
		tightened = true
	case trendImproving:
		p.Integrity.Green = lower(p.Integrity.Green, shiftPct, floors.Integrity)
		p.Integrity.Yellow = lower(p.Integrity.Yellow, shiftPct, floors.Integrity)
		relaxed = true
	}

	// Consensus: same shape, its own floor.
	switch trendOf(w.consensusRecent, w.consensusPrior) {
	case trendDeclining:
		p.Consensus.Green = raise(p.Consensus.Green, shiftPct, 100)
		p.Consensus.Yellow = raise(p.Consensus.Yellow, shiftPct, 100)
		tightened = true
	case trendImproving:
		p.Consensus.Green = lower(p.Consensus.Green, shiftPct, floors.Consensus)
		p.Consensus.Yellow = lower(p.Consensus.Yellow, shiftPct, floors.Consensus)
		relaxed = true
	}

	// Forecast: proportion-based nudges on the high trigger.
	if w.highRiskShare > 0.30 {
		p.Forecast.High = lower(p.Forecast.High, shiftPct, floors.ForecastHigh)
		tightened = true
	} else if w.highRiskShare < 0.10 && w.observations > 0 {
		p.Forecast.High = raise(p.Forecast.High, shiftPct, 0.95)
		relaxed = true
	}

	// Reputation: declining peer quality raises the minimum.
	switch trendOf(w.reputationRecent, w.reputationPrior) {
	case trendDeclining:
		p.Reputation.MinPeerScore = raise(p.Reputation.MinPeerScore, shiftPct, 100)
		tightened = true
	case trendImproving:
		p.Reputation.MinPeerScore = lower(p.Reputation.MinPeerScore, shiftPct, floors.Reputation)
		relaxed = true
	}

	switch {
	case tightened:
		return StatusRising
	case relaxed:
		return StatusFalling
	default:
		return StatusStable
	}
}

type trend int

const (
	trendFlat trend = iota
	trendImproving
	trendDeclining
)

// trendOf compares the last-7-day mean with the prior-14-day mean.
func trendOf(recent, prior []float64) trend {
	if len(recent) == 0 || len(prior) == 0 {
		return trendFlat
	}
	r, p := mean(recent), mean(prior)
	switch {
	case r < p:
		return trendDeclining
	case r > p:
		return trendImproving
	default:
		return trendFlat
	}
}

func raise(v, pct, ceiling float64) float64 {
	nv := v * (1 + pct/100)
	if nv > ceiling {
		return ceiling
	}
	return nv
}

func lower(v, pct, floor float64) float64 {
	nv := v * (1 - pct/100)
	if nv < floor {
		return floor
	}
	return nv
}

// applyFloors re-clamps every threshold to its absolute safety floor;
// runs before every write regardless of how the values were produced.
func applyFloors(p *Policy, f config.Floors) {
	if p.Integrity.Green < f.Integrity {
		p.Integrity.Green = f.Integrity
	}
	if p.Integrity.Yellow < f.Integrity {
		p.Integrity.Yellow = f.Integrity
	}
	if p.Consensus.Green < f.Consensus {
		p.Consensus.Green = f.Consensus
	}
	if p.Consensus.Yellow < f.Consensus {
		p.Consensus.Yellow = f.Consensus
	}
	if p.Reputation.MinPeerScore < f.Reputation {
		p.Reputation.MinPeerScore = f.Reputation
	}
	if p.Forecast.High < f.ForecastHigh {
		p.Forecast.High = f.ForecastHigh
	}
}

// #endregion adjust

// #region window

// windowData is the raw 21-day view split into the 7/14-day halves
// the trend comparison needs.
type windowData struct {
	daysCovered      int
	observations     int
	highRiskShare    float64
	integrityRecent  []float64
	integrityPrior   []float64
	consensusRecent  []float64
	consensusPrior   []float64
	reputationRecent []float64
	reputationPrior  []float64
}

// collectWindow pulls the 21-day metric window from the archive.
// Without an archive the window is empty and the tuner locks on
// insufficient history.
func (t *Tuner) collectWindow(now time.Time) (windowData, WindowStats, error) {
	var w windowData
	var stats WindowStats
	if t.archive == nil {
		return w, stats, nil
	}

	since := now.Add(-21 * 24 * time.Hour)
	split := now.Add(-7 * 24 * time.Hour)

	rows, err := t.archive.MetricsSince(since, now)
	if err != nil {
		return w, stats, err
	}
	var levels []string
	var consensusAll []float64
	highRisk := 0
	for _, r := range rows {
		levels = append(levels, r.FusionLevel)
		consensusAll = append(consensusAll, r.Consensus)
		if r.ForecastRisk == string(signal.ForecastHigh) {
			highRisk++
		}
		if r.RecordedAt.Before(split) {
			w.integrityPrior = append(w.integrityPrior, r.Integrity)
			w.consensusPrior = append(w.consensusPrior, r.Consensus)
			w.reputationPrior = append(w.reputationPrior, r.Reputation)
		} else {
			w.integrityRecent = append(w.integrityRecent, r.Integrity)
			w.consensusRecent = append(w.consensusRecent, r.Consensus)
			w.reputationRecent = append(w.reputationRecent, r.Reputation)
		}
	}
	w.observations = len(rows)
	if len(rows) > 0 {
		w.highRiskShare = float64(highRisk) / float64(len(rows))
	}
	w.daysCovered, err = t.archive.DaysCovered(since)
	if err != nil {
		return w, stats, err
	}

	responses, err := t.archive.ResponsesSince(since, now)
	if err != nil {
		return w, stats, err
	}
	completed := 0
	for _, r := range responses {
		if r.Status == "completed" || r.Status == "no_action" {
			completed++
		}
	}
	successRate := 1.0
	if len(responses) > 0 {
		successRate = float64(completed) / float64(len(responses))
	}

	interventions, err := t.archive.InterventionCount(since, now)
	if err != nil {
		return w, stats, err
	}

	stats = WindowStats{
		FlipRate:                  flipRate(levels),
		ConsensusStdDev:           stddev(consensusAll),
		ResponseSuccessRate:       successRate,
		ManualInterventionsPerDay: float64(interventions) / 21.0,
	}
	return w, stats, nil
}

// #endregion window

// #region persist

func (t *Tuner) persist(before, after Policy, res Result, score rdgl.PolicyScore, now time.Time) error {
	if err := t.store.WriteJSON(store.ThresholdPolicyFile, after); err != nil {
		return err
	}
	err := t.store.AppendLine(store.TuningHistoryFile, historyEntry{
		Timestamp:      now,
		Status:         res.Status,
		Reasons:        res.Reasons,
		StabilityScore: res.StabilityScore,
		RDGLMode:       after.RDGLModeUsed,
		ScaledRange:    after.RDGLScaledPercentRange,
		Before:         before,
		After:          after,
	})
	if err != nil {
		return err
	}
	marker := audit.Stamp("UPDATED", now, "status="+res.Status)
	if err := t.audit.Upsert(audit.PrefixThresholdTuner, marker); err != nil {
		return err
	}
	consulted := audit.Stamp("CONSULTED", now,
		fmt.Sprintf("mode=%s range=[%.2f,%.2f]", score.Mode, after.RDGLScaledPercentRange[0], after.RDGLScaledPercentRange[1]))
	if err := t.audit.Upsert(audit.PrefixRDGLIntegration, consulted); err != nil {
		return err
	}
	return t.store.MergeSummary(map[string]any{
		"threshold_status": res.Status,
		"stability_score":  res.StabilityScore,
		"last_tuning_at":   now.Format(time.RFC3339),
	})
}

// #endregion persist
