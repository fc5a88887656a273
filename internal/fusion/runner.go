package fusion

import (
	"fmt"
	"log"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/brake"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/history"
	"github.com/clinsight/governor/internal/signal"
	"github.com/clinsight/governor/internal/store"
	"github.com/clinsight/governor/internal/trustguard"
)

// #region runner

// Runner executes one fusion cycle: read the signal snapshots,
// recompute the brake verdict, run the rule pass, persist the state,
// append the fusion log, upsert the audit marker, and archive the
// cycle metrics.
type Runner struct {
	store   *store.Store
	engine  *Engine
	signals *signal.Reader
	guard   *trustguard.Guard
	brake   *brake.Brake
	archive *history.Archive
	audit   *audit.Writer
}

// NewRunner wires a Runner against the given store and config.
// archive may be nil (metrics archiving skipped).
func NewRunner(s *store.Store, cfg config.Config, archive *history.Archive) *Runner {
	return &Runner{
		store:   s,
		engine:  NewEngine(cfg.Fusion, nil),
		signals: signal.NewReader(s, nil),
		guard:   trustguard.NewGuard(s, cfg.TrustGuard, nil),
		brake:   brake.NewBrake(s, cfg.Brake, nil),
		archive: archive,
		audit:   audit.NewWriter(s.Path(store.AuditFile)),
	}
}

// #endregion runner

// #region run

// Run performs one full fusion cycle and returns the new state.
func (r *Runner) Run() (State, error) {
	snap := r.signals.Snapshot()

	lock, err := r.guard.Load()
	if err != nil {
		return State{}, err
	}
	// The brake verdict is derived, never latched: recompute it from
	// the response history here so the fusion cycle always sees the
	// current window, and later stages can read the persisted state.
	brakeState, err := r.brake.Check()
	if err != nil {
		return State{}, err
	}

	st := r.engine.Evaluate(Inputs{
		Policy:          snap.Policy,
		TrustLocked:     lock.Locked,
		ConsensusPct:    snap.ConsensusPct,
		BrakeEngaged:    brakeState.IsEngaged,
		RecentResponses: brakeState.ResponseCount24,
	})

	if err := r.store.WriteJSON(store.FusionStateFile, st); err != nil {
		return State{}, err
	}
	if err := r.store.AppendLine(store.FusionLogFile, st); err != nil {
		return State{}, err
	}
	marker := audit.Stamp("UPDATED", st.ComputedAt, fmt.Sprintf("level=%s", st.Level))
	if err := r.audit.Upsert(audit.PrefixFusion, marker); err != nil {
		return State{}, err
	}

	if r.archive != nil {
		err := r.archive.RecordMetrics(st.ComputedAt, string(st.Level),
			snap.IntegrityScore, snap.ConsensusPct, snap.ReputationIndex, string(snap.Forecast))
		if err != nil {
			log.Printf("[FUSION] archive write failed: %v", err)
		}
	}

	log.Printf("[FUSION] level=%s reasons=%v", st.Level, st.Reasons)
	return st, nil
}

// #endregion run
