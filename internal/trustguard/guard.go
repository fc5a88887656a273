// Package trustguard maintains the lock state machine that gates
// autonomous actions. States: Unlocked, Locked, Bypassed. A breach of
// any trust minimum locks; an active override suppresses the lock; an
// operator may manually unlock a bounded number of times per day.
package trustguard

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/store"
)

// #region guard

// Guard evaluates trust metrics and persists the lock state.
type Guard struct {
	store *store.Store
	cfg   config.TrustGuard
	audit *audit.Writer
	now   func() time.Time
}

// NewGuard creates a Guard. now may be nil (wall clock).
func NewGuard(s *store.Store, cfg config.TrustGuard, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		store: s,
		cfg:   cfg,
		audit: audit.NewWriter(s.Path(store.AuditFile)),
		now:   now,
	}
}

// Load reads the persisted lock state; absent file means unlocked.
func (g *Guard) Load() (LockState, error) {
	var st LockState
	if _, err := g.store.ReadJSON(store.TrustLockStateFile, &st); err != nil {
		return st, err
	}
	return st, nil
}

// #endregion guard

// #region breaches

// detectBreaches compares metrics against the configured minimums.
// Breach strings are stable and ordered integrity, consensus, reputation.
func (g *Guard) detectBreaches(m Metrics) []string {
	var breaches []string
	if m.IntegrityScore < g.cfg.IntegrityMin {
		breaches = append(breaches, fmt.Sprintf("integrity_%.1f_below_%.1f", m.IntegrityScore, g.cfg.IntegrityMin))
	}
	if m.ConsensusPct < g.cfg.ConsensusMin {
		breaches = append(breaches, fmt.Sprintf("consensus_%.1f_below_%.1f", m.ConsensusPct, g.cfg.ConsensusMin))
	}
	if m.ReputationIndex < g.cfg.ReputationMin {
		breaches = append(breaches, fmt.Sprintf("reputation_%.1f_below_%.1f", m.ReputationIndex, g.cfg.ReputationMin))
	}
	return breaches
}

// #endregion breaches

// #region check

// Check runs one breach evaluation and applies the resulting
// transition. bypass is the external override flag.
func (g *Guard) Check(m Metrics, bypass bool) (CheckResult, error) {
	st, err := g.Load()
	if err != nil {
		return CheckResult{}, err
	}
	now := g.now().UTC()
	g.rollManualCounter(&st, now)

	breaches := g.detectBreaches(m)
	st.Metrics = m
	res := CheckResult{Breaches: breaches}

	switch {
	case len(breaches) == 0:
		// Clean check clears any lock or bypass.
		if st.Locked || st.Bypass {
			res.Transition = TransitionUnlocked
		} else {
			res.Transition = TransitionNone
		}
		st.Locked = false
		st.Bypass = false
		st.Reason = ""
		st.UnlockScheduledAt = time.Time{}

	case bypass:
		// Breach persists but the override suppresses the lock.
		st.Locked = false
		st.Bypass = true
		st.Reason = strings.Join(breaches, ",")
		res.Transition = TransitionBypassed

	case st.Locked && now.Before(st.LockedAt.Add(g.lockWindow())):
		// Hysteresis: a breach inside the lock window neither
		// shortens nor extends it; LockedAt is preserved.
		st.Reason = strings.Join(breaches, ",")
		res.Transition = TransitionHeld

	case st.Locked:
		// Window elapsed with the breach still present: refresh.
		st.LockedAt = now
		st.UnlockScheduledAt = now.Add(g.autoUnlockAfter())
		st.Reason = strings.Join(breaches, ",")
		res.Transition = TransitionRefreshed

	default:
		st.Locked = true
		st.Bypass = false
		st.LockedAt = now
		st.UnlockScheduledAt = now.Add(g.autoUnlockAfter())
		st.Reason = strings.Join(breaches, ",")
		res.Transition = TransitionLocked
	}

	if err := g.persist(st, res.Transition, "", now); err != nil {
		return CheckResult{}, err
	}
	res.State = st
	log.Printf("[TRUST] check: transition=%s locked=%v breaches=%d", res.Transition, st.Locked, len(breaches))
	return res, nil
}

// #endregion check

// #region manual-unlock

// ManualUnlock is the operator-triggered transition to Unlocked,
// capped per calendar day. Exceeding the cap returns limit_exceeded
// without mutating lock state.
func (g *Guard) ManualUnlock(actor, reason string) (UnlockResult, error) {
	st, err := g.Load()
	if err != nil {
		return UnlockResult{}, err
	}
	now := g.now().UTC()
	g.rollManualCounter(&st, now)

	if st.ManualUnlocksToday >= g.cfg.MaxManualUnlocksPerDay {
		// Counter rollover still has to persist, lock state does not change.
		if err := g.store.WriteJSON(store.TrustLockStateFile, st); err != nil {
			return UnlockResult{}, err
		}
		if err := g.logEvent(TransitionLimitExceeded, reason, actor, nil, st, now); err != nil {
			return UnlockResult{}, err
		}
		if err := g.audit.Upsert(audit.PrefixTrustGuard, "UNLOCK_LIMIT_EXCEEDED "+now.Format(time.RFC3339)); err != nil {
			return UnlockResult{}, err
		}
		log.Printf("[TRUST] manual unlock denied: daily limit %d reached", g.cfg.MaxManualUnlocksPerDay)
		return UnlockResult{State: st, Transition: TransitionLimitExceeded, Remaining: 0}, nil
	}

	st.Locked = false
	st.Bypass = false
	st.Reason = ""
	st.UnlockScheduledAt = time.Time{}
	st.ManualUnlocksToday++

	if err := g.persist(st, TransitionManualUnlock, actor, now); err != nil {
		return UnlockResult{}, err
	}
	remaining := g.cfg.MaxManualUnlocksPerDay - st.ManualUnlocksToday
	log.Printf("[TRUST] manual unlock by %s (%d remaining today)", actor, remaining)
	return UnlockResult{State: st, Transition: TransitionManualUnlock, Remaining: remaining}, nil
}

// rollManualCounter resets the daily counter when the stored reset
// date is earlier than the current date.
func (g *Guard) rollManualCounter(st *LockState, now time.Time) {
	today := now.Format("2006-01-02")
	if st.ManualUnlocksLastReset < today {
		st.ManualUnlocksToday = 0
		st.ManualUnlocksLastReset = today
	}
}

// #endregion manual-unlock

// #region persist

func (g *Guard) persist(st LockState, tr Transition, actor string, now time.Time) error {
	if err := g.store.WriteJSON(store.TrustLockStateFile, st); err != nil {
		return err
	}
	m := st.Metrics
	if err := g.logEvent(tr, st.Reason, actor, &m, st, now); err != nil {
		return err
	}
	return g.audit.Upsert(audit.PrefixTrustGuard, g.markerFor(tr, st, actor, now))
}

func (g *Guard) logEvent(tr Transition, reason, actor string, m *Metrics, st LockState, now time.Time) error {
	return g.store.AppendLine(store.TrustLockLogFile, lockEvent{
		Timestamp: now,
		Event:     tr,
		Reason:    reason,
		Actor:     actor,
		Metrics:   m,
		Locked:    st.Locked,
		Bypass:    st.Bypass,
	})
}

// markerFor formats the idempotent TRUST_GUARD marker body. A bypass
// emits an UNLOCKED-style marker distinct from a genuine clear.
func (g *Guard) markerFor(tr Transition, st LockState, actor string, now time.Time) string {
	ts := now.Format(time.RFC3339)
	switch tr {
	case TransitionLocked, TransitionHeld, TransitionRefreshed:
		return fmt.Sprintf("LOCKED reason:%s %s", st.Reason, ts)
	case TransitionBypassed:
		return fmt.Sprintf("UNLOCKED bypass reason:%s %s", st.Reason, ts)
	case TransitionManualUnlock:
		return fmt.Sprintf("MANUAL_UNLOCK by %s %s", actor, ts)
	default:
		return "UNLOCKED " + ts
	}
}

// #endregion persist

// #region durations

func (g *Guard) lockWindow() time.Duration {
	return time.Duration(g.cfg.LockWindowMinutes) * time.Minute
}

func (g *Guard) autoUnlockAfter() time.Duration {
	return time.Duration(g.cfg.AutoUnlockAfterMinutes) * time.Minute
}

// #endregion durations
