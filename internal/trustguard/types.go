package trustguard

import "time"

// #region metrics

// Metrics are the three trust inputs evaluated against their
// policy-configured minimums.
type Metrics struct {
	IntegrityScore  float64 `json:"integrity_score"`
	ConsensusPct    float64 `json:"consensus_pct"`
	ReputationIndex float64 `json:"reputation_index"`
}

// #endregion metrics

// #region lock-state

// LockState persists across cycles and is mutated only by the guard.
// Invariant: Locked implies now < LockedAt+lock_window unless Bypass.
type LockState struct {
	Locked                 bool      `json:"locked"`
	LockedAt               time.Time `json:"locked_at"`
	Reason                 string    `json:"reason"`
	Metrics                Metrics   `json:"metrics"`
	UnlockScheduledAt      time.Time `json:"unlock_scheduled_at"`
	ManualUnlocksToday     int       `json:"manual_unlocks_today"`
	ManualUnlocksLastReset string    `json:"manual_unlocks_last_reset"` // YYYY-MM-DD
	Bypass                 bool      `json:"bypass"`
}

// #endregion lock-state

// #region transitions

// Transition identifies what a check or unlock did to the lock state.
type Transition string

const (
	TransitionNone          Transition = "none"
	TransitionLocked        Transition = "locked"
	TransitionHeld          Transition = "held"      // hysteresis: breach inside lock window
	TransitionRefreshed     Transition = "refreshed" // window elapsed, breach persists
	TransitionUnlocked      Transition = "unlocked"
	TransitionBypassed      Transition = "bypassed"
	TransitionManualUnlock  Transition = "manual_unlock"
	TransitionLimitExceeded Transition = "limit_exceeded"
)

// CheckResult is the outcome of one breach evaluation.
type CheckResult struct {
	State      LockState  `json:"state"`
	Transition Transition `json:"transition"`
	Breaches   []string   `json:"breaches"`
}

// UnlockResult is the outcome of an operator-triggered unlock.
type UnlockResult struct {
	State      LockState  `json:"state"`
	Transition Transition `json:"transition"`
	Remaining  int        `json:"remaining"`
}

// lockEvent is one line of the append-only lock log.
type lockEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Event     Transition `json:"event"`
	Reason    string     `json:"reason"`
	Actor     string     `json:"actor,omitempty"`
	Metrics   *Metrics   `json:"metrics,omitempty"`
	Locked    bool       `json:"locked"`
	Bypass    bool       `json:"bypass"`
}

// #endregion transitions
