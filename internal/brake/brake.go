// Package brake is the 24-hour sliding-window rate limiter over
// autonomous response events. The verdict is recomputed from the
// response-history log on every check, never toggled: it holds only
// while the window still contains enough qualifying timestamps.
package brake

import (
	"encoding/json"
	"log"
	"time"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/store"
)

// #region state

// State is the derived verdict, persisted purely for visibility to
// the Fusion Engine and Response Planner.
type State struct {
	IsEngaged       bool      `json:"is_engaged"`
	ResponseCount24 int       `json:"response_count_24h"`
	MaxAllowed      int       `json:"max_allowed"`
	LastCheck       time.Time `json:"last_check"`
}

// #endregion state

// #region brake

// Brake computes the rate-limit verdict.
type Brake struct {
	store *store.Store
	cfg   config.Brake
	audit *audit.Writer
	now   func() time.Time
}

// NewBrake creates a Brake. now may be nil (wall clock).
func NewBrake(s *store.Store, cfg config.Brake, now func() time.Time) *Brake {
	if now == nil {
		now = time.Now
	}
	return &Brake{
		store: s,
		cfg:   cfg,
		audit: audit.NewWriter(s.Path(store.AuditFile)),
		now:   now,
	}
}

// #endregion brake

// #region count

// CountWindow counts response-history records whose timestamp falls
// within [now-24h, now].
func (b *Brake) CountWindow() (int, error) {
	now := b.now().UTC()
	cutoff := now.Add(-24 * time.Hour)
	count := 0

	type stamped struct {
		Timestamp time.Time `json:"timestamp"`
	}
	err := b.store.EachLine(store.ResponseHistoryFile, func(line []byte) error {
		var rec stamped
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil // malformed line, skip
		}
		if !rec.Timestamp.Before(cutoff) && !rec.Timestamp.After(now) {
			count++
		}
		return nil
	})
	return count, err
}

// #endregion count

// #region check

// Check recomputes the verdict and persists it. Engaged exactly when
// the window holds at least MaxAllowed events.
func (b *Brake) Check() (State, error) {
	count, err := b.CountWindow()
	if err != nil {
		return State{}, err
	}
	st := State{
		IsEngaged:       count >= b.cfg.MaxResponses24h,
		ResponseCount24: count,
		MaxAllowed:      b.cfg.MaxResponses24h,
		LastCheck:       b.now().UTC(),
	}
	if err := b.store.WriteJSON(store.SafetyBrakeStateFile, st); err != nil {
		return State{}, err
	}
	status := "CLEAR"
	if st.IsEngaged {
		status = "ENGAGED"
	}
	marker := audit.Stamp(status, st.LastCheck, "")
	if err := b.audit.Upsert(audit.PrefixSafetyBrake, marker); err != nil {
		return State{}, err
	}
	log.Printf("[BRAKE] check: engaged=%v count=%d/%d", st.IsEngaged, count, st.MaxAllowed)
	return st, nil
}

// Load reads the last persisted verdict; absent file means clear.
func (b *Brake) Load() (State, error) {
	st := State{MaxAllowed: b.cfg.MaxResponses24h}
	if _, err := b.store.ReadJSON(store.SafetyBrakeStateFile, &st); err != nil {
		return st, err
	}
	return st, nil
}

// #endregion check
