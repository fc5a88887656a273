package trustguard

import (
	"testing"
	"time"

	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/store"
)

var guardEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testGuard returns a guard over a temp store with an adjustable clock.
func testGuard(t *testing.T) (*Guard, *time.Time) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.SetBackoff(nil)
	clock := guardEpoch
	g := NewGuard(s, config.Default().TrustGuard, func() time.Time { return clock })
	return g, &clock
}

func healthy() Metrics {
	return Metrics{IntegrityScore: 99.0, ConsensusPct: 97.0, ReputationIndex: 80.0}
}

func breached() Metrics {
	return Metrics{IntegrityScore: 85.0, ConsensusPct: 97.0, ReputationIndex: 80.0}
}

func TestCheckLocksOnBreach(t *testing.T) {
	g, _ := testGuard(t)

	res, err := g.Check(breached(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionLocked {
		t.Fatalf("transition = %s, want locked", res.Transition)
	}
	if !res.State.Locked {
		t.Fatal("state not locked")
	}
	if len(res.Breaches) != 1 || res.Breaches[0] != "integrity_85.0_below_90.0" {
		t.Fatalf("breaches = %v", res.Breaches)
	}
	if !res.State.LockedAt.Equal(guardEpoch) {
		t.Fatalf("locked_at = %v", res.State.LockedAt)
	}
	if want := guardEpoch.Add(60 * time.Minute); !res.State.UnlockScheduledAt.Equal(want) {
		t.Fatalf("unlock_scheduled_at = %v, want %v", res.State.UnlockScheduledAt, want)
	}
}

func TestCheckCleanIsNoop(t *testing.T) {
	g, _ := testGuard(t)

	res, err := g.Check(healthy(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionNone {
		t.Fatalf("transition = %s, want none", res.Transition)
	}
	if res.State.Locked {
		t.Fatal("unexpected lock")
	}
}

func TestHysteresisPreservesLockedAt(t *testing.T) {
	g, clock := testGuard(t)

	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}

	// Still inside the 60-minute lock window.
	*clock = guardEpoch.Add(30 * time.Minute)
	res, err := g.Check(breached(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionHeld {
		t.Fatalf("transition = %s, want held", res.Transition)
	}
	if !res.State.LockedAt.Equal(guardEpoch) {
		t.Fatalf("locked_at moved to %v", res.State.LockedAt)
	}
}

func TestWindowElapsedRefreshesLock(t *testing.T) {
	g, clock := testGuard(t)

	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}

	*clock = guardEpoch.Add(90 * time.Minute)
	res, err := g.Check(breached(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionRefreshed {
		t.Fatalf("transition = %s, want refreshed", res.Transition)
	}
	if !res.State.LockedAt.Equal(guardEpoch.Add(90 * time.Minute)) {
		t.Fatalf("locked_at = %v, want refreshed timestamp", res.State.LockedAt)
	}
}

func TestCleanCheckUnlocks(t *testing.T) {
	g, clock := testGuard(t)

	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}
	*clock = guardEpoch.Add(5 * time.Minute)
	res, err := g.Check(healthy(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionUnlocked {
		t.Fatalf("transition = %s, want unlocked", res.Transition)
	}
	if res.State.Locked || res.State.Reason != "" {
		t.Fatalf("residual lock state: %+v", res.State)
	}
}

func TestBypassSuppressesLock(t *testing.T) {
	g, _ := testGuard(t)

	res, err := g.Check(breached(), true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionBypassed {
		t.Fatalf("transition = %s, want bypassed", res.Transition)
	}
	if res.State.Locked {
		t.Fatal("bypass must not lock")
	}
	if !res.State.Bypass {
		t.Fatal("bypass flag not persisted")
	}
	if res.State.Reason == "" {
		t.Fatal("breach reason dropped under bypass")
	}
}

func TestManualUnlockCap(t *testing.T) {
	g, _ := testGuard(t)

	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}

	first, err := g.ManualUnlock("ops", "maintenance")
	if err != nil {
		t.Fatal(err)
	}
	if first.Transition != TransitionManualUnlock || first.Remaining != 1 {
		t.Fatalf("first unlock: %+v", first)
	}

	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}
	second, err := g.ManualUnlock("ops", "maintenance")
	if err != nil {
		t.Fatal(err)
	}
	if second.Transition != TransitionManualUnlock || second.Remaining != 0 {
		t.Fatalf("second unlock: %+v", second)
	}

	// Third attempt on the same day is denied and leaves the lock
	// untouched.
	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}
	third, err := g.ManualUnlock("ops", "maintenance")
	if err != nil {
		t.Fatal(err)
	}
	if third.Transition != TransitionLimitExceeded {
		t.Fatalf("third unlock: %+v", third)
	}
	if !third.State.Locked {
		t.Fatal("denied unlock mutated the lock")
	}
}

func TestManualUnlockCounterRollsOverAtMidnight(t *testing.T) {
	g, clock := testGuard(t)

	if _, err := g.Check(breached(), false); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := g.ManualUnlock("ops", "maintenance"); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Check(breached(), false); err != nil {
			t.Fatal(err)
		}
	}

	// Next calendar day: the cap resets.
	*clock = guardEpoch.Add(24 * time.Hour)
	res, err := g.ManualUnlock("ops", "maintenance")
	if err != nil {
		t.Fatal(err)
	}
	if res.Transition != TransitionManualUnlock {
		t.Fatalf("transition = %s, want manual_unlock after rollover", res.Transition)
	}
	if res.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", res.Remaining)
	}
}

func TestLoadAbsentFileIsUnlocked(t *testing.T) {
	g, _ := testGuard(t)
	st, err := g.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.Locked || st.Bypass {
		t.Fatalf("fresh state not unlocked: %+v", st)
	}
}
