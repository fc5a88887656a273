package brake

import (
	"testing"
	"time"

	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/store"
)

var brakeEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stampedEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func testBrake(t *testing.T, max int) (*Brake, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.SetBackoff(nil)
	cfg := config.Brake{MaxResponses24h: max}
	return NewBrake(s, cfg, func() time.Time { return brakeEpoch }), s
}

func appendEvents(t *testing.T, s *store.Store, times ...time.Time) {
	t.Helper()
	for _, at := range times {
		if err := s.AppendLine(store.ResponseHistoryFile, stampedEvent{Timestamp: at}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
}

func TestClearBelowLimit(t *testing.T) {
	b, s := testBrake(t, 3)
	appendEvents(t, s,
		brakeEpoch.Add(-1*time.Hour),
		brakeEpoch.Add(-2*time.Hour),
	)

	st, err := b.Check()
	if err != nil {
		t.Fatal(err)
	}
	if st.IsEngaged {
		t.Fatal("engaged at max-1 events")
	}
	if st.ResponseCount24 != 2 {
		t.Fatalf("count = %d, want 2", st.ResponseCount24)
	}
}

func TestEngagesAtLimit(t *testing.T) {
	b, s := testBrake(t, 3)
	appendEvents(t, s,
		brakeEpoch.Add(-1*time.Hour),
		brakeEpoch.Add(-2*time.Hour),
		brakeEpoch.Add(-3*time.Hour),
	)

	st, err := b.Check()
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsEngaged {
		t.Fatal("not engaged at max events")
	}
	if st.MaxAllowed != 3 {
		t.Fatalf("max = %d, want 3", st.MaxAllowed)
	}
}

func TestStaleEventsExcluded(t *testing.T) {
	b, s := testBrake(t, 2)
	appendEvents(t, s,
		brakeEpoch.Add(-25*time.Hour), // outside the window
		brakeEpoch.Add(-30*time.Hour),
		brakeEpoch.Add(-1*time.Hour),
	)

	st, err := b.Check()
	if err != nil {
		t.Fatal(err)
	}
	if st.IsEngaged {
		t.Fatal("stale events counted toward the limit")
	}
	if st.ResponseCount24 != 1 {
		t.Fatalf("count = %d, want 1", st.ResponseCount24)
	}
}

func TestWindowBoundaryIsInclusive(t *testing.T) {
	b, s := testBrake(t, 1)
	appendEvents(t, s, brakeEpoch.Add(-24*time.Hour))

	count, err := b.CountWindow()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 (exactly 24h old)", count)
	}
}

func TestVerdictRecomputedNotLatched(t *testing.T) {
	b, s := testBrake(t, 1)
	appendEvents(t, s, brakeEpoch.Add(-1*time.Hour))

	st, err := b.Check()
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsEngaged {
		t.Fatal("expected engaged")
	}

	// Same log, later clock: the qualifying event has aged out and
	// the verdict clears on its own.
	later := NewBrake(s, config.Brake{MaxResponses24h: 1}, func() time.Time {
		return brakeEpoch.Add(26 * time.Hour)
	})
	st, err = later.Check()
	if err != nil {
		t.Fatal(err)
	}
	if st.IsEngaged {
		t.Fatal("verdict latched after events aged out")
	}
}

func TestLoadAbsentIsClear(t *testing.T) {
	b, _ := testBrake(t, 5)
	st, err := b.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.IsEngaged {
		t.Fatal("fresh state engaged")
	}
	if st.MaxAllowed != 5 {
		t.Fatalf("max = %d, want config default", st.MaxAllowed)
	}
}

func TestMalformedLinesSkipped(t *testing.T) {
	b, s := testBrake(t, 2)
	if err := s.AppendLine(store.ResponseHistoryFile, map[string]string{"timestamp": "not-a-time"}); err != nil {
		t.Fatal(err)
	}
	appendEvents(t, s, brakeEpoch.Add(-1*time.Hour))

	count, err := b.CountWindow()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
