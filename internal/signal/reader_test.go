package signal

import (
	"os"
	"testing"
	"time"

	"github.com/clinsight/governor/internal/store"
)

func testReader(t *testing.T) (*Reader, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.SetBackoff(nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewReader(s, func() time.Time { return at }), s
}

func TestSnapshotDefaultsWhenFilesMissing(t *testing.T) {
	r, _ := testReader(t)
	snap := r.Snapshot()
	if snap.Policy != PolicyGreen {
		t.Fatalf("policy = %s, want GREEN", snap.Policy)
	}
	if snap.ConsensusPct != 100 || snap.ReputationIndex != 100 || snap.IntegrityScore != 100 {
		t.Fatalf("numeric defaults: %+v", snap)
	}
	if snap.Forecast != ForecastLow {
		t.Fatalf("forecast = %s, want low", snap.Forecast)
	}
}

func TestSnapshotReadsProducerFiles(t *testing.T) {
	r, s := testReader(t)

	mustWrite(t, s, store.PolicyStateFile, map[string]any{"state": "YELLOW"})
	mustWrite(t, s, store.WeightedConsensusFile, map[string]any{"weighted_consensus_pct": 87.5})
	mustWrite(t, s, store.ReputationIndexFile, map[string]any{"reputation_index": 72.0})
	mustWrite(t, s, store.IntegrityScoresFile, map[string]any{"score": 93.0, "history": []float64{95, 94, 93}})
	mustWrite(t, s, store.ForecastStateFile, map[string]any{"risk_level": "medium"})

	snap := r.Snapshot()
	if snap.Policy != PolicyYellow {
		t.Fatalf("policy = %s", snap.Policy)
	}
	if snap.ConsensusPct != 87.5 || snap.ReputationIndex != 72.0 || snap.IntegrityScore != 93.0 {
		t.Fatalf("values: %+v", snap)
	}
	if snap.Forecast != ForecastMedium {
		t.Fatalf("forecast = %s", snap.Forecast)
	}
}

func TestSnapshotMalformedFileDegrades(t *testing.T) {
	r, s := testReader(t)
	if err := os.WriteFile(s.Path(store.PolicyStateFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap := r.Snapshot()
	if snap.Policy != PolicyGreen {
		t.Fatalf("malformed file changed the default: %s", snap.Policy)
	}
}

func TestNormalizePolicy(t *testing.T) {
	cases := map[string]PolicyState{
		"GREEN":  PolicyGreen,
		"green":  PolicyGreen,
		" RED ":  PolicyRed,
		"yellow": PolicyYellow,
		"purple": PolicyRed, // unknown goes to the conservative branch
		"":       PolicyRed,
	}
	for raw, want := range cases {
		if got := NormalizePolicy(raw); got != want {
			t.Errorf("NormalizePolicy(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNormalizeForecast(t *testing.T) {
	cases := map[string]ForecastRisk{
		"low":    ForecastLow,
		"MEDIUM": ForecastMedium,
		"high":   ForecastHigh,
		"wild":   ForecastHigh,
	}
	for raw, want := range cases {
		if got := NormalizeForecast(raw); got != want {
			t.Errorf("NormalizeForecast(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestForecastRank(t *testing.T) {
	if !(ForecastLow.Rank() < ForecastMedium.Rank() && ForecastMedium.Rank() < ForecastHigh.Rank()) {
		t.Fatal("forecast ranks not ordered")
	}
}

func mustWrite(t *testing.T, s *store.Store, name string, v any) {
	t.Helper()
	if err := s.WriteJSON(name, v); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}
