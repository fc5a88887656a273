package response

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/store"
	"github.com/clinsight/governor/internal/trustguard"
)

var execEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubCommand records invocations and returns canned results.
type stubCommand struct {
	calls []string
	fail  map[string]bool
}

func (c *stubCommand) Run(_ context.Context, name string, _ ...string) CommandResult {
	c.calls = append(c.calls, name)
	if c.fail[name] {
		return CommandResult{Succeeded: false, Stderr: "helper failed"}
	}
	return CommandResult{Succeeded: true, Stdout: "ok"}
}

func testExecutor(t *testing.T) (*Executor, *store.Store, *stubCommand) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.SetBackoff(nil)
	cmd := &stubCommand{fail: map[string]bool{}}
	e := NewExecutor(s, config.Default(), cmd, nil, func() time.Time { return execEpoch })
	return e, s, cmd
}

func historyLines(t *testing.T, s *store.Store) []ResponseRecord {
	t.Helper()
	var recs []ResponseRecord
	err := s.EachLine(store.ResponseHistoryFile, func(line []byte) error {
		var r ResponseRecord
		if err := json.Unmarshal(line, &r); err != nil {
			t.Fatalf("bad history line: %v", err)
		}
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestLowRiskIsNoAction(t *testing.T) {
	e, s, cmd := testExecutor(t)

	out, err := e.Execute(RiskLow, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Status != StatusNoAction {
		t.Fatalf("status = %s, want no_action", out.Record.Status)
	}
	if len(cmd.calls) != 0 {
		t.Fatalf("commands ran for low risk: %v", cmd.calls)
	}
	if got := historyLines(t, s); len(got) != 1 {
		t.Fatalf("history lines = %d, want 1", len(got))
	}
}

func TestMediumRiskSoftPlan(t *testing.T) {
	e, s, cmd := testExecutor(t)

	out, err := e.Execute(RiskMedium, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", out.Record.Status)
	}
	if out.HardApplied {
		t.Fatal("soft plan flagged hard actions")
	}
	want := []string{"integrity_check", "schema_validation", "snapshot_frequency_increase"}
	if len(out.Record.ActionsTaken) != len(want) {
		t.Fatalf("actions = %v", out.Record.ActionsTaken)
	}
	for i, name := range want {
		if out.Record.ActionsTaken[i] != name {
			t.Fatalf("action[%d] = %s, want %s", i, out.Record.ActionsTaken[i], name)
		}
	}
	if len(cmd.calls) != 2 {
		t.Fatalf("helper calls = %v, want the two check commands", cmd.calls)
	}

	// The reversible config change lands in the ledger with its undo.
	var ledger []LedgerEntry
	err = s.EachLine(store.ReversibleActionsFile, func(line []byte) error {
		var entry LedgerEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}
		ledger = append(ledger, entry)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	var found *LedgerEntry
	for i := range ledger {
		if ledger[i].ActionName == "snapshot_frequency_increase" {
			found = &ledger[i]
		}
	}
	if found == nil {
		t.Fatal("snapshot_frequency_increase missing from ledger")
	}
	if !found.Reversible || found.UndoInstruction == "" {
		t.Fatalf("ledger entry not reversible: %+v", found)
	}
	if found.BeforeState != "snapshot_frequency_hours=24" || found.AfterState != "snapshot_frequency_hours=12" {
		t.Fatalf("before/after = %q / %q", found.BeforeState, found.AfterState)
	}
}

func TestHighRiskHardPlan(t *testing.T) {
	e, s, cmd := testExecutor(t)

	out, err := e.Execute(RiskHigh, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.HardApplied {
		t.Fatal("hard plan not flagged")
	}
	if out.Record.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", out.Record.Status)
	}
	if len(cmd.calls) != 3 {
		t.Fatalf("helper calls = %v", cmd.calls)
	}

	// alert_creation writes one alert line.
	alerts := 0
	err = s.EachLine(store.AlertsFile, func([]byte) error {
		alerts++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if alerts != 1 {
		t.Fatalf("alerts = %d, want 1", alerts)
	}
}

func TestFailedHelperYieldsPartial(t *testing.T) {
	e, _, cmd := testExecutor(t)
	cmd.fail["governor-schema-validate"] = true

	out, err := e.Execute(RiskMedium, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Status != StatusPartial {
		t.Fatalf("status = %s, want partial", out.Record.Status)
	}
	// Remaining actions still run after a failure.
	if len(out.Record.ActionsTaken) != 3 {
		t.Fatalf("actions = %v", out.Record.ActionsTaken)
	}
}

func TestTrustLockBlocks(t *testing.T) {
	e, s, cmd := testExecutor(t)
	lockStore(t, s)

	out, err := e.Execute(RiskHigh, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Blocked || !out.BlockedByTrustLock {
		t.Fatalf("outcome: %+v", out)
	}
	if out.Record.BlockedReason != "trust_guard_locked" {
		t.Fatalf("reason = %s", out.Record.BlockedReason)
	}
	if len(cmd.calls) != 0 {
		t.Fatalf("commands ran while blocked: %v", cmd.calls)
	}
	recs := historyLines(t, s)
	if len(recs) != 1 || recs[0].Status != StatusBlocked {
		t.Fatalf("history: %+v", recs)
	}
}

func TestTrustLockReportedBeforeBrake(t *testing.T) {
	e, s, _ := testExecutor(t)
	lockStore(t, s)
	engageBrake(t, s)

	out, err := e.Execute(RiskHigh, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.BlockedReason != "trust_guard_locked" {
		t.Fatalf("reason = %s, want trust lock to take precedence", out.Record.BlockedReason)
	}
	if !out.BlockedByTrustLock {
		t.Fatal("trust-lock flag not set")
	}
}

func TestEngagedBrakeBlocks(t *testing.T) {
	e, s, _ := testExecutor(t)
	engageBrake(t, s)

	out, err := e.Execute(RiskMedium, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Blocked || out.BlockedByTrustLock {
		t.Fatalf("outcome: %+v", out)
	}
	if out.Record.BlockedReason != "safety_brake_engaged" {
		t.Fatalf("reason = %s", out.Record.BlockedReason)
	}
}

func TestRateLimitGate(t *testing.T) {
	e, s, _ := testExecutor(t)

	// Fill the 24h window to the limit without persisting an engaged
	// brake verdict.
	max := config.Default().Brake.MaxResponses24h
	for i := 0; i < max; i++ {
		rec := ResponseRecord{
			ResponseID: "seed",
			Timestamp:  execEpoch.Add(-time.Duration(i+1) * time.Minute),
			RiskLevel:  RiskMedium,
			Status:     StatusCompleted,
		}
		if err := s.AppendLine(store.ResponseHistoryFile, rec); err != nil {
			t.Fatal(err)
		}
	}

	out, err := e.Execute(RiskMedium, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Blocked {
		t.Fatal("rate limit did not block")
	}
	if out.Record.BlockedReason != "rate_limit_exceeded_10/10" {
		t.Fatalf("reason = %s", out.Record.BlockedReason)
	}
}

func TestDryRunHasNoSideEffects(t *testing.T) {
	e, s, cmd := testExecutor(t)

	out, err := e.Execute(RiskHigh, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if !out.DryRun {
		t.Fatal("dry-run flag dropped")
	}
	if len(out.Record.ActionsTaken) != 4 {
		t.Fatalf("previewed actions = %v", out.Record.ActionsTaken)
	}
	if len(cmd.calls) != 0 {
		t.Fatalf("commands ran in dry-run: %v", cmd.calls)
	}
	if got := historyLines(t, s); len(got) != 0 {
		t.Fatalf("dry-run appended history: %+v", got)
	}
	if _, err := os.Stat(s.Path(store.PreviewFile)); err != nil {
		t.Fatalf("preview file missing: %v", err)
	}
}

func TestNormalizeRiskLevels(t *testing.T) {
	cases := map[string]RiskLevel{
		"low":     RiskLow,
		"GREEN":   RiskLow,
		"yellow":  RiskMedium,
		"medium":  RiskMedium,
		"RED":     RiskHigh,
		"high":    RiskHigh,
		"garbage": RiskHigh,
	}
	for raw, want := range cases {
		if got := Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %s, want %s", raw, got, want)
		}
	}
}

// lockStore persists an active trust lock.
func lockStore(t *testing.T, s *store.Store) {
	t.Helper()
	st := trustguard.LockState{
		Locked:   true,
		LockedAt: execEpoch.Add(-5 * time.Minute),
		Reason:   "integrity_85.0_below_90.0",
	}
	if err := s.WriteJSON(store.TrustLockStateFile, st); err != nil {
		t.Fatal(err)
	}
}

// engageBrake persists an engaged brake verdict.
func engageBrake(t *testing.T, s *store.Store) {
	t.Helper()
	engaged := map[string]any{
		"is_engaged":         true,
		"response_count_24h": 10,
		"max_allowed":        10,
		"last_check":         execEpoch,
	}
	if err := s.WriteJSON(store.SafetyBrakeStateFile, engaged); err != nil {
		t.Fatal(err)
	}
}
