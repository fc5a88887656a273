// Package response plans and executes graduated corrective actions.
// Three safety gates run before any action: trust lock, safety brake,
// rate limit. A blocked response is a normal outcome, recorded and
// reported, never an error.
package response

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinsight/governor/internal/audit"
	"github.com/clinsight/governor/internal/brake"
	"github.com/clinsight/governor/internal/config"
	"github.com/clinsight/governor/internal/history"
	"github.com/clinsight/governor/internal/store"
	"github.com/clinsight/governor/internal/trustguard"
)

// #region executor

// Executor runs one planner invocation end to end.
type Executor struct {
	store   *store.Store
	cfg     config.Config
	guard   *trustguard.Guard
	brake   *brake.Brake
	cmd     ExternalCommand
	archive *history.Archive
	audit   *audit.Writer
	now     func() time.Time
}

// Options select the execution mode.
type Options struct {
	// DryRun previews the plan with no side effects beyond the
	// preview file.
	DryRun bool
}

// NewExecutor wires an Executor. cmd may be nil (subprocess runner
// with the configured timeout); archive may be nil; now may be nil.
func NewExecutor(s *store.Store, cfg config.Config, cmd ExternalCommand, archive *history.Archive, now func() time.Time) *Executor {
	if cmd == nil {
		cmd = ExecRunner{Timeout: time.Duration(cfg.Response.CommandTimeoutSeconds) * time.Second}
	}
	if now == nil {
		now = time.Now
	}
	return &Executor{
		store:   s,
		cfg:     cfg,
		guard:   trustguard.NewGuard(s, cfg.TrustGuard, now),
		brake:   brake.NewBrake(s, cfg.Brake, now),
		cmd:     cmd,
		archive: archive,
		audit:   audit.NewWriter(s.Path(store.AuditFile)),
		now:     now,
	}
}

// #endregion executor

// #region gates

// checkGates evaluates the three safety gates in order. The first
// triggered gate supplies the primary blocked reason; a trust lock is
// reported first even when the brake is engaged at the same time.
func (e *Executor) checkGates() (reason string, byTrustLock bool, err error) {
	lock, err := e.guard.Load()
	if err != nil {
		return "", false, err
	}
	if lock.Locked {
		return "trust_guard_locked", true, nil
	}

	brakeState, err := e.brake.Load()
	if err != nil {
		return "", false, err
	}
	if brakeState.IsEngaged {
		return "safety_brake_engaged", false, nil
	}

	count, err := e.brake.CountWindow()
	if err != nil {
		return "", false, err
	}
	if count >= e.cfg.Brake.MaxResponses24h {
		return fmt.Sprintf("rate_limit_exceeded_%d/%d", count, e.cfg.Brake.MaxResponses24h), false, nil
	}
	return "", false, nil
}

// #endregion gates

// #region execute

// Execute runs the graduated plan for the given risk category.
// Every invocation produces a ResponseRecord with a fresh response id.
func (e *Executor) Execute(risk RiskLevel, opts Options) (Outcome, error) {
	now := e.now().UTC()
	record := ResponseRecord{
		ResponseID: uuid.New().String(),
		Timestamp:  now,
		RiskLevel:  risk,
	}

	reason, byTrustLock, err := e.checkGates()
	if err != nil {
		return Outcome{}, err
	}
	if reason != "" {
		record.Status = StatusBlocked
		record.BlockedReason = reason
		out := Outcome{
			Record:             record,
			Blocked:            true,
			BlockedByTrustLock: byTrustLock,
			DryRun:             opts.DryRun,
		}
		if opts.DryRun {
			log.Printf("[RESPONSE] dry-run: would be blocked (%s)", reason)
			return out, e.store.WriteJSON(store.PreviewFile, out)
		}
		return out, e.persistBlocked(record, now)
	}

	plan := PlanFor(risk)
	if len(plan) == 0 {
		record.Status = StatusNoAction
		out := Outcome{Record: record, DryRun: opts.DryRun}
		if opts.DryRun {
			return out, e.store.WriteJSON(store.PreviewFile, out)
		}
		return out, e.persistExecuted(out, now)
	}

	if opts.DryRun {
		for _, a := range plan {
			record.ActionsTaken = append(record.ActionsTaken, a.Name)
		}
		record.Status = StatusCompleted
		out := Outcome{Record: record, DryRun: true}
		log.Printf("[RESPONSE] dry-run: %d actions previewed for %s", len(plan), risk)
		return out, e.store.WriteJSON(store.PreviewFile, out)
	}

	out := Outcome{Record: record}
	allOK := true
	for _, a := range plan {
		res, entry := e.runAction(a, record.ResponseID, now)
		out.Actions = append(out.Actions, res)
		out.Record.ActionsTaken = append(out.Record.ActionsTaken, a.Name)
		if entry != nil {
			out.Ledger = append(out.Ledger, *entry)
		}
		if a.Hard {
			out.HardApplied = true
		}
		if !res.Succeeded {
			allOK = false
		}
	}
	if allOK {
		out.Record.Status = StatusCompleted
	} else {
		out.Record.Status = StatusPartial
	}
	return out, e.persistExecuted(out, now)
}

// #endregion execute

// #region run-action

// runAction executes one planned action and builds its ledger entry.
func (e *Executor) runAction(a PlannedAction, responseID string, now time.Time) (ActionOutcome, *LedgerEntry) {
	res := ActionOutcome{Name: a.Name, Succeeded: true}
	entry := &LedgerEntry{
		ActionID:        uuid.New().String(),
		ResponseID:      responseID,
		Timestamp:       now,
		ActionName:      a.Name,
		UndoInstruction: a.Undo,
		Reversible:      a.Reversible,
	}

	switch {
	case a.Name == "snapshot_frequency_increase":
		before, after, err := e.increaseSnapshotFrequency()
		if err != nil {
			res.Succeeded = false
			res.Detail = err.Error()
			break
		}
		entry.BeforeState = fmt.Sprintf("snapshot_frequency_hours=%d", before)
		entry.AfterState = fmt.Sprintf("snapshot_frequency_hours=%d", after)
		res.Detail = entry.AfterState

	case a.Kind == KindAlert:
		alert := map[string]any{
			"alert_id":    entry.ActionID,
			"response_id": responseID,
			"created_at":  now,
			"severity":    "high",
			"message":     "governance response escalated to hard actions",
		}
		if err := e.store.AppendLine(store.AlertsFile, alert); err != nil {
			res.Succeeded = false
			res.Detail = err.Error()
			break
		}
		entry.BeforeState = "no alert open"
		entry.AfterState = "alert " + entry.ActionID + " open"
		res.Detail = "alert created"

	default:
		cr := e.cmd.Run(context.Background(), a.Command, a.Args...)
		res.Succeeded = cr.Succeeded
		res.DurationMs = cr.Duration.Milliseconds()
		if cr.Succeeded {
			res.Detail = firstLine(cr.Stdout)
		} else {
			res.Detail = firstLine(cr.Stderr)
		}
		entry.BeforeState = "as-found"
		entry.AfterState = fmt.Sprintf("%s executed (ok=%v)", a.Command, cr.Succeeded)
	}

	log.Printf("[RESPONSE] action %s ok=%v", a.Name, res.Succeeded)
	return res, entry
}

// increaseSnapshotFrequency halves the snapshot interval recorded in
// the shared summary (field-level merge, never a full overwrite).
func (e *Executor) increaseSnapshotFrequency() (before, after int, err error) {
	summary := map[string]any{}
	if _, err := e.store.ReadJSON(store.SummaryFile, &summary); err != nil {
		return 0, 0, err
	}
	before = 24
	if v, ok := summary["snapshot_frequency_hours"].(float64); ok && v > 0 {
		before = int(v)
	}
	after = before / 2
	if after < 1 {
		after = 1
	}
	return before, after, e.store.MergeSummary(map[string]any{
		"snapshot_frequency_hours": after,
	})
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// #endregion run-action

// #region persist

func (e *Executor) persistBlocked(record ResponseRecord, now time.Time) error {
	if err := e.store.AppendLine(store.ResponseHistoryFile, record); err != nil {
		return err
	}
	if err := e.appendBlockedReport(record, now); err != nil {
		return err
	}
	marker := audit.Stamp("BLOCKED", now, "reason:"+record.BlockedReason)
	if err := e.audit.Upsert(audit.PrefixResponse, marker); err != nil {
		return err
	}
	if err := e.mergeSummary(record, now); err != nil {
		return err
	}
	if e.archive != nil {
		if err := e.archive.RecordResponse(now, string(record.RiskLevel), record.Status); err != nil {
			log.Printf("[RESPONSE] archive write failed: %v", err)
		}
	}
	log.Printf("[RESPONSE] blocked: %s", record.BlockedReason)
	return nil
}

func (e *Executor) persistExecuted(out Outcome, now time.Time) error {
	if err := e.store.AppendLine(store.ResponseHistoryFile, out.Record); err != nil {
		return err
	}
	for _, entry := range out.Ledger {
		if err := e.store.AppendLine(store.ReversibleActionsFile, entry); err != nil {
			return err
		}
	}
	marker := audit.Stamp("UPDATED", now,
		fmt.Sprintf("status=%s risk=%s actions=%d", out.Record.Status, out.Record.RiskLevel, len(out.Record.ActionsTaken)))
	if err := e.audit.Upsert(audit.PrefixResponse, marker); err != nil {
		return err
	}
	if err := e.mergeSummary(out.Record, now); err != nil {
		return err
	}
	if e.archive != nil {
		if err := e.archive.RecordResponse(now, string(out.Record.RiskLevel), out.Record.Status); err != nil {
			log.Printf("[RESPONSE] archive write failed: %v", err)
		}
	}
	log.Printf("[RESPONSE] %s: %d actions, status=%s", out.Record.RiskLevel, len(out.Record.ActionsTaken), out.Record.Status)
	return nil
}

// appendBlockedReport keeps the most recent blocked responses in a
// separate report file for operators.
func (e *Executor) appendBlockedReport(record ResponseRecord, now time.Time) error {
	const keep = 50
	report := struct {
		UpdatedAt time.Time        `json:"updated_at"`
		Blocked   []ResponseRecord `json:"blocked"`
	}{}
	if _, err := e.store.ReadJSON(store.BlockedReportFile, &report); err != nil {
		return err
	}
	report.UpdatedAt = now
	report.Blocked = append(report.Blocked, record)
	if len(report.Blocked) > keep {
		report.Blocked = report.Blocked[len(report.Blocked)-keep:]
	}
	return e.store.WriteJSON(store.BlockedReportFile, report)
}

func (e *Executor) mergeSummary(record ResponseRecord, now time.Time) error {
	return e.store.MergeSummary(map[string]any{
		"last_response_id":     record.ResponseID,
		"last_response_status": record.Status,
		"last_response_at":     now.Format(time.RFC3339),
	})
}

// #endregion persist
