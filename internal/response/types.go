package response

import (
	"log"
	"strings"
	"time"

	"github.com/clinsight/governor/internal/fusion"
)

// #region risk-level

// RiskLevel is the graduated response category. Callers may hand in
// either the Low/Medium/High form or a raw fusion level; both
// normalize here.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// FromFusion maps a fusion level to a risk category.
func FromFusion(l fusion.Level) RiskLevel {
	switch l {
	case fusion.LevelGreen:
		return RiskLow
	case fusion.LevelYellow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Normalize maps a raw risk string to a RiskLevel. Unknown values are
// logged and treated as high, the most conservative branch.
func Normalize(raw string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "green":
		return RiskLow
	case "medium", "yellow":
		return RiskMedium
	case "high", "red":
		return RiskHigh
	default:
		log.Printf("[RESPONSE] unknown risk level %q, treating as high", raw)
		return RiskHigh
	}
}

// #endregion risk-level

// #region record

// Status values of a ResponseRecord.
const (
	StatusNoAction  = "no_action"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusBlocked   = "blocked"
)

// ResponseRecord is the immutable per-invocation record appended to
// the response-history log; never mutated after creation.
type ResponseRecord struct {
	ResponseID    string    `json:"response_id"`
	Timestamp     time.Time `json:"timestamp"`
	RiskLevel     RiskLevel `json:"risk_level"`
	ActionsTaken  []string  `json:"actions_taken"`
	Status        string    `json:"status"`
	BlockedReason string    `json:"blocked_reason,omitempty"`
}

// LedgerEntry is one line of the reversible-action ledger, the sole
// mechanism for manual rollback.
type LedgerEntry struct {
	ActionID        string    `json:"action_id"`
	ResponseID      string    `json:"response_id"`
	Timestamp       time.Time `json:"timestamp"`
	ActionName      string    `json:"action_name"`
	BeforeState     string    `json:"before_state"`
	AfterState      string    `json:"after_state"`
	UndoInstruction string    `json:"undo_instruction"`
	Reversible      bool      `json:"reversible"`
}

// #endregion record

// #region outcome

// ActionOutcome is the per-action execution result surfaced to stdout.
type ActionOutcome struct {
	Name       string `json:"name"`
	Succeeded  bool   `json:"succeeded"`
	Detail     string `json:"detail,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Outcome bundles everything one planner invocation produced.
type Outcome struct {
	Record             ResponseRecord  `json:"record"`
	Blocked            bool            `json:"blocked"`
	BlockedByTrustLock bool            `json:"blocked_by_trust_lock"`
	Actions            []ActionOutcome `json:"actions"`
	Ledger             []LedgerEntry   `json:"ledger"`
	HardApplied        bool            `json:"hard_applied"`
	DryRun             bool            `json:"dry_run"`
}

// #endregion outcome
