package response

// #region planned-action

// ActionKind distinguishes read-only verification from mutation.
type ActionKind string

const (
	KindCheck  ActionKind = "check"  // read-only, not reversible
	KindMutate ActionKind = "mutate" // reversible with undo instruction
	KindAlert  ActionKind = "alert"
)

// PlannedAction is one step of a graduated action plan. Command names
// resolve through the injected ExternalCommand capability; mutating
// steps carry an explicit undo instruction for the ledger.
type PlannedAction struct {
	Name       string
	Kind       ActionKind
	Hard       bool
	Command    string
	Args       []string
	Reversible bool
	Undo       string
}

// #endregion planned-action

// #region plans

// PlanFor returns the fixed graduated plan for a risk category.
// Low: no actions. Medium: soft, read-mostly plus one simulated
// reversible config change. High: hard self-healing and verification.
func PlanFor(risk RiskLevel) []PlannedAction {
	switch risk {
	case RiskMedium:
		return []PlannedAction{
			{
				Name:    "integrity_check",
				Kind:    KindCheck,
				Command: "governor-integrity-check",
			},
			{
				Name:    "schema_validation",
				Kind:    KindCheck,
				Command: "governor-schema-validate",
			},
			{
				Name:       "snapshot_frequency_increase",
				Kind:       KindMutate,
				Reversible: true,
				Undo:       "set snapshot_frequency_hours back to its before_state value in governance_summary.json",
			},
		}
	case RiskHigh:
		return []PlannedAction{
			{
				Name:       "self_heal_trigger",
				Kind:       KindMutate,
				Hard:       true,
				Command:    "governor-self-heal",
				Reversible: true,
				Undo:       "re-run governor-self-heal with --rollback <response_id>",
			},
			{
				Name:       "integrity_anchor_regeneration",
				Kind:       KindMutate,
				Hard:       true,
				Command:    "governor-anchor-regen",
				Reversible: true,
				Undo:       "restore the previous anchor set from anchors.bak",
			},
			{
				Name:    "full_verification",
				Kind:    KindCheck,
				Hard:    true,
				Command: "governor-verify-all",
			},
			{
				Name:       "alert_creation",
				Kind:       KindAlert,
				Hard:       true,
				Reversible: true,
				Undo:       "close the alert whose alert_id equals this action_id",
			},
		}
	default:
		return nil
	}
}

// #endregion plans
