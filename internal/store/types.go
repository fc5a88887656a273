package store

// #region artifact-names
// Artifact file names, resolved relative to the store base directory.
// State files hold one JSON object and are replaced atomically.
// Log files are JSONL, append-only, never rewritten.
const (
	PolicyStateFile       = "policy_state.json"
	TrustLockStateFile    = "trust_lock_state.json"
	SafetyBrakeStateFile  = "safety_brake_state.json"
	WeightedConsensusFile = "weighted_consensus.json"
	ReputationIndexFile   = "reputation_index.json"
	IntegrityScoresFile   = "integrity_scores.json"
	ForecastStateFile     = "forecast_state.json"
	RDGLAdjustmentsFile   = "rdgl_policy_adjustments.json"
	ThresholdPolicyFile   = "threshold_policy.json"
	FusionStateFile       = "policy_fusion_state.json"

	FusionLogFile         = "policy_fusion_log.jsonl"
	ResponseHistoryFile   = "response_history.jsonl"
	ReversibleActionsFile = "reversible_actions.jsonl"
	RewardLogFile         = "rdgl_reward_log.jsonl"
	TuningHistoryFile     = "threshold_tuning_history.jsonl"
	TrustLockLogFile      = "trust_lock_log.jsonl"
	AlertsFile            = "governance_alerts.jsonl"

	AuditFile         = "governance_audit.md"
	SummaryFile       = "governance_summary.json"
	BlockedReportFile = "blocked_responses.json"
	PreviewFile       = "response_preview.json"
	ArchiveDBFile     = "governance_history.db"
)

// #endregion artifact-names

// BaseDirEnv redirects all relative artifact paths; test runs point it
// at a temp dir so they never touch production files.
const BaseDirEnv = "GOVERNOR_BASE_DIR"
