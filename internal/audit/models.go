package audit

import "time"

// Event is emitted from the coordinator to capture consent transitions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    string
	Decision  string
	Outcome   string
	Reason    string
}

// Audit event actions.
const (
	ActionDecisionReceived      = "decision_received"
	ActionConsentGranted        = "consent_granted"
	ActionConsentDenied         = "consent_denied"
	ActionAuthorizationResolved = "authorization_resolved"
	ActionPrivacyModeEntered    = "privacy_mode_entered"
	ActionPrivacyModeExited     = "privacy_mode_exited"
	ActionDivergenceFlagged     = "privacy_divergence_flagged"
	ActionBufferFlushed         = "buffer_flushed"
	ActionConsentCleared        = "consent_cleared"
)

// Audit event decisions.
const (
	DecisionGranted = "granted"
	DecisionDenied  = "denied"
)

// Audit event reasons.
const (
	ReasonUserInitiated  = "user_initiated"
	ReasonFailClosed     = "fail_closed"
	ReasonStartupReplay  = "startup_replay"
	ReasonAdminInitiated = "admin_initiated"
)
