package bridge

import "context"

// Bridge abstracts the two native operations that must stay in lockstep with
// the effective permission. Both are idempotent on the native side: entering
// privacy mode while already in it is a no-op.
//
// Failures are returned, not retried. The coordinator logs them and proceeds
// fail-closed; an ExitPrivacyMode failure additionally flags a divergence
// risk because the native layer is then stricter than the recorded state.
type Bridge interface {
	// EnterPrivacyMode disables persistent-identifier collection and drops
	// the native transport to reduced-data mode.
	EnterPrivacyMode(ctx context.Context) error
	// ExitPrivacyMode re-enables identifier collection and runs the native
	// transport at full fidelity.
	ExitPrivacyMode(ctx context.Context) error
}
