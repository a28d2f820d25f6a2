package models

import "time"

// Record is the durable source of truth for the two-layer consent decision,
// persisted across process restarts.
//
// # Invariant
//
// EffectivePermission == true implies GeneralConsent == true. Effective
// permission is general consent narrowed by the platform tracking
// authorization; it can never exceed it. The coordinator is the only writer
// and re-checks the invariant on every transition.
type Record struct {
	GeneralConsent      bool
	EffectivePermission bool
}

// Valid reports whether the record satisfies the narrowing invariant.
func (r Record) Valid() bool {
	return !r.EffectivePermission || r.GeneralConsent
}

// State is the coordinator's reconciliation state. Denied and Granted are
// both re-enterable: consent can be withdrawn or re-granted at any time, so
// the machine has no terminal state.
type State string

const (
	// StateUnknown means no record has been loaded yet.
	StateUnknown State = "unknown"
	// StateDenied means general consent or tracking authorization resolved
	// to a denial, or an error forced the fail-closed branch.
	StateDenied State = "denied"
	// StatePendingAuthorization means general consent was granted but the
	// tracking authorization outcome has not resolved yet.
	StatePendingAuthorization State = "pending_authorization"
	// StateGranted means effective permission is true.
	StateGranted State = "granted"
)

// AuthorizationOutcome is the tri-state result of evaluating the tracking
// authorization gate. Unavailable is treated identically to Denied by the
// coordinator (fail closed).
type AuthorizationOutcome string

const (
	OutcomeAuthorized  AuthorizationOutcome = "authorized"
	OutcomeDenied      AuthorizationOutcome = "denied"
	OutcomeUnavailable AuthorizationOutcome = "unavailable"
)

// AuthorizationStatus is the raw four-value response of the OS authorization
// collaborator. Only StatusAuthorized maps to OutcomeAuthorized; every other
// value maps to OutcomeDenied.
type AuthorizationStatus string

const (
	StatusAuthorized    AuthorizationStatus = "authorized"
	StatusDenied        AuthorizationStatus = "denied"
	StatusRestricted    AuthorizationStatus = "restricted"
	StatusNotDetermined AuthorizationStatus = "notDetermined"
)

// Outcome narrows the raw OS status to the gate's tri-state outcome.
func (s AuthorizationStatus) Outcome() AuthorizationOutcome {
	if s == StatusAuthorized {
		return OutcomeAuthorized
	}
	return OutcomeDenied
}

// AnalyticsInitState tracks whether the downstream analytics transport has
// been started. Initialize is called at most once per process lifetime, on
// the transition into full consent.
type AnalyticsInitState int

const (
	AnalyticsUninitialized AnalyticsInitState = iota
	AnalyticsInitialized
)

// BufferedEvent is an analytics event held back while effective permission is
// false or the transport is not yet initialized. Params are already scrubbed
// of PII-bearing keys by the time the event is stored.
type BufferedEvent struct {
	ID         string
	Name       string
	Params     map[string]any
	Scrubbed   bool
	EnqueuedAt time.Time
}
