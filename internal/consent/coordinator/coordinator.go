package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/RahulUpadhay-art/consents-denied/internal/analytics"
	"github.com/RahulUpadhay-art/consents-denied/internal/audit"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/buffer"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/metrics"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/store"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/tracer"
)

// Coordinator owns the two consent signals and runs the reconciliation state
// machine. It is the only component allowed to flip the effective-permission
// flag, and the sole writer of the persisted record.
//
// Fail-closed is the central correctness property: any ambiguity, error, or
// unresolved signal resolves to "not granted", never to "granted".
//
// Entry points are mutually exclusive. A decision arriving while another is
// in flight queues behind it on the coordinator mutex, so two
// reconciliations can never race on the persisted record.
type Coordinator struct {
	mu sync.Mutex

	store     Store
	bridge    Bridge
	gate      Gate
	transport Transport
	buf       *buffer.Buffer

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Publisher
	tracer  tracer.Tracer

	clientID  string
	record    models.Record
	state     models.State
	initState models.AnalyticsInitState
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithAuditor sets the audit publisher.
func WithAuditor(a *audit.Publisher) Option {
	return func(c *Coordinator) {
		c.auditor = a
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = t
	}
}

// WithClientID pins the transport client identity. Defaults to a random
// UUID per process.
func WithClientID(clientID string) Option {
	return func(c *Coordinator) {
		if clientID != "" {
			c.clientID = clientID
		}
	}
}

// New constructs the coordinator. Call Load before handling decisions.
func New(st Store, br Bridge, gt Gate, tr Transport, buf *buffer.Buffer, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     st,
		bridge:    br,
		gate:      gt,
		transport: tr,
		buf:       buf,
		logger:    logger,
		tracer:    tracer.NewNoop(),
		clientID:  uuid.New().String(),
		state:     models.StateUnknown,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the persisted record and replays its consequences. A previously
// denied general consent re-enters privacy mode; a previously granted one
// re-evaluates authorization, because the platform permission can change
// outside the app between runs and a stale outcome is not trusted.
func (c *Coordinator) Load(ctx context.Context) models.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, tracer.SpanLoad)
	defer span.End(nil)

	general := c.readFlag(ctx, store.KeyGeneralConsent)
	effective := c.readFlag(ctx, store.KeyEffectivePermission)
	if effective && !general {
		// A record violating the narrowing invariant can only come from
		// corrupted storage. Clamp it closed.
		c.logger.WarnContext(ctx, "persisted record violates consent invariant, clamping effective permission")
		effective = false
		c.writeFlag(ctx, store.KeyEffectivePermission, false)
	}
	c.record = models.Record{GeneralConsent: general, EffectivePermission: effective}

	if !general {
		c.denyEffective(ctx, audit.ReasonStartupReplay)
	} else {
		c.state = models.StatePendingAuthorization
		c.evaluateAuthorization(ctx, audit.ReasonStartupReplay)
	}

	span.SetAttributes(tracer.String(tracer.AttrState, string(c.state)))
	c.logger.InfoContext(ctx, "consent record loaded",
		"general_consent", c.record.GeneralConsent,
		"effective_permission", c.record.EffectivePermission,
		"state", c.state,
	)
	return c.state
}

// HandleConsentDecision runs the state machine for a new first-layer consent
// decision. The decision is persisted before any asynchronous work so a
// crash mid-transition can never resurrect a withdrawn consent. Returns the
// resulting state; every failure path is handled internally and resolves to
// a denied state.
func (c *Coordinator) HandleConsentDecision(ctx context.Context, granted bool) models.State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, tracer.SpanDecision, tracer.Bool(tracer.AttrDecision, granted))
	defer span.End(nil)

	c.emitAudit(ctx, audit.Event{
		Action:   audit.ActionDecisionReceived,
		Decision: decisionLabel(granted),
		Reason:   audit.ReasonUserInitiated,
	})

	c.writeFlag(ctx, store.KeyGeneralConsent, granted)
	c.record.GeneralConsent = granted

	if !granted {
		if c.metrics != nil {
			c.metrics.IncrementDecisions(audit.DecisionDenied)
		}
		c.denyEffective(ctx, audit.ReasonUserInitiated)
	} else {
		if c.metrics != nil {
			c.metrics.IncrementDecisions(audit.DecisionGranted)
		}
		c.state = models.StatePendingAuthorization
		c.evaluateAuthorization(ctx, audit.ReasonUserInitiated)
	}

	span.SetAttributes(tracer.String(tracer.AttrState, string(c.state)))
	return c.state
}

// evaluateAuthorization resolves the second consent layer. Callers hold the
// coordinator mutex and have already persisted general consent = true.
func (c *Coordinator) evaluateAuthorization(ctx context.Context, reason string) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanAuthorization)

	outcome, err := c.gate.Evaluate(ctx)
	if err != nil {
		// Fail closed: an unreachable gate is a denial. Logged, not retried.
		c.logger.WarnContext(ctx, "authorization evaluation failed, treating as denied", "error", err)
		outcome = models.OutcomeUnavailable
	}
	if c.metrics != nil {
		c.metrics.IncrementAuthorizationOutcome(string(outcome))
	}
	c.emitAudit(ctx, audit.Event{
		Action:  audit.ActionAuthorizationResolved,
		Outcome: string(outcome),
		Reason:  reason,
	})
	span.SetAttributes(tracer.String(tracer.AttrOutcome, string(outcome)))
	span.End(err)

	if outcome != models.OutcomeAuthorized {
		c.denyEffective(ctx, audit.ReasonFailClosed)
		return
	}
	c.grantEffective(ctx, reason)
}

// denyEffective is the single fail-closed sink: it persists effective
// permission = false, puts the native layer into privacy mode, and lands in
// StateDenied. Safe to call from any state.
func (c *Coordinator) denyEffective(ctx context.Context, reason string) {
	c.writeFlag(ctx, store.KeyEffectivePermission, false)
	c.record.EffectivePermission = false

	if err := c.bridge.EnterPrivacyMode(ctx); err != nil {
		// Not fatal: the app continues in the safer state regardless.
		c.logger.ErrorContext(ctx, "enter privacy mode failed", "error", err)
		if c.metrics != nil {
			c.metrics.IncrementBridgeFailures("enter")
		}
	} else {
		c.emitAudit(ctx, audit.Event{Action: audit.ActionPrivacyModeEntered, Reason: reason})
	}

	c.state = models.StateDenied
	c.emitAudit(ctx, audit.Event{
		Action:   audit.ActionConsentDenied,
		Decision: audit.DecisionDenied,
		Reason:   reason,
	})
}

// grantEffective completes the transition into full consent: persist the
// flag, leave privacy mode, start the transport once, and drain the buffer.
func (c *Coordinator) grantEffective(ctx context.Context, reason string) {
	c.writeFlag(ctx, store.KeyEffectivePermission, true)
	c.record.EffectivePermission = true

	if err := c.bridge.ExitPrivacyMode(ctx); err != nil {
		// The native layer is now stricter than the recorded state: no
		// identifiers leak, but full-fidelity collection silently fails.
		c.logger.ErrorContext(ctx, "exit privacy mode failed, native layer diverges from recorded consent", "error", err)
		if c.metrics != nil {
			c.metrics.IncrementBridgeFailures("exit")
			c.metrics.IncrementDivergenceRisk()
		}
		c.emitAudit(ctx, audit.Event{Action: audit.ActionDivergenceFlagged, Reason: reason})
	} else {
		c.emitAudit(ctx, audit.Event{Action: audit.ActionPrivacyModeExited, Reason: reason})
	}

	c.state = models.StateGranted
	c.emitAudit(ctx, audit.Event{
		Action:   audit.ActionConsentGranted,
		Decision: audit.DecisionGranted,
		Reason:   reason,
	})

	if c.initState == models.AnalyticsUninitialized {
		if err := c.transport.Initialize(ctx, analytics.Options{ClientID: c.clientID}); err != nil {
			// Buffer keeps growing; a later decision retries initialization.
			c.logger.ErrorContext(ctx, "analytics transport initialization failed, events stay buffered", "error", err)
			return
		}
		c.initState = models.AnalyticsInitialized
	}

	c.flush(ctx, reason)
}

// TrackEvent forwards an analytics event when consent is finalized, and
// buffers it otherwise. Returns true when the event was delivered live.
//
// When a backlog exists it is drained first, so later events never overtake
// earlier ones; if the backlog cannot be drained the new event joins it.
func (c *Coordinator) TrackEvent(ctx context.Context, name string, params map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, tracer.SpanTrackEvent, tracer.String("event.name", name))
	defer span.End(nil)

	if !c.deliverable() {
		c.enqueue(name, params)
		return false
	}

	if !c.buf.IsEmpty() {
		c.flush(ctx, audit.ReasonUserInitiated)
		if !c.buf.IsEmpty() {
			c.enqueue(name, params)
			return false
		}
	}

	if err := c.transport.LogEvent(ctx, name, params); err != nil {
		c.logger.WarnContext(ctx, "live event delivery failed, buffering", "event", name, "error", err)
		c.enqueue(name, params)
		return false
	}
	if c.metrics != nil {
		c.metrics.IncrementEventsDelivered("live", 1)
	}
	return true
}

// ClearStoredConsent is the debug/testing reset: both persisted flags and
// the in-memory state are wiped, and the buffer is dropped. The transport
// stays initialized; a re-granted consent skips re-initialization.
func (c *Coordinator) ClearStoredConsent(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if err := c.store.Delete(ctx, store.KeyGeneralConsent); err != nil {
		errs = append(errs, err)
	}
	if err := c.store.Delete(ctx, store.KeyEffectivePermission); err != nil {
		errs = append(errs, err)
	}

	c.record = models.Record{}
	c.state = models.StateUnknown
	c.buf.Clear()
	if c.metrics != nil {
		c.metrics.SetBufferedEvents(0)
	}
	c.emitAudit(ctx, audit.Event{Action: audit.ActionConsentCleared, Reason: audit.ReasonAdminInitiated})
	c.logger.InfoContext(ctx, "stored consent cleared")

	return errors.Join(errs...)
}

// Status is the read model for the HTTP layer.
type Status struct {
	State               models.State `json:"state"`
	GeneralConsent      bool         `json:"general_consent"`
	EffectivePermission bool         `json:"effective_permission"`
	BufferedEvents      int          `json:"buffered_events"`
}

// Status reports the current reconciliation state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:               c.state,
		GeneralConsent:      c.record.GeneralConsent,
		EffectivePermission: c.record.EffectivePermission,
		BufferedEvents:      c.buf.Len(),
	}
}

// Teardown logs the final state. Buffered events are intentionally not
// delivered here: consent may still be pending, and shutdown must not leak.
func (c *Coordinator) Teardown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.InfoContext(ctx, "coordinator teardown",
		"state", c.state,
		"buffered_events", c.buf.Len(),
	)
}

// deliverable reports whether events may go straight to the transport.
// Callers hold the mutex.
func (c *Coordinator) deliverable() bool {
	return c.state == models.StateGranted &&
		c.record.EffectivePermission &&
		c.initState == models.AnalyticsInitialized
}

// flush drains the buffer into the transport in insertion order. A delivery
// failure halts it at that event; the remainder stays buffered for the next
// trigger. No-op unless the transport is initialized and permission granted.
func (c *Coordinator) flush(ctx context.Context, reason string) {
	if !c.record.EffectivePermission || c.initState != models.AnalyticsInitialized {
		return
	}

	ctx, span := c.tracer.Start(ctx, tracer.SpanFlush, tracer.Int64(tracer.AttrBufferedCount, int64(c.buf.Len())))

	delivered, err := c.buf.FlushInto(ctx, transportSink{transport: c.transport})
	if c.metrics != nil {
		c.metrics.IncrementEventsDelivered("flush", float64(delivered))
		c.metrics.SetBufferedEvents(float64(c.buf.Len()))
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncrementFlushFailures()
		}
		c.logger.WarnContext(ctx, "buffer flush halted",
			"delivered", delivered,
			"remaining", c.buf.Len(),
			"error", err,
		)
	}
	if delivered > 0 {
		c.emitAudit(ctx, audit.Event{
			Action:  audit.ActionBufferFlushed,
			Outcome: strconv.Itoa(delivered),
			Reason:  reason,
		})
	}

	span.SetAttributes(tracer.Int64(tracer.AttrDelivered, int64(delivered)))
	span.End(err)
}

// enqueue buffers an event and keeps the gauge in step. Callers hold the
// mutex.
func (c *Coordinator) enqueue(name string, params map[string]any) {
	event := c.buf.Enqueue(name, params)
	if c.metrics != nil {
		c.metrics.SetBufferedEvents(float64(c.buf.Len()))
		if event.Scrubbed {
			c.metrics.IncrementEventsScrubbed()
		}
	}
}

// readFlag treats both "never written" and a failed read as false: absence
// of evidence of consent is absence of consent.
func (c *Coordinator) readFlag(ctx context.Context, key string) bool {
	value, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.ErrorContext(ctx, "consent flag read failed, defaulting to false", "key", key, "error", err)
			if c.metrics != nil {
				c.metrics.IncrementPersistenceFailures()
			}
		}
		return false
	}
	return value
}

// writeFlag persists a flag; a failure is logged and counted but does not
// stop the transition, which proceeds on in-memory state.
func (c *Coordinator) writeFlag(ctx context.Context, key string, value bool) {
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.ErrorContext(ctx, "consent flag write failed, proceeding in memory", "key", key, "error", err)
		if c.metrics != nil {
			c.metrics.IncrementPersistenceFailures()
		}
	}
}

func (c *Coordinator) emitAudit(ctx context.Context, event audit.Event) {
	if c.auditor == nil {
		return
	}
	_ = c.auditor.Emit(ctx, event)
}

// transportSink adapts the analytics transport to the buffer's flush sink.
type transportSink struct {
	transport Transport
}

func (s transportSink) Deliver(ctx context.Context, event models.BufferedEvent) error {
	return s.transport.LogEvent(ctx, event.Name, event.Params)
}

func decisionLabel(granted bool) string {
	if granted {
		return audit.DecisionGranted
	}
	return audit.DecisionDenied
}
