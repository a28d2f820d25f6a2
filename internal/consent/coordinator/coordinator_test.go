package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/RahulUpadhay-art/consents-denied/internal/analytics"
	"github.com/RahulUpadhay-art/consents-denied/internal/audit"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/buffer"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/coordinator/mocks"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/store"
	"github.com/RahulUpadhay-art/consents-denied/internal/platform/logger"
)

// fakeBridge records privacy-mode toggles and can inject failures.
type fakeBridge struct {
	enterCalls int
	exitCalls  int
	enterErr   error
	exitErr    error
}

func (b *fakeBridge) EnterPrivacyMode(context.Context) error {
	b.enterCalls++
	return b.enterErr
}

func (b *fakeBridge) ExitPrivacyMode(context.Context) error {
	b.exitCalls++
	return b.exitErr
}

// fakeGate returns a fixed outcome and counts evaluations.
type fakeGate struct {
	outcome models.AuthorizationOutcome
	err     error
	calls   int
}

func (g *fakeGate) Evaluate(context.Context) (models.AuthorizationOutcome, error) {
	g.calls++
	return g.outcome, g.err
}

// fakeTransport records delivered events in order. failures maps an event
// name to the number of times its delivery should fail before succeeding.
type fakeTransport struct {
	initCalls int
	initErr   error
	delivered []string
	failures  map[string]int
}

func (t *fakeTransport) Initialize(context.Context, analytics.Options) error {
	t.initCalls++
	return t.initErr
}

func (t *fakeTransport) LogEvent(_ context.Context, name string, _ map[string]any) error {
	if t.failures[name] > 0 {
		t.failures[name]--
		return errors.New("delivery failed")
	}
	t.delivered = append(t.delivered, name)
	return nil
}

type CoordinatorSuite struct {
	suite.Suite
	store      *store.InMemoryStore
	bridge     *fakeBridge
	gate       *fakeGate
	transport  *fakeTransport
	buf        *buffer.Buffer
	auditStore *audit.InMemoryStore
	coord      *Coordinator
	ctx        context.Context
}

func (s *CoordinatorSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.bridge = &fakeBridge{}
	s.gate = &fakeGate{outcome: models.OutcomeAuthorized}
	s.transport = &fakeTransport{failures: map[string]int{}}
	s.buf = buffer.New()
	s.auditStore = audit.NewInMemoryStore()
	s.ctx = context.Background()
	s.coord = s.newCoordinator()
}

// newCoordinator builds a coordinator over the suite's collaborators,
// mirroring a process restart when called mid-test.
func (s *CoordinatorSuite) newCoordinator() *Coordinator {
	return New(
		s.store,
		s.bridge,
		s.gate,
		s.transport,
		s.buf,
		logger.NewNop(),
		WithAuditor(audit.NewPublisher(s.auditStore)),
		WithClientID("install-test"),
	)
}

func (s *CoordinatorSuite) auditActions() []string {
	events, err := s.auditStore.List(s.ctx)
	s.Require().NoError(err)
	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}
	return actions
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

// =============================================================================
// Decision handling
// =============================================================================

func (s *CoordinatorSuite) TestDeniedDecisionFailsClosed() {
	s.coord.TrackEvent(s.ctx, "view_item", nil)

	state := s.coord.HandleConsentDecision(s.ctx, false)

	s.Equal(models.StateDenied, state)
	s.Equal(1, s.bridge.enterCalls)
	s.Zero(s.bridge.exitCalls)
	s.Zero(s.transport.initCalls)
	s.False(s.coord.Status().EffectivePermission)
	s.Equal(1, s.coord.Status().BufferedEvents)

	general, err := s.store.Get(s.ctx, store.KeyGeneralConsent)
	s.Require().NoError(err)
	s.False(general)
}

func (s *CoordinatorSuite) TestGrantedDecisionWithoutMandatoryGate() {
	s.coord.TrackEvent(s.ctx, "view_item", nil)
	s.coord.TrackEvent(s.ctx, "purchase", nil)

	state := s.coord.HandleConsentDecision(s.ctx, true)

	s.Equal(models.StateGranted, state)
	s.Equal(1, s.bridge.exitCalls)
	s.Equal(1, s.transport.initCalls)
	s.True(s.coord.Status().EffectivePermission)
	s.Zero(s.coord.Status().BufferedEvents)
	// Buffered events drained in insertion order.
	s.Equal([]string{"view_item", "purchase"}, s.transport.delivered)
}

func (s *CoordinatorSuite) TestGrantedDecisionWithGateDenial() {
	s.gate.outcome = models.OutcomeDenied
	s.coord.TrackEvent(s.ctx, "view_item", nil)

	state := s.coord.HandleConsentDecision(s.ctx, true)

	s.Equal(models.StateDenied, state)
	s.Equal(1, s.gate.calls)
	s.Equal(1, s.bridge.enterCalls)
	s.Zero(s.bridge.exitCalls)
	s.Zero(s.transport.initCalls)
	s.False(s.coord.Status().EffectivePermission)
	s.Equal(1, s.coord.Status().BufferedEvents)

	// General consent stays recorded even though the gate refused.
	general, err := s.store.Get(s.ctx, store.KeyGeneralConsent)
	s.Require().NoError(err)
	s.True(general)
}

func (s *CoordinatorSuite) TestGateFailureTreatedAsDenial() {
	s.gate.outcome = models.OutcomeUnavailable
	s.gate.err = errors.New("os api unreachable")

	state := s.coord.HandleConsentDecision(s.ctx, true)

	s.Equal(models.StateDenied, state)
	s.False(s.coord.Status().EffectivePermission)
	s.Equal(1, s.bridge.enterCalls)
}

func (s *CoordinatorSuite) TestEffectiveNeverExceedsGeneral() {
	decisions := []bool{true, false, true, true, false}
	for _, granted := range decisions {
		s.coord.HandleConsentDecision(s.ctx, granted)
		status := s.coord.Status()
		if status.EffectivePermission {
			s.True(status.GeneralConsent, "effective permission without general consent")
		}
	}
}

func (s *CoordinatorSuite) TestStatesAreReenterable() {
	s.Equal(models.StateGranted, s.coord.HandleConsentDecision(s.ctx, true))
	s.Equal(models.StateDenied, s.coord.HandleConsentDecision(s.ctx, false))
	s.Equal(models.StateGranted, s.coord.HandleConsentDecision(s.ctx, true))

	// Withdrawing re-entered privacy mode; re-granting exited it again, but
	// the transport was initialized exactly once for the whole process.
	s.Equal(1, s.bridge.enterCalls)
	s.Equal(2, s.bridge.exitCalls)
	s.Equal(1, s.transport.initCalls)
}

func (s *CoordinatorSuite) TestDeniedDecisionAuditTrail() {
	s.coord.HandleConsentDecision(s.ctx, false)

	s.Equal([]string{
		audit.ActionDecisionReceived,
		audit.ActionPrivacyModeEntered,
		audit.ActionConsentDenied,
	}, s.auditActions())
}

// =============================================================================
// Flush semantics
// =============================================================================

func (s *CoordinatorSuite) TestFlushHaltsAtFirstFailureAndPreservesOrder() {
	s.coord.TrackEvent(s.ctx, "view_item", nil)
	s.coord.TrackEvent(s.ctx, "purchase", nil)
	s.transport.failures["purchase"] = 1

	s.coord.HandleConsentDecision(s.ctx, true)

	s.Equal([]string{"view_item"}, s.transport.delivered)
	s.Equal([]string{"purchase"}, eventNames(s.buf.Snapshot()))
}

func (s *CoordinatorSuite) TestBacklogDrainsBeforeLiveEvents() {
	s.coord.TrackEvent(s.ctx, "view_item", nil)
	s.transport.failures["view_item"] = 1

	s.coord.HandleConsentDecision(s.ctx, true)
	// First flush halted; view_item is still buffered.
	s.Equal([]string{"view_item"}, eventNames(s.buf.Snapshot()))

	// The next tracked event triggers a drain before going out itself, so
	// ordering survives the earlier failure.
	delivered := s.coord.TrackEvent(s.ctx, "checkout", nil)

	s.True(delivered)
	s.Equal([]string{"view_item", "checkout"}, s.transport.delivered)
	s.True(s.buf.IsEmpty())
}

func (s *CoordinatorSuite) TestLiveDeliveryFailureBuffersTheEvent() {
	s.coord.HandleConsentDecision(s.ctx, true)
	s.transport.failures["purchase"] = 1

	delivered := s.coord.TrackEvent(s.ctx, "purchase", nil)

	s.False(delivered)
	s.Equal([]string{"purchase"}, eventNames(s.buf.Snapshot()))
}

func (s *CoordinatorSuite) TestInitFailureKeepsBuffering() {
	s.transport.initErr = errors.New("collector down")
	s.coord.TrackEvent(s.ctx, "view_item", nil)

	state := s.coord.HandleConsentDecision(s.ctx, true)

	// Permission is granted but the transport never started: nothing may
	// leave the device and the buffer keeps growing.
	s.Equal(models.StateGranted, state)
	s.Empty(s.transport.delivered)
	s.False(s.coord.TrackEvent(s.ctx, "purchase", nil))
	s.Equal(2, s.coord.Status().BufferedEvents)

	// A later decision retries initialization and drains everything.
	s.transport.initErr = nil
	s.coord.HandleConsentDecision(s.ctx, true)
	s.Equal(2, s.transport.initCalls)
	s.Equal([]string{"view_item", "purchase"}, s.transport.delivered)
	s.True(s.buf.IsEmpty())
}

// =============================================================================
// Load
// =============================================================================

func (s *CoordinatorSuite) TestLoadWithoutRecordFailsClosed() {
	state := s.coord.Load(s.ctx)

	s.Equal(models.StateDenied, state)
	s.Equal(1, s.bridge.enterCalls)
	s.Zero(s.gate.calls)
}

func (s *CoordinatorSuite) TestLoadReevaluatesAuthorizationEveryStart() {
	s.coord.HandleConsentDecision(s.ctx, true)
	s.Equal(1, s.gate.calls)

	// Platform permission can change outside the app: a restart must ask
	// the gate again instead of trusting the stored outcome.
	restarted := s.newCoordinator()
	state := restarted.Load(s.ctx)

	s.Equal(models.StateGranted, state)
	s.Equal(2, s.gate.calls)
}

func (s *CoordinatorSuite) TestLoadRevokedAuthorizationDowngradesToDenied() {
	s.coord.HandleConsentDecision(s.ctx, true)
	s.True(s.coord.Status().EffectivePermission)

	s.gate.outcome = models.OutcomeDenied
	restarted := s.newCoordinator()
	state := restarted.Load(s.ctx)

	s.Equal(models.StateDenied, state)
	s.False(restarted.Status().EffectivePermission)

	effective, err := s.store.Get(s.ctx, store.KeyEffectivePermission)
	s.Require().NoError(err)
	s.False(effective)
}

func (s *CoordinatorSuite) TestLoadClampsCorruptedRecord() {
	// Effective permission without general consent can only mean corrupted
	// storage; it must be clamped closed, never honored.
	s.Require().NoError(s.store.Set(s.ctx, store.KeyEffectivePermission, true))

	state := s.coord.Load(s.ctx)

	s.Equal(models.StateDenied, state)
	effective, err := s.store.Get(s.ctx, store.KeyEffectivePermission)
	s.Require().NoError(err)
	s.False(effective)
}

// =============================================================================
// Clear
// =============================================================================

func (s *CoordinatorSuite) TestClearStoredConsentResetsEverything() {
	s.coord.HandleConsentDecision(s.ctx, true)
	s.coord.TrackEvent(s.ctx, "view_item", nil)

	s.Require().NoError(s.coord.ClearStoredConsent(s.ctx))

	status := s.coord.Status()
	s.Equal(models.StateUnknown, status.State)
	s.False(status.GeneralConsent)
	s.False(status.EffectivePermission)
	s.Zero(status.BufferedEvents)

	_, err := s.store.Get(s.ctx, store.KeyGeneralConsent)
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.Get(s.ctx, store.KeyEffectivePermission)
	s.ErrorIs(err, store.ErrNotFound)
}

// =============================================================================
// Persistence failures (mock store)
// =============================================================================

// TestPersistenceFailuresDoNotBlockTransitions verifies the storage failure
// policy: log and proceed on in-memory state, never surface to the caller,
// never unblock data transmission on its own.
func (s *CoordinatorSuite) TestPersistenceFailuresDoNotBlockTransitions() {
	ctrl := gomock.NewController(s.T())
	mockStore := mocks.NewMockStore(ctrl)
	mockStore.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(
		errors.New("disk full"),
	).AnyTimes()

	coord := New(mockStore, s.bridge, s.gate, s.transport, s.buf, logger.NewNop())
	state := coord.HandleConsentDecision(s.ctx, true)

	s.Equal(models.StateGranted, state)
	s.True(coord.Status().EffectivePermission)
}

func (s *CoordinatorSuite) TestLoadWithFailingStoreFailsClosed() {
	ctrl := gomock.NewController(s.T())
	mockStore := mocks.NewMockStore(ctrl)
	mockStore.EXPECT().Get(gomock.Any(), gomock.Any()).Return(
		false, errors.New("connection refused"),
	).Times(2)
	mockStore.EXPECT().Set(gomock.Any(), store.KeyEffectivePermission, false).Return(nil)

	coord := New(mockStore, s.bridge, s.gate, s.transport, s.buf, logger.NewNop())
	state := coord.Load(s.ctx)

	s.Equal(models.StateDenied, state)
	s.Zero(s.gate.calls)
}

// =============================================================================
// Bridge failures
// =============================================================================

func (s *CoordinatorSuite) TestEnterPrivacyModeFailureIsNotFatal() {
	s.bridge.enterErr = errors.New("bridge down")

	state := s.coord.HandleConsentDecision(s.ctx, false)

	// Still lands in the safe state: nothing is transmitted either way.
	s.Equal(models.StateDenied, state)
	s.False(s.coord.Status().EffectivePermission)
}

func (s *CoordinatorSuite) TestExitPrivacyModeFailureFlagsDivergence() {
	s.bridge.exitErr = errors.New("bridge down")

	state := s.coord.HandleConsentDecision(s.ctx, true)

	// Full consent proceeds, but the divergence is on the audit trail.
	s.Equal(models.StateGranted, state)
	s.Contains(s.auditActions(), audit.ActionDivergenceFlagged)
}

func eventNames(events []models.BufferedEvent) []string {
	out := make([]string, 0, len(events))
	for _, event := range events {
		out = append(out, event.Name)
	}
	return out
}
