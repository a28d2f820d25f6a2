package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/coordinator"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
	"github.com/RahulUpadhay-art/consents-denied/internal/platform/logger"
	"github.com/RahulUpadhay-art/consents-denied/pkg/secrets"
)

type stubCoordinator struct {
	status      coordinator.Status
	delivered   bool
	clearErr    error
	lastGranted *bool
	lastEvent   string
	lastParams  map[string]any
	cleared     bool
}

func (s *stubCoordinator) HandleConsentDecision(_ context.Context, granted bool) models.State {
	s.lastGranted = &granted
	return s.status.State
}

func (s *stubCoordinator) TrackEvent(_ context.Context, name string, params map[string]any) bool {
	s.lastEvent = name
	s.lastParams = params
	return s.delivered
}

func (s *stubCoordinator) ClearStoredConsent(context.Context) error {
	s.cleared = true
	return s.clearErr
}

func (s *stubCoordinator) Status() coordinator.Status {
	return s.status
}

type stubMinter struct {
	token string
	err   error
}

func (m stubMinter) Mint() (string, error) {
	return m.token, m.err
}

type stubValidator struct {
	err error
}

func (v stubValidator) ValidateAdminToken(string) error {
	return v.err
}

func newTestRouter(t *testing.T, coord *stubCoordinator, secretHash string, validator stubValidator) http.Handler {
	t.Helper()
	h := NewHandler(coord, stubMinter{token: "signed-token"}, secretHash, logger.NewNop())
	return NewRouter(h, validator, logger.NewNop())
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleConsentDecision(t *testing.T) {
	coord := &stubCoordinator{status: coordinator.Status{State: models.StateGranted, GeneralConsent: true, EffectivePermission: true}}
	router := newTestRouter(t, coord, "", stubValidator{})

	rec := postJSON(t, router, "/consent/decision", map[string]bool{"granted": true})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, coord.lastGranted)
	assert.True(t, *coord.lastGranted)

	var status coordinator.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.StateGranted, status.State)
}

func TestHandleConsentDecisionRequiresGranted(t *testing.T) {
	coord := &stubCoordinator{}
	router := newTestRouter(t, coord, "", stubValidator{})

	rec := postJSON(t, router, "/consent/decision", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, coord.lastGranted)
}

func TestHandleConsentStatus(t *testing.T) {
	coord := &stubCoordinator{status: coordinator.Status{State: models.StateDenied, BufferedEvents: 3}}
	router := newTestRouter(t, coord, "", stubValidator{})

	req := httptest.NewRequest(http.MethodGet, "/consent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status coordinator.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.StateDenied, status.State)
	assert.Equal(t, 3, status.BufferedEvents)
}

func TestHandleTrackEventDeliveredLive(t *testing.T) {
	coord := &stubCoordinator{delivered: true}
	router := newTestRouter(t, coord, "", stubValidator{})

	rec := postJSON(t, router, "/events", trackEventRequest{Name: "purchase", Params: map[string]any{"value": 42}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "purchase", coord.lastEvent)

	var resp trackEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Delivered)
}

func TestHandleTrackEventBufferedReturnsAccepted(t *testing.T) {
	coord := &stubCoordinator{delivered: false, status: coordinator.Status{BufferedEvents: 1}}
	router := newTestRouter(t, coord, "", stubValidator{})

	rec := postJSON(t, router, "/events", trackEventRequest{Name: "view_item"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp trackEventResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Delivered)
	assert.Equal(t, 1, resp.BufferedEvents)
}

func TestHandleTrackEventRequiresName(t *testing.T) {
	coord := &stubCoordinator{}
	router := newTestRouter(t, coord, "", stubValidator{})

	rec := postJSON(t, router, "/events", trackEventRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, coord.lastEvent)
}

func TestHandleTrackEventEnrichesDeviceContext(t *testing.T) {
	coord := &stubCoordinator{delivered: true}
	router := newTestRouter(t, coord, "", stubValidator{})

	raw, err := json.Marshal(trackEventRequest{Name: "view_item", Params: map[string]any{"device_os": "custom"}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "desktop", coord.lastParams["device_class"])
	// Caller-supplied params win over derived device context.
	assert.Equal(t, "custom", coord.lastParams["device_os"])
}

func TestClearConsentRequiresAdminToken(t *testing.T) {
	coord := &stubCoordinator{}
	router := newTestRouter(t, coord, "", stubValidator{err: errors.New("invalid")})

	req := httptest.NewRequest(http.MethodDelete, "/consent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, coord.cleared)

	req = httptest.NewRequest(http.MethodDelete, "/consent", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, coord.cleared)
}

func TestClearConsentWithValidToken(t *testing.T) {
	coord := &stubCoordinator{}
	router := newTestRouter(t, coord, "", stubValidator{})

	req := httptest.NewRequest(http.MethodDelete, "/consent", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, coord.cleared)
}

func TestMintTokenDisabledWithoutSecretHash(t *testing.T) {
	router := newTestRouter(t, &stubCoordinator{}, "", stubValidator{})

	rec := postJSON(t, router, "/admin/token", mintTokenRequest{Secret: "anything"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMintToken(t *testing.T) {
	hash, err := secrets.Hash("correct-secret")
	require.NoError(t, err)
	router := newTestRouter(t, &stubCoordinator{}, hash, stubValidator{})

	rec := postJSON(t, router, "/admin/token", mintTokenRequest{Secret: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, router, "/admin/token", mintTokenRequest{Secret: "correct-secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp mintTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
}

func TestRejectsNonJSONContentType(t *testing.T) {
	router := newTestRouter(t, &stubCoordinator{}, "", stubValidator{})

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader([]byte("name=purchase")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, &stubCoordinator{}, "", stubValidator{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
