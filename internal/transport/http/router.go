package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/coordinator"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
	"github.com/RahulUpadhay-art/consents-denied/internal/platform/middleware"
)

// ConsentCoordinator is the transport's view of the reconciliation engine.
// The transport never touches consent semantics itself; it decodes, delegates,
// and renders.
type ConsentCoordinator interface {
	HandleConsentDecision(ctx context.Context, granted bool) models.State
	TrackEvent(ctx context.Context, name string, params map[string]any) bool
	ClearStoredConsent(ctx context.Context) error
	Status() coordinator.Status
}

// TokenMinter issues admin bearer tokens for the consent reset surface.
type TokenMinter interface {
	Mint() (string, error)
}

// Handler is the thin HTTP layer over the consent coordinator.
type Handler struct {
	coordinator     ConsentCoordinator
	tokens          TokenMinter
	adminSecretHash string
	logger          *slog.Logger
}

func NewHandler(c ConsentCoordinator, tokens TokenMinter, adminSecretHash string, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator:     c,
		tokens:          tokens,
		adminSecretHash: adminSecretHash,
		logger:          logger,
	}
}

// NewRouter wires all endpoints with the middleware stack. Health and metrics
// stay outside the JSON API group so scrapers are never rejected on
// content-type grounds.
func NewRouter(h *Handler, validator middleware.TokenValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))
		api.Use(middleware.ContentTypeJSON)

		api.Post("/consent/decision", h.handleConsentDecision)
		api.Get("/consent", h.handleConsentStatus)
		api.Post("/events", h.handleTrackEvent)
		api.Post("/admin/token", h.handleMintToken)

		api.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireAdmin(validator, logger))
			admin.Delete("/consent", h.handleClearConsent)
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
