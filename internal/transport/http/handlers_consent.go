package httptransport

import (
	"encoding/json"
	"net/http"

	httpErrors "github.com/RahulUpadhay-art/consents-denied/pkg/http-errors"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

type decisionRequest struct {
	// Pointer so an absent field is distinguishable from an explicit false.
	// A consent decision must never be defaulted.
	Granted *bool `json:"granted"`
}

// handleConsentDecision records a first-layer consent decision and returns the
// state the coordinator landed in, along with the full read model.
func (h *Handler) handleConsentDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpErrors.Write(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Granted == nil {
		httpErrors.Write(w, dErrors.New(dErrors.CodeValidation, "granted is required"))
		return
	}

	h.coordinator.HandleConsentDecision(r.Context(), *req.Granted)
	writeJSON(w, http.StatusOK, h.coordinator.Status())
}

func (h *Handler) handleConsentStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.coordinator.Status())
}

// handleClearConsent is the admin-guarded reset used by debug tooling and
// automated tests.
func (h *Handler) handleClearConsent(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.ClearStoredConsent(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "consent clear failed", "error", err)
		httpErrors.Write(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not clear stored consent"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
