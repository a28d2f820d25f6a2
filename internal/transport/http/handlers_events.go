package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/RahulUpadhay-art/consents-denied/internal/analytics"
	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
	httpErrors "github.com/RahulUpadhay-art/consents-denied/pkg/http-errors"
)

type trackEventRequest struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type trackEventResponse struct {
	Delivered      bool `json:"delivered"`
	BufferedEvents int  `json:"buffered_events"`
}

// handleTrackEvent accepts an analytics event. Delivery is never guaranteed
// synchronously: 200 means the event went out live, 202 means it was buffered
// pending consent or transport availability.
func (h *Handler) handleTrackEvent(w http.ResponseWriter, r *http.Request) {
	var req trackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpErrors.Write(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Name == "" {
		httpErrors.Write(w, dErrors.New(dErrors.CodeValidation, "name is required"))
		return
	}

	params := enrichParams(req.Params, r.UserAgent())
	delivered := h.coordinator.TrackEvent(r.Context(), req.Name, params)

	status := http.StatusOK
	if !delivered {
		status = http.StatusAccepted
	}
	writeJSON(w, status, trackEventResponse{
		Delivered:      delivered,
		BufferedEvents: h.coordinator.Status().BufferedEvents,
	})
}

// enrichParams merges device context from the User-Agent header under the
// caller's params. Caller-supplied keys win and the input map is not mutated.
func enrichParams(params map[string]any, userAgent string) map[string]any {
	device := analytics.DeviceParams(userAgent)
	if len(device) == 0 {
		return params
	}
	merged := make(map[string]any, len(params)+len(device))
	for k, v := range device {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	return merged
}
