package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/RahulUpadhay-art/consents-denied/pkg/secrets"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
	httpErrors "github.com/RahulUpadhay-art/consents-denied/pkg/http-errors"
)

type mintTokenRequest struct {
	Secret string `json:"secret"`
}

type mintTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
}

// handleMintToken exchanges the shared admin secret for a short-lived bearer
// token. With no secret hash configured the admin surface is disabled
// entirely.
func (h *Handler) handleMintToken(w http.ResponseWriter, r *http.Request) {
	if h.adminSecretHash == "" {
		httpErrors.Write(w, dErrors.New(dErrors.CodeForbidden, "admin surface is disabled"))
		return
	}

	var req mintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpErrors.Write(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := secrets.Verify(req.Secret, h.adminSecretHash); err != nil {
		h.logger.WarnContext(r.Context(), "admin secret rejected")
		httpErrors.Write(w, err)
		return
	}

	token, err := h.tokens.Mint()
	if err != nil {
		httpErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mintTokenResponse{Token: token, TokenType: "Bearer"})
}
