package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

// HTTPAuthorizer asks the native agent to run the OS authorization prompt
// and reports the raw four-value status back. The call can suspend for as
// long as the dialog is on screen; once shown it cannot be cancelled, so no
// timeout is applied beyond the caller's context.
type HTTPAuthorizer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPAuthorizer constructs an authorizer against the native agent
// endpoint.
func NewHTTPAuthorizer(endpoint string) *HTTPAuthorizer {
	return &HTTPAuthorizer{
		endpoint: strings.TrimRight(endpoint, "/") + "/requestAuthorization",
		client:   &http.Client{Timeout: 0},
	}
}

type authorizationResponse struct {
	Status string `json:"status"`
}

func (a *HTTPAuthorizer) RequestAuthorization(ctx context.Context) (models.AuthorizationStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, nil)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeAuthorization, "could not build authorization request")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeAuthorization, "authorization call failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.New(dErrors.CodeAuthorization, fmt.Sprintf("authorization call returned status %d", resp.StatusCode))
	}

	var body authorizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeAuthorization, "could not decode authorization response")
	}
	return models.AuthorizationStatus(body.Status), nil
}
