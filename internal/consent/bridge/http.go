package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

const (
	methodEnterPrivacyMode = "enterPrivacyMode"
	methodExitPrivacyMode  = "exitPrivacyMode"

	defaultCallTimeout = 10 * time.Second
)

// HTTPBridge invokes the native agent's privacy operations by method name
// over a fire-and-forget JSON POST. There is no payload; the agent keys off
// the method field alone.
type HTTPBridge struct {
	endpoint string
	client   *http.Client
}

// HTTPOption configures the HTTPBridge.
type HTTPOption func(*HTTPBridge)

// WithHTTPClient injects a custom client, mainly for tests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(b *HTTPBridge) {
		b.client = client
	}
}

// NewHTTP constructs a bridge talking to the native agent endpoint.
func NewHTTP(endpoint string, opts ...HTTPOption) *HTTPBridge {
	b := &HTTPBridge{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultCallTimeout},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *HTTPBridge) EnterPrivacyMode(ctx context.Context) error {
	return b.invoke(ctx, methodEnterPrivacyMode)
}

func (b *HTTPBridge) ExitPrivacyMode(ctx context.Context) error {
	return b.invoke(ctx, methodExitPrivacyMode)
}

func (b *HTTPBridge) invoke(ctx context.Context, method string) error {
	body, err := json.Marshal(map[string]string{"method": method})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBridge, "could not encode bridge call")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBridge, "could not build bridge request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBridge, fmt.Sprintf("bridge call %s failed", method))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return dErrors.New(dErrors.CodeBridge, fmt.Sprintf("bridge call %s returned status %d", method, resp.StatusCode))
	}
	return nil
}
