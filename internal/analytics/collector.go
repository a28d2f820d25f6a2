package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

const defaultRequestTimeout = 15 * time.Second

// Collector delivers events to an HTTP analytics endpoint as JSON. No retry
// or backoff here: delivery failures surface to the caller, which decides
// whether the event stays buffered.
type Collector struct {
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	clientID string
}

// CollectorOption configures the Collector.
type CollectorOption func(*Collector)

// WithHTTPClient injects a custom client, mainly for tests.
func WithHTTPClient(client *http.Client) CollectorOption {
	return func(c *Collector) {
		c.client = client
	}
}

// NewCollector constructs a collector against the given endpoint.
func NewCollector(endpoint string, opts ...CollectorOption) *Collector {
	c := &Collector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type eventPayload struct {
	ClientID string         `json:"client_id"`
	Name     string         `json:"name"`
	Params   map[string]any `json:"params,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// Initialize records the client identity and verifies the collector is
// reachable. Calling LogEvent before Initialize is a transport error.
func (c *Collector) Initialize(ctx context.Context, opts Options) error {
	if opts.ClientID == "" {
		return dErrors.New(dErrors.CodeTransport, "client id required")
	}

	body, _ := json.Marshal(map[string]string{"client_id": opts.ClientID})
	if err := c.post(ctx, c.endpoint+"/init", body); err != nil {
		return err
	}

	c.mu.Lock()
	c.clientID = opts.ClientID
	c.mu.Unlock()
	return nil
}

// LogEvent delivers a single event. The caller guarantees params are already
// free of PII when the event went through the buffer; live events carry only
// what the handler put in them.
func (c *Collector) LogEvent(ctx context.Context, name string, params map[string]any) error {
	c.mu.Lock()
	clientID := c.clientID
	c.mu.Unlock()
	if clientID == "" {
		return dErrors.New(dErrors.CodeTransport, "transport not initialized")
	}

	payload := eventPayload{
		ClientID: clientID,
		Name:     name,
		Params:   params,
		SentAt:   time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransport, "could not encode event")
	}
	return c.post(ctx, c.endpoint, body)
}

func (c *Collector) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransport, "could not build collector request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransport, "collector call failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return dErrors.New(dErrors.CodeTransport, fmt.Sprintf("collector returned status %d", resp.StatusCode))
	}
	return nil
}

// Verify interface is satisfied.
var _ Transport = (*Collector)(nil)
