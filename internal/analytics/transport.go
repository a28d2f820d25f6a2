package analytics

import "context"

// Options carries transport initialization parameters.
type Options struct {
	// ClientID identifies this installation to the collector. It is a random
	// UUID, never derived from user data.
	ClientID string
}

// Transport is the analytics delivery collaborator. Initialize must be
// called at most once per process lifetime, before any LogEvent call; the
// coordinator enforces this through its init state.
type Transport interface {
	Initialize(ctx context.Context, opts Options) error
	LogEvent(ctx context.Context, name string, params map[string]any) error
}
