package coordinator

//go:generate mockgen -source=contracts.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/RahulUpadhay-art/consents-denied/internal/analytics"
	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
)

// Store is the persistence collaborator for the two consent flags.
//
// Error Contract:
//   - Get returns a not_found domain error when the flag was never written
//   - infrastructure failures carry CodePersistence
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value bool) error
	Delete(ctx context.Context, key string) error
}

// Bridge is the native privacy-mode collaborator. Both operations are
// idempotent on the native side.
type Bridge interface {
	EnterPrivacyMode(ctx context.Context) error
	ExitPrivacyMode(ctx context.Context) error
}

// Gate resolves the platform tracking-authorization signal.
type Gate interface {
	Evaluate(ctx context.Context) (models.AuthorizationOutcome, error)
}

// Transport is the analytics delivery collaborator. Initialize is called at
// most once per process lifetime, before any LogEvent.
type Transport interface {
	Initialize(ctx context.Context, opts analytics.Options) error
	LogEvent(ctx context.Context, name string, params map[string]any) error
}
