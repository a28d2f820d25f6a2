package gate

import (
	"context"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
)

// Gate resolves the platform tracking-authorization signal. The coordinator
// consults it whenever general consent is granted; only OutcomeAuthorized
// opens the path to effective permission.
type Gate interface {
	Evaluate(ctx context.Context) (models.AuthorizationOutcome, error)
}

// Authorizer is the OS collaborator behind the prompt variant. On the
// platform with a mandatory dialog it presents the prompt; after the OS has
// cached a final decision it returns that decision without re-prompting. The
// OS itself enforces at-most-one-prompt-per-install semantics.
type Authorizer interface {
	RequestAuthorization(ctx context.Context) (models.AuthorizationStatus, error)
}

// ForPlatform selects the gate variant at construction time so the
// coordinator never branches on platform.
func ForPlatform(platform string, mandatoryGatePlatforms []string, authorizer Authorizer) Gate {
	for _, candidate := range mandatoryGatePlatforms {
		if candidate == platform {
			return NewPrompt(authorizer)
		}
	}
	return Open{}
}
