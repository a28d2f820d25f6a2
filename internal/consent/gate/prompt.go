package gate

import (
	"context"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

// PromptGate is the variant for platforms with a mandatory OS-level tracking
// authorization prompt.
type PromptGate struct {
	authorizer Authorizer
}

// NewPrompt wraps the OS authorization collaborator.
func NewPrompt(authorizer Authorizer) *PromptGate {
	return &PromptGate{authorizer: authorizer}
}

// Evaluate requests authorization and narrows the four-value OS status to
// the tri-state outcome. A transport-level failure talking to the OS API
// yields OutcomeUnavailable, which the coordinator treats as a denial.
func (g *PromptGate) Evaluate(ctx context.Context) (models.AuthorizationOutcome, error) {
	status, err := g.authorizer.RequestAuthorization(ctx)
	if err != nil {
		return models.OutcomeUnavailable, dErrors.Wrap(err, dErrors.CodeAuthorization, "authorization prompt failed")
	}
	return status.Outcome(), nil
}
