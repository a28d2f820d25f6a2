package gate

import (
	"context"

	"github.com/RahulUpadhay-art/consents-denied/internal/consent/models"
)

// Open is the variant for platforms without a mandatory tracking prompt. It
// authorizes unconditionally and synchronously.
type Open struct{}

func (Open) Evaluate(context.Context) (models.AuthorizationOutcome, error) {
	return models.OutcomeAuthorized, nil
}
