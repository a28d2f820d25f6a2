package store

import (
	"context"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

// Flag keys persisted by the coordinator. Two independent booleans rather
// than one struct so a partial write can never fabricate effective
// permission out of thin air: the general flag is always written first.
const (
	KeyGeneralConsent      = "consent:general"
	KeyEffectivePermission = "consent:effective"
)

// ErrNotFound keeps storage-specific misses consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "flag not set")

// Store is the persistence collaborator for consent flags.
//
// Error Contract:
//   - Get returns ErrNotFound when the flag has never been written
//   - other failures are wrapped with CodePersistence
//   - Set/Delete return nil on success
type Store interface {
	Get(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value bool) error
	Delete(ctx context.Context, key string) error
}
