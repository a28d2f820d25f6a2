package audit

import (
	"context"

	dErrors "github.com/RahulUpadhay-art/consents-denied/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific misses consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}
