// Package configstore persists the vault envelope as an opaque byte blob.
//
// Stores do no cryptography. Load reports common.ErrNotFound when nothing has
// been persisted yet (first run); every other I/O failure is wrapped with
// common.ErrConfigIO and surfaced to the caller without retries.
package configstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
)

// Store is a byte sink for the vault envelope.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Persist(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrConfigIO, op, err)
}
