package store

import (
	"context"
	"errors"

	"github.com/mehul-tandon/WipeOut/internal/models"
)

var (
	// ErrNotFound means no certificate exists under the requested id.
	// It is a normal negative result, not a failure.
	ErrNotFound = errors.New("certificate not found")

	// ErrAlreadyExists means a certificate is already stored under the
	// id. Certificates are write-once; overwriting is always an error.
	ErrAlreadyExists = errors.New("certificate already exists")
)

// Store persists issued certificates keyed by certificate id.
//
// Put must be atomic: a concurrently reading Get either sees the whole
// certificate or ErrNotFound, never a partial write. Put of an existing
// id returns ErrAlreadyExists.
type Store interface {
	Put(ctx context.Context, cert *models.Certificate) error
	Get(ctx context.Context, id string) (*models.Certificate, error)
}
