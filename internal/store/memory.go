package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mehul-tandon/WipeOut/internal/models"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	certs map[string]*models.Certificate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{certs: make(map[string]*models.Certificate)}
}

func (m *MemoryStore) Put(ctx context.Context, cert *models.Certificate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.certs[cert.CertificateID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, cert.CertificateID)
	}
	copied := *cert
	m.certs[cert.CertificateID] = &copied
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*models.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	cert, exists := m.certs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *cert
	return &copied, nil
}

var _ Store = (*MemoryStore)(nil)
