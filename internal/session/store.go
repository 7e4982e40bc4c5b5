package session

import (
	"context"
	"sync"

	"github.com/desertthunder/linesync/internal/models"
)

// Store is durable persistence for the session credential.
//
// Load returns a zero [models.Credential] when nothing is stored.
// Save and Clear must be durable when they return.
type Store interface {
	Load(ctx context.Context) (models.Credential, error)
	Save(ctx context.Context, cred models.Credential) error
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local [Store], used when no database is configured and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	cred  models.Credential
	saves int
}

// NewMemoryStore creates a [MemoryStore] seeded with cred.
func NewMemoryStore(cred models.Credential) *MemoryStore {
	return &MemoryStore{cred: cred}
}

func (s *MemoryStore) Load(context.Context) (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, nil
}

func (s *MemoryStore) Save(_ context.Context, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	s.saves++
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = models.Credential{}
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var _ Store = (*MemoryStore)(nil)
