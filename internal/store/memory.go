package store

import (
	"context"
	"sort"
	"sync"

	"github.com/joescharf/prd/internal/models"
)

// MemoryStore keeps review sessions in a process-local map. It is the
// default store; sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.ReviewSession
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.ReviewSession)}
}

func (m *MemoryStore) CreateReview(_ context.Context, s *models.ReviewSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrExists
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) GetReview(_ context.Context, id string) (*models.ReviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) ListReviews(_ context.Context) ([]*models.ReviewSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.ReviewSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) MutateReview(_ context.Context, id string, fn func(*models.ReviewSession)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(s)
	return nil
}

func (m *MemoryStore) DeleteReview(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
