package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// MemoryStore keeps sessions for the process lifetime only
type MemoryStore struct {
	sessions map[uuid.UUID]models.Session
	sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]models.Session),
	}
}

// GetSession returns a copy of the stored session
func (s *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s.RLock()
	defer s.RUnlock()

	if m, ok := s.sessions[id]; ok {
		return &m, nil
	}
	return nil, ErrNotFound
}

// SaveSession stores a logged-in session
func (s *MemoryStore) SaveSession(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == uuid.Nil || !session.Authenticated {
		return ErrInvalidData
	}

	s.Lock()
	defer s.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

// DeleteSession removes a session
func (s *MemoryStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.Lock()
	defer s.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// ListSessions returns every stored session
func (s *MemoryStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	s.RLock()
	defer s.RUnlock()

	out := make([]*models.Session, 0, len(s.sessions))
	for _, m := range s.sessions {
		m := m
		out = append(out, &m)
	}
	return out, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
