// Package session keeps each browser's logged-in flag in memory and in the
// configured store, writing every transition through to both.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
	"github.com/labte-ums/lorawan-dashboard/internal/storage"
)

var (
	// ErrInvalidCredentials is returned for any failed login. It never says
	// which of username or password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotFound is returned for unknown or logged-out sessions
	ErrNotFound = errors.New("session not found")
)

// Authenticator checks a username/password pair against a role's list
type Authenticator interface {
	Authenticate(role models.Role, username, password string) bool
}

// Manager owns session state
type Manager struct {
	store storage.Store
	creds Authenticator

	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
}

// NewManager creates a manager. Call Restore before serving requests.
func NewManager(store storage.Store, creds Authenticator) *Manager {
	return &Manager{
		store:    store,
		creds:    creds,
		sessions: make(map[uuid.UUID]*models.Session),
	}
}

// Restore reads every persisted flag back into memory
func (m *Manager) Restore(ctx context.Context) error {
	persisted, err := m.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make(map[uuid.UUID]*models.Session, len(persisted))
	for _, s := range persisted {
		if s.Authenticated {
			m.sessions[s.ID] = s
		}
	}

	log.Info().Int("sessions", len(m.sessions)).Msg("Restored persisted sessions")
	return nil
}

// Login checks the credentials of role and opens a new session
func (m *Manager) Login(ctx context.Context, role models.Role, username, password string) (*models.Session, error) {
	if !m.creds.Authenticate(role, username, password) {
		log.Info().Str("role", string(role)).Msg("Login rejected")
		return nil, ErrInvalidCredentials
	}

	s := &models.Session{
		ID:            uuid.New(),
		Role:          role,
		Authenticated: true,
		CreatedAt:     time.Now(),
	}

	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Info().
		Str("session", s.ID.String()).
		Str("role", string(role)).
		Msg("Session opened")

	out := *s
	return &out, nil
}

// Logout removes the session from the store and from memory. Logging out an
// unknown session is not an error.
func (m *Manager) Logout(ctx context.Context, id uuid.UUID) error {
	if err := m.store.DeleteSession(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	log.Info().Str("session", id.String()).Msg("Session closed")
	return nil
}

// Lookup returns a copy of a logged-in session
func (m *Manager) Lookup(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	out := *s
	return &out, nil
}

// IsAuthenticated reports whether id names a logged-in session
func (m *Manager) IsAuthenticated(id uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	return ok && s.Authenticated
}

// Count returns the number of logged-in sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}
