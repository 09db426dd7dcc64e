package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// Common errors
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidData = errors.New("invalid data")
)

// FlagLoggedIn is the only value ever persisted for a session; logging out
// removes the row instead of writing a false value.
const FlagLoggedIn = "true"

// Store persists the logged-in flag of every session
type Store interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// Close the store
	Close() error
}
