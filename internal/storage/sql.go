package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// SQLStore implements Store on database/sql. Queries are written with '?'
// placeholders and rebound for drivers that number them.
type SQLStore struct {
	db       *sql.DB
	numbered bool
}

const createSessionFlags = `
CREATE TABLE IF NOT EXISTS session_flags (
  session_id   TEXT PRIMARY KEY,
  role         TEXT NOT NULL,
  is_logged_in TEXT NOT NULL,
  created_at   BIGINT NOT NULL
)`

// migrate creates the schema
func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createSessionFlags); err != nil {
		return fmt.Errorf("create session_flags: %w", err)
	}
	return nil
}

// rebind converts '?' placeholders to $1, $2, ... when needed
func (s *SQLStore) rebind(query string) string {
	if !s.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GetSession gets a session by ID
func (s *SQLStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := s.rebind(`
		SELECT session_id, role, is_logged_in, created_at
		FROM session_flags
		WHERE session_id = ?`)

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// SaveSession upserts a logged-in session
func (s *SQLStore) SaveSession(ctx context.Context, session *models.Session) error {
	if session == nil || session.ID == uuid.Nil || !session.Authenticated {
		return ErrInvalidData
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	query := s.rebind(`
		INSERT INTO session_flags (session_id, role, is_logged_in, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			role = excluded.role,
			is_logged_in = excluded.is_logged_in`)

	_, err := s.db.ExecContext(ctx, query,
		session.ID.String(), string(session.Role), FlagLoggedIn, session.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// DeleteSession deletes a session
func (s *SQLStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	query := s.rebind(`DELETE FROM session_flags WHERE session_id = ?`)

	result, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSessions lists every persisted session
func (s *SQLStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, role, is_logged_in, created_at
		FROM session_flags
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		id, role, flag string
		createdAt      int64
	)
	if err := row.Scan(&id, &role, &flag, &createdAt); err != nil {
		return nil, err
	}

	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: session id %q", ErrInvalidData, id)
	}

	return &models.Session{
		ID:            sessionID,
		Role:          models.Role(role),
		Authenticated: flag == FlagLoggedIn,
		CreatedAt:     time.UnixMilli(createdAt),
	}, nil
}
