package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/labte-ums/lorawan-dashboard/internal/config"
	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

func newTestSQLiteStore(t *testing.T, path string) *SQLStore {
	t.Helper()

	store, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return store
}

func testSession(role models.Role) *models.Session {
	return &models.Session{
		ID:            uuid.New(),
		Role:          role,
		Authenticated: true,
		CreatedAt:     time.UnixMilli(1735689600000),
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	session := testSession(models.RoleAdmin)
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != session.ID || got.Role != models.RoleAdmin || !got.Authenticated {
		t.Fatalf("unexpected session %+v", got)
	}
	if !got.CreatedAt.Equal(session.CreatedAt) {
		t.Fatalf("expected created_at %s, got %s", session.CreatedAt, got.CreatedAt)
	}

	// saving again is an upsert
	session.Role = models.RoleUser
	if err := store.SaveSession(ctx, session); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}
	list, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 1 || list[0].Role != models.RoleUser {
		t.Fatalf("expected one updated session, got %+v", list)
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSession(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store := newTestSQLiteStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	first := newTestSQLiteStore(t, path)
	session := testSession(models.RoleUser)
	if err := first.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	second := newTestSQLiteStore(t, path)
	defer second.Close()

	got, err := second.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession after reopen failed: %v", err)
	}
	if !got.Authenticated {
		t.Fatalf("expected persisted flag to read back as logged in")
	}
}

func TestSaveRejectsLoggedOutSession(t *testing.T) {
	session := testSession(models.RoleUser)
	session.Authenticated = false

	if err := NewMemoryStore().SaveSession(context.Background(), session); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("expected ErrInvalidData, got %v", err)
	}
}

func TestRebindNumbersPlaceholders(t *testing.T) {
	s := &SQLStore{numbered: true}
	if got := s.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("unexpected rebind %q", got)
	}
	s.numbered = false
	if got := s.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("unexpected rebind %q", got)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	store, err := Open(context.Background(), config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	if _, err := Open(context.Background(), config.StorageConfig{Driver: "redis"}); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}
