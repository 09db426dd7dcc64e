package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/labte-ums/lorawan-dashboard/internal/config"
	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewTokenManager(&config.SessionConfig{Secret: "test-secret"})
	session := &models.Session{ID: uuid.New(), Role: models.RoleAdmin, Authenticated: true}

	token, err := m.GenerateToken(session)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.SessionID != session.ID || claims.Role != models.RoleAdmin {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt != nil {
		t.Fatalf("expected no expiry without a ttl")
	}
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	session := &models.Session{ID: uuid.New(), Role: models.RoleUser, Authenticated: true}

	token, err := NewTokenManager(&config.SessionConfig{Secret: "one"}).GenerateToken(session)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	_, err = NewTokenManager(&config.SessionConfig{Secret: "two"}).ValidateToken(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewTokenManager(&config.SessionConfig{Secret: "s", TTL: -time.Minute})
	session := &models.Session{ID: uuid.New(), Role: models.RoleUser, Authenticated: true}

	// a negative ttl is treated as "no expiry"
	token, err := m.GenerateToken(session)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err != nil {
		t.Fatalf("expected token without expiry to validate, got %v", err)
	}

	m.config.TTL = time.Nanosecond
	token, err = m.GenerateToken(session)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := m.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m := NewTokenManager(&config.SessionConfig{Secret: "s"})
	if _, err := m.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
