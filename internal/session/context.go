package session

import (
	"context"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

type contextKey struct{}

// WithSession returns a copy of ctx carrying s
func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by WithSession, or nil
func FromContext(ctx context.Context) *models.Session {
	s, _ := ctx.Value(contextKey{}).(*models.Session)
	return s
}
