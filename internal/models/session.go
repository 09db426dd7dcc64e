package models

import (
    "fmt"
    "time"

    "github.com/google/uuid"
)

// Role selects which credential list a login is checked against
type Role string

const (
    RoleUser  Role = "user"
    RoleAdmin Role = "admin"
)

// ParseRole parses a role name
func ParseRole(s string) (Role, error) {
    switch Role(s) {
    case RoleUser, RoleAdmin:
        return Role(s), nil
    }
    return "", fmt.Errorf("unknown role %q", s)
}

// Session is one browser's login state.
type Session struct {
    ID            uuid.UUID `json:"id"`
    Role          Role      `json:"role"`
    Authenticated bool      `json:"authenticated"`
    CreatedAt     time.Time `json:"createdAt"`
}

// CanAccess reports whether the session may open a page that requires role.
// Admins may open user pages; users may not open admin pages.
func (s *Session) CanAccess(role Role) bool {
    if s == nil || !s.Authenticated {
        return false
    }
    if role == RoleAdmin {
        return s.Role == RoleAdmin
    }
    return true
}
