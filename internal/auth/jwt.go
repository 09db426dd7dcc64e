package auth

import (
    "errors"
    "fmt"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/google/uuid"

    "github.com/labte-ums/lorawan-dashboard/internal/config"
    "github.com/labte-ums/lorawan-dashboard/internal/models"
)

const issuer = "lorawan-ums-dashboard"

// ErrInvalidToken is returned for tokens that fail signature or claim checks
var ErrInvalidToken = errors.New("invalid token")

// TokenManager signs the session cookie
type TokenManager struct {
    config *config.SessionConfig
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg *config.SessionConfig) *TokenManager {
    return &TokenManager{
        config: cfg,
    }
}

// Claims represents the session cookie claims. The cookie only identifies the
// session; whether it is still logged in is decided by the session store.
type Claims struct {
    jwt.RegisteredClaims
    SessionID uuid.UUID   `json:"sid"`
    Role      models.Role `json:"role"`
}

// GenerateToken signs a token for session
func (m *TokenManager) GenerateToken(session *models.Session) (string, error) {
    now := time.Now()

    claims := Claims{
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   session.ID.String(),
            IssuedAt:  jwt.NewNumericDate(now),
            NotBefore: jwt.NewNumericDate(now),
            Issuer:    issuer,
        },
        SessionID: session.ID,
        Role:      session.Role,
    }
    if m.config.TTL > 0 {
        claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.config.TTL))
    }

    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := token.SignedString([]byte(m.config.Secret))
    if err != nil {
        return "", fmt.Errorf("sign session token: %w", err)
    }

    return signed, nil
}

// ValidateToken validates a token
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
    token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
        if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
        }
        return []byte(m.config.Secret), nil
    }, jwt.WithIssuer(issuer))

    if err != nil {
        return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
    }

    claims, ok := token.Claims.(*Claims)
    if !ok || !token.Valid || claims.SessionID == uuid.Nil {
        return nil, ErrInvalidToken
    }

    return claims, nil
}
