package api

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/go-chi/cors"
    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/labte-ums/lorawan-dashboard/internal/auth"
    "github.com/labte-ums/lorawan-dashboard/internal/config"
    "github.com/labte-ums/lorawan-dashboard/internal/models"
    "github.com/labte-ums/lorawan-dashboard/internal/notify"
    "github.com/labte-ums/lorawan-dashboard/internal/search"
    "github.com/labte-ums/lorawan-dashboard/internal/session"
    "github.com/labte-ums/lorawan-dashboard/internal/validation"
)

const publishTimeout = 10 * time.Second

// UplinkFetcher loads the latest uplinks of one device
type UplinkFetcher interface {
    FetchUplinks(ctx context.Context, devEUI string, count int) ([]models.Uplink, error)
}

// FleetLister builds the admin fleet report
type FleetLister interface {
    ListDevicesWithDetail(ctx context.Context) (*models.FleetReport, error)
}

// Sessions is the session manager as seen by the handlers
type Sessions interface {
    Login(ctx context.Context, role models.Role, username, password string) (*models.Session, error)
    Logout(ctx context.Context, id uuid.UUID) error
    Lookup(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Server serves the dashboard pages and the JSON API
type Server struct {
    config    *config.Config
    sessions  Sessions
    tokens    *auth.TokenManager
    uplinks   UplinkFetcher
    fleet     FleetLister
    publisher notify.Publisher
    searches  *search.Tracker
    validator *validation.Validator
    views     *views
    now       func() time.Time
    router    chi.Router
    server    *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithPublisher publishes every fleet report built for the admin dashboard
func WithPublisher(p notify.Publisher) Option {
    return func(s *Server) {
        s.publisher = p
    }
}

// WithClock overrides the clock used for elapsed-time labels
func WithClock(now func() time.Time) Option {
    return func(s *Server) {
        s.now = now
    }
}

// NewServer creates a new dashboard server
func NewServer(cfg *config.Config, sessions Sessions, uplinks UplinkFetcher, fleet FleetLister, opts ...Option) *Server {
    s := &Server{
        config:    cfg,
        sessions:  sessions,
        tokens:    auth.NewTokenManager(&cfg.Session),
        uplinks:   uplinks,
        fleet:     fleet,
        publisher: notify.Nop{},
        searches:  search.NewTracker(),
        validator: validation.NewValidator(),
        views:     mustParseViews(),
        now:       time.Now,
        router:    chi.NewRouter(),
    }
    for _, opt := range opts {
        opt(s)
    }

    s.setupRoutes()

    s.server = &http.Server{
        Handler:      s.router,
        ReadTimeout:  15 * time.Second,
        WriteTimeout: 90 * time.Second,
        IdleTimeout:  60 * time.Second,
    }

    return s
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
    // Middleware
    s.router.Use(middleware.RequestID)
    s.router.Use(middleware.RealIP)
    s.router.Use(requestLogger)
    s.router.Use(middleware.Recoverer)
    s.router.Use(middleware.Timeout(60 * time.Second))
    s.router.Use(s.sessionMiddleware)

    s.setupPageRoutes(s.router)

    // API routes
    s.router.Route("/api/v1", func(r chi.Router) {
        r.Use(cors.Handler(cors.Options{
            AllowedOrigins:   s.config.API.AllowedOrigins,
            AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
            AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
            ExposedHeaders:   []string{"X-Search-Generation"},
            AllowCredentials: true,
            MaxAge:           300,
        }))
        s.setupAPIRoutes(r)
    })
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
    return s.router
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
    s.server.Addr = addr

    log.Info().Str("addr", addr).Msg("Starting dashboard server")
    return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
    return s.server.Shutdown(ctx)
}

// sessionMiddleware attaches the caller's session to the request context. It
// never rejects a request; requireRole does.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        token := s.tokenFromRequest(r)
        if token == "" {
            next.ServeHTTP(w, r)
            return
        }

        claims, err := s.tokens.ValidateToken(token)
        if err != nil {
            log.Debug().Err(err).Msg("Ignoring invalid session token")
            next.ServeHTTP(w, r)
            return
        }

        sess, err := s.sessions.Lookup(r.Context(), claims.SessionID)
        if err != nil {
            next.ServeHTTP(w, r)
            return
        }

        next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
    })
}

// tokenFromRequest reads the session cookie, then a bearer token
func (s *Server) tokenFromRequest(r *http.Request) string {
    if c, err := r.Cookie(s.config.Session.CookieName); err == nil && c.Value != "" {
        return c.Value
    }

    authHeader := r.Header.Get("Authorization")
    parts := strings.SplitN(authHeader, " ", 2)
    if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
        return strings.TrimSpace(parts[1])
    }
    return ""
}

// requireRole rejects requests whose session may not access role. deny
// writes the rejection.
func requireRole(role models.Role, deny func(w http.ResponseWriter, r *http.Request, sess *models.Session)) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            sess := session.FromContext(r.Context())
            if !sess.CanAccess(role) {
                deny(w, r, sess)
                return
            }
            next.ServeHTTP(w, r)
        })
    }
}

// setSessionCookie stores the signed session token in the browser
func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
    c := &http.Cookie{
        Name:     s.config.Session.CookieName,
        Value:    token,
        Path:     "/",
        HttpOnly: true,
        Secure:   s.config.Session.Secure,
        SameSite: http.SameSiteLaxMode,
    }
    if s.config.Session.TTL > 0 {
        c.MaxAge = int(s.config.Session.TTL.Seconds())
    }
    http.SetCookie(w, c)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
    http.SetCookie(w, &http.Cookie{
        Name:     s.config.Session.CookieName,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   s.config.Session.Secure,
        SameSite: http.SameSiteLaxMode,
    })
}
