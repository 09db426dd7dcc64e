package api

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"
    "github.com/rs/zerolog/log"

    "github.com/labte-ums/lorawan-dashboard/internal/devices"
    "github.com/labte-ums/lorawan-dashboard/internal/models"
    "github.com/labte-ums/lorawan-dashboard/internal/notify"
    "github.com/labte-ums/lorawan-dashboard/internal/search"
    "github.com/labte-ums/lorawan-dashboard/internal/session"
    "github.com/labte-ums/lorawan-dashboard/pkg/lorawan"
)

// searchRequest is one uplink search. DevEUI emptiness is checked by the
// telemetry client so it is reported like any other search failure.
type searchRequest struct {
    DevEUI string `form:"dev_eui"`
    Count  int    `form:"n" validate:"oneof=10 25 50 100"`
}

type fleetRequest struct {
    Days int `form:"days" validate:"min=0,max=365"`
}

// loginRequest carries the credentials as typed. Empty values are looked up
// like any other.
type loginRequest struct {
    Role     string `json:"role" validate:"role"`
    Username string `json:"username"`
    Password string `json:"password"`
}

// ========== Shared flows ==========

// login opens a session and hands the browser its cookie. A session the
// request already carried is closed first.
func (s *Server) login(w http.ResponseWriter, r *http.Request, role models.Role, username, password string) (*models.Session, string, error) {
    if prev := session.FromContext(r.Context()); prev != nil {
        if err := s.sessions.Logout(r.Context(), prev.ID); err != nil {
            log.Warn().Err(err).Str("session", prev.ID.String()).Msg("Failed to close previous session")
        }
        s.searches.Forget(prev.ID.String())
    }

    sess, err := s.sessions.Login(r.Context(), role, username, password)
    if err != nil {
        return nil, "", err
    }

    token, err := s.tokens.GenerateToken(sess)
    if err != nil {
        return nil, "", err
    }
    s.setSessionCookie(w, token)

    return sess, token, nil
}

// logout closes the request's session, if any, and clears the cookie
func (s *Server) logout(w http.ResponseWriter, r *http.Request) error {
    s.clearSessionCookie(w)

    sess := session.FromContext(r.Context())
    if sess == nil {
        return nil
    }
    s.searches.Forget(sess.ID.String())
    return s.sessions.Logout(r.Context(), sess.ID)
}

// searchUplinks runs req as the session's newest search. current is false
// when a newer search started before this one finished; its result must
// then be dropped.
func (s *Server) searchUplinks(r *http.Request, sess *models.Session, req searchRequest) (rows []models.Uplink, gen search.Generation, current bool, err error) {
    key := sess.ID.String()

    ctx, gen, done := s.searches.Begin(r.Context(), key)
    defer done()

    rows, err = s.uplinks.FetchUplinks(ctx, req.DevEUI, req.Count)
    if !s.searches.IsCurrent(key, gen) {
        log.Debug().
            Str("session", key).
            Uint64("generation", uint64(gen)).
            Msg("Dropping superseded search result")
        return nil, gen, false, nil
    }
    return rows, gen, true, err
}

// fleetReport builds the fleet report and publishes it off the request path
func (s *Server) fleetReport(r *http.Request) (*models.FleetReport, error) {
    report, err := s.fleet.ListDevicesWithDetail(r.Context())
    if err != nil {
        log.Warn().Err(err).Msg("Fleet report incomplete")
    }
    if report != nil && len(report.Devices) > 0 {
        notify.Background(s.publisher, report, publishTimeout)
    }
    return report, err
}

// ========== API handlers ==========

// HandleHealth handles health check
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
    s.respondJSON(w, http.StatusOK, map[string]interface{}{
        "status":   "ok",
        "time":     s.now().UTC(),
        "searches": s.searches.Len(),
    })
}

// HandleAPILogin handles login for either role
func (s *Server) HandleAPILogin(w http.ResponseWriter, r *http.Request) {
    var req loginRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, "invalid request body")
        return
    }
    if err := s.validator.Validate(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, err.Error())
        return
    }

    sess, token, err := s.login(w, r, models.Role(req.Role), req.Username, req.Password)
    if err != nil {
        msg, status := errorMessage(err)
        if status == http.StatusInternalServerError {
            log.Error().Err(err).Msg("Login failed")
        }
        s.respondError(w, status, msg)
        return
    }

    s.respondJSON(w, http.StatusOK, map[string]interface{}{
        "token":   token,
        "session": sess,
    })
}

// HandleAPILogout handles logout
func (s *Server) HandleAPILogout(w http.ResponseWriter, r *http.Request) {
    if err := s.logout(w, r); err != nil {
        log.Error().Err(err).Msg("Failed to log out")
        s.respondError(w, http.StatusInternalServerError, "failed to log out")
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// HandleAPIMe returns the caller's session
func (s *Server) HandleAPIMe(w http.ResponseWriter, r *http.Request) {
    s.respondJSON(w, http.StatusOK, session.FromContext(r.Context()))
}

// HandleAPIUplinks returns the latest uplinks of one device
func (s *Server) HandleAPIUplinks(w http.ResponseWriter, r *http.Request) {
    sess := session.FromContext(r.Context())

    req := searchRequest{DevEUI: chi.URLParam(r, "dev_eui"), Count: defaultCount}
    if n := r.URL.Query().Get("n"); n != "" {
        req.Count, _ = strconv.Atoi(n)
    }
    if err := s.validator.Validate(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, err.Error())
        return
    }

    rows, gen, current, err := s.searchUplinks(r, sess, req)
    w.Header().Set("X-Search-Generation", strconv.FormatUint(uint64(gen), 10))

    if !current {
        s.respondError(w, http.StatusConflict, "superseded by a newer search")
        return
    }
    if err != nil {
        msg, status := errorMessage(err)
        s.respondError(w, status, msg)
        return
    }

    resp := map[string]interface{}{
        "devEui":     lorawan.NormalizeDevEUI(req.DevEUI),
        "count":      req.Count,
        "generation": gen,
        "rows":       rows,
    }
    if len(rows) == 0 {
        resp["message"] = msgEmptyUplinks
    }
    s.respondJSON(w, http.StatusOK, resp)
}

// HandleAPIDevices returns the fleet report, filtered to devices seen in the
// last days when days is positive
func (s *Server) HandleAPIDevices(w http.ResponseWriter, r *http.Request) {
    req := fleetRequest{Days: s.config.Devices.DefaultDays}
    if d := r.URL.Query().Get("days"); d != "" {
        req.Days, _ = strconv.Atoi(d)
    }
    if err := s.validator.Validate(&req); err != nil {
        s.respondError(w, http.StatusBadRequest, err.Error())
        return
    }

    report, err := s.fleetReport(r)
    if report == nil && !errors.Is(err, devices.ErrNoDevices) {
        msg, status := errorMessage(err)
        s.respondError(w, status, msg)
        return
    }
    if report == nil {
        report = &models.FleetReport{GeneratedAt: s.now(), Devices: []models.DeviceSummary{}}
    }

    filtered := *report
    filtered.Devices = devices.FilterRecent(report.Devices, req.Days, s.now())

    resp := map[string]interface{}{
        "days":   req.Days,
        "report": filtered,
    }
    if err != nil {
        resp["message"], _ = errorMessage(err)
    }
    s.respondJSON(w, http.StatusOK, resp)
}
