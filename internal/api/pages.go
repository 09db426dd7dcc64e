package api

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/labte-ums/lorawan-dashboard/internal/devices"
    "github.com/labte-ums/lorawan-dashboard/internal/models"
    "github.com/labte-ums/lorawan-dashboard/internal/session"
    "github.com/labte-ums/lorawan-dashboard/pkg/lorawan"
)

const (
    defaultCount   = 10
    payloadPreview = 80
)

var (
    limitOptions = []int{10, 25, 50, 100}
    dayOptions   = []int{0, 1, 7, 30}
)

// ========== Page handlers ==========

// HandleLanding renders the landing page
func (s *Server) HandleLanding(w http.ResponseWriter, r *http.Request) {
    s.views.render(w, http.StatusOK, "landing", page{
        Title:   "Home",
        Session: session.FromContext(r.Context()),
    })
}

// HandleLoginPage renders the login form of role. A session that may
// already open the role's page goes straight there.
func (s *Server) HandleLoginPage(role models.Role) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        sess := session.FromContext(r.Context())
        if sess.CanAccess(role) {
            http.Redirect(w, r, homeFor(role), http.StatusSeeOther)
            return
        }
        s.renderLogin(w, r, http.StatusOK, role, "", "")
    }
}

// HandleLoginSubmit checks the posted credentials against role's list
func (s *Server) HandleLoginSubmit(role models.Role) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        if err := r.ParseForm(); err != nil {
            s.renderLogin(w, r, http.StatusBadRequest, role, "", msgUnexpected)
            return
        }
        username := r.PostForm.Get("username")
        password := r.PostForm.Get("password")

        sess, _, err := s.login(w, r, role, username, password)
        if err != nil {
            msg, status := errorMessage(err)
            s.renderLogin(w, r, status, role, username, msg)
            return
        }

        http.Redirect(w, r, homeFor(sess.Role), http.StatusSeeOther)
    }
}

// HandleLogoutPage closes the session and returns to the landing page
func (s *Server) HandleLogoutPage(w http.ResponseWriter, r *http.Request) {
    if err := s.logout(w, r); err != nil {
        log.Error().Err(err).Msg("Failed to log out")
    }
    http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDashboard renders the uplink search. A search runs when dev_eui is
// part of the query, even when it is blank.
func (s *Server) HandleDashboard(w http.ResponseWriter, r *http.Request) {
    sess := session.FromContext(r.Context())
    query := r.URL.Query()

    view := dashboardView{
        DevEUI:       query.Get("dev_eui"),
        Limit:        defaultCount,
        LimitOptions: limitOptions,
    }

    req := searchRequest{DevEUI: view.DevEUI, Count: defaultCount}
    if n := query.Get("n"); n != "" {
        req.Count, _ = strconv.Atoi(n)
    }
    if err := s.validator.Validate(&req); err != nil {
        view.Error = "Jumlah data harus 10, 25, 50, atau 100."
        s.renderDashboard(w, r, http.StatusBadRequest, view)
        return
    }
    view.Limit = req.Count

    if !query.Has("dev_eui") {
        s.renderDashboard(w, r, http.StatusOK, view)
        return
    }

    rows, _, current, err := s.searchUplinks(r, sess, req)
    if !current {
        view.Error = msgSuperseded
        s.renderDashboard(w, r, http.StatusConflict, view)
        return
    }
    if err != nil {
        view.Error, _ = errorMessage(err)
        s.renderDashboard(w, r, http.StatusOK, view)
        return
    }
    if len(rows) == 0 {
        view.Error = msgEmptyUplinks
        s.renderDashboard(w, r, http.StatusOK, view)
        return
    }

    view.Active = lorawan.NormalizeDevEUI(req.DevEUI)
    view.Rows = make([]uplinkRow, 0, len(rows))
    for i, u := range rows {
        view.Rows = append(view.Rows, uplinkRow{
            Key:       u.Key(i),
            Timestamp: u.Timestamp(),
            Device:    u.DeviceLabel(),
            Summary:   u.PayloadSummary(),
            Pretty:    u.PayloadPretty(),
        })
    }
    s.renderDashboard(w, r, http.StatusOK, view)
}

// HandleAdminDashboard renders every device's latest state
func (s *Server) HandleAdminDashboard(w http.ResponseWriter, r *http.Request) {
    view := adminView{
        Days:       s.config.Devices.DefaultDays,
        DayOptions: dayOptions,
    }

    req := fleetRequest{Days: view.Days}
    if d := r.URL.Query().Get("days"); d != "" {
        req.Days, _ = strconv.Atoi(d)
    }
    if err := s.validator.Validate(&req); err != nil {
        view.Error = "Rentang hari tidak valid."
        s.renderAdmin(w, r, http.StatusBadRequest, view)
        return
    }
    view.Days = req.Days

    report, err := s.fleetReport(r)
    if report != nil {
        now := s.now()
        view.Requested = report.Requested
        view.Skipped = report.Skipped
        for _, d := range devices.FilterRecent(report.Devices, req.Days, now) {
            view.Devices = append(view.Devices, deviceRowFor(d, now))
        }
    }
    if err != nil {
        view.Error, _ = errorMessage(err)
    }

    s.renderAdmin(w, r, http.StatusOK, view)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, role models.Role, username, msg string) {
    title := "Login Dashboard"
    action := "/login"
    if role == models.RoleAdmin {
        title = "Login Admin"
        action = "/admin/login"
    }

    s.views.render(w, status, "login", page{
        Title:   title,
        Session: session.FromContext(r.Context()),
        Data: loginView{
            Role:     role,
            Action:   action,
            Username: strings.TrimSpace(username),
            Error:    msg,
        },
    })
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, view dashboardView) {
    s.views.render(w, status, "dashboard", page{
        Title:   "Dashboard",
        Session: session.FromContext(r.Context()),
        Data:    view,
    })
}

func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, status int, view adminView) {
    s.views.render(w, status, "admin", page{
        Title:   "Admin",
        Session: session.FromContext(r.Context()),
        Data:    view,
    })
}

func deviceRowFor(d models.DeviceSummary, now time.Time) deviceRow {
    row := deviceRow{
        ID:        d.ID,
        EUI:       d.EUI,
        Name:      orDash(d.Name),
        AppName:   orDash(d.AppName),
        Frequency: devices.FormatFrequency(d.Frequency),
        Band:      devices.BandLabel(d.Frequency),
        Payload:   "-",
        LastSeen:  orDash(d.LastSeenLabel),
        Elapsed:   devices.ElapsedLabel(d.LastSeenSort, now),
    }
    if len(d.DataJSON) > 0 {
        row.Payload = devices.TruncatePayload(string(d.DataJSON), payloadPreview)
    }
    return row
}

func homeFor(role models.Role) string {
    if role == models.RoleAdmin {
        return "/admin"
    }
    return "/dashboard"
}

func orDash(s string) string {
    if s == "" {
        return "-"
    }
    return s
}
