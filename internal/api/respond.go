package api

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"

    "github.com/rs/zerolog/log"

    "github.com/labte-ums/lorawan-dashboard/internal/devices"
    "github.com/labte-ums/lorawan-dashboard/internal/models"
    "github.com/labte-ums/lorawan-dashboard/internal/session"
    "github.com/labte-ums/lorawan-dashboard/internal/telemetry"
)

// User-facing copy shown by the pages
const (
    msgInvalidLogin  = "Username atau password salah."
    msgEmptyDevEUI   = "DevEUI tidak boleh kosong."
    msgConfiguration = "Konfigurasi API (URL atau API key) belum lengkap."
    msgNotFound      = "Data untuk DevEUI tersebut tidak ditemukan."
    msgLoadFailed    = "Gagal memuat uplink (status %d)."
    msgTransport     = "Terjadi kesalahan jaringan atau CORS saat memuat data uplink."
    msgEmptyUplinks  = "Data uplink kosong untuk DevEUI tersebut."
    msgInvalidAPIKey = "API key tidak valid."
    msgNoDevices     = "Tidak ada perangkat yang terdaftar."
    msgNoValidDetail = "Tidak ada detail perangkat yang valid."
    msgUnexpected    = "Terjadi kesalahan yang tidak terduga."
    msgSuperseded    = "Pencarian ini digantikan oleh pencarian yang lebih baru."
)

// errorMessage maps an error to the page copy and the HTTP status the JSON
// API answers with.
func errorMessage(err error) (string, int) {
    switch {
    case errors.Is(err, telemetry.ErrValidation):
        return msgEmptyDevEUI, http.StatusBadRequest
    case errors.Is(err, telemetry.ErrConfiguration):
        return msgConfiguration, http.StatusServiceUnavailable
    case errors.Is(err, telemetry.ErrNotFound):
        return msgNotFound, http.StatusNotFound
    case errors.Is(err, telemetry.ErrUnauthorized):
        return msgInvalidAPIKey, http.StatusBadGateway
    case errors.Is(err, telemetry.ErrHTTP):
        return fmt.Sprintf(msgLoadFailed, telemetry.StatusCode(err)), http.StatusBadGateway
    case errors.Is(err, telemetry.ErrTransport):
        return msgTransport, http.StatusBadGateway
    case errors.Is(err, devices.ErrNoDevices):
        return msgNoDevices, http.StatusOK
    case errors.Is(err, devices.ErrNoValidDetail):
        return msgNoValidDetail, http.StatusOK
    case errors.Is(err, session.ErrInvalidCredentials):
        return msgInvalidLogin, http.StatusUnauthorized
    }
    return msgUnexpected, http.StatusInternalServerError
}

// respondJSON responds with JSON
func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
    response, err := json.Marshal(payload)
    if err != nil {
        log.Error().Err(err).Msg("Failed to marshal response")
        w.WriteHeader(http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    w.Write(response)
}

// respondError responds with error
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
    s.respondJSON(w, status, map[string]string{
        "error": message,
    })
}

// denyAPI answers 401 without a session and 403 with a session lacking the
// role
func (s *Server) denyAPI(w http.ResponseWriter, r *http.Request, sess *models.Session) {
    if sess == nil {
        s.respondError(w, http.StatusUnauthorized, "authentication required")
        return
    }
    s.respondError(w, http.StatusForbidden, "insufficient role")
}

// redirectToLogin sends the browser to the login page matching the route
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request, sess *models.Session) {
    target := "/login"
    if r.URL.Path == "/admin" {
        target = "/admin/login"
    }
    http.Redirect(w, r, target, http.StatusSeeOther)
}
