package api

import (
    "bytes"
    "embed"
    "html/template"
    "net/http"

    "github.com/rs/zerolog/log"

    "github.com/labte-ums/lorawan-dashboard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

type views struct {
    templates *template.Template
}

func mustParseViews() *views {
    t := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
    return &views{templates: t}
}

// page is the data every template receives
type page struct {
    Title   string
    Session *models.Session
    Data    interface{}
}

// render executes a named template into a buffer first so a template error
// never leaves a half-written page behind
func (v *views) render(w http.ResponseWriter, status int, name string, p page) {
    var buf bytes.Buffer
    if err := v.templates.ExecuteTemplate(&buf, name, p); err != nil {
        log.Error().Err(err).Str("template", name).Msg("Failed to render page")
        http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "text/html; charset=utf-8")
    w.WriteHeader(status)
    w.Write(buf.Bytes())
}

type loginView struct {
    Role     models.Role
    Action   string
    Username string
    Error    string
}

type uplinkRow struct {
    Key       string
    Timestamp string
    Device    string
    Summary   string
    Pretty    string
}

type dashboardView struct {
    DevEUI       string
    Active       string
    Limit        int
    LimitOptions []int
    Rows         []uplinkRow
    Error        string
    Info         string
}

type deviceRow struct {
    ID        string
    EUI       string
    Name      string
    AppName   string
    Frequency string
    Band      string
    Payload   string
    LastSeen  string
    Elapsed   string
}

type adminView struct {
    Days       int
    DayOptions []int
    Requested  int
    Devices    []deviceRow
    Skipped    []models.SkippedDevice
    Error      string
}
