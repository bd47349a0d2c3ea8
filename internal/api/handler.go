package api

import (
	"log/slog"
	"net/http"
	"net/netip"

	"cv-intake/internal/admin"
	"cv-intake/internal/application"
	"cv-intake/internal/cv"
	"cv-intake/internal/ratelimit"
)

// formOverhead is room for the text fields sent alongside the resume.
const formOverhead = 1 << 20

type API struct {
	applications *application.Service
	admins       *admin.Service
	resumes      *cv.Store
	limiter      ratelimit.Limiter
	trusted      []netip.Prefix
	logger       *slog.Logger
}

type Deps struct {
	Applications *application.Service
	Admins       *admin.Service
	Resumes      *cv.Store
	// Limiter guards public submissions; nil disables limiting.
	Limiter ratelimit.Limiter
	// TrustedProxies may set X-Forwarded-For. Empty means the header is ignored.
	TrustedProxies []netip.Prefix
	Logger         *slog.Logger
}

func NewAPI(d Deps) *API {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		applications: d.Applications,
		admins:       d.Admins,
		resumes:      d.Resumes,
		limiter:      d.Limiter,
		trusted:      d.TrustedProxies,
		logger:       logger,
	}
}

// HealthHandler reports liveness.
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// UploadHandler serves a stored resume by its generated file name.
func (a *API) UploadHandler(w http.ResponseWriter, r *http.Request) {
	path, ok := a.resumes.Path(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
