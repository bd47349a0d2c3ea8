package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(a *API) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	mux.HandleFunc("GET /health", a.HealthHandler)
	mux.HandleFunc("GET /uploads/{name}", a.UploadHandler)

	// public
	mux.Handle("POST /api/applications", a.rateLimit(http.HandlerFunc(a.SubmitApplicationHandler)))
	mux.HandleFunc("POST /api/admin/login", a.LoginHandler)
	mux.HandleFunc("POST /api/admin/register", a.RegisterHandler)

	// admin
	mux.HandleFunc("GET /api/admin/profile", a.requireAdmin(a.ProfileHandler))
	mux.HandleFunc("GET /api/admin/applications", a.requireAdmin(a.ListApplicationsHandler))
	mux.HandleFunc("GET /api/admin/applications/{id}", a.requireAdmin(a.GetApplicationHandler))
	mux.HandleFunc("PUT /api/admin/applications/{id}", a.requireAdmin(a.UpdateStatusHandler))
	mux.HandleFunc("DELETE /api/admin/applications/{id}", a.requireAdmin(a.DeleteApplicationHandler))
	mux.HandleFunc("GET /api/admin/stats", a.requireAdmin(a.StatsHandler))

	return chain(mux, requestID, a.recoverer, a.accessLog, cors)
}
