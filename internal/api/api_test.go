package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/netip"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cv-intake/internal/admin"
	"cv-intake/internal/application"
	"cv-intake/internal/auth"
	"cv-intake/internal/cv"
	"cv-intake/internal/ratelimit"
	"cv-intake/internal/storage"
)

type capturedNotifier struct {
	mu   sync.Mutex
	apps []application.Application
}

func (n *capturedNotifier) Submitted(app application.Application) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.apps = append(n.apps, app)
}

func (n *capturedNotifier) list() []application.Application {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]application.Application(nil), n.apps...)
}

type harness struct {
	server   *httptest.Server
	resumes  *cv.Store
	notifier *capturedNotifier
}

func newHarness(t *testing.T, limiter ratelimit.Limiter) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	resumes, err := cv.NewStore(t.TempDir(), 0, logger)
	require.NoError(t, err)
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	notifier := &capturedNotifier{}
	apps := application.NewService(storage.NewMemoryApplications(), resumes, notifier, logger)
	admins := admin.NewService(storage.NewMemoryAdmins(), tokens, bcrypt.MinCost, logger)

	srv := httptest.NewServer(NewRouter(NewAPI(Deps{
		Applications: apps,
		Admins:       admins,
		Resumes:      resumes,
		Limiter:      limiter,
		Logger:       logger,
	})))
	t.Cleanup(srv.Close)
	return &harness{server: srv, resumes: resumes, notifier: notifier}
}

func validForm() map[string]string {
	return map[string]string{
		"fullName":          "  Jane Doe ",
		"email":             "Jane@Example.COM",
		"phone":             "+254 700 000000",
		"country":           "Kenya",
		"yearsOfExperience": "5",
		"primarySkills":     `["Go","PostgreSQL"]`,
		"portfolioUrl":      "https://jane.dev",
		"coverLetter":       "I would love to join.",
	}
}

func (h *harness) submit(t *testing.T, fields map[string]string, withResume bool) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withResume {
		fw, err := mw.CreateFormFile("resume", "jane.txt")
		require.NoError(t, err)
		_, err = fw.Write([]byte("Jane Doe, Go engineer"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/applications", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.do(t, req)
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func (h *harness) call(t *testing.T, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.do(t, req)
}

func (h *harness) adminToken(t *testing.T) string {
	t.Helper()
	resp, body := h.call(t, http.MethodPost, "/api/admin/register", "", map[string]string{
		"name": "Root", "email": "root@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	return data["token"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestSubmitApplication(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.submit(t, validForm(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Application submitted successfully", body["message"])

	data := body["data"].(map[string]any)
	assert.Equal(t, "Jane Doe", data["fullName"])
	assert.Equal(t, "jane@example.com", data["email"])
	assert.Equal(t, "new", data["status"])
	assert.Equal(t, []any{"Go", "PostgreSQL"}, data["primarySkills"])
	assert.Equal(t, "jane.txt", data["resumeOriginalName"])

	resumeURL := data["resumeUrl"].(string)
	require.True(t, strings.HasPrefix(resumeURL, "/uploads/"))
	fileResp, err := http.Get(h.server.URL + resumeURL)
	require.NoError(t, err)
	fileResp.Body.Close()
	assert.Equal(t, http.StatusOK, fileResp.StatusCode)

	notified := h.notifier.list()
	require.Len(t, notified, 1)
	assert.Equal(t, "jane@example.com", notified[0].Email)
}

func TestSubmitValidationErrors(t *testing.T) {
	h := newHarness(t, nil)
	form := validForm()
	form["email"] = "nope"
	form["yearsOfExperience"] = "-1"
	delete(form, "coverLetter")

	resp, body := h.submit(t, form, true)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	errs := body["errors"].([]any)
	var fields []string
	for _, e := range errs {
		fields = append(fields, e.(map[string]any)["field"].(string))
	}
	assert.Equal(t, []string{"email", "yearsOfExperience", "coverLetter"}, fields)

	urls, err := h.resumes.List()
	require.NoError(t, err)
	assert.Empty(t, urls, "rejected submission must not leave a stored file")
	assert.Empty(t, h.notifier.list())
}

func TestSubmitWithoutResume(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.submit(t, validForm(), false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Resume file is required", body["message"])
}

func TestSubmitRateLimited(t *testing.T) {
	h := newHarness(t, ratelimit.NewMemory(1, time.Minute))
	resp, _ := h.submit(t, validForm(), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := h.submit(t, validForm(), true)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.call(t, http.MethodGet, "/api/admin/applications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authorized, no token", body["message"])

	resp, body = h.call(t, http.MethodGet, "/api/admin/stats", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Not authorized, token failed", body["message"])
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)
	h.adminToken(t)

	resp, body := h.call(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "ROOT@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := body["data"].(map[string]any)["token"].(string)

	resp, body = h.call(t, http.MethodGet, "/api/admin/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "root@example.com", body["data"].(map[string]any)["email"])

	resp, body = h.call(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "root@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password", body["message"])

	resp, body = h.call(t, http.MethodPost, "/api/admin/login", "", map[string]string{"email": "root@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please provide email and password", body["message"])

	resp, _ = h.call(t, http.MethodPost, "/api/admin/register", "", map[string]string{
		"name": "Again", "email": "root@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminReviewFlow(t *testing.T) {
	h := newHarness(t, nil)
	token := h.adminToken(t)

	var ids []string
	for _, name := range []string{"Alice Norway", "Bob Spain", "Carol Chile"} {
		form := validForm()
		form["fullName"] = name
		resp, body := h.submit(t, form, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		ids = append(ids, body["data"].(map[string]any)["id"].(string))
	}

	resp, body := h.call(t, http.MethodGet, "/api/admin/applications?limit=2&page=2&sortBy=fullName&order=asc", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Equal(t, float64(2), body["currentPage"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "Carol Chile", data[0].(map[string]any)["fullName"])

	resp, body = h.call(t, http.MethodGet, "/api/admin/applications?search=spain", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, _ = h.call(t, http.MethodGet, "/api/admin/applications/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = h.call(t, http.MethodPut, "/api/admin/applications/"+ids[0], token, map[string]string{"status": "hired"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["errors"])

	resp, body = h.call(t, http.MethodPut, "/api/admin/applications/"+ids[0], token, map[string]string{"status": "Shortlisted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "shortlisted", body["data"].(map[string]any)["status"])

	resp, body = h.call(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["data"].(map[string]any)
	assert.Equal(t, float64(3), stats["total"])
	assert.Equal(t, float64(2), stats["new"])
	assert.Equal(t, float64(1), stats["shortlisted"])
	assert.Len(t, stats["recent"], 3)

	resp, body = h.call(t, http.MethodGet, "/api/admin/applications/"+ids[1], token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resumeURL := body["data"].(map[string]any)["resumeUrl"].(string)

	resp, body = h.call(t, http.MethodDelete, "/api/admin/applications/"+ids[1], token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Application deleted successfully", body["message"])

	_, err := os.Stat(filepath.Join(h.resumes.Dir(), strings.TrimPrefix(resumeURL, cv.URLPrefix)))
	assert.True(t, os.IsNotExist(err))

	resp, _ = h.call(t, http.MethodDelete, "/api/admin/applications/"+ids[1], token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientIP(t *testing.T) {
	a := NewAPI(Deps{TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", a.clientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.9, 203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", a.clientIP(r))

	r.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "10.0.0.1", a.clientIP(r))
}

func TestClientIPIgnoresForwardedFromUntrustedPeer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.50:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")

	assert.Equal(t, "192.0.2.50", NewAPI(Deps{}).clientIP(r))

	a := NewAPI(Deps{TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}})
	assert.Equal(t, "192.0.2.50", a.clientIP(r))
}

func TestCorsPreflight(t *testing.T) {
	h := newHarness(t, nil)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, h.server.URL+"/api/applications", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://careers.example.com")
	resp, _ := h.do(t, req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://careers.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}
