package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cv-intake/internal/admin"
	"cv-intake/internal/application"
	"cv-intake/internal/apperr"
)

// MemoryApplications is an application.Repository held in process memory.
// It backs tests and MEMORY_STORE mode.
type MemoryApplications struct {
	mu    sync.RWMutex
	items map[uuid.UUID]application.Application
	now   func() time.Time
}

func NewMemoryApplications() *MemoryApplications {
	return &MemoryApplications{items: make(map[uuid.UUID]application.Application), now: time.Now}
}

// WithClock replaces the creation timestamp source.
func (m *MemoryApplications) WithClock(now func() time.Time) *MemoryApplications {
	m.now = now
	return m
}

func (m *MemoryApplications) Create(_ context.Context, app application.Application) (*application.Application, error) {
	if app.ResumeURL == "" || app.ResumeOriginalName == "" {
		return nil, apperr.New(apperr.CodeInternal, "failed to create application: resume reference missing", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stampNew(&app, m.now())
	m.items[app.ID] = app.Clone()
	out := app.Clone()
	return &out, nil
}

func (m *MemoryApplications) FindByID(_ context.Context, id uuid.UUID) (*application.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	app, ok := m.items[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "Application not found", nil)
	}
	out := app.Clone()
	return &out, nil
}

func (m *MemoryApplications) Find(_ context.Context, q application.Query) ([]application.Application, error) {
	m.mu.RLock()
	matched := m.matching(q.Filter)
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return q.Sort.Less(matched[i], matched[j]) })

	limit := q.Limit
	if limit <= 0 {
		limit = application.DefaultLimit
	}
	start := q.Skip()
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []application.Application{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (m *MemoryApplications) Count(_ context.Context, f application.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matching(f)), nil
}

func (m *MemoryApplications) UpdateStatus(_ context.Context, id uuid.UUID, status application.Status) (*application.Application, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid status", []apperr.Violation{{Field: "status", Message: "unknown status", Value: string(status)}})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.items[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "Application not found", nil)
	}
	app.Status = status
	m.items[id] = app
	out := app.Clone()
	return &out, nil
}

func (m *MemoryApplications) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *MemoryApplications) ResumeURLs(_ context.Context) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urls := make(map[string]struct{}, len(m.items))
	for _, app := range m.items {
		urls[app.ResumeURL] = struct{}{}
	}
	return urls, nil
}

// matching must be called with mu held.
func (m *MemoryApplications) matching(f application.Filter) []application.Application {
	out := make([]application.Application, 0, len(m.items))
	for _, app := range m.items {
		if f.Matches(app) {
			out = append(out, app.Clone())
		}
	}
	return out
}

// MemoryAdmins is an admin.Repository held in process memory.
type MemoryAdmins struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]admin.Admin
	byEmail map[string]uuid.UUID
}

func NewMemoryAdmins() *MemoryAdmins {
	return &MemoryAdmins{byID: make(map[uuid.UUID]admin.Admin), byEmail: make(map[string]uuid.UUID)}
}

func (m *MemoryAdmins) Create(_ context.Context, a admin.Admin) (*admin.Admin, error) {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byEmail[a.Email]; taken {
		return nil, errAdminExists(nil)
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	m.byID[a.ID] = a
	m.byEmail[a.Email] = a.ID
	return &a, nil
}

func (m *MemoryAdmins) FindByEmail(_ context.Context, email string) (*admin.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "Admin not found", nil)
	}
	a := m.byID[id]
	return &a, nil
}

func (m *MemoryAdmins) FindByID(_ context.Context, id uuid.UUID) (*admin.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "Admin not found", nil)
	}
	return &a, nil
}
