package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-intake/internal/admin"
	"cv-intake/internal/application"
	"cv-intake/internal/apperr"
)

func sample(name, country string, years int) application.Application {
	return application.Application{
		FullName:           name,
		Email:              fmt.Sprintf("%s@example.com", name),
		Phone:              "+1 555 0100",
		Country:            country,
		YearsOfExperience:  years,
		PrimarySkills:      []string{"Go"},
		PortfolioURL:       "https://example.com",
		ResumeURL:          "/uploads/" + name + ".pdf",
		ResumeOriginalName: name + ".pdf",
		CoverLetter:        "hello",
	}
}

func steppingClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Minute)
	}
}

func TestMemoryCreateAssignsIdentity(t *testing.T) {
	repo := NewMemoryApplications()
	app := sample("ada", "UK", 3)
	app.Status = ""

	created, err := repo.Create(context.Background(), app)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, application.StatusNew, created.Status)

	created.PrimarySkills[0] = "mutated"
	got, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go"}, got.PrimarySkills)
}

func TestMemoryCreateRequiresResume(t *testing.T) {
	app := sample("ada", "UK", 3)
	app.ResumeOriginalName = ""
	_, err := NewMemoryApplications().Create(context.Background(), app)
	assert.Error(t, err)
}

func TestMemoryPaginationCoversEverything(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplications()
	for i := 0; i < 23; i++ {
		_, err := repo.Create(ctx, sample(fmt.Sprintf("c%02d", i), "DE", i%4))
		require.NoError(t, err)
	}

	for _, sortBy := range []string{"createdAt", "yearsOfExperience", "country"} {
		q := application.BuildQuery(application.ListParams{SortBy: sortBy, Order: "asc", Limit: "5"})
		total, err := repo.Count(ctx, q.Filter)
		require.NoError(t, err)
		require.Equal(t, 23, total)

		seen := map[uuid.UUID]bool{}
		pages := application.NewPage(nil, total, q).TotalPages
		require.Equal(t, 5, pages)
		for p := 1; p <= pages; p++ {
			q.Page = p
			items, err := repo.Find(ctx, q)
			require.NoError(t, err)
			for _, it := range items {
				assert.False(t, seen[it.ID], "duplicate %s on page %d", it.ID, p)
				seen[it.ID] = true
			}
		}
		assert.Len(t, seen, 23, sortBy)
	}
}

func TestMemoryFindDefaultSortNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplications().WithClock(steppingClock())
	for _, n := range []string{"first", "second", "third"} {
		_, err := repo.Create(ctx, sample(n, "FR", 1))
		require.NoError(t, err)
	}
	items, err := repo.Find(ctx, application.BuildQuery(application.ListParams{}))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "third", items[0].FullName)
	assert.Equal(t, "first", items[2].FullName)
}

func TestMemoryFilterAndBeyondLastPage(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplications()
	_, err := repo.Create(ctx, sample("alice", "Norway", 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, sample("bob", "Spain", 2))
	require.NoError(t, err)

	q := application.BuildQuery(application.ListParams{Search: "NOR"})
	n, err := repo.Count(ctx, q.Filter)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	q = application.BuildQuery(application.ListParams{Page: "9"})
	items, err := repo.Find(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, items)

	q = application.BuildQuery(application.ListParams{Page: "9223372036854775807", Limit: "10"})
	items, err = repo.Find(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryUpdateStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryApplications()
	created, err := repo.Create(ctx, sample("ada", "UK", 3))
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, created.ID, application.StatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, application.StatusShortlisted, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	again, err := repo.UpdateStatus(ctx, created.ID, application.StatusShortlisted)
	require.NoError(t, err)
	assert.Equal(t, updated, again)

	_, err = repo.UpdateStatus(ctx, created.ID, "hired")
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = repo.UpdateStatus(ctx, uuid.New(), application.StatusNew)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	urls, err := repo.ResumeURLs(ctx)
	require.NoError(t, err)
	assert.Contains(t, urls, created.ResumeURL)

	ok, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.FindByID(ctx, created.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestMemoryAdmins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAdmins()
	created, err := repo.Create(ctx, admin.Admin{Name: "Root", Email: " Root@Example.com ", PasswordHash: "x"})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", created.Email)

	_, err = repo.Create(ctx, admin.Admin{Name: "Other", Email: "root@example.com"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	byEmail, err := repo.FindByEmail(ctx, "ROOT@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
