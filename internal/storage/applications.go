package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cv-intake/internal/application"
	"cv-intake/internal/apperr"
)

const applicationColumns = `id, full_name, email, phone, country, years_of_experience, primary_skills,
    portfolio_url, resume_url, resume_original_name, resume_text, cover_letter, status, created_at`

// ApplicationRepository is the Postgres application.Repository.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *DB) *ApplicationRepository {
	return &ApplicationRepository{db: db.GetConnection()}
}

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	if app.ResumeURL == "" || app.ResumeOriginalName == "" {
		return nil, apperr.New(apperr.CodeInternal, "failed to create application: resume reference missing", nil)
	}
	stampNew(&app, time.Now())
	query := `INSERT INTO applications (` + applicationColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.FullName,
		app.Email,
		app.Phone,
		app.Country,
		app.YearsOfExperience,
		skillList(app.PrimarySkills),
		app.PortfolioURL,
		app.ResumeURL,
		app.ResumeOriginalName,
		app.ResumeText,
		app.CoverLetter,
		string(app.Status),
		app.CreatedAt,
	)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, "failed to create application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "Application not found", err)
		}
		return nil, apperr.New(apperr.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) Find(ctx context.Context, q application.Query) ([]application.Application, error) {
	where, args := whereClause(q.Filter, 1)
	limit, offset := q.Limit, q.Skip()
	if limit <= 0 {
		limit = application.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + applicationColumns + ` FROM applications` + where + orderClause(q.Sort) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, "failed to list applications", err)
	}
	defer rows.Close()

	items := []application.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperr.New(apperr.CodeInternal, "failed to scan application", err)
		}
		items = append(items, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.CodeInternal, "failed to list applications", err)
	}
	return items, nil
}

func (r *ApplicationRepository) Count(ctx context.Context, f application.Filter) (int, error) {
	where, args := whereClause(f, 1)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&n); err != nil {
		return 0, apperr.New(apperr.CodeInternal, "failed to count applications", err)
	}
	return n, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status application.Status) (*application.Application, error) {
	if !status.Valid() {
		return nil, apperr.Validation("invalid status", []apperr.Violation{{Field: "status", Message: "unknown status", Value: string(status)}})
	}
	row := r.db.QueryRowContext(ctx, `UPDATE applications SET status = $1 WHERE id = $2 RETURNING `+applicationColumns, string(status), id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "Application not found", err)
		}
		return nil, apperr.New(apperr.CodeInternal, "failed to update application", err)
	}
	return app, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return false, apperr.New(apperr.CodeInternal, "failed to delete application", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperr.New(apperr.CodeInternal, "failed to delete application", err)
	}
	return n > 0, nil
}

// ResumeURLs returns every stored resume reference.
func (r *ApplicationRepository) ResumeURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT resume_url FROM applications`)
	if err != nil {
		return nil, fmt.Errorf("list resume urls: %w", err)
	}
	defer rows.Close()
	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan resume url: %w", err)
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*application.Application, error) {
	var (
		app    application.Application
		skills skillList
		status string
	)
	err := row.Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Country,
		&app.YearsOfExperience,
		&skills,
		&app.PortfolioURL,
		&app.ResumeURL,
		&app.ResumeOriginalName,
		&app.ResumeText,
		&app.CoverLetter,
		&status,
		&app.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.PrimarySkills = []string(skills)
	app.Status = application.Status(status)
	app.CreatedAt = app.CreatedAt.UTC()
	return &app, nil
}

// stampNew assigns the server-side identity, creation time and default status.
func stampNew(app *application.Application, now time.Time) {
	app.ID = uuid.New()
	app.CreatedAt = now.UTC().Truncate(time.Microsecond)
	if app.Status == "" {
		app.Status = application.StatusNew
	}
}
