package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"cv-intake/internal/admin"
	"cv-intake/internal/apperr"
)

type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{db: db.GetConnection()}
}

func (r *AdminRepository) Create(ctx context.Context, a admin.Admin) (*admin.Admin, error) {
	a.ID = uuid.New()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (id, name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errAdminExists(err)
		}
		return nil, apperr.New(apperr.CodeInternal, "failed to create admin", err)
	}
	return &a, nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM admins WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanAdmin(row)
}

func (r *AdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*admin.Admin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM admins WHERE id = $1`, id)
	return scanAdmin(row)
}

func scanAdmin(row rowScanner) (*admin.Admin, error) {
	var a admin.Admin
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "Admin not found", err)
		}
		return nil, apperr.New(apperr.CodeInternal, "failed to load admin", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func errAdminExists(err error) error {
	return apperr.New(apperr.CodeConflict, "Admin already exists", err)
}
