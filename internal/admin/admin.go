package admin

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cv-intake/internal/auth"
)

// Admin is a staff account allowed to review applications.
type Admin struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (a Admin) Identity() auth.Identity {
	return auth.Identity{ID: a.ID, Name: a.Name, Email: a.Email}
}

// Repository persists admins. Email is unique; Create reports a duplicate
// as a conflict.
type Repository interface {
	Create(ctx context.Context, a Admin) (*Admin, error)
	FindByEmail(ctx context.Context, email string) (*Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Admin, error)
}

// Session is returned by register and login.
type Session struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Token string    `json:"token"`
}
