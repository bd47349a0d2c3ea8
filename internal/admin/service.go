package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cv-intake/internal/apperr"
	"cv-intake/internal/auth"
)

const MinPasswordLength = 6

// bcrypt rejects longer inputs.
const maxPasswordBytes = 72

// Tokens issues and verifies bearer tokens for admin ids.
type Tokens interface {
	Issue(adminID uuid.UUID) (string, error)
	Verify(raw string) (uuid.UUID, error)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Service struct {
	repo     Repository
	tokens   Tokens
	cost     int
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds the admin service. A zero bcrypt cost means bcrypt.DefaultCost.
func NewService(repo Repository, tokens Tokens, cost int, logger *slog.Logger) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, cost: cost, validate: validator.New(), logger: logger}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var violations []apperr.Violation
	if name == "" {
		violations = append(violations, apperr.Violation{Field: "name", Message: "Name is required"})
	}
	if email == "" || s.validate.Var(email, "email") != nil {
		violations = append(violations, apperr.Violation{Field: "email", Message: "Valid email is required", Value: in.Email})
	}
	switch {
	case len(in.Password) < MinPasswordLength:
		violations = append(violations, apperr.Violation{Field: "password", Message: "Password must be at least 6 characters"})
	case len(in.Password) > maxPasswordBytes:
		violations = append(violations, apperr.Violation{Field: "password", Message: "Password is too long"})
	}
	if len(violations) > 0 {
		return nil, apperr.Validation("validation failed", violations)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, "failed to hash password", err)
	}
	created, err := s.repo.Create(ctx, Admin{Name: name, Email: email, PasswordHash: string(hash)})
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin registered", slog.String("admin_id", created.ID.String()))
	return s.session(created)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, apperr.New(apperr.CodeValidation, "Please provide email and password", nil)
	}
	found, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, errBadCredentials()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(in.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errBadCredentials()
		}
		return nil, apperr.New(apperr.CodeInternal, "failed to check password", err)
	}
	return s.session(found)
}

// Authenticate resolves a bearer token to the identity of an existing admin.
func (s *Service) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, apperr.New(apperr.CodeUnauthorized, "Not authorized, no token", nil)
	}
	id, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, apperr.New(apperr.CodeUnauthorized, "Not authorized, token failed", err)
	}
	found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return auth.Identity{}, apperr.New(apperr.CodeUnauthorized, "Not authorized, token failed", err)
		}
		return auth.Identity{}, err
	}
	return found.Identity(), nil
}

func (s *Service) session(a *Admin) (*Session, error) {
	token, err := s.tokens.Issue(a.ID)
	if err != nil {
		return nil, apperr.New(apperr.CodeInternal, "failed to issue token", err)
	}
	return &Session{ID: a.ID, Name: a.Name, Email: a.Email, Token: token}, nil
}

func errBadCredentials() error {
	return apperr.New(apperr.CodeUnauthorized, "Invalid email or password", nil)
}
