package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"cv-intake/internal/apperr"
	"cv-intake/internal/auth"
)

// Service runs public intake and the admin review operations.
type Service struct {
	repo     Repository
	resumes  ResumeStore
	notifier Notifier
	logger   *slog.Logger
}

func NewService(repo Repository, resumes ResumeStore, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, resumes: resumes, notifier: notifier, logger: logger}
}

// Submit validates the input, stores the resume, creates the record and
// hands it to the notifier without waiting on delivery.
func (s *Service) Submit(ctx context.Context, in SubmissionInput, upload *ResumeUpload) (*Application, error) {
	fields, err := Validate(in, upload != nil)
	if err != nil {
		return nil, err
	}
	resume, err := s.resumes.Save(*upload)
	if err != nil {
		return nil, err
	}
	if !resume.complete() {
		return nil, apperr.New(apperr.CodeInternal, "resume store returned an incomplete reference", nil)
	}
	created, err := s.repo.Create(ctx, New(fields, resume))
	if err != nil {
		if rmErr := s.resumes.Remove(resume.URL); rmErr != nil {
			s.logger.Warn("remove resume after failed create", slog.String("resume_url", resume.URL), slog.String("error", rmErr.Error()))
		}
		return nil, err
	}
	s.logger.Info("application submitted", slog.String("application_id", created.ID.String()))
	if s.notifier != nil {
		s.notifier.Submitted(created.Clone())
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (*Application, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, appID)
}

func (s *Service) List(ctx context.Context, who auth.Identity, params ListParams) (*Page, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	q := BuildQuery(params)
	items, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, q.Filter)
	if err != nil {
		return nil, err
	}
	page := NewPage(items, total, q)
	return &page, nil
}

// UpdateStatus applies a status change. Concurrent updates to the same
// record are last-write-wins.
func (s *Service) UpdateStatus(ctx context.Context, who auth.Identity, id, status string) (*Application, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	appID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	next, err = Transition(current.Status, next)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateStatus(ctx, appID, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("application status changed",
		slog.String("application_id", appID.String()),
		slog.String("from", string(current.Status)),
		slog.String("to", string(next)),
		slog.String("admin_id", who.ID.String()))
	return updated, nil
}

// Delete removes the record and then, best effort, its stored resume.
// The two steps are not atomic; a failed file removal is only logged.
func (s *Service) Delete(ctx context.Context, who auth.Identity, id string) error {
	if err := requireAdmin(who); err != nil {
		return err
	}
	appID, err := parseID(id)
	if err != nil {
		return err
	}
	existing, err := s.repo.FindByID(ctx, appID)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, appID)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound()
	}
	if err := s.resumes.Remove(existing.ResumeURL); err != nil {
		s.logger.Warn("remove resume", slog.String("application_id", appID.String()), slog.String("resume_url", existing.ResumeURL), slog.String("error", err.Error()))
	}
	s.logger.Info("application deleted", slog.String("application_id", appID.String()), slog.String("admin_id", who.ID.String()))
	return nil
}

func (s *Service) Stats(ctx context.Context, who auth.Identity) (*Stats, error) {
	if err := requireAdmin(who); err != nil {
		return nil, err
	}
	return Aggregate(ctx, s.repo)
}

func requireAdmin(who auth.Identity) error {
	if !who.Valid() {
		return apperr.New(apperr.CodeUnauthorized, "Not authorized", nil)
	}
	return nil
}

// parseID treats malformed ids as unknown records.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound()
	}
	return id, nil
}

func notFound() error {
	return apperr.New(apperr.CodeNotFound, "Application not found", nil)
}
