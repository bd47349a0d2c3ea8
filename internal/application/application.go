package application

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Application is a candidate submission. Status is the only field that
// changes after creation.
type Application struct {
	ID                 uuid.UUID `json:"id"`
	FullName           string    `json:"fullName"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	Country            string    `json:"country"`
	YearsOfExperience  int       `json:"yearsOfExperience"`
	PrimarySkills      []string  `json:"primarySkills"`
	PortfolioURL       string    `json:"portfolioUrl"`
	ResumeURL          string    `json:"resumeUrl"`
	ResumeOriginalName string    `json:"resumeOriginalName"`
	ResumeText         string    `json:"resumeText,omitempty"`
	CoverLetter        string    `json:"coverLetter"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Resume references a stored upload. URL and OriginalName are always set together.
type Resume struct {
	URL          string
	OriginalName string
	Text         string
}

func (r Resume) complete() bool {
	return r.URL != "" && r.OriginalName != ""
}

// ResumeUpload is the raw file received with a submission.
type ResumeUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// New assembles a record from validated fields and a stored resume.
// ID and CreatedAt are assigned by the repository.
func New(fields Fields, resume Resume) Application {
	skills := make([]string, len(fields.PrimarySkills))
	copy(skills, fields.PrimarySkills)
	return Application{
		FullName:           fields.FullName,
		Email:              fields.Email,
		Phone:              fields.Phone,
		Country:            fields.Country,
		YearsOfExperience:  fields.YearsOfExperience,
		PrimarySkills:      skills,
		PortfolioURL:       fields.PortfolioURL,
		ResumeURL:          resume.URL,
		ResumeOriginalName: resume.OriginalName,
		ResumeText:         resume.Text,
		CoverLetter:        fields.CoverLetter,
		Status:             StatusNew,
	}
}

// Clone returns a deep copy.
func (a Application) Clone() Application {
	out := a
	if a.PrimarySkills != nil {
		out.PrimarySkills = make([]string, len(a.PrimarySkills))
		copy(out.PrimarySkills, a.PrimarySkills)
	}
	return out
}

// Repository persists applications. Find and Count apply the same filter;
// Count ignores pagination.
type Repository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)
	Find(ctx context.Context, q Query) ([]Application, error)
	Count(ctx context.Context, f Filter) (int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Application, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// ResumeStore saves uploaded resumes and removes them again.
type ResumeStore interface {
	Save(upload ResumeUpload) (Resume, error)
	Remove(resumeURL string) error
}

// Notifier is told about every created application. Implementations must
// not block the caller.
type Notifier interface {
	Submitted(app Application)
}
