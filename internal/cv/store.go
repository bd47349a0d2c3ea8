package cv

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"code.sajari.com/docconv"
	"github.com/google/uuid"

	"cv-intake/internal/application"
	"cv-intake/internal/apperr"
)

// URLPrefix is the public path stored resumes are served under.
const URLPrefix = "/uploads/"

// DefaultMaxBytes caps a single resume upload.
const DefaultMaxBytes int64 = 10 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".rtf":  true,
	".odt":  true,
}

// Store keeps uploaded resumes in a local directory and extracts their
// text for the application record.
type Store struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

func NewStore(dir string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// MaxBytes is the per-file upload limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save writes the upload under a generated name and returns its reference.
// Text extraction failures leave Text empty; they never reject the upload.
func (s *Store) Save(upload application.ResumeUpload) (application.Resume, error) {
	original := filepath.Base(strings.TrimSpace(upload.Filename))
	ext := strings.ToLower(filepath.Ext(original))
	if !allowedExtensions[ext] {
		return application.Resume{}, apperr.Validation("Unsupported resume file type", []apperr.Violation{{
			Field:   "resume",
			Message: "Resume must be a PDF, DOC, DOCX, TXT, RTF or ODT file",
			Value:   original,
		}})
	}
	if upload.Size > s.maxBytes {
		return application.Resume{}, s.errTooLarge(original)
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return application.Resume{}, apperr.New(apperr.CodeInternal, "failed to store resume", err)
	}

	// Read one byte past the cap so an undeclared oversize body is caught.
	written, err := io.Copy(file, io.LimitReader(upload.Content, s.maxBytes+1))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return application.Resume{}, apperr.New(apperr.CodeInternal, "failed to store resume", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(path)
		return application.Resume{}, s.errTooLarge(original)
	}

	text, err := extractText(path, ext)
	if err != nil {
		s.logger.Warn("resume text extraction failed", slog.String("file", name), slog.String("error", err.Error()))
	}
	return application.Resume{URL: URLPrefix + name, OriginalName: original, Text: text}, nil
}

// Remove deletes the file behind a resume reference. A file that is
// already gone is not an error.
func (s *Store) Remove(resumeURL string) error {
	name := filepath.Base(strings.TrimPrefix(resumeURL, URLPrefix))
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("invalid resume reference %q", resumeURL)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove resume %s: %w", name, err)
	}
	return nil
}

// Path resolves a stored file name to its location on disk. It reports
// false for names that would escape the upload directory.
func (s *Store) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}

// List returns the references of every stored file, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", err)
	}
	var urls []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		urls = append(urls, URLPrefix+e.Name())
	}
	sort.Strings(urls)
	return urls, nil
}

func extractText(path, ext string) (string, error) {
	switch ext {
	case ".txt":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read text file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	default:
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("failed to parse document: %w", err)
		}
		return strings.TrimSpace(res.Body), nil
	}
}

func (s *Store) errTooLarge(name string) error {
	return apperr.Validation("Resume file is too large", []apperr.Violation{{
		Field:   "resume",
		Message: fmt.Sprintf("Resume must be at most %d bytes", s.maxBytes),
		Value:   name,
	}})
}

// Orphans returns stored files that are not in known and were last
// modified more than minAge ago. The age guard skips uploads whose
// record may still be in flight.
func (s *Store) Orphans(known map[string]struct{}, minAge time.Duration) ([]string, error) {
	urls, err := s.List()
	if err != nil {
		return nil, err
	}
	cutoff := s.now().Add(-minAge)
	var orphans []string
	for _, u := range urls {
		if _, ok := known[u]; ok {
			continue
		}
		info, err := os.Stat(filepath.Join(s.dir, strings.TrimPrefix(u, URLPrefix)))
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		orphans = append(orphans, u)
	}
	return orphans, nil
}
