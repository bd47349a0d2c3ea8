package application

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"cv-intake/internal/apperr"
)

// MaxCoverLetterLength is measured in characters, not bytes.
const MaxCoverLetterLength = 1000

// SubmissionInput holds submitted form values exactly as received.
type SubmissionInput struct {
	FullName          string
	Email             string
	Phone             string
	Country           string
	YearsOfExperience string
	PrimarySkills     string
	PortfolioURL      string
	CoverLetter       string
}

// Fields is a normalized submission ready for persistence.
type Fields struct {
	FullName          string
	Email             string
	Phone             string
	Country           string
	YearsOfExperience int
	PrimarySkills     []string
	PortfolioURL      string
	CoverLetter       string
}

var syntax = validator.New()

type check struct {
	message string
	ok      func(string) bool
}

// fieldRule normalizes one raw value, runs its checks in order and, when
// they pass, stores the converted value. The first failing check or a
// failed assignment yields that field's violation.
type fieldRule struct {
	field     string
	raw       func(SubmissionInput) string
	normalize func(string) string
	checks    []check
	assign    func(*Fields, string) error
}

var submissionRules = []fieldRule{
	{
		field:     "fullName",
		raw:       func(in SubmissionInput) string { return in.FullName },
		normalize: strings.TrimSpace,
		checks:    []check{required("Full name is required")},
		assign:    func(f *Fields, v string) error { f.FullName = v; return nil },
	},
	{
		field:     "email",
		raw:       func(in SubmissionInput) string { return in.Email },
		normalize: normalizeEmail,
		checks:    []check{required("Valid email is required"), matches("email", "Valid email is required")},
		assign:    func(f *Fields, v string) error { f.Email = v; return nil },
	},
	{
		field:     "phone",
		raw:       func(in SubmissionInput) string { return in.Phone },
		normalize: strings.TrimSpace,
		checks:    []check{required("Phone is required")},
		assign:    func(f *Fields, v string) error { f.Phone = v; return nil },
	},
	{
		field:     "country",
		raw:       func(in SubmissionInput) string { return in.Country },
		normalize: strings.TrimSpace,
		checks:    []check{required("Country is required")},
		assign:    func(f *Fields, v string) error { f.Country = v; return nil },
	},
	{
		field:     "yearsOfExperience",
		raw:       func(in SubmissionInput) string { return in.YearsOfExperience },
		normalize: strings.TrimSpace,
		checks:    []check{{message: "Valid experience required", ok: isNonNegativeInt}},
		assign: func(f *Fields, v string) error {
			n, err := strconv.Atoi(v)
			f.YearsOfExperience = n
			return err
		},
	},
	{
		field:     "primarySkills",
		raw:       func(in SubmissionInput) string { return in.PrimarySkills },
		normalize: strings.TrimSpace,
		checks:    []check{required("At least one skill is required")},
		assign: func(f *Fields, v string) error {
			skills, err := ParseSkills(v)
			if err != nil {
				return err
			}
			f.PrimarySkills = skills
			return nil
		},
	},
	{
		field:     "portfolioUrl",
		raw:       func(in SubmissionInput) string { return in.PortfolioURL },
		normalize: strings.TrimSpace,
		checks:    []check{required("Valid URL required"), matches("url", "Valid URL required")},
		assign:    func(f *Fields, v string) error { f.PortfolioURL = v; return nil },
	},
	{
		field:     "coverLetter",
		raw:       func(in SubmissionInput) string { return in.CoverLetter },
		normalize: strings.TrimSpace,
		checks: []check{
			required("Cover letter is required"),
			{message: "Cover letter must be at most 1000 characters", ok: func(v string) bool {
				return utf8.RuneCountInString(v) <= MaxCoverLetterLength
			}},
		},
		assign: func(f *Fields, v string) error { f.CoverLetter = v; return nil },
	},
}

// Validate runs every field rule and reports all violations together.
// A missing resume is checked only once the fields themselves are valid.
func Validate(in SubmissionInput, hasResume bool) (Fields, error) {
	var (
		fields     Fields
		violations []apperr.Violation
	)
	for _, rule := range submissionRules {
		if v, failed := rule.apply(in, &fields); failed {
			violations = append(violations, v)
		}
	}
	if len(violations) > 0 {
		return Fields{}, apperr.Validation("validation failed", violations)
	}
	if !hasResume {
		return Fields{}, apperr.Validation("Resume file is required", []apperr.Violation{{
			Field:   "resume",
			Message: "Resume file is required",
		}})
	}
	return fields, nil
}

func (r fieldRule) apply(in SubmissionInput, out *Fields) (apperr.Violation, bool) {
	raw := r.raw(in)
	value := raw
	if r.normalize != nil {
		value = r.normalize(raw)
	}
	for _, c := range r.checks {
		if !c.ok(value) {
			return apperr.Violation{Field: r.field, Message: c.message, Value: raw}, true
		}
	}
	if err := r.assign(out, value); err != nil {
		return apperr.Violation{Field: r.field, Message: err.Error(), Value: raw}, true
	}
	return apperr.Violation{}, false
}

var errSkillsFormat = errors.New("Primary skills must be a list of strings")
var errNoSkills = errors.New("At least one skill is required")

// ParseSkills decodes skills sent as a JSON array string (the multipart
// encoding clients use) or as a comma-separated list. Blank entries are dropped.
func ParseSkills(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	var items []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, errSkillsFormat
		}
	} else {
		items = strings.Split(raw, ",")
	}
	skills := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			skills = append(skills, s)
		}
	}
	if len(skills) == 0 {
		return nil, errNoSkills
	}
	return skills, nil
}

func normalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func required(message string) check {
	return check{message: message, ok: func(v string) bool { return v != "" }}
}

func matches(tag, message string) check {
	return check{message: message, ok: func(v string) bool { return syntax.Var(v, tag) == nil }}
}

func isNonNegativeInt(v string) bool {
	n, err := strconv.Atoi(v)
	return err == nil && n >= 0
}
