package application

import (
	"strings"

	"cv-intake/internal/apperr"
)

type Status string

const (
	StatusNew         Status = "new"
	StatusReviewed    Status = "reviewed"
	StatusShortlisted Status = "shortlisted"
	StatusRejected    Status = "rejected"
	StatusArchived    Status = "archived"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNew, StatusReviewed, StatusShortlisted, StatusRejected, StatusArchived}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusReviewed, StatusShortlisted, StatusRejected, StatusArchived:
		return true
	default:
		return false
	}
}

// ParseStatus trims and lowercases raw before checking it against the enumeration.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", invalidStatus(raw)
	}
	return status, nil
}

// Transition reports the status that results from applying next to current.
// There is no transition graph: every enumerated status is reachable from
// every other one, including moving an archived application back to new.
func Transition(current, next Status) (Status, error) {
	if !next.Valid() {
		return current, invalidStatus(string(next))
	}
	return next, nil
}

func invalidStatus(raw string) error {
	return apperr.Validation("invalid status", []apperr.Violation{{
		Field:   "status",
		Message: "status must be one of new, reviewed, shortlisted, rejected, archived",
		Value:   raw,
	}})
}
