package application

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// StatusAll disables status filtering.
const StatusAll = "all"

// ListParams are the admin listing query parameters as received.
type ListParams struct {
	Search string
	Status string
	SortBy string
	Order  string
	Page   string
	Limit  string
}

type SortField string

const (
	SortCreatedAt         SortField = "createdAt"
	SortFullName          SortField = "fullName"
	SortEmail             SortField = "email"
	SortCountry           SortField = "country"
	SortYearsOfExperience SortField = "yearsOfExperience"
	SortStatus            SortField = "status"
)

// whitelist of sortable fields; anything else falls back to the default sort
var sortFields = map[string]SortField{
	"createdAt":         SortCreatedAt,
	"fullName":          SortFullName,
	"email":             SortEmail,
	"country":           SortCountry,
	"yearsOfExperience": SortYearsOfExperience,
	"status":            SortStatus,
}

// Filter selects applications. Search matches full name, email or country
// as a case-insensitive substring; an empty Status matches every status.
type Filter struct {
	Search string
	Status Status
}

func (f Filter) Matches(a Application) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(a.FullName), needle) ||
		strings.Contains(strings.ToLower(a.Email), needle) ||
		strings.Contains(strings.ToLower(a.Country), needle)
}

type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort lists newest applications first.
var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// Less orders a before b. Equal keys fall back to ascending ID so that
// pages never overlap.
func (s Sort) Less(a, b Application) bool {
	c := compareField(s.Field, a, b)
	if c == 0 {
		return a.ID.String() < b.ID.String()
	}
	if s.Desc {
		return c > 0
	}
	return c < 0
}

func compareField(field SortField, a, b Application) int {
	switch field {
	case SortFullName:
		return strings.Compare(a.FullName, b.FullName)
	case SortEmail:
		return strings.Compare(a.Email, b.Email)
	case SortCountry:
		return strings.Compare(a.Country, b.Country)
	case SortYearsOfExperience:
		return a.YearsOfExperience - b.YearsOfExperience
	case SortStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// Query is a fully resolved listing request.
type Query struct {
	Filter Filter
	Sort   Sort
	Page   int
	Limit  int
}

func (q Query) Skip() int {
	return (q.Page - 1) * q.Limit
}

// BuildQuery resolves listing parameters. It never fails: a page that is
// missing, non-numeric or below 1 becomes 1, a limit that is missing,
// non-numeric or not positive becomes DefaultLimit, and limits above
// MaxLimit are capped.
func BuildQuery(p ListParams) Query {
	q := Query{
		Sort:  DefaultSort,
		Page:  parsePositive(p.Page, DefaultPage),
		Limit: parsePositive(p.Limit, DefaultLimit),
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	// Keep Skip from overflowing.
	if maxPage := math.MaxInt / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	q.Filter.Search = strings.TrimSpace(p.Search)
	if status := strings.ToLower(strings.TrimSpace(p.Status)); status != "" && status != StatusAll {
		q.Filter.Status = Status(status)
	}
	if field, ok := sortFields[strings.TrimSpace(p.SortBy)]; ok {
		q.Sort = Sort{Field: field, Desc: strings.TrimSpace(p.Order) != "asc"}
	}
	return q
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Page is one page of a listing plus its metadata.
type Page struct {
	Data        []Application `json:"data"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int           `json:"total"`
}

func NewPage(items []Application, total int, q Query) Page {
	if items == nil {
		items = []Application{}
	}
	totalPages := 0
	if q.Limit > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	return Page{Data: items, TotalPages: totalPages, CurrentPage: q.Page, Total: total}
}
