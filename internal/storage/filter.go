package storage

import (
	"fmt"
	"strings"

	"cv-intake/internal/application"
)

// sortColumns whitelists ORDER BY targets (prevents SQL injection).
var sortColumns = map[application.SortField]string{
	application.SortCreatedAt:         "created_at",
	application.SortFullName:          "full_name",
	application.SortEmail:             "email",
	application.SortCountry:           "country",
	application.SortYearsOfExperience: "years_of_experience",
	application.SortStatus:            "status",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// whereClause renders f as a WHERE clause whose placeholders start at $next.
// Find and Count both go through here so they always agree.
func whereClause(f application.Filter, next int) (string, []any) {
	var where []string
	var args []any

	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(f.Search) + "%"
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR country ILIKE $%d)", next, next, next))
		args = append(args, pattern)
		next++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", next))
		args = append(args, string(f.Status))
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func orderClause(s application.Sort) string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col, s = "created_at", application.DefaultSort
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir)
}
