package application

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildQueryDefaults(t *testing.T) {
	q := BuildQuery(ListParams{})
	assert.Equal(t, Query{Sort: DefaultSort, Page: 1, Limit: 10}, q)
	assert.Equal(t, 0, q.Skip())
}

func TestBuildQueryNormalizes(t *testing.T) {
	tests := []struct {
		name string
		in   ListParams
		want Query
	}{
		{
			name: "search and status",
			in:   ListParams{Search: "  ada ", Status: " Reviewed "},
			want: Query{Filter: Filter{Search: "ada", Status: StatusReviewed}, Sort: DefaultSort, Page: 1, Limit: 10},
		},
		{
			name: "status all",
			in:   ListParams{Status: "ALL"},
			want: Query{Sort: DefaultSort, Page: 1, Limit: 10},
		},
		{
			name: "unknown status kept so it matches nothing",
			in:   ListParams{Status: "hired"},
			want: Query{Filter: Filter{Status: "hired"}, Sort: DefaultSort, Page: 1, Limit: 10},
		},
		{
			name: "sort asc",
			in:   ListParams{SortBy: "yearsOfExperience", Order: "asc"},
			want: Query{Sort: Sort{Field: SortYearsOfExperience}, Page: 1, Limit: 10},
		},
		{
			name: "sort anything but asc is desc",
			in:   ListParams{SortBy: "fullName", Order: "sideways"},
			want: Query{Sort: Sort{Field: SortFullName, Desc: true}, Page: 1, Limit: 10},
		},
		{
			name: "unknown sort falls back",
			in:   ListParams{SortBy: "password", Order: "asc"},
			want: Query{Sort: DefaultSort, Page: 1, Limit: 10},
		},
		{
			name: "bad paging",
			in:   ListParams{Page: "-3", Limit: "abc"},
			want: Query{Sort: DefaultSort, Page: 1, Limit: 10},
		},
		{
			name: "limit capped",
			in:   ListParams{Page: "4", Limit: "500"},
			want: Query{Sort: DefaultSort, Page: 4, Limit: 100},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.in))
		})
	}
}

func TestBuildQueryHugePageDoesNotWrap(t *testing.T) {
	q := BuildQuery(ListParams{Page: strconv.Itoa(math.MaxInt), Limit: "10"})
	assert.Equal(t, math.MaxInt/10, q.Page)
	assert.Positive(t, q.Skip())

	q = BuildQuery(ListParams{Page: strconv.Itoa(math.MaxInt), Limit: "1"})
	assert.Equal(t, math.MaxInt-1, q.Skip())
}

func TestFilterMatches(t *testing.T) {
	app := Application{FullName: "Ada Lovelace", Email: "ada@example.com", Country: "United Kingdom", Status: StatusNew}
	assert.True(t, Filter{}.Matches(app))
	assert.True(t, Filter{Search: "KINGDOM"}.Matches(app))
	assert.True(t, Filter{Search: "example", Status: StatusNew}.Matches(app))
	assert.False(t, Filter{Search: "example", Status: StatusReviewed}.Matches(app))
	assert.False(t, Filter{Search: "grace"}.Matches(app))
}

func TestSortLessBreaksTiesByID(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Application{ID: uuid.MustParse("00000000-0000-4000-8000-000000000001"), CreatedAt: at}
	b := Application{ID: uuid.MustParse("00000000-0000-4000-8000-000000000002"), CreatedAt: at}
	for _, s := range []Sort{DefaultSort, {Field: SortCreatedAt}} {
		assert.True(t, s.Less(a, b))
		assert.False(t, s.Less(b, a))
	}

	b.CreatedAt = at.Add(time.Second)
	assert.True(t, DefaultSort.Less(b, a))
}

func TestNewPage(t *testing.T) {
	q := Query{Page: 3, Limit: 10}
	p := NewPage(nil, 25, q)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 3, p.CurrentPage)
	assert.Equal(t, 25, p.Total)
	assert.NotNil(t, p.Data)

	assert.Equal(t, 0, NewPage(nil, 0, q).TotalPages)
	assert.Equal(t, 1, NewPage(nil, 10, q).TotalPages)
}
