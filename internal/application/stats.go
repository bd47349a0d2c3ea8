package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RecentLimit is how many of the newest applications Stats carries.
const RecentLimit = 5

type Stats struct {
	Total       int           `json:"total"`
	New         int           `json:"new"`
	Reviewed    int           `json:"reviewed"`
	Shortlisted int           `json:"shortlisted"`
	Recent      []Application `json:"recent"`
}

// Aggregate runs each count and the recent listing as an independent query.
// The results are not a single snapshot; concurrent writes may make the
// counts disagree slightly.
func Aggregate(ctx context.Context, repo Repository) (*Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int, f Filter) func() error {
		return func() error {
			n, err := repo.Count(gctx, f)
			if err != nil {
				return fmt.Errorf("count %q: %w", f.Status, err)
			}
			*dst = n
			return nil
		}
	}
	g.Go(count(&stats.Total, Filter{}))
	g.Go(count(&stats.New, Filter{Status: StatusNew}))
	g.Go(count(&stats.Reviewed, Filter{Status: StatusReviewed}))
	g.Go(count(&stats.Shortlisted, Filter{Status: StatusShortlisted}))
	g.Go(func() error {
		recent, err := repo.Find(gctx, Query{Sort: DefaultSort, Page: 1, Limit: RecentLimit})
		if err != nil {
			return fmt.Errorf("recent applications: %w", err)
		}
		stats.Recent = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if stats.Recent == nil {
		stats.Recent = []Application{}
	}
	return &stats, nil
}
