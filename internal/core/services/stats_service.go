package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/internal/core/ports"
)

// StatsService builds the dashboard summary
type StatsService struct {
	api ports.BadgeAPI
}

// NewStatsService creates a new stats service
func NewStatsService(api ports.BadgeAPI) *StatsService {
	return &StatsService{api: api}
}

// Execute fetches students, badges and assignments concurrently.
// Any failed fetch fails the whole summary. recent caps the number of latest
// assignments returned, newest first.
func (s *StatsService) Execute(ctx context.Context, recent int) (*domain.DashboardStats, error) {
	var (
		students    []domain.Student
		badges      []domain.Badge
		assignments []domain.Assignment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.api.ListStudents(gctx)
		if err != nil {
			return fmt.Errorf("students: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		badges, err = s.api.ListBadges(gctx)
		if err != nil {
			return fmt.Errorf("badges: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		assignments, err = s.api.ListAssignments(gctx)
		if err != nil {
			return fmt.Errorf("assignments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	return &domain.DashboardStats{
		TotalStudents:    len(students),
		TotalBadges:      len(badges),
		TotalAssignments: len(assignments),
		Recent:           latestAssignments(assignments, recent),
		PerBadge:         countPerBadge(assignments),
	}, nil
}

// latestAssignments returns the last n assignments in reverse order
func latestAssignments(assignments []domain.Assignment, n int) []domain.Assignment {
	if n <= 0 || len(assignments) == 0 {
		return nil
	}
	if n > len(assignments) {
		n = len(assignments)
	}
	tail := assignments[len(assignments)-n:]
	out := make([]domain.Assignment, 0, n)
	for i := len(tail) - 1; i >= 0; i-- {
		out = append(out, tail[i])
	}
	return out
}

func countPerBadge(assignments []domain.Assignment) []domain.BadgeCount {
	counts := make(map[string]int)
	for _, a := range assignments {
		counts[a.BadgeName]++
	}

	out := make([]domain.BadgeCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, domain.BadgeCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
