package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
	"civicresolve/stats"
)

const defaultLocationLimit = 500

type AnalyticsService struct {
	issues   repository.IssueRepository
	feedback repository.FeedbackRepository
	engine   *lifecycle.Engine
}

func NewAnalyticsService(repos repository.Repositories, opts ...Option) *AnalyticsService {
	o := apply(opts)
	return &AnalyticsService{issues: repos.Issues, feedback: repos.Feedback, engine: o.engine}
}

// Summary aggregates every issue and feedback record.
func (s *AnalyticsService) Summary(ctx context.Context, sess lifecycle.Session) (stats.Report, error) {
	if err := s.engine.Authorize(sess, lifecycle.CapViewAnalytics); err != nil {
		return stats.Report{}, err
	}

	var (
		issues   []models.Issue
		feedback []models.Feedback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issues, err = s.issues.FindIssues(gctx, repository.IssueFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		feedback, err = s.feedback.FindFeedback(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return stats.Report{}, fmt.Errorf("load analytics: %w", err)
	}

	return stats.NewReport(issues, feedback), nil
}

// Categories counts issues per category, with every category present.
func (s *AnalyticsService) Categories(ctx context.Context, sess lifecycle.Session) (map[models.IssueCategory]int, error) {
	if err := s.engine.Authorize(sess, lifecycle.CapViewAnalytics); err != nil {
		return nil, err
	}
	counts, err := s.issues.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	for _, c := range models.Categories() {
		if _, ok := counts[c]; !ok {
			counts[c] = 0
		}
	}
	return counts, nil
}

// Locations returns map points for the most recent issues.
func (s *AnalyticsService) Locations(ctx context.Context, sess lifecycle.Session, limit int) ([]models.Location, error) {
	if err := s.engine.Authorize(sess, lifecycle.CapViewAnalytics); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultLocationLimit {
		limit = defaultLocationLimit
	}
	locs, err := s.issues.Locations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	return locs, nil
}
