package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
)

// FeedbackService stores one rating per resolved issue.
type FeedbackService struct {
	issues   repository.IssueRepository
	feedback repository.FeedbackRepository
	engine   *lifecycle.Engine
	logger   *slog.Logger
	now      func() time.Time
}

func NewFeedbackService(repos repository.Repositories, opts ...Option) *FeedbackService {
	o := apply(opts)
	return &FeedbackService{
		issues:   repos.Issues,
		feedback: repos.Feedback,
		engine:   o.engine,
		logger:   o.logger,
		now:      o.now,
	}
}

func (s *FeedbackService) SubmitFeedback(ctx context.Context, sess lifecycle.Session, fb models.Feedback) (models.Feedback, error) {
	issue, err := s.issues.FindIssue(ctx, fb.IssueID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Feedback{}, fmt.Errorf("issue %s: %w", fb.IssueID, lifecycle.ErrUnknownIssue)
	}
	if err != nil {
		return models.Feedback{}, fmt.Errorf("load issue %s: %w", fb.IssueID, err)
	}
	if err := s.engine.CheckFeedback(issue, sess, fb.Rating); err != nil {
		return models.Feedback{}, err
	}

	fb.ID = ""
	fb.Comment = strings.TrimSpace(fb.Comment)
	fb.SubmittedBy = sess.UserID
	fb.CreatedAt = s.now()
	if err := lifecycle.ValidateFeedback(fb); err != nil {
		return models.Feedback{}, err
	}
	if err := s.feedback.InsertFeedback(ctx, &fb); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.Feedback{}, fmt.Errorf("feedback for issue %s: %w", fb.IssueID, lifecycle.ErrAlreadyExists)
		}
		return models.Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	s.logger.Info("feedback recorded", "issue", fb.IssueID, "rating", fb.Rating)
	return fb, nil
}

// ListFeedback returns all feedback to analysts and a citizen's own otherwise.
func (s *FeedbackService) ListFeedback(ctx context.Context, sess lifecycle.Session) ([]models.Feedback, error) {
	by := sess.UserID
	if sess.Actor.Can(lifecycle.CapViewAnalytics) {
		by = ""
	} else if err := s.engine.Authorize(sess, lifecycle.CapSubmitFeedback); err != nil {
		return nil, err
	}
	out, err := s.feedback.FindFeedback(ctx, by)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return out, nil
}
