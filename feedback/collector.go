// Package feedback records citizen satisfaction with resolved issues.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"civicresolve/lifecycle"
	"civicresolve/models"
)

// Backend stores feedback records.
type Backend interface {
	SubmitFeedback(ctx context.Context, sess lifecycle.Session, fb models.Feedback) (models.Feedback, error)
	ListFeedback(ctx context.Context, sess lifecycle.Session) ([]models.Feedback, error)
}

// Issues looks up the snapshot copy of an issue.
type Issues interface {
	Get(id string) (models.Issue, bool)
}

// Collector accepts at most one feedback record per issue.
type Collector struct {
	issues  Issues
	backend Backend
	engine  *lifecycle.Engine
	logger  *slog.Logger

	mu        sync.Mutex
	submitted map[string]models.Feedback
}

type Option func(*Collector)

func WithEngine(e *lifecycle.Engine) Option {
	return func(c *Collector) { c.engine = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

func NewCollector(issues Issues, backend Backend, opts ...Option) *Collector {
	c := &Collector{
		issues:    issues,
		backend:   backend,
		engine:    lifecycle.NewEngine(),
		logger:    slog.Default(),
		submitted: make(map[string]models.Feedback),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the records the session can see so resubmissions are refused
// locally.
func (c *Collector) Load(ctx context.Context, sess lifecycle.Session) ([]models.Feedback, error) {
	records, err := c.backend.ListFeedback(ctx, sess)
	if err != nil {
		return nil, lifecycle.WrapBackend("list feedback", err)
	}
	c.mu.Lock()
	for _, fb := range records {
		c.submitted[fb.IssueID] = fb
	}
	c.mu.Unlock()
	return records, nil
}

// Submitted returns the recorded feedback for issueID, if any.
func (c *Collector) Submitted(issueID string) (models.Feedback, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fb, ok := c.submitted[issueID]
	return fb, ok
}

// Submit rates a RESOLVED issue from 1 to 5.
func (c *Collector) Submit(ctx context.Context, sess lifecycle.Session, issueID string, rating int, comment string) (models.Feedback, error) {
	issue, ok := c.issues.Get(issueID)
	if !ok {
		return models.Feedback{}, fmt.Errorf("issue %s: %w", issueID, lifecycle.ErrUnknownIssue)
	}
	if err := c.engine.CheckFeedback(issue, sess, rating); err != nil {
		return models.Feedback{}, err
	}
	if _, done := c.Submitted(issueID); done {
		return models.Feedback{}, fmt.Errorf("feedback for issue %s: %w", issueID, lifecycle.ErrAlreadyExists)
	}

	fb := models.Feedback{
		IssueID:     issueID,
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		SubmittedBy: sess.UserID,
	}
	if err := lifecycle.ValidateFeedback(fb); err != nil {
		return models.Feedback{}, err
	}

	saved, err := c.backend.SubmitFeedback(ctx, sess, fb)
	if err != nil {
		return models.Feedback{}, lifecycle.WrapBackend("submit feedback", err)
	}
	c.mu.Lock()
	c.submitted[issueID] = saved
	c.mu.Unlock()
	c.logger.Info("feedback recorded", "issue", issueID, "rating", rating)
	return saved, nil
}
