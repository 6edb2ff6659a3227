// Package store keeps the caller's view of the issue collection and mediates
// every change through the lifecycle engine before it reaches the backend.
package store

//go:generate mockgen -destination=mocks/backend.go -package=mocks civicresolve/store Backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"civicresolve/lifecycle"
	"civicresolve/models"
)

// Backend is the authoritative issue service. Implementations decide the
// wire format; the store only relies on these operations.
type Backend interface {
	ListIssues(ctx context.Context, sess lifecycle.Session) ([]models.Issue, error)
	CreateIssue(ctx context.Context, sess lifecycle.Session, draft models.IssueDraft) (models.Issue, error)
	UpdateIssue(ctx context.Context, sess lifecycle.Session, id string, edit models.IssueEdit) (models.Issue, error)
	UpdateStatus(ctx context.Context, sess lifecycle.Session, id string, req lifecycle.Request) (models.Issue, error)
	AssignIssue(ctx context.Context, sess lifecycle.Session, id, contractorID string) (models.Issue, error)
	DeleteIssue(ctx context.Context, sess lifecycle.Session, id string) error
}

// IssueStore holds the snapshot for one visibility scope.
type IssueStore struct {
	backend Backend
	engine  *lifecycle.Engine
	logger  *slog.Logger

	mu        sync.RWMutex
	scope     lifecycle.Scope
	issues    []models.Issue
	index     map[string]int
	listeners []func([]models.Issue)
}

type Option func(*IssueStore)

func WithEngine(e *lifecycle.Engine) Option {
	return func(s *IssueStore) { s.engine = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *IssueStore) { s.logger = l }
}

func New(backend Backend, opts ...Option) *IssueStore {
	s := &IssueStore{
		backend: backend,
		engine:  lifecycle.NewEngine(),
		logger:  slog.Default(),
		index:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the engine the store validates with.
func (s *IssueStore) Engine() *lifecycle.Engine { return s.engine }

// List fetches every issue visible to sess and replaces the snapshot. On
// failure the previous snapshot is kept.
func (s *IssueStore) List(ctx context.Context, sess lifecycle.Session) ([]models.Issue, error) {
	issues, err := s.backend.ListIssues(ctx, sess)
	if err != nil {
		return nil, lifecycle.WrapBackend("list issues", err)
	}

	s.mu.Lock()
	s.scope = sess.Scope()
	s.issues = make([]models.Issue, len(issues))
	copy(s.issues, issues)
	s.reindex()
	out := s.copyLocked()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

// Scope returns the scope of the current snapshot, empty before the first List.
func (s *IssueStore) Scope() lifecycle.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// Snapshot returns a copy of the current snapshot.
func (s *IssueStore) Snapshot() []models.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Get returns the snapshot copy of one issue.
func (s *IssueStore) Get(id string) (models.Issue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Issue{}, false
	}
	return s.issues[i], true
}

// Subscribe registers fn to receive a fresh snapshot after every change.
func (s *IssueStore) Subscribe(fn func([]models.Issue)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Create validates the draft locally and submits it. Validation failures
// never reach the backend.
func (s *IssueStore) Create(ctx context.Context, sess lifecycle.Session, draft models.IssueDraft) (models.Issue, error) {
	if err := s.engine.CheckCreate(sess); err != nil {
		return models.Issue{}, err
	}
	if err := lifecycle.ValidateDraft(draft); err != nil {
		return models.Issue{}, err
	}
	issue, err := s.backend.CreateIssue(ctx, sess, draft)
	if err != nil {
		return models.Issue{}, lifecycle.WrapBackend("create issue", err)
	}
	s.put(issue)
	return issue, nil
}

// Update edits a PENDING issue on behalf of its reporter.
func (s *IssueStore) Update(ctx context.Context, sess lifecycle.Session, id string, edit models.IssueEdit) (models.Issue, error) {
	current, err := s.lookup(id)
	if err != nil {
		return models.Issue{}, err
	}
	if err := s.engine.CheckEdit(current, sess); err != nil {
		return current, err
	}
	if err := lifecycle.ValidateEdit(edit); err != nil {
		return current, err
	}
	issue, err := s.backend.UpdateIssue(ctx, sess, id, edit)
	if err != nil {
		return current, lifecycle.WrapBackend("update issue", err)
	}
	s.put(issue)
	return issue, nil
}

// RequestTransition moves an issue through the lifecycle. The engine is
// consulted first; the snapshot changes only after the backend accepted it.
func (s *IssueStore) RequestTransition(ctx context.Context, sess lifecycle.Session, id string, req lifecycle.Request) (models.Issue, error) {
	current, err := s.lookup(id)
	if err != nil {
		return models.Issue{}, err
	}
	if err := s.engine.Check(current, sess, req); err != nil {
		return current, err
	}

	var issue models.Issue
	if edge, _ := s.engine.Edge(current.Status, req.Target); edge.Assignment {
		issue, err = s.backend.AssignIssue(ctx, sess, id, req.Payload.ContractorID)
	} else {
		issue, err = s.backend.UpdateStatus(ctx, sess, id, req)
	}
	if err != nil {
		s.logger.Warn("transition failed", "issue", id, "from", current.Status, "to", req.Target, "err", err)
		return current, lifecycle.WrapBackend("update status", err)
	}
	s.logger.Info("issue transitioned", "issue", id, "from", current.Status, "to", issue.Status, "actor", sess.Actor)
	s.put(issue)
	return issue, nil
}

// Delete removes an issue that has not yet reached a terminal or
// completed state.
func (s *IssueStore) Delete(ctx context.Context, sess lifecycle.Session, id string) error {
	current, err := s.lookup(id)
	if err != nil {
		return err
	}
	if err := s.engine.CheckDelete(current, sess); err != nil {
		return err
	}
	if err := s.backend.DeleteIssue(ctx, sess, id); err != nil {
		return lifecycle.WrapBackend("delete issue", err)
	}

	s.mu.Lock()
	if i, ok := s.index[id]; ok {
		s.issues = append(s.issues[:i], s.issues[i+1:]...)
		s.reindex()
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// AllowedTransitions answers the UI's "which actions are enabled" question.
func (s *IssueStore) AllowedTransitions(sess lifecycle.Session, id string) ([]lifecycle.Edge, error) {
	current, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.engine.AllowedTransitions(current, sess), nil
}

func (s *IssueStore) lookup(id string) (models.Issue, error) {
	issue, ok := s.Get(id)
	if !ok {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, lifecycle.ErrUnknownIssue)
	}
	return issue, nil
}

func (s *IssueStore) put(issue models.Issue) {
	s.mu.Lock()
	if i, ok := s.index[issue.ID]; ok {
		s.issues[i] = issue
	} else {
		s.issues = append(s.issues, issue)
		s.index[issue.ID] = len(s.issues) - 1
	}
	s.mu.Unlock()
	s.notify()
}

func (s *IssueStore) reindex() {
	s.index = make(map[string]int, len(s.issues))
	for i, issue := range s.issues {
		s.index[issue.ID] = i
	}
}

func (s *IssueStore) copyLocked() []models.Issue {
	out := make([]models.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

func (s *IssueStore) notify() {
	s.mu.RLock()
	listeners := make([]func([]models.Issue), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(s.Snapshot())
	}
}
