package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/notify"
	"civicresolve/repository"
)

// IssueService implements store.Backend in process.
type IssueService struct {
	issues      repository.IssueRepository
	contractors repository.ContractorRepository
	evidence    repository.EvidenceRepository
	engine      *lifecycle.Engine
	notifier    notify.Notifier
	logger      *slog.Logger
	now         func() time.Time
	strictArea  bool
}

type Option func(*options)

type options struct {
	engine     *lifecycle.Engine
	notifier   notify.Notifier
	logger     *slog.Logger
	now        func() time.Time
	strictArea bool
}

func WithEngine(e *lifecycle.Engine) Option {
	return func(o *options) { o.engine = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier sets where lifecycle notifications go. The default logs them.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock sets the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithStrictArea refuses assignments outside the contractor's area.
func WithStrictArea(strict bool) Option {
	return func(o *options) { o.strictArea = strict }
}

func apply(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine == nil {
		o.engine = lifecycle.NewEngine(lifecycle.WithClock(o.now))
	}
	if o.notifier == nil {
		o.notifier = notify.NewLog(o.logger)
	}
	return o
}

// send delivers ev after the change it reports has been stored. A failed
// delivery never fails the request.
func send(ctx context.Context, n notify.Notifier, logger *slog.Logger, ev notify.Event) {
	if err := n.Notify(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warn("notification not sent", "kind", ev.Kind, "issue", ev.IssueID, "to", ev.Recipient, "err", err)
	}
}

func NewIssueService(repos repository.Repositories, opts ...Option) *IssueService {
	o := apply(opts)
	return &IssueService{
		issues:      repos.Issues,
		contractors: repos.Contractors,
		evidence:    repos.Evidence,
		engine:      o.engine,
		notifier:    o.notifier,
		logger:      o.logger,
		now:         o.now,
		strictArea:  o.strictArea,
	}
}

func (s *IssueService) load(ctx context.Context, id string) (models.Issue, error) {
	issue, err := s.issues.FindIssue(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, lifecycle.ErrUnknownIssue)
	}
	if err != nil {
		return models.Issue{}, fmt.Errorf("load issue %s: %w", id, err)
	}
	return issue, nil
}

// replace stores issue over its previous version. A concurrent delete makes
// the issue unknown.
func (s *IssueService) replace(ctx context.Context, issue models.Issue, op string) error {
	err := s.issues.ReplaceIssue(ctx, issue)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("issue %s: %w", issue.ID, lifecycle.ErrUnknownIssue)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, issue.ID, err)
	}
	return nil
}

// ListIssues returns the issues in the session's scope, newest first.
func (s *IssueService) ListIssues(ctx context.Context, sess lifecycle.Session) ([]models.Issue, error) {
	f := repository.IssueFilter{NewestFirst: true}
	switch sess.Scope() {
	case lifecycle.ScopeAll:
		if err := s.engine.Authorize(sess, lifecycle.CapViewAllIssues); err != nil {
			return nil, err
		}
	case lifecycle.ScopeAssigned:
		if sess.ContractorID == "" {
			return []models.Issue{}, nil
		}
		f.AssignedTo = sess.ContractorID
	default:
		if sess.UserID == "" {
			return nil, fmt.Errorf("list issues: %w", lifecycle.ErrNotAuthorized)
		}
		f.ReportedBy = sess.UserID
	}
	issues, err := s.issues.FindIssues(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

// ListIssuesIn lists the session's issues after checking that scope is the
// one the session's actor sees.
func (s *IssueService) ListIssuesIn(ctx context.Context, sess lifecycle.Session, scope lifecycle.Scope) ([]models.Issue, error) {
	if sess.Scope() != scope {
		return nil, fmt.Errorf("%s cannot list %s issues: %w", sess, scope, lifecycle.ErrNotAuthorized)
	}
	return s.ListIssues(ctx, sess)
}

// GetIssue returns one issue if it is in the session's scope.
func (s *IssueService) GetIssue(ctx context.Context, sess lifecycle.Session, id string) (models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return models.Issue{}, err
	}
	if !s.engine.Visible(issue, sess) {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, lifecycle.ErrNotAuthorized)
	}
	return issue, nil
}

// AllowedTransitions reports the edges sess may take on the stored issue.
func (s *IssueService) AllowedTransitions(ctx context.Context, sess lifecycle.Session, id string) ([]lifecycle.Edge, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.AllowedTransitions(issue, sess), nil
}

func (s *IssueService) CreateIssue(ctx context.Context, sess lifecycle.Session, draft models.IssueDraft) (models.Issue, error) {
	if err := s.engine.CheckCreate(sess); err != nil {
		return models.Issue{}, err
	}
	if err := lifecycle.ValidateDraft(draft); err != nil {
		return models.Issue{}, err
	}

	now := s.now()
	issue := models.Issue{
		Status:        models.StatusPending,
		Category:      draft.Category,
		OtherCategory: otherCategory(draft.Category, draft.OtherCategory),
		Description:   draft.Description,
		Address:       draft.Address,
		Pincode:       draft.Pincode,
		Latitude:      *draft.Latitude,
		Longitude:     *draft.Longitude,
		ReportedBy:    sess.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.issues.InsertIssue(ctx, &issue); err != nil {
		return models.Issue{}, fmt.Errorf("insert issue: %w", err)
	}

	if draft.Image.Present() {
		path, err := s.evidence.SaveEvidence(ctx, issue.ID, repository.EvidenceImage, *draft.Image)
		if err == nil {
			issue.ImagePath = path
			err = s.issues.ReplaceIssue(ctx, issue)
		}
		if err != nil {
			// creation is all or nothing
			cleanup := context.WithoutCancel(ctx)
			if derr := s.issues.DeleteIssue(cleanup, issue.ID); derr != nil {
				s.logger.Warn("half-created issue left behind", "issue", issue.ID, "err", derr)
			}
			if derr := s.evidence.DeleteEvidence(cleanup, issue.ID); derr != nil {
				s.logger.Warn("evidence left behind", "issue", issue.ID, "err", derr)
			}
			return models.Issue{}, fmt.Errorf("store issue image: %w", err)
		}
	}

	s.logger.Info("issue reported", "issue", issue.ID, "category", issue.Category, "by", sess.UserID)
	send(ctx, s.notifier, s.logger, notify.Event{
		Kind:        notify.IssueReported,
		Recipient:   issue.ReportedBy,
		IssueID:     issue.ID,
		Status:      issue.Status,
		Description: issue.Description,
		At:          now,
	})
	return issue, nil
}

func otherCategory(c models.IssueCategory, other string) string {
	if c != models.CategoryOther {
		return ""
	}
	return other
}

// UpdateIssue applies a reporter's edit while the issue is PENDING.
func (s *IssueService) UpdateIssue(ctx context.Context, sess lifecycle.Session, id string, edit models.IssueEdit) (models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return models.Issue{}, err
	}
	if err := s.engine.CheckEdit(issue, sess); err != nil {
		return models.Issue{}, err
	}
	if err := lifecycle.ValidateEdit(edit); err != nil {
		return models.Issue{}, err
	}

	issue.Description = edit.Description
	issue.Address = edit.Address
	issue.Pincode = edit.Pincode
	issue.Category = edit.Category
	issue.OtherCategory = otherCategory(edit.Category, edit.OtherCategory)
	issue.UpdatedAt = s.now()
	uploads := s.stage(id)
	if edit.Image.Present() {
		path, err := uploads.save(ctx, repository.EvidenceImage, *edit.Image)
		if err != nil {
			uploads.undo(ctx)
			return models.Issue{}, fmt.Errorf("store issue image: %w", err)
		}
		issue.ImagePath = path
	}
	if err := s.replace(ctx, issue, "update issue"); err != nil {
		uploads.undo(ctx)
		return models.Issue{}, err
	}
	return issue, nil
}

// UpdateStatus performs a transition. The assignment edge is routed through
// AssignIssue so the contractor is checked.
func (s *IssueService) UpdateStatus(ctx context.Context, sess lifecycle.Session, id string, req lifecycle.Request) (models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return models.Issue{}, err
	}
	if err := s.engine.Check(issue, sess, req); err != nil {
		return models.Issue{}, err
	}
	edge, _ := s.engine.Edge(issue.Status, req.Target)
	if edge.Assignment {
		return s.AssignIssue(ctx, sess, id, req.Payload.ContractorID)
	}

	var ev lifecycle.Evidence
	uploads := s.stage(id)
	if edge.AfterImage {
		ev.AfterImagePath, err = uploads.save(ctx, repository.EvidenceAfter, *req.Payload.AfterImage)
		if err != nil {
			uploads.undo(ctx)
			return models.Issue{}, fmt.Errorf("store after image: %w", err)
		}
		if req.Payload.BeforeImage.Present() {
			ev.BeforeImagePath, err = uploads.save(ctx, repository.EvidenceBefore, *req.Payload.BeforeImage)
			if err != nil {
				uploads.undo(ctx)
				return models.Issue{}, fmt.Errorf("store before image: %w", err)
			}
		}
	}

	next, err := s.engine.Apply(issue, sess, req, ev)
	if err != nil {
		uploads.undo(ctx)
		return models.Issue{}, err
	}
	if err := s.replace(ctx, next, "update status of"); err != nil {
		uploads.undo(ctx)
		return models.Issue{}, err
	}
	s.logger.Info("issue transitioned", "issue", id, "from", issue.Status, "to", next.Status, "actor", sess.Actor)
	s.notifyTransition(ctx, issue.Status, next)
	return next, nil
}

// notifyTransition tells the reporter about a final decision and the
// contractor about work sent back to them.
func (s *IssueService) notifyTransition(ctx context.Context, from models.IssueStatus, issue models.Issue) {
	ev := notify.Event{
		IssueID:     issue.ID,
		Status:      issue.Status,
		Description: issue.Description,
		Remark:      issue.Remark,
		At:          issue.UpdatedAt,
	}
	switch {
	case issue.Status == models.StatusResolved:
		ev.Kind = notify.IssueResolved
		ev.Recipient = issue.ReportedBy
		ev.BeforeImagePath = issue.BeforeImagePath
		ev.AfterImagePath = issue.AfterImagePath
	case issue.Status == models.StatusRejected:
		ev.Kind = notify.IssueRejected
		ev.Recipient = issue.ReportedBy
	case issue.Status == models.StatusInProgress && from == models.StatusCompletedPendingApproval:
		ev.Kind = notify.IssueReturned
		ev.ContractorID = issue.AssignedContractorID
		c, err := s.contractors.FindContractor(ctx, issue.AssignedContractorID)
		if err != nil {
			s.logger.Warn("returned issue has no contractor to notify", "issue", issue.ID,
				"contractor", issue.AssignedContractorID, "err", err)
			return
		}
		ev.Recipient = c.UserID
	default:
		return
	}
	send(ctx, s.notifier, s.logger, ev)
}

// AssignIssue gives a VERIFIED issue to an approved contractor.
func (s *IssueService) AssignIssue(ctx context.Context, sess lifecycle.Session, id, contractorID string) (models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return models.Issue{}, err
	}
	if err := s.engine.CheckAssignable(issue, sess); err != nil {
		return models.Issue{}, err
	}

	var contractor *models.Contractor
	c, err := s.contractors.FindContractor(ctx, contractorID)
	switch {
	case err == nil:
		contractor = &c
	case !errors.Is(err, repository.ErrNotFound):
		return models.Issue{}, fmt.Errorf("load contractor %s: %w", contractorID, err)
	}

	next, err := s.engine.Assign(issue, sess, contractor)
	if err != nil {
		return models.Issue{}, err
	}
	if !contractor.Serves(issue.Pincode) {
		if s.strictArea {
			return models.Issue{}, fmt.Errorf("assign issue %s (pincode %s) to %s (area %s): %w",
				id, issue.Pincode, contractor.ID, contractor.AssignedArea, lifecycle.ErrAreaMismatch)
		}
		s.logger.Warn("contractor outside issue area", "issue", id, "pincode", issue.Pincode,
			"contractor", contractor.ID, "area", contractor.AssignedArea)
	}
	if err := s.replace(ctx, next, "assign issue"); err != nil {
		return models.Issue{}, err
	}
	s.logger.Info("issue assigned", "issue", id, "contractor", contractor.ID)
	return next, nil
}

// DeleteIssue removes an issue and its evidence images.
func (s *IssueService) DeleteIssue(ctx context.Context, sess lifecycle.Session, id string) error {
	issue, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.CheckDelete(issue, sess); err != nil {
		return err
	}
	if err := s.issues.DeleteIssue(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("issue %s: %w", id, lifecycle.ErrUnknownIssue)
		}
		return fmt.Errorf("delete issue %s: %w", id, err)
	}
	if err := s.evidence.DeleteEvidence(ctx, id); err != nil {
		s.logger.Warn("evidence left behind", "issue", id, "err", err)
	}
	s.logger.Info("issue deleted", "issue", id, "by", sess)
	return nil
}
