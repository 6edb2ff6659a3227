// Package lifecycle decides which state changes an issue may undergo, who may
// request them and what evidence they need. It performs no I/O.
package lifecycle

import (
	"fmt"
	"time"

	"civicresolve/models"
)

// Edge is one row of the transition table.
type Edge struct {
	From  models.IssueStatus `json:"from"`
	To    models.IssueStatus `json:"to"`
	Actor Actor              `json:"actor"`
	// Assignment marks the edge that is only taken by assigning a contractor.
	Assignment bool `json:"assignment,omitempty"`
	// AfterImage marks the contractor completion submission.
	AfterImage bool `json:"afterImage,omitempty"`
	// RemarkRecommended is a UI hint; the engine does not enforce it.
	RemarkRecommended bool `json:"remarkRecommended,omitempty"`
}

var table = []Edge{
	{From: models.StatusPending, To: models.StatusVerified, Actor: ActorAdmin},
	{From: models.StatusPending, To: models.StatusRejected, Actor: ActorAdmin},
	{From: models.StatusVerified, To: models.StatusInProgress, Actor: ActorAdmin, Assignment: true},
	{From: models.StatusVerified, To: models.StatusRejected, Actor: ActorAdmin},
	{From: models.StatusInProgress, To: models.StatusCompletedPendingApproval, Actor: ActorContractor, AfterImage: true},
	{From: models.StatusInProgress, To: models.StatusRejected, Actor: ActorAdmin},
	{From: models.StatusCompletedPendingApproval, To: models.StatusResolved, Actor: ActorAdmin},
	{From: models.StatusCompletedPendingApproval, To: models.StatusInProgress, Actor: ActorAdmin, RemarkRecommended: true},
}

// Table returns a copy of the full transition table.
func Table() []Edge {
	out := make([]Edge, len(table))
	copy(out, table)
	return out
}

func lookup(from, to models.IssueStatus) (Edge, bool) {
	for _, e := range table {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

var deletable = map[models.IssueStatus]bool{
	models.StatusPending:    true,
	models.StatusVerified:   true,
	models.StatusInProgress: true,
}

// Payload carries the optional data of a transition request.
type Payload struct {
	Remark       string
	ContractorID string
	BeforeImage  *models.Upload
	AfterImage   *models.Upload
}

// Request asks for issue to move to Target.
type Request struct {
	Target  models.IssueStatus
	Payload Payload
}

// Evidence holds the stored paths of uploaded completion images.
type Evidence struct {
	BeforeImagePath string
	AfterImagePath  string
}

// Engine evaluates the transition table.
type Engine struct {
	now func() time.Time
}

type Option func(*Engine)

// WithClock overrides the clock used to stamp UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// owns reports whether sess may act on issue as the party the edge names.
func owns(sess Session, issue models.Issue) bool {
	switch sess.Actor {
	case ActorAdmin:
		return true
	case ActorCitizen:
		return sess.UserID != "" && issue.ReportedBy == sess.UserID
	case ActorContractor:
		return sess.ContractorID != "" && issue.AssignedContractorID == sess.ContractorID
	}
	return false
}

// Visible reports whether issue belongs to the session's scope.
func (e *Engine) Visible(issue models.Issue, sess Session) bool {
	return owns(sess, issue)
}

// AllowedTransitions lists the edges sess may take from the issue's current
// status. UI hints must be derived from this and nothing else.
func (e *Engine) AllowedTransitions(issue models.Issue, sess Session) []Edge {
	var out []Edge
	if issue.Status.Terminal() || !owns(sess, issue) {
		return out
	}
	for _, edge := range table {
		if edge.From == issue.Status && edge.Actor == sess.Actor {
			out = append(out, edge)
		}
	}
	return out
}

// Edge returns the table row for from -> to.
func (e *Engine) Edge(from, to models.IssueStatus) (Edge, bool) {
	return lookup(from, to)
}

// Can reports whether sess may move issue to target, ignoring payload.
func (e *Engine) Can(issue models.Issue, sess Session, target models.IssueStatus) bool {
	for _, edge := range e.AllowedTransitions(issue, sess) {
		if edge.To == target {
			return true
		}
	}
	return false
}

// Check validates req against the table without changing anything.
func (e *Engine) Check(issue models.Issue, sess Session, req Request) error {
	if !req.Target.Valid() {
		return invalid("status", "oneof")
	}
	refuse := func(err error) error {
		return &TransitionError{From: issue.Status, To: req.Target, Actor: sess.Actor, Err: err}
	}
	if !sess.Actor.Valid() {
		return refuse(ErrNotAuthorized)
	}
	if issue.Status.Terminal() {
		return refuse(fmt.Errorf("%w: %s is terminal", ErrIllegalTransition, issue.Status))
	}
	edge, ok := lookup(issue.Status, req.Target)
	if !ok {
		return refuse(ErrIllegalTransition)
	}
	if edge.Actor != sess.Actor || !owns(sess, issue) {
		return refuse(ErrNotAuthorized)
	}
	if edge.Assignment && req.Payload.ContractorID == "" {
		return refuse(fmt.Errorf("%w: requires a contractor assignment", ErrIllegalTransition))
	}
	if edge.AfterImage && !req.Payload.AfterImage.Present() {
		return refuse(ErrMissingEvidence)
	}
	return nil
}

// Apply returns the issue as it is after req. The input is not modified.
// Evidence paths are recorded only on the completion submission edge.
func (e *Engine) Apply(issue models.Issue, sess Session, req Request, ev Evidence) (models.Issue, error) {
	if err := e.Check(issue, sess, req); err != nil {
		return issue, err
	}
	edge, _ := lookup(issue.Status, req.Target)

	out := issue
	out.Status = req.Target
	out.Remark = req.Payload.Remark
	out.UpdatedAt = e.now()
	switch {
	case edge.Assignment:
		out.AssignedContractorID = req.Payload.ContractorID
	case edge.AfterImage:
		out.AfterImagePath = ev.AfterImagePath
		if ev.BeforeImagePath != "" {
			out.BeforeImagePath = ev.BeforeImagePath
		}
	}
	if req.Target == models.StatusRejected {
		out.AssignedContractorID = ""
	}
	return out, nil
}

// CheckAssignable validates the actor and issue state of an assignment
// before any contractor is looked up.
func (e *Engine) CheckAssignable(issue models.Issue, sess Session) error {
	edge, _ := lookup(models.StatusVerified, models.StatusInProgress)
	if sess.Actor != edge.Actor {
		return fmt.Errorf("assign issue %s: %w", issue.ID, ErrNotAuthorized)
	}
	if issue.Status != edge.From {
		return fmt.Errorf("assign issue %s in %s: %w", issue.ID, issue.Status, ErrInvalidStateForAssignment)
	}
	return nil
}

// CheckAssignment validates giving issue to contractor. A nil contractor
// means the id did not resolve.
func (e *Engine) CheckAssignment(issue models.Issue, sess Session, contractor *models.Contractor) error {
	if err := e.CheckAssignable(issue, sess); err != nil {
		return err
	}
	if contractor == nil {
		return fmt.Errorf("assign issue %s: %w", issue.ID, ErrUnknownContractor)
	}
	if !contractor.Approved {
		return fmt.Errorf("assign issue %s to %s: %w", issue.ID, contractor.ID, ErrContractorNotApproved)
	}
	return nil
}

// Assign applies the assignment edge.
func (e *Engine) Assign(issue models.Issue, sess Session, contractor *models.Contractor) (models.Issue, error) {
	if err := e.CheckAssignment(issue, sess, contractor); err != nil {
		return issue, err
	}
	req := Request{Target: models.StatusInProgress, Payload: Payload{ContractorID: contractor.ID}}
	return e.Apply(issue, sess, req, Evidence{})
}

// Authorize checks an actor-level capability.
func (e *Engine) Authorize(sess Session, c Capability) error {
	if !sess.Actor.Can(c) {
		return fmt.Errorf("%s cannot %s: %w", sess, c, ErrNotAuthorized)
	}
	return nil
}

// CheckCreate validates that sess may report a new issue.
func (e *Engine) CheckCreate(sess Session) error {
	return e.Authorize(sess, CapReportIssue)
}

// CheckEdit validates a citizen's edit. Only the reporter may edit, and only
// while the issue is PENDING.
func (e *Engine) CheckEdit(issue models.Issue, sess Session) error {
	if sess.Actor != ActorCitizen || !owns(sess, issue) {
		return fmt.Errorf("edit issue %s: %w", issue.ID, ErrNotAuthorized)
	}
	if issue.Status != models.StatusPending {
		return fmt.Errorf("edit issue %s in %s: %w", issue.ID, issue.Status, ErrEditNotAllowed)
	}
	return nil
}

// CheckDelete validates a deletion. The reporter or an admin may delete
// while the issue is PENDING, VERIFIED or IN_PROGRESS.
func (e *Engine) CheckDelete(issue models.Issue, sess Session) error {
	if sess.Actor == ActorContractor || !owns(sess, issue) {
		return fmt.Errorf("delete issue %s: %w", issue.ID, ErrNotAuthorized)
	}
	if !deletable[issue.Status] {
		return fmt.Errorf("delete issue %s in %s: %w", issue.ID, issue.Status, ErrDeleteNotAllowed)
	}
	return nil
}

// CheckFeedback validates a satisfaction rating for issue.
func (e *Engine) CheckFeedback(issue models.Issue, sess Session, rating int) error {
	if rating < models.MinRating || rating > models.MaxRating {
		return fmt.Errorf("rating %d outside %d..%d: %w", rating, models.MinRating, models.MaxRating, ErrInvalidRating)
	}
	if err := e.Authorize(sess, CapSubmitFeedback); err != nil {
		return err
	}
	if !owns(sess, issue) {
		return fmt.Errorf("feedback on issue %s: %w", issue.ID, ErrNotAuthorized)
	}
	if issue.Status != models.StatusResolved {
		return fmt.Errorf("feedback on issue %s in %s: %w", issue.ID, issue.Status, ErrIssueNotResolved)
	}
	return nil
}
