// Package assignment hands verified issues to approved contractors.
package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"civicresolve/lifecycle"
	"civicresolve/models"
)

// Contractors lists contractor profiles by approval state.
type Contractors interface {
	ApprovedContractors(ctx context.Context, sess lifecycle.Session) ([]models.Contractor, error)
	PendingContractors(ctx context.Context, sess lifecycle.Session) ([]models.Contractor, error)
}

// Issues is the part of the issue store the resolver needs.
// *store.IssueStore satisfies it.
type Issues interface {
	Get(id string) (models.Issue, bool)
	Snapshot() []models.Issue
	RequestTransition(ctx context.Context, sess lifecycle.Session, id string, req lifecycle.Request) (models.Issue, error)
}

// Result is the outcome of a successful assignment.
type Result struct {
	Issue      models.Issue      `json:"issue"`
	Contractor models.Contractor `json:"contractor"`
	AreaMatch  bool              `json:"areaMatch"`
}

// Candidate is an approved contractor ranked for one issue.
type Candidate struct {
	Contractor   models.Contractor `json:"contractor"`
	AreaMatch    bool              `json:"areaMatch"`
	ActiveIssues int               `json:"activeIssues"`
}

type Resolver struct {
	issues      Issues
	contractors Contractors
	engine      *lifecycle.Engine
	logger      *slog.Logger
	strictArea  bool
}

type Option func(*Resolver)

// WithStrictArea refuses assignments to contractors outside the issue's
// pincode with ErrAreaMismatch. Without it a mismatch is only logged.
func WithStrictArea() Option {
	return func(r *Resolver) { r.strictArea = true }
}

func WithEngine(e *lifecycle.Engine) Option {
	return func(r *Resolver) { r.engine = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func NewResolver(issues Issues, contractors Contractors, opts ...Option) *Resolver {
	r := &Resolver{
		issues:      issues,
		contractors: contractors,
		engine:      lifecycle.NewEngine(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Assign gives a VERIFIED issue to an approved contractor and moves it to
// IN_PROGRESS.
func (r *Resolver) Assign(ctx context.Context, sess lifecycle.Session, issueID, contractorID string) (Result, error) {
	issue, ok := r.issues.Get(issueID)
	if !ok {
		return Result{}, fmt.Errorf("issue %s: %w", issueID, lifecycle.ErrUnknownIssue)
	}
	if err := r.engine.CheckAssignable(issue, sess); err != nil {
		return Result{}, err
	}

	contractor, err := r.resolve(ctx, sess, contractorID)
	if err != nil {
		return Result{}, err
	}
	if err := r.engine.CheckAssignment(issue, sess, contractor); err != nil {
		return Result{}, err
	}

	match := contractor.Serves(issue.Pincode)
	if !match {
		if r.strictArea {
			return Result{}, fmt.Errorf("assign issue %s (pincode %s) to %s (area %s): %w",
				issue.ID, issue.Pincode, contractor.ID, contractor.AssignedArea, lifecycle.ErrAreaMismatch)
		}
		r.logger.Warn("contractor outside issue area", "issue", issue.ID, "pincode", issue.Pincode,
			"contractor", contractor.ID, "area", contractor.AssignedArea)
	}

	req := lifecycle.Request{
		Target:  models.StatusInProgress,
		Payload: lifecycle.Payload{ContractorID: contractor.ID},
	}
	updated, err := r.issues.RequestTransition(ctx, sess, issue.ID, req)
	if err != nil {
		return Result{}, err
	}
	return Result{Issue: updated, Contractor: *contractor, AreaMatch: match}, nil
}

// resolve finds the contractor by id. A nil result with a nil error means the
// id is unknown; pending profiles come back with Approved false.
func (r *Resolver) resolve(ctx context.Context, sess lifecycle.Session, id string) (*models.Contractor, error) {
	approved, err := r.contractors.ApprovedContractors(ctx, sess)
	if err != nil {
		return nil, lifecycle.WrapBackend("list contractors", err)
	}
	for i := range approved {
		if approved[i].ID == id {
			c := approved[i]
			c.Approved = true
			return &c, nil
		}
	}
	pending, err := r.contractors.PendingContractors(ctx, sess)
	if err != nil {
		return nil, lifecycle.WrapBackend("list pending contractors", err)
	}
	for i := range pending {
		if pending[i].ID == id {
			c := pending[i]
			c.Approved = false
			return &c, nil
		}
	}
	return nil, nil
}

// Candidates ranks approved contractors for an issue: area matches first,
// then the fewest open assignments, then name.
func (r *Resolver) Candidates(ctx context.Context, sess lifecycle.Session, issueID string) ([]Candidate, error) {
	if err := r.engine.Authorize(sess, lifecycle.CapManageContractors); err != nil {
		return nil, err
	}
	issue, ok := r.issues.Get(issueID)
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", issueID, lifecycle.ErrUnknownIssue)
	}
	approved, err := r.contractors.ApprovedContractors(ctx, sess)
	if err != nil {
		return nil, lifecycle.WrapBackend("list contractors", err)
	}

	load := make(map[string]int)
	for _, other := range r.issues.Snapshot() {
		switch other.Status {
		case models.StatusInProgress, models.StatusCompletedPendingApproval:
			load[other.AssignedContractorID]++
		}
	}

	out := make([]Candidate, 0, len(approved))
	for _, c := range approved {
		if r.strictArea && !c.Serves(issue.Pincode) {
			continue
		}
		out = append(out, Candidate{Contractor: c, AreaMatch: c.Serves(issue.Pincode), ActiveIssues: load[c.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AreaMatch != b.AreaMatch {
			return a.AreaMatch
		}
		if a.ActiveIssues != b.ActiveIssues {
			return a.ActiveIssues < b.ActiveIssues
		}
		return a.Contractor.FullName < b.Contractor.FullName
	})
	return out, nil
}

// Suggest returns the best ranked candidate.
func (r *Resolver) Suggest(ctx context.Context, sess lifecycle.Session, issueID string) (Candidate, error) {
	candidates, err := r.Candidates(ctx, sess, issueID)
	if err != nil {
		return Candidate{}, err
	}
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("no contractor for issue %s: %w", issueID, lifecycle.ErrUnknownContractor)
	}
	return candidates[0], nil
}
