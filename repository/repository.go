// Package repository persists issues, contractors, feedback and evidence
// images. MongoDB backs production; the in-memory implementation backs tests
// and local runs.
package repository

import (
	"context"
	"errors"

	"civicresolve/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// IssueFilter narrows FindIssues. Zero fields match everything.
type IssueFilter struct {
	ReportedBy  string
	AssignedTo  string
	Status      models.IssueStatus
	Category    models.IssueCategory
	NewestFirst bool
	Limit       int
}

type IssueRepository interface {
	FindIssues(ctx context.Context, f IssueFilter) ([]models.Issue, error)
	FindIssue(ctx context.Context, id string) (models.Issue, error)
	// InsertIssue stores a new issue and sets its ID.
	InsertIssue(ctx context.Context, issue *models.Issue) error
	// ReplaceIssue overwrites the stored issue with the same ID.
	ReplaceIssue(ctx context.Context, issue models.Issue) error
	DeleteIssue(ctx context.Context, id string) error
	CountByCategory(ctx context.Context) (map[models.IssueCategory]int, error)
	Locations(ctx context.Context, limit int) ([]models.Location, error)
}

type ContractorRepository interface {
	// FindContractors lists contractors; a nil approved matches both states.
	FindContractors(ctx context.Context, approved *bool) ([]models.Contractor, error)
	FindContractor(ctx context.Context, id string) (models.Contractor, error)
	FindContractorByUser(ctx context.Context, userID string) (models.Contractor, error)
	// InsertContractor fails with ErrDuplicate when the user already has a profile.
	InsertContractor(ctx context.Context, c *models.Contractor) error
	SetApproved(ctx context.Context, id string, approved bool) error
	DeleteContractor(ctx context.Context, id string) error
}

type FeedbackRepository interface {
	// InsertFeedback fails with ErrDuplicate when the issue already has feedback.
	InsertFeedback(ctx context.Context, fb *models.Feedback) error
	// FindFeedback lists feedback, all of it when submittedBy is empty.
	FindFeedback(ctx context.Context, submittedBy string) ([]models.Feedback, error)
	FeedbackForIssue(ctx context.Context, issueID string) (models.Feedback, error)
}

// Evidence kinds.
const (
	EvidenceImage  = "image"
	EvidenceBefore = "before"
	EvidenceAfter  = "after"
)

// EvidenceRepository keeps uploaded images as opaque blobs.
type EvidenceRepository interface {
	// SaveEvidence stores the upload, replacing an earlier one of the same
	// kind, and returns the path recorded on the issue.
	SaveEvidence(ctx context.Context, issueID, kind string, up models.Upload) (string, error)
	LoadEvidence(ctx context.Context, issueID, kind string) (models.Upload, error)
	// DeleteEvidence removes the issue's uploads of the given kinds, or all
	// of them when no kind is given.
	DeleteEvidence(ctx context.Context, issueID string, kinds ...string) error
}

// Repositories bundles one implementation of every repository.
type Repositories struct {
	Issues      IssueRepository
	Contractors ContractorRepository
	Feedback    FeedbackRepository
	Evidence    EvidenceRepository
}

// EvidencePath is the path an issue records for an evidence image.
func EvidencePath(issueID, kind string) string {
	if kind == EvidenceImage {
		return "/api/issues/" + issueID + "/image"
	}
	return "/api/issues/" + issueID + "/image/" + kind
}
