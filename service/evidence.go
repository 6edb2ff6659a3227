package service

import (
	"context"
	"errors"
	"fmt"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
)

// staged remembers what an issue's evidence looked like before a request
// wrote to it, so a failed request can put it back.
type staged struct {
	s       *IssueService
	issueID string
	// prior holds the upload each written kind replaced; nil when the kind
	// had none.
	prior map[string]*models.Upload
}

func (s *IssueService) stage(issueID string) *staged {
	return &staged{s: s, issueID: issueID, prior: make(map[string]*models.Upload)}
}

func (st *staged) save(ctx context.Context, kind string, up models.Upload) (string, error) {
	if _, seen := st.prior[kind]; !seen {
		old, err := st.s.evidence.LoadEvidence(ctx, st.issueID, kind)
		switch {
		case err == nil:
			st.prior[kind] = &old
		case errors.Is(err, repository.ErrNotFound):
			st.prior[kind] = nil
		default:
			return "", fmt.Errorf("load %s image: %w", kind, err)
		}
	}
	return st.s.evidence.SaveEvidence(ctx, st.issueID, kind, up)
}

// undo restores every kind written through save.
func (st *staged) undo(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for kind, old := range st.prior {
		var err error
		if old == nil {
			err = st.s.evidence.DeleteEvidence(ctx, st.issueID, kind)
		} else {
			_, err = st.s.evidence.SaveEvidence(ctx, st.issueID, kind, *old)
		}
		if err != nil {
			st.s.logger.Warn("evidence not restored", "issue", st.issueID, "kind", kind, "err", err)
		}
	}
}

// Image returns one of the issue's evidence images: kind is
// repository.EvidenceImage, EvidenceBefore or EvidenceAfter. Only images the
// issue records a path for are served.
func (s *IssueService) Image(ctx context.Context, sess lifecycle.Session, id, kind string) (models.Upload, error) {
	issue, err := s.GetIssue(ctx, sess, id)
	if err != nil {
		return models.Upload{}, err
	}
	var path string
	switch kind {
	case repository.EvidenceImage:
		path = issue.ImagePath
	case repository.EvidenceBefore:
		path = issue.BeforeImagePath
	case repository.EvidenceAfter:
		path = issue.AfterImagePath
	}
	if path == "" {
		return models.Upload{}, fmt.Errorf("issue %s %s image: %w", id, kind, lifecycle.ErrNoImage)
	}
	up, err := s.evidence.LoadEvidence(ctx, id, kind)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Upload{}, fmt.Errorf("issue %s %s image: %w", id, kind, lifecycle.ErrNoImage)
	}
	if err != nil {
		return models.Upload{}, fmt.Errorf("load %s image of %s: %w", kind, id, err)
	}
	return up, nil
}
