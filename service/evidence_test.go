package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
)

// flakyIssues fails writes while broken is set.
type flakyIssues struct {
	repository.IssueRepository
	broken    bool
	err       error
	deleteErr error
}

func (f *flakyIssues) ReplaceIssue(ctx context.Context, issue models.Issue) error {
	if f.broken {
		return f.err
	}
	return f.IssueRepository.ReplaceIssue(ctx, issue)
}

func (f *flakyIssues) DeleteIssue(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.IssueRepository.DeleteIssue(ctx, id)
}

func flakySetup(t *testing.T, err error, opts ...Option) (*Services, *repository.Memory, *flakyIssues) {
	t.Helper()
	mem := repository.NewMemory()
	repos := mem.Repositories()
	issues := &flakyIssues{IssueRepository: repos.Issues, err: err}
	repos.Issues = issues
	return New(repos, opts...), mem, issues
}

func TestFailedResubmissionKeepsAcceptedEvidence(t *testing.T) {
	ctx := context.Background()
	svc, mem, issues := flakySetup(t, errors.New("write concern timeout"))
	contractor, contractorSess := registerContractor(t, svc, "user-c", "5600", true)

	issue, err := svc.Issues.CreateIssue(ctx, citizen, draft())
	require.NoError(t, err)
	_, err = svc.Issues.UpdateStatus(ctx, admin, issue.ID, lifecycle.Request{Target: models.StatusVerified})
	require.NoError(t, err)
	_, err = svc.Issues.AssignIssue(ctx, admin, issue.ID, contractor.ID)
	require.NoError(t, err)
	_, err = svc.Issues.UpdateStatus(ctx, contractorSess, issue.ID, lifecycle.Request{
		Target:  models.StatusCompletedPendingApproval,
		Payload: lifecycle.Payload{AfterImage: image("first-after")},
	})
	require.NoError(t, err)
	_, err = svc.Issues.UpdateStatus(ctx, admin, issue.ID, lifecycle.Request{
		Target:  models.StatusInProgress,
		Payload: lifecycle.Payload{Remark: "photo is blurry"},
	})
	require.NoError(t, err)

	issues.broken = true
	_, err = svc.Issues.UpdateStatus(ctx, contractorSess, issue.ID, lifecycle.Request{
		Target:  models.StatusCompletedPendingApproval,
		Payload: lifecycle.Payload{AfterImage: image("second-after"), BeforeImage: image("second-before")},
	})
	require.Error(t, err)
	issues.broken = false

	stored, err := svc.Issues.GetIssue(ctx, admin, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.Status)

	after, err := mem.LoadEvidence(ctx, issue.ID, repository.EvidenceAfter)
	require.NoError(t, err)
	assert.Equal(t, []byte("first-after"), after.Data)
	_, err = mem.LoadEvidence(ctx, issue.ID, repository.EvidenceBefore)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFailedEditKeepsImage(t *testing.T) {
	ctx := context.Background()
	svc, mem, issues := flakySetup(t, errors.New("connection reset"))
	issue, err := svc.Issues.CreateIssue(ctx, citizen, draft())
	require.NoError(t, err)

	issues.broken = true
	_, err = svc.Issues.UpdateIssue(ctx, citizen, issue.ID, models.IssueEdit{
		Description: "Water main leaking onto the road",
		Address:     "45 Residency Road",
		Pincode:     "560025",
		Category:    models.CategoryWaterLeakage,
		Image:       image("replacement"),
	})
	require.Error(t, err)

	up, err := mem.LoadEvidence(ctx, issue.ID, repository.EvidenceImage)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), up.Data)
}

func TestWriteAfterConcurrentDeleteIsUnknownIssue(t *testing.T) {
	ctx := context.Background()
	svc, _, issues := flakySetup(t, repository.ErrNotFound)
	contractor, _ := registerContractor(t, svc, "user-c", "5600", true)
	issue, err := svc.Issues.CreateIssue(ctx, citizen, draft())
	require.NoError(t, err)
	_, err = svc.Issues.UpdateStatus(ctx, admin, issue.ID, lifecycle.Request{Target: models.StatusVerified})
	require.NoError(t, err)

	issues.broken = true
	_, err = svc.Issues.AssignIssue(ctx, admin, issue.ID, contractor.ID)
	assert.ErrorIs(t, err, lifecycle.ErrUnknownIssue)
	_, err = svc.Issues.UpdateStatus(ctx, admin, issue.ID, lifecycle.Request{Target: models.StatusRejected})
	assert.ErrorIs(t, err, lifecycle.ErrUnknownIssue)
	assert.Equal(t, "unknown_issue", lifecycle.Code(err))
}

func TestCreateRollbackFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	svc, _, issues := flakySetup(t, errors.New("disk full"), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	issues.broken = true
	issues.deleteErr = errors.New("primary stepped down")

	_, err := svc.Issues.CreateIssue(ctx, citizen, draft())
	require.Error(t, err)
	assert.Contains(t, logs.String(), "half-created issue left behind")
	assert.Contains(t, logs.String(), "primary stepped down")
}

func TestImage(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	issue, err := svc.Issues.CreateIssue(ctx, citizen, draft())
	require.NoError(t, err)

	up, err := svc.Issues.Image(ctx, citizen, issue.ID, repository.EvidenceImage)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", up.ContentType)
	assert.Equal(t, []byte("jpeg"), up.Data)

	_, err = svc.Issues.Image(ctx, other, issue.ID, repository.EvidenceImage)
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)
	_, err = svc.Issues.Image(ctx, admin, issue.ID, repository.EvidenceAfter)
	assert.ErrorIs(t, err, lifecycle.ErrNoImage)
	_, err = svc.Issues.Image(ctx, admin, "missing", repository.EvidenceImage)
	assert.ErrorIs(t, err, lifecycle.ErrUnknownIssue)
}
