package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicresolve/models"
)

var (
	admin      = Session{UserID: "admin-1", Actor: ActorAdmin}
	citizen    = Session{UserID: "citizen-1", Actor: ActorCitizen}
	contractor = Session{UserID: "contractor-user-1", Actor: ActorContractor, ContractorID: "c-1"}
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(WithClock(func() time.Time { return fixedNow }))
}

func issueIn(status models.IssueStatus) models.Issue {
	issue := models.Issue{
		ID:          "42",
		Status:      status,
		Category:    models.CategoryPothole,
		Description: "Deep pothole near the bus stop",
		Address:     "MG Road",
		Pincode:     "560001",
		Latitude:    12.97,
		Longitude:   77.59,
		ReportedBy:  citizen.UserID,
		Remark:      "earlier note",
		CreatedAt:   fixedNow.Add(-48 * time.Hour),
		UpdatedAt:   fixedNow.Add(-24 * time.Hour),
	}
	switch status {
	case models.StatusInProgress, models.StatusCompletedPendingApproval, models.StatusResolved:
		issue.AssignedContractorID = contractor.ContractorID
	}
	return issue
}

func afterImage() *models.Upload {
	return &models.Upload{Name: "after.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
}

func TestCheckTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    models.IssueStatus
		sess    Session
		to      models.IssueStatus
		payload Payload
		wantErr error
	}{
		{"admin verifies pending", models.StatusPending, admin, models.StatusVerified, Payload{}, nil},
		{"admin rejects pending", models.StatusPending, admin, models.StatusRejected, Payload{}, nil},
		{"citizen cannot verify", models.StatusPending, citizen, models.StatusVerified, Payload{}, ErrNotAuthorized},
		{"contractor cannot verify", models.StatusPending, contractor, models.StatusVerified, Payload{}, ErrNotAuthorized},
		{"pending cannot jump to resolved", models.StatusPending, admin, models.StatusResolved, Payload{}, ErrIllegalTransition},
		{"pending cannot go in progress", models.StatusPending, admin, models.StatusInProgress, Payload{ContractorID: "c-1"}, ErrIllegalTransition},
		{"verified to in progress needs contractor", models.StatusVerified, admin, models.StatusInProgress, Payload{}, ErrIllegalTransition},
		{"verified to in progress with contractor", models.StatusVerified, admin, models.StatusInProgress, Payload{ContractorID: "c-1"}, nil},
		{"admin rejects verified", models.StatusVerified, admin, models.StatusRejected, Payload{}, nil},
		{"contractor submits without image", models.StatusInProgress, contractor, models.StatusCompletedPendingApproval, Payload{}, ErrMissingEvidence},
		{"contractor submits with image", models.StatusInProgress, contractor, models.StatusCompletedPendingApproval, Payload{AfterImage: afterImage()}, nil},
		{"admin cannot submit completion", models.StatusInProgress, admin, models.StatusCompletedPendingApproval, Payload{AfterImage: afterImage()}, ErrNotAuthorized},
		{"admin rejects in progress", models.StatusInProgress, admin, models.StatusRejected, Payload{}, nil},
		{"contractor cannot reject", models.StatusInProgress, contractor, models.StatusRejected, Payload{}, ErrNotAuthorized},
		{"admin resolves", models.StatusCompletedPendingApproval, admin, models.StatusResolved, Payload{}, nil},
		{"admin requests improvements", models.StatusCompletedPendingApproval, admin, models.StatusInProgress, Payload{Remark: "repaint lines"}, nil},
		{"contractor cannot resolve", models.StatusCompletedPendingApproval, contractor, models.StatusResolved, Payload{}, ErrNotAuthorized},
		{"completed cannot be rejected", models.StatusCompletedPendingApproval, admin, models.StatusRejected, Payload{}, ErrIllegalTransition},
		{"resolved is terminal", models.StatusResolved, admin, models.StatusInProgress, Payload{}, ErrIllegalTransition},
		{"rejected is terminal", models.StatusRejected, admin, models.StatusPending, Payload{}, ErrIllegalTransition},
		{"rejected stays rejected", models.StatusRejected, admin, models.StatusRejected, Payload{}, ErrIllegalTransition},
	}

	e := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Check(issueIn(tt.from), tt.sess, Request{Target: tt.to, Payload: tt.payload})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.from, te.From)
			assert.Equal(t, tt.to, te.To)
		})
	}
}

func TestCheckUnknownTarget(t *testing.T) {
	err := newTestEngine().Check(issueIn(models.StatusPending), admin, Request{Target: "ARCHIVED"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("status"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCheckContractorMustBeAssignee(t *testing.T) {
	other := Session{UserID: "u-9", Actor: ActorContractor, ContractorID: "c-9"}
	err := newTestEngine().Check(issueIn(models.StatusInProgress), other, Request{
		Target:  models.StatusCompletedPendingApproval,
		Payload: Payload{AfterImage: afterImage()},
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	e := newTestEngine()
	for _, from := range models.Statuses() {
		for _, to := range models.Statuses() {
			for _, sess := range []Session{admin, citizen, contractor} {
				in := issueIn(from)
				before := in
				out, err := e.Apply(in, sess, Request{Target: to}, Evidence{})
				assert.Equal(t, before, in)
				if err != nil {
					assert.Equal(t, before, out, "failed apply must return the issue unchanged")
				}
				assert.True(t, out.Status.Valid())
			}
		}
	}
}

func TestApplySubmissionRecordsEvidence(t *testing.T) {
	e := newTestEngine()
	in := issueIn(models.StatusInProgress)

	out, err := e.Apply(in, contractor, Request{
		Target:  models.StatusCompletedPendingApproval,
		Payload: Payload{Remark: "filled and compacted", AfterImage: afterImage()},
	}, Evidence{AfterImagePath: "/api/issues/42/image/after", BeforeImagePath: "/api/issues/42/image/before"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusCompletedPendingApproval, out.Status)
	assert.Equal(t, "/api/issues/42/image/after", out.AfterImagePath)
	assert.Equal(t, "/api/issues/42/image/before", out.BeforeImagePath)
	assert.Equal(t, "filled and compacted", out.Remark)
	assert.Equal(t, fixedNow, out.UpdatedAt)
	assert.Equal(t, contractor.ContractorID, out.AssignedContractorID)
}

func TestApplyOverwritesRemarkAndIgnoresEvidenceElsewhere(t *testing.T) {
	out, err := newTestEngine().Apply(issueIn(models.StatusPending), admin,
		Request{Target: models.StatusVerified},
		Evidence{AfterImagePath: "/nope"})

	require.NoError(t, err)
	assert.Empty(t, out.Remark)
	assert.Empty(t, out.AfterImagePath)
}

func TestApplyRejectClearsAssignment(t *testing.T) {
	out, err := newTestEngine().Apply(issueIn(models.StatusInProgress), admin,
		Request{Target: models.StatusRejected, Payload: Payload{Remark: "duplicate report"}}, Evidence{})

	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, out.Status)
	assert.Empty(t, out.AssignedContractorID)
}

func TestAllowedTransitions(t *testing.T) {
	e := newTestEngine()
	targets := func(edges []Edge) []models.IssueStatus {
		var out []models.IssueStatus
		for _, edge := range edges {
			out = append(out, edge.To)
		}
		return out
	}

	assert.Equal(t, []models.IssueStatus{models.StatusVerified, models.StatusRejected},
		targets(e.AllowedTransitions(issueIn(models.StatusPending), admin)))
	assert.Empty(t, e.AllowedTransitions(issueIn(models.StatusPending), citizen))
	assert.Equal(t, []models.IssueStatus{models.StatusCompletedPendingApproval},
		targets(e.AllowedTransitions(issueIn(models.StatusInProgress), contractor)))
	assert.Equal(t, []models.IssueStatus{models.StatusResolved, models.StatusInProgress},
		targets(e.AllowedTransitions(issueIn(models.StatusCompletedPendingApproval), admin)))
	assert.Empty(t, e.AllowedTransitions(issueIn(models.StatusResolved), admin))
	assert.Empty(t, e.AllowedTransitions(issueIn(models.StatusRejected), admin))

	verified := e.AllowedTransitions(issueIn(models.StatusVerified), admin)
	require.Len(t, verified, 2)
	assert.True(t, verified[0].Assignment)
}

// Every edge AllowedTransitions offers must pass Check with a complete
// payload, and every edge it omits must fail Check.
func TestAllowedTransitionsAgreesWithCheck(t *testing.T) {
	e := newTestEngine()
	full := Payload{ContractorID: "c-1", AfterImage: afterImage(), Remark: "r"}
	for _, from := range models.Statuses() {
		for _, sess := range []Session{admin, citizen, contractor} {
			issue := issueIn(from)
			for _, to := range models.Statuses() {
				err := e.Check(issue, sess, Request{Target: to, Payload: full})
				assert.Equal(t, err == nil, e.Can(issue, sess, to), "%s -> %s by %s", from, to, sess.Actor)
			}
		}
	}
}

func TestCheckAssignment(t *testing.T) {
	e := newTestEngine()
	approved := &models.Contractor{ID: "c-1", Approved: true, AssignedArea: "560"}
	pending := &models.Contractor{ID: "c-2"}

	for _, status := range models.Statuses() {
		err := e.CheckAssignment(issueIn(status), admin, approved)
		if status == models.StatusVerified {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrInvalidStateForAssignment, status)
		}
	}

	assert.ErrorIs(t, e.CheckAssignment(issueIn(models.StatusVerified), admin, pending), ErrContractorNotApproved)
	assert.ErrorIs(t, e.CheckAssignment(issueIn(models.StatusVerified), admin, nil), ErrUnknownContractor)
	assert.ErrorIs(t, e.CheckAssignment(issueIn(models.StatusVerified), citizen, approved), ErrNotAuthorized)

	out, err := e.Assign(issueIn(models.StatusVerified), admin, approved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, out.Status)
	assert.Equal(t, "c-1", out.AssignedContractorID)
	assert.Equal(t, fixedNow, out.UpdatedAt)
}

func TestCheckDelete(t *testing.T) {
	e := newTestEngine()
	for _, status := range models.Statuses() {
		err := e.CheckDelete(issueIn(status), citizen)
		switch status {
		case models.StatusPending, models.StatusVerified, models.StatusInProgress:
			assert.NoError(t, err, status)
		default:
			assert.ErrorIs(t, err, ErrDeleteNotAllowed, status)
		}
	}

	stranger := Session{UserID: "citizen-2", Actor: ActorCitizen}
	assert.ErrorIs(t, e.CheckDelete(issueIn(models.StatusPending), stranger), ErrNotAuthorized)
	assert.ErrorIs(t, e.CheckDelete(issueIn(models.StatusInProgress), contractor), ErrNotAuthorized)
	assert.NoError(t, e.CheckDelete(issueIn(models.StatusPending), admin))
}

func TestCheckEdit(t *testing.T) {
	e := newTestEngine()
	assert.NoError(t, e.CheckEdit(issueIn(models.StatusPending), citizen))
	assert.ErrorIs(t, e.CheckEdit(issueIn(models.StatusVerified), citizen), ErrEditNotAllowed)
	assert.ErrorIs(t, e.CheckEdit(issueIn(models.StatusPending), admin), ErrNotAuthorized)
}

func TestCheckFeedback(t *testing.T) {
	e := newTestEngine()
	resolved := issueIn(models.StatusResolved)

	assert.NoError(t, e.CheckFeedback(resolved, citizen, 5))
	assert.ErrorIs(t, e.CheckFeedback(resolved, citizen, 0), ErrInvalidRating)
	assert.ErrorIs(t, e.CheckFeedback(resolved, citizen, 6), ErrInvalidRating)
	assert.ErrorIs(t, e.CheckFeedback(issueIn(models.StatusInProgress), citizen, 5), ErrIssueNotResolved)
	assert.ErrorIs(t, e.CheckFeedback(resolved, admin, 4), ErrNotAuthorized)
	assert.ErrorIs(t, e.CheckFeedback(resolved, Session{UserID: "someone-else", Actor: ActorCitizen}, 4), ErrNotAuthorized)
}

func TestVisible(t *testing.T) {
	e := newTestEngine()
	assigned := issueIn(models.StatusInProgress)
	assert.True(t, e.Visible(assigned, admin))
	assert.True(t, e.Visible(assigned, citizen))
	assert.True(t, e.Visible(assigned, contractor))
	assert.False(t, e.Visible(issueIn(models.StatusVerified), contractor))
	assert.False(t, e.Visible(assigned, Session{UserID: "x", Actor: ActorCitizen}))
}
