package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicresolve/assignment"
	"civicresolve/feedback"
	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
	"civicresolve/routes"
	"civicresolve/service"
	"civicresolve/store"
	authUtils "civicresolve/utils"
)

const secret = "client-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.Setup(r, service.New(repository.NewMemory().Repositories()), secret, nil)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, user string, actor lifecycle.Actor) (*Client, lifecycle.Session) {
	t.Helper()
	tok, err := authUtils.GenerateToken(secret, user, actor, time.Hour)
	require.NoError(t, err)
	c := New(srv.URL, WithToken(tok), WithHTTPClient(srv.Client()))
	sess, err := c.Session(context.Background())
	require.NoError(t, err)
	return c, sess
}

func ptr(f float64) *float64 { return &f }

func TestCoreOverHTTP(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	citizenAPI, citizen := login(t, srv, "citizen-1", lifecycle.ActorCitizen)
	adminAPI, admin := login(t, srv, "admin-1", lifecycle.ActorAdmin)
	contractorAPI, _ := login(t, srv, "user-c", lifecycle.ActorContractor)

	profile, err := contractorAPI.RegisterContractor(ctx, models.Contractor{
		FullName:     "Pipe Works",
		PhoneNumber:  "9123456780",
		Address:      "Depot 9",
		AssignedArea: "560025",
	})
	require.NoError(t, err)
	_, err = adminAPI.ApproveContractor(ctx, profile.ID)
	require.NoError(t, err)
	// the contractor session now carries the profile id
	contractorAPI, contractor := login(t, srv, "user-c", lifecycle.ActorContractor)
	require.Equal(t, profile.ID, contractor.ContractorID)

	citizenStore := store.New(citizenAPI)
	issue, err := citizenStore.Create(ctx, citizen, models.IssueDraft{
		Description: "Burst pipe flooding the lane",
		Address:     "3 Hosur Road",
		Pincode:     "560025",
		Category:    models.CategoryWaterLeakage,
		Latitude:    ptr(12.93),
		Longitude:   ptr(77.62),
		Image:       &models.Upload{Name: "pipe.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, issue.ImagePath)

	adminStore := store.New(adminAPI)
	_, err = adminStore.List(ctx, admin)
	require.NoError(t, err)
	_, err = adminStore.RequestTransition(ctx, admin, issue.ID, lifecycle.Request{Target: models.StatusVerified})
	require.NoError(t, err)

	resolver := assignment.NewResolver(adminStore, adminAPI)
	best, err := resolver.Suggest(ctx, admin, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, best.Contractor.ID)
	res, err := resolver.Assign(ctx, admin, issue.ID, best.Contractor.ID)
	require.NoError(t, err)
	assert.True(t, res.AreaMatch)

	contractorStore := store.New(contractorAPI)
	_, err = contractorStore.List(ctx, contractor)
	require.NoError(t, err)
	done, err := contractorStore.RequestTransition(ctx, contractor, issue.ID, lifecycle.Request{
		Target: models.StatusCompletedPendingApproval,
		Payload: lifecycle.Payload{
			Remark:     "joint replaced",
			AfterImage: &models.Upload{Name: "after.jpg", Data: []byte("after")},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, done.AfterImagePath)

	_, err = adminStore.List(ctx, admin)
	require.NoError(t, err)
	_, err = adminStore.RequestTransition(ctx, admin, issue.ID, lifecycle.Request{
		Target:  models.StatusResolved,
		Payload: lifecycle.Payload{Remark: "closed"},
	})
	require.NoError(t, err)

	_, err = citizenStore.List(ctx, citizen)
	require.NoError(t, err)
	collector := feedback.NewCollector(citizenStore, citizenAPI)
	_, err = collector.Submit(ctx, citizen, issue.ID, 5, "")
	require.NoError(t, err)

	// a second collector without local history is refused by the server
	fresh := feedback.NewCollector(citizenStore, citizenAPI)
	_, err = fresh.Submit(ctx, citizen, issue.ID, 3, "")
	assert.ErrorIs(t, err, lifecycle.ErrBackend)
	assert.ErrorIs(t, err, lifecycle.ErrAlreadyExists)

	report, err := adminAPI.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ByStatus[models.StatusResolved])
	assert.Equal(t, 1, report.Ratings.Count)
}

func TestServerErrorsKeepTheirKind(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	citizenAPI, citizen := login(t, srv, "citizen-1", lifecycle.ActorCitizen)

	_, err := citizenAPI.ListIssues(ctx, lifecycle.Session{UserID: citizen.UserID, Actor: lifecycle.ActorAdmin})
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)
	assert.ErrorIs(t, err, lifecycle.ErrBackend)

	_, err = citizenAPI.GetIssue(ctx, "nope")
	assert.ErrorIs(t, err, lifecycle.ErrUnknownIssue)

	// server side validation comes back with its fields
	_, err = citizenAPI.CreateIssue(ctx, citizen, models.IssueDraft{Pincode: "1"})
	var ve *lifecycle.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("pincode"))
}

func TestRetriesIdempotentReads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"userId":"u-1","actor":"ADMIN"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryWindow(5*time.Second))
	sess, err := c.Session(context.Background())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ActorAdmin, sess.Actor)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryWindow(5*time.Second))
	err := c.DeleteIssue(context.Background(), lifecycle.Session{}, "7")
	assert.ErrorIs(t, err, lifecycle.ErrBackend)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"not authorized","code":"not_authorized"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListFeedback(context.Background(), lifecycle.Session{})
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)
	assert.Equal(t, int32(1), calls.Load())
}
