package routes

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
	"civicresolve/service"
	"civicresolve/stats"
	authUtils "civicresolve/utils"
)

const secret = "routes-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	r := gin.New()
	Setup(r, service.New(repository.NewMemory().Repositories()), secret, nil)
	return &api{t: t, router: r}
}

func token(t *testing.T, user string, actor lifecycle.Actor) string {
	t.Helper()
	tok, err := authUtils.GenerateToken(secret, user, actor, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *api) do(method, path, tok string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *api) sendJSON(method, path, tok string, v any) *httptest.ResponseRecorder {
	a.t.Helper()
	body, err := json.Marshal(v)
	require.NoError(a.t, err)
	return a.do(method, path, tok, bytes.NewReader(body), "application/json")
}

// form sends fields and files as multipart/form-data.
func (a *api) form(method, path, tok string, fields map[string]string, files map[string]string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".jpg")
		require.NoError(a.t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())
	return a.do(method, path, tok, &buf, mw.FormDataContentType())
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error  string                 `json:"error"`
	Code   string                 `json:"code"`
	Fields []lifecycle.FieldError `json:"fields"`
}

func reportFields() map[string]string {
	return map[string]string{
		"description": "Streetlight out for a week near the bus stop",
		"address":     "12 MG Road",
		"pincode":     "560001",
		"category":    "street_light",
		"latitude":    "12.97",
		"longitude":   "77.59",
	}
}

func TestIssueLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	citizen := token(t, "citizen-1", lifecycle.ActorCitizen)
	admin := token(t, "admin-1", lifecycle.ActorAdmin)
	contractor := token(t, "user-c", lifecycle.ActorContractor)

	w := a.form(http.MethodPost, "/api/issues", citizen, reportFields(), map[string]string{"image": "jpeg"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issue := decode[models.Issue](t, w)
	assert.Equal(t, models.StatusPending, issue.Status)
	assert.Equal(t, models.CategoryStreetLight, issue.Category)
	assert.Equal(t, "/api/issues/"+issue.ID+"/image", issue.ImagePath)

	w = a.sendJSON(http.MethodPost, "/api/contractors", contractor, map[string]string{
		"fullName":     "Bright Lights Co",
		"phoneNumber":  "9876543210",
		"address":      "Depot 2",
		"assignedArea": "5600",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	profile := decode[models.Contractor](t, w)
	assert.False(t, profile.Approved)

	w = a.do(http.MethodGet, "/api/admin/contractors/pending", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Contractor](t, w), 1)

	w = a.do(http.MethodPut, "/api/admin/contractors/"+profile.ID+"/approve", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodGet, "/api/session", contractor, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, profile.ID, decode[lifecycle.Session](t, w).ContractorID)

	w = a.do(http.MethodPut, "/api/issues/"+issue.ID+"/status?status=VERIFIED", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPut, "/api/issues/"+issue.ID+"/assign/"+profile.ID, admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issue = decode[models.Issue](t, w)
	assert.Equal(t, models.StatusInProgress, issue.Status)

	w = a.do(http.MethodGet, "/api/issues/contractor", contractor, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Issue](t, w), 1)

	w = a.form(http.MethodPut, "/api/issues/"+issue.ID+"/status", contractor,
		map[string]string{"status": "COMPLETED_PENDING_APPROVAL"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "missing_evidence", decode[errorBody](t, w).Code)

	w = a.form(http.MethodPut, "/api/issues/"+issue.ID+"/status", contractor,
		map[string]string{"status": "COMPLETED_PENDING_APPROVAL", "remark": "bulb replaced"},
		map[string]string{"afterImage": "after", "beforeImage": "before"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issue = decode[models.Issue](t, w)
	assert.Equal(t, "/api/issues/"+issue.ID+"/image/after", issue.AfterImagePath)

	w = a.do(http.MethodGet, issue.AfterImagePath, admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "after", w.Body.String())
	w = a.do(http.MethodGet, issue.BeforeImagePath, contractor, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "before", w.Body.String())

	w = a.do(http.MethodPut, "/api/issues/"+issue.ID+"/status?status=RESOLVED&remark=verified", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	issue = decode[models.Issue](t, w)
	assert.Equal(t, models.StatusResolved, issue.Status)
	assert.Equal(t, "verified", issue.Remark)

	fb := map[string]any{"issueId": issue.ID, "rating": 4, "comment": "thanks"}
	w = a.sendJSON(http.MethodPost, "/api/feedback", citizen, fb)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.sendJSON(http.MethodPost, "/api/feedback", citizen, fb)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_exists", decode[errorBody](t, w).Code)

	w = a.do(http.MethodDelete, "/api/issues/"+issue.ID, citizen, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "delete_not_allowed", decode[errorBody](t, w).Code)

	w = a.do(http.MethodGet, "/api/analytics/summary", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[stats.Report](t, w)
	assert.Equal(t, 1, report.Summary.ByStatus[models.StatusResolved])
}

func TestCreateIssueValidation(t *testing.T) {
	a := newAPI(t)
	citizen := token(t, "citizen-1", lifecycle.ActorCitizen)

	fields := reportFields()
	fields["latitude"] = "north"
	w := a.form(http.MethodPost, "/api/issues", citizen, fields, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "validation_error", body.Code)
	assert.Equal(t, "latitude", body.Fields[0].Field)

	fields = reportFields()
	fields["description"] = "short"
	fields["pincode"] = "12"
	w = a.form(http.MethodPost, "/api/issues", citizen, fields, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode[errorBody](t, w)
	var names []string
	for _, f := range body.Fields {
		names = append(names, f.Field)
	}
	assert.Contains(t, names, "description")
	assert.Contains(t, names, "pincode")
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)
	citizen := token(t, "citizen-1", lifecycle.ActorCitizen)
	admin := token(t, "admin-1", lifecycle.ActorAdmin)

	w := a.do(http.MethodGet, "/api/issues", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/issues", citizen, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_authorized", decode[errorBody](t, w).Code)

	w = a.do(http.MethodGet, "/api/analytics/categories", citizen, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.form(http.MethodPost, "/api/issues", admin, reportFields(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/issues/missing", admin, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_issue", decode[errorBody](t, w).Code)
}

func TestStatusParameters(t *testing.T) {
	a := newAPI(t)
	citizen := token(t, "citizen-1", lifecycle.ActorCitizen)
	admin := token(t, "admin-1", lifecycle.ActorAdmin)

	w := a.form(http.MethodPost, "/api/issues", citizen, reportFields(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issue := decode[models.Issue](t, w)
	path := "/api/issues/" + issue.ID + "/status"

	w = a.do(http.MethodPut, path, admin, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPut, path+"?status=ARCHIVED", admin, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", decode[errorBody](t, w).Fields[0].Field)

	w = a.do(http.MethodPut, path+"?status=RESOLVED", admin, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "illegal_transition", decode[errorBody](t, w).Code)

	w = a.do(http.MethodGet, "/api/issues/"+issue.ID+"/transitions", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	edges := decode[[]lifecycle.Edge](t, w)
	require.Len(t, edges, 2)

	w = a.form(http.MethodPut, path, admin, map[string]string{"status": "rejected", "remark": "duplicate"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.Contains(w.Body.String(), `"REJECTED"`))
}

func TestIssueImages(t *testing.T) {
	a := newAPI(t)
	citizen := token(t, "citizen-1", lifecycle.ActorCitizen)
	neighbour := token(t, "citizen-2", lifecycle.ActorCitizen)
	admin := token(t, "admin-1", lifecycle.ActorAdmin)

	w := a.form(http.MethodPost, "/api/issues", citizen, reportFields(), map[string]string{"image": "jpeg-bytes"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issue := decode[models.Issue](t, w)

	w = a.do(http.MethodGet, issue.ImagePath, citizen, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "jpeg-bytes", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = a.do(http.MethodGet, issue.ImagePath, neighbour, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, issue.ImagePath, "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/issues/"+issue.ID+"/image/after", admin, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no_image", decode[errorBody](t, w).Code)

	w = a.do(http.MethodGet, "/api/issues/"+issue.ID+"/image/sideways", admin, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.form(http.MethodPost, "/api/issues", citizen, reportFields(), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	bare := decode[models.Issue](t, w)
	assert.Empty(t, bare.ImagePath)
	w = a.do(http.MethodGet, "/api/issues/"+bare.ID+"/image", citizen, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
