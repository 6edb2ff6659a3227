// Package client talks to the issue service over HTTP. It implements the
// collaborator interfaces of store, assignment and feedback, so the same
// core runs against a remote server.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/stats"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxElapsed = 10 * time.Second
)

// Client is bound to one bearer token; the session arguments of the
// collaborator interfaces are implied by it and not sent.
type Client struct {
	base       string
	token      string
	http       *http.Client
	maxElapsed time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetryWindow bounds how long idempotent reads are retried. Zero
// disables retries.
func WithRetryWindow(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: defaultTimeout},
		maxElapsed: defaultMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type errorBody struct {
	Error  string                 `json:"error"`
	Code   string                 `json:"code"`
	Fields []lifecycle.FieldError `json:"fields"`
}

// statusError is a non-2xx response that carried no known error code.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("server responded %d", e.status)
	}
	return fmt.Sprintf("server responded %d: %s", e.status, e.msg)
}

// decodeError turns an error response into the lifecycle kind named by its
// code, so errors.Is works across the wire.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		return &statusError{status: resp.StatusCode, msg: strings.TrimSpace(body.Error)}
	}
	if body.Code == "validation_error" && len(body.Fields) > 0 {
		return &lifecycle.ValidationError{Fields: body.Fields}
	}
	kind := lifecycle.FromCode(body.Code)
	if errors.Is(kind, lifecycle.ErrBackend) {
		return &statusError{status: resp.StatusCode, msg: body.Error}
	}
	return fmt.Errorf("%w: %s", kind, body.Error)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= http.StatusInternalServerError
	}
	var ue *url.Error
	return errors.As(err, &ue) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        func() (io.Reader, string, error)
	idempotent  bool
	wantStatus  int
	out         any
	description string
}

func (c *Client) do(ctx context.Context, r request) error {
	attempt := func() error {
		err := c.once(ctx, r)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	var err error
	if r.idempotent && c.maxElapsed > 0 {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 100 * time.Millisecond
		bo.MaxElapsedTime = c.maxElapsed
		err = backoff.Retry(attempt, backoff.WithContext(bo, ctx))
	} else {
		err = c.once(ctx, r)
	}
	return lifecycle.WrapBackend(r.description, err)
}

func (c *Client) once(ctx context.Context, r request) error {
	u := c.base + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	if r.body != nil {
		var err error
		body, contentType, err = r.body()
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	want := r.wantStatus
	if want == 0 {
		want = http.StatusOK
	}
	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if r.out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func jsonBody(v any) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// formBody encodes fields and uploads as multipart/form-data. Empty fields
// and absent uploads are left out.
func formBody(fields map[string]string, files map[string]*models.Upload) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			if v == "" {
				continue
			}
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
		for field, up := range files {
			if !up.Present() {
				continue
			}
			name := up.Name
			if name == "" {
				name = field
			}
			fw, err := mw.CreateFormFile(field, name)
			if err != nil {
				return nil, "", err
			}
			if _, err := fw.Write(up.Data); err != nil {
				return nil, "", err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil
	}
}

func coord(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// Session asks the server who the token belongs to.
func (c *Client) Session(ctx context.Context) (lifecycle.Session, error) {
	var sess lifecycle.Session
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/session", idempotent: true, out: &sess, description: "get session"})
	return sess, err
}

var scopePaths = map[lifecycle.Scope]string{
	lifecycle.ScopeAll:      "/api/issues",
	lifecycle.ScopeOwn:      "/api/issues/my",
	lifecycle.ScopeAssigned: "/api/issues/contractor",
}

func (c *Client) ListIssues(ctx context.Context, sess lifecycle.Session) ([]models.Issue, error) {
	var issues []models.Issue
	err := c.do(ctx, request{
		method:      http.MethodGet,
		path:        scopePaths[sess.Scope()],
		idempotent:  true,
		out:         &issues,
		description: "list issues",
	})
	return issues, err
}

func (c *Client) GetIssue(ctx context.Context, id string) (models.Issue, error) {
	var issue models.Issue
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/issues/" + url.PathEscape(id), idempotent: true, out: &issue, description: "get issue"})
	return issue, err
}

func (c *Client) AllowedTransitions(ctx context.Context, id string) ([]lifecycle.Edge, error) {
	var edges []lifecycle.Edge
	err := c.do(ctx, request{
		method:      http.MethodGet,
		path:        "/api/issues/" + url.PathEscape(id) + "/transitions",
		idempotent:  true,
		out:         &edges,
		description: "allowed transitions",
	})
	return edges, err
}

func (c *Client) CreateIssue(ctx context.Context, _ lifecycle.Session, draft models.IssueDraft) (models.Issue, error) {
	var issue models.Issue
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/issues",
		body: formBody(map[string]string{
			"description":   draft.Description,
			"address":       draft.Address,
			"pincode":       draft.Pincode,
			"category":      string(draft.Category),
			"otherCategory": draft.OtherCategory,
			"latitude":      coord(draft.Latitude),
			"longitude":     coord(draft.Longitude),
		}, map[string]*models.Upload{"image": draft.Image}),
		wantStatus:  http.StatusCreated,
		out:         &issue,
		description: "create issue",
	})
	return issue, err
}

func (c *Client) UpdateIssue(ctx context.Context, _ lifecycle.Session, id string, edit models.IssueEdit) (models.Issue, error) {
	var issue models.Issue
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/api/issues/" + url.PathEscape(id),
		body: formBody(map[string]string{
			"description":   edit.Description,
			"address":       edit.Address,
			"pincode":       edit.Pincode,
			"category":      string(edit.Category),
			"otherCategory": edit.OtherCategory,
		}, map[string]*models.Upload{"image": edit.Image}),
		out:         &issue,
		description: "update issue",
	})
	return issue, err
}

// UpdateStatus sends a plain transition as query parameters and a
// submission with images as multipart form.
func (c *Client) UpdateStatus(ctx context.Context, _ lifecycle.Session, id string, req lifecycle.Request) (models.Issue, error) {
	r := request{
		method:      http.MethodPut,
		path:        "/api/issues/" + url.PathEscape(id) + "/status",
		description: "update status",
	}
	p := req.Payload
	if p.AfterImage.Present() || p.BeforeImage.Present() {
		r.body = formBody(map[string]string{
			"status":       string(req.Target),
			"remark":       p.Remark,
			"contractorId": p.ContractorID,
		}, map[string]*models.Upload{"beforeImage": p.BeforeImage, "afterImage": p.AfterImage})
	} else {
		r.query = url.Values{"status": {string(req.Target)}, "remark": {p.Remark}}
		if p.ContractorID != "" {
			r.query.Set("contractorId", p.ContractorID)
		}
	}

	var issue models.Issue
	r.out = &issue
	err := c.do(ctx, r)
	return issue, err
}

func (c *Client) AssignIssue(ctx context.Context, _ lifecycle.Session, id, contractorID string) (models.Issue, error) {
	var issue models.Issue
	err := c.do(ctx, request{
		method:      http.MethodPut,
		path:        "/api/issues/" + url.PathEscape(id) + "/assign/" + url.PathEscape(contractorID),
		out:         &issue,
		description: "assign issue",
	})
	return issue, err
}

func (c *Client) DeleteIssue(ctx context.Context, _ lifecycle.Session, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/issues/" + url.PathEscape(id), description: "delete issue"})
}

func (c *Client) contractors(ctx context.Context, path string, query url.Values) ([]models.Contractor, error) {
	var list []models.Contractor
	err := c.do(ctx, request{method: http.MethodGet, path: path, query: query, idempotent: true, out: &list, description: "list contractors"})
	return list, err
}

func (c *Client) ListContractors(ctx context.Context) ([]models.Contractor, error) {
	return c.contractors(ctx, "/api/admin/contractors", nil)
}

func (c *Client) ApprovedContractors(ctx context.Context, _ lifecycle.Session) ([]models.Contractor, error) {
	return c.contractors(ctx, "/api/admin/contractors", url.Values{"approved": {"true"}})
}

func (c *Client) PendingContractors(ctx context.Context, _ lifecycle.Session) ([]models.Contractor, error) {
	return c.contractors(ctx, "/api/admin/contractors/pending", nil)
}

func (c *Client) ApproveContractor(ctx context.Context, id string) (models.Contractor, error) {
	var out models.Contractor
	err := c.do(ctx, request{method: http.MethodPut, path: "/api/admin/contractors/" + url.PathEscape(id) + "/approve", out: &out, description: "approve contractor"})
	return out, err
}

func (c *Client) RemoveContractor(ctx context.Context, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/admin/contractors/" + url.PathEscape(id), description: "remove contractor"})
}

// RegisterContractor creates the caller's contractor profile.
func (c *Client) RegisterContractor(ctx context.Context, profile models.Contractor) (models.Contractor, error) {
	var out models.Contractor
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/contractors",
		body:        jsonBody(profile),
		wantStatus:  http.StatusCreated,
		out:         &out,
		description: "register contractor",
	})
	return out, err
}

func (c *Client) Profile(ctx context.Context) (models.Contractor, error) {
	var out models.Contractor
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/contractors/me", idempotent: true, out: &out, description: "get contractor profile"})
	return out, err
}

func (c *Client) SubmitFeedback(ctx context.Context, _ lifecycle.Session, fb models.Feedback) (models.Feedback, error) {
	var out models.Feedback
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/feedback",
		body: jsonBody(map[string]any{
			"issueId": fb.IssueID,
			"rating":  fb.Rating,
			"comment": fb.Comment,
		}),
		wantStatus:  http.StatusCreated,
		out:         &out,
		description: "submit feedback",
	})
	return out, err
}

func (c *Client) ListFeedback(ctx context.Context, _ lifecycle.Session) ([]models.Feedback, error) {
	var out []models.Feedback
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/feedback", idempotent: true, out: &out, description: "list feedback"})
	return out, err
}

func (c *Client) Summary(ctx context.Context) (stats.Report, error) {
	var out stats.Report
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/analytics/summary", idempotent: true, out: &out, description: "analytics summary"})
	return out, err
}

func (c *Client) Categories(ctx context.Context) (map[models.IssueCategory]int, error) {
	var out map[models.IssueCategory]int
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/analytics/categories", idempotent: true, out: &out, description: "analytics categories"})
	return out, err
}

func (c *Client) Locations(ctx context.Context, limit int) ([]models.Location, error) {
	var out []models.Location
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/analytics/locations", query: q, idempotent: true, out: &out, description: "analytics locations"})
	return out, err
}
