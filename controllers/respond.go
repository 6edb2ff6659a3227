package controllers

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"civicresolve/lifecycle"
	"civicresolve/middlewares"
	"civicresolve/models"
)

// maxUpload bounds a single evidence image.
const maxUpload = 10 << 20

var statusByCode = map[string]int{
	"validation_error":             http.StatusBadRequest,
	"invalid_rating":               http.StatusBadRequest,
	"not_authorized":               http.StatusForbidden,
	"unknown_issue":                http.StatusNotFound,
	"unknown_contractor":           http.StatusNotFound,
	"no_image":                     http.StatusNotFound,
	"illegal_transition":           http.StatusConflict,
	"contractor_not_approved":      http.StatusConflict,
	"invalid_state_for_assignment": http.StatusConflict,
	"area_mismatch":                http.StatusConflict,
	"delete_not_allowed":           http.StatusConflict,
	"edit_not_allowed":             http.StatusConflict,
	"issue_not_resolved":           http.StatusConflict,
	"already_exists":               http.StatusConflict,
	"missing_evidence":             http.StatusUnprocessableEntity,
}

// respondError writes err as {"error", "code"} with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	code := lifecycle.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong", "code": code})
		return
	}

	body := gin.H{"error": err.Error(), "code": code}
	var ve *lifecycle.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	c.AbortWithStatusJSON(status, body)
}

func invalidField(field, rule string) error {
	return &lifecycle.ValidationError{Fields: []lifecycle.FieldError{{Field: field, Rule: rule}}}
}

// session returns the caller's session or aborts with 401.
func session(c *gin.Context) (lifecycle.Session, bool) {
	sess, ok := middlewares.CurrentSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "not_authorized"})
	}
	return sess, ok
}

// readUpload reads an optional file field. A missing file or a
// non-multipart request yields nil.
func readUpload(c *gin.Context, field string) (*models.Upload, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, invalidField(field, "file")
	}
	if fh.Size > maxUpload {
		return nil, invalidField(field, "max")
	}
	return loadUpload(fh)
}

func loadUpload(fh *multipart.FileHeader) (*models.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		return nil, err
	}
	return &models.Upload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// formFloat parses an optional coordinate. Empty means not given.
func formFloat(c *gin.Context, field string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalidField(field, "number")
	}
	return &v, nil
}

// param reads a value from the query string, falling back to the form body.
func param(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return v
	}
	return c.PostForm(key)
}
