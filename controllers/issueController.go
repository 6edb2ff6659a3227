package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"civicresolve/lifecycle"
	"civicresolve/models"
	"civicresolve/repository"
	"civicresolve/service"
)

type IssueController struct {
	issues *service.IssueService
}

func NewIssueController(issues *service.IssueService) *IssueController {
	return &IssueController{issues: issues}
}

func (ic *IssueController) list(c *gin.Context, scope lifecycle.Scope) {
	sess, ok := session(c)
	if !ok {
		return
	}
	issues, err := ic.issues.ListIssuesIn(c.Request.Context(), sess, scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetAllIssues lists every issue (admin).
func (ic *IssueController) GetAllIssues(c *gin.Context) { ic.list(c, lifecycle.ScopeAll) }

// GetMyIssues lists the issues the calling citizen reported.
func (ic *IssueController) GetMyIssues(c *gin.Context) { ic.list(c, lifecycle.ScopeOwn) }

// GetAssignedIssues lists the issues assigned to the calling contractor.
func (ic *IssueController) GetAssignedIssues(c *gin.Context) { ic.list(c, lifecycle.ScopeAssigned) }

func (ic *IssueController) GetIssue(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	issue, err := ic.issues.GetIssue(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// GetTransitions returns the edges the caller may take from the issue's
// current state.
func (ic *IssueController) GetTransitions(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	edges, err := ic.issues.AllowedTransitions(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, edges)
}

// GetImage serves the image the citizen attached to the report.
func (ic *IssueController) GetImage(c *gin.Context) {
	ic.image(c, repository.EvidenceImage)
}

// GetEvidenceImage serves the contractor's before or after image.
func (ic *IssueController) GetEvidenceImage(c *gin.Context) {
	kind := c.Param("kind")
	if kind != repository.EvidenceBefore && kind != repository.EvidenceAfter {
		respondError(c, lifecycle.ErrNoImage)
		return
	}
	ic.image(c, kind)
}

func (ic *IssueController) image(c *gin.Context, kind string) {
	sess, ok := session(c)
	if !ok {
		return
	}
	up, err := ic.issues.Image(c.Request.Context(), sess, c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, up.Data)
}

// CreateIssue handles the multipart report of a new issue.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	lat, err := formFloat(c, "latitude")
	if err != nil {
		respondError(c, err)
		return
	}
	lng, err := formFloat(c, "longitude")
	if err != nil {
		respondError(c, err)
		return
	}
	image, err := readUpload(c, "image")
	if err != nil {
		respondError(c, err)
		return
	}

	draft := models.IssueDraft{
		Description:   strings.TrimSpace(c.PostForm("description")),
		Address:       strings.TrimSpace(c.PostForm("address")),
		Pincode:       strings.TrimSpace(c.PostForm("pincode")),
		Category:      models.IssueCategory(strings.ToUpper(strings.TrimSpace(c.PostForm("category")))),
		OtherCategory: strings.TrimSpace(c.PostForm("otherCategory")),
		Latitude:      lat,
		Longitude:     lng,
		Image:         image,
	}

	issue, err := ic.issues.CreateIssue(c.Request.Context(), sess, draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// UpdateIssue applies a citizen's edit while the issue is still pending.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	image, err := readUpload(c, "image")
	if err != nil {
		respondError(c, err)
		return
	}

	edit := models.IssueEdit{
		Description:   strings.TrimSpace(c.PostForm("description")),
		Address:       strings.TrimSpace(c.PostForm("address")),
		Pincode:       strings.TrimSpace(c.PostForm("pincode")),
		Category:      models.IssueCategory(strings.ToUpper(strings.TrimSpace(c.PostForm("category")))),
		OtherCategory: strings.TrimSpace(c.PostForm("otherCategory")),
		Image:         image,
	}

	issue, err := ic.issues.UpdateIssue(c.Request.Context(), sess, c.Param("id"), edit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateStatus serves both the admin's query-string transitions and the
// contractor's multipart completion submission.
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	target := models.IssueStatus(strings.ToUpper(strings.TrimSpace(param(c, "status"))))
	if target == "" {
		respondError(c, invalidField("status", "required"))
		return
	}
	before, err := readUpload(c, "beforeImage")
	if err != nil {
		respondError(c, err)
		return
	}
	after, err := readUpload(c, "afterImage")
	if err != nil {
		respondError(c, err)
		return
	}

	req := lifecycle.Request{
		Target: target,
		Payload: lifecycle.Payload{
			Remark:       param(c, "remark"),
			ContractorID: param(c, "contractorId"),
			BeforeImage:  before,
			AfterImage:   after,
		},
	}
	issue, err := ic.issues.UpdateStatus(c.Request.Context(), sess, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (ic *IssueController) AssignIssue(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	issue, err := ic.issues.AssignIssue(c.Request.Context(), sess, c.Param("id"), c.Param("contractorId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

func (ic *IssueController) DeleteIssue(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	if err := ic.issues.DeleteIssue(c.Request.Context(), sess, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}
