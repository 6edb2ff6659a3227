package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"civicresolve/models"
	"civicresolve/service"
)

type FeedbackController struct {
	feedback *service.FeedbackService
}

func NewFeedbackController(feedback *service.FeedbackService) *FeedbackController {
	return &FeedbackController{feedback: feedback}
}

// SubmitFeedback records the caller's rating of a resolved issue.
func (fc *FeedbackController) SubmitFeedback(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var input struct {
		IssueID string `json:"issueId"`
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_error"})
		return
	}

	fb, err := fc.feedback.SubmitFeedback(c.Request.Context(), sess, models.Feedback{
		IssueID: input.IssueID,
		Rating:  input.Rating,
		Comment: input.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (fc *FeedbackController) GetFeedback(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	list, err := fc.feedback.ListFeedback(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
