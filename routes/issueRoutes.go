package routes

import (
	"github.com/gin-gonic/gin"

	"civicresolve/controllers"
)

// IssueRoutes sets up the issue routes. limiter, when not nil, guards
// issue creation.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, auth, limiter gin.HandlerFunc) {
	create := []gin.HandlerFunc{auth}
	if limiter != nil {
		create = append(create, limiter)
	}
	create = append(create, ic.CreateIssue)

	issue := r.Group("/api/issues", auth)
	{
		issue.GET("", ic.GetAllIssues)
		issue.GET("/my", ic.GetMyIssues)
		issue.GET("/contractor", ic.GetAssignedIssues)
		issue.GET("/:id", ic.GetIssue)
		issue.GET("/:id/transitions", ic.GetTransitions)
		issue.GET("/:id/image", ic.GetImage)
		issue.GET("/:id/image/:kind", ic.GetEvidenceImage)
		issue.PUT("/:id", ic.UpdateIssue)
		issue.PUT("/:id/status", ic.UpdateStatus)
		issue.PUT("/:id/assign/:contractorId", ic.AssignIssue)
		issue.DELETE("/:id", ic.DeleteIssue)
	}
	r.POST("/api/issues", create...)
}
