package routes

import (
	"github.com/gin-gonic/gin"

	"civicresolve/controllers"
	"civicresolve/middlewares"
	"civicresolve/service"
)

// Setup registers every API route on r. issueLimiter may be nil.
func Setup(r *gin.Engine, svc *service.Services, secret string, issueLimiter gin.HandlerFunc) {
	auth := middlewares.AuthMiddleware(secret, svc.Contractors)

	AuthRoutes(r, auth)
	IssueRoutes(r, controllers.NewIssueController(svc.Issues), auth, issueLimiter)
	ContractorRoutes(r, controllers.NewContractorController(svc.Contractors), auth)
	FeedbackRoutes(r, controllers.NewFeedbackController(svc.Feedback), auth)
	AnalyticsRoutes(r, controllers.NewAnalyticsController(svc.Analytics), auth)
}
