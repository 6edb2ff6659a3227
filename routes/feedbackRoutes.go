package routes

import (
	"github.com/gin-gonic/gin"

	"civicresolve/controllers"
)

func FeedbackRoutes(r *gin.Engine, fc *controllers.FeedbackController, auth gin.HandlerFunc) {
	feedback := r.Group("/api/feedback", auth)
	{
		feedback.POST("", fc.SubmitFeedback)
		feedback.GET("", fc.GetFeedback)
	}
}
