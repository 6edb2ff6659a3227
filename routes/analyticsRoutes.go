package routes

import (
	"github.com/gin-gonic/gin"

	"civicresolve/controllers"
)

func AnalyticsRoutes(r *gin.Engine, ac *controllers.AnalyticsController, auth gin.HandlerFunc) {
	analytics := r.Group("/api/analytics", auth)
	{
		analytics.GET("/summary", ac.GetSummary)
		analytics.GET("/categories", ac.GetCategories)
		analytics.GET("/locations", ac.GetLocations)
	}
}
