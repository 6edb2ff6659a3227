package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"civicresolve/service"
)

type AnalyticsController struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsController(analytics *service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

func (ac *AnalyticsController) GetSummary(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	report, err := ac.analytics.Summary(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ac *AnalyticsController) GetCategories(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	counts, err := ac.analytics.Categories(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GetLocations returns issue coordinates for the map view.
func (ac *AnalyticsController) GetLocations(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	locs, err := ac.analytics.Locations(c.Request.Context(), sess, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, locs)
}
