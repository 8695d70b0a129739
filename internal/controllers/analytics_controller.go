package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlink-be/internal/middleware"
	"shortlink-be/internal/models"
	"shortlink-be/internal/service"
)

type AnalyticsController struct {
	analytics service.AnalyticsService
}

func NewAnalyticsController(analytics service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// Clicks handles GET /api/v1/analytics/clicks/:code
func (ac *AnalyticsController) Clicks(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	resp, err := ac.analytics.Clicks(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AllClicks handles GET /api/v1/analytics/clicks
func (ac *AnalyticsController) AllClicks(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	resp, err := ac.analytics.AllClicks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExpiredClicks handles GET /api/v1/analytics/expired
func (ac *AnalyticsController) ExpiredClicks(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	resp, err := ac.analytics.ExpiredClicks(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GeoBreakdown handles GET /api/v1/analytics/geo/:code
func (ac *AnalyticsController) GeoBreakdown(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	resp, err := ac.analytics.GeoBreakdown(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeviceBreakdown handles GET /api/v1/analytics/devices/:code
func (ac *AnalyticsController) DeviceBreakdown(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	resp, err := ac.analytics.DeviceBreakdown(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Summary handles GET /api/v1/analytics/summary/:code
func (ac *AnalyticsController) Summary(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	resp, err := ac.analytics.Summary(c.Request.Context(), c.Param("code"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FilterVisits handles GET /api/v1/analytics/visits
func (ac *AnalyticsController) FilterVisits(c *gin.Context) {
	var query models.VisitFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)

	visits, err := ac.analytics.FilterVisits(c.Request.Context(), userID, query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":        visits,
		"total_count": len(visits),
	})
}
