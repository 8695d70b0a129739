package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"shortlink-be/internal/middleware"
)

// RateLimiters are optional; a nil limiter disables limiting for its routes
type RateLimiters struct {
	General  *middleware.RateLimiter
	Shorten  *middleware.RateLimiter
	Redirect *middleware.RateLimiter
}

type RouterConfig struct {
	Links     *LinkController
	Shortener *ShortenerController
	Analytics *AnalyticsController
	QRCode    *QRCodeController
	Tokens    middleware.TokenValidator
	Limits    RateLimiters
	Log       zerolog.Logger
}

func limit(rl *middleware.RateLimiter) gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return rl.LimitMiddleware()
}

// NewRouter registers every route of the service
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(cfg.Log))

	// Health check endpoint (no rate limiting)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Redirect endpoint with lenient rate limiting
	router.GET("/:code", limit(cfg.Limits.Redirect), cfg.Shortener.RedirectToURL)

	requireAuth := middleware.AuthMiddleware(cfg.Tokens)

	api := router.Group("/api/v1")
	api.Use(limit(cfg.Limits.General))
	{
		api.POST("/resolve/:code", limit(cfg.Limits.Redirect), cfg.Shortener.Resolve)

		links := api.Group("/links")
		{
			links.POST("", limit(cfg.Limits.Shorten), middleware.OptionalAuth(cfg.Tokens), cfg.Links.CreateLink)
			links.GET("", requireAuth, cfg.Links.ListLinks)
			links.GET("/:id", requireAuth, cfg.Links.GetLink)
			links.PUT("/:id", requireAuth, cfg.Links.UpdateLink)
			links.DELETE("/:id", requireAuth, cfg.Links.DeleteLink)
		}

		visits := api.Group("/visits")
		{
			visits.POST("/:id/password", cfg.Shortener.ValidateVisitPassword)
			visits.DELETE("/:id", requireAuth, cfg.Shortener.DeleteVisit)
		}

		analytics := api.Group("/analytics", requireAuth)
		{
			analytics.GET("/clicks", cfg.Analytics.AllClicks)
			analytics.GET("/clicks/:code", cfg.Analytics.Clicks)
			analytics.GET("/geo/:code", cfg.Analytics.GeoBreakdown)
			analytics.GET("/devices/:code", cfg.Analytics.DeviceBreakdown)
			analytics.GET("/summary/:code", cfg.Analytics.Summary)
			analytics.GET("/expired", cfg.Analytics.ExpiredClicks)
			analytics.GET("/visits", cfg.Analytics.FilterVisits)
		}

		api.GET("/qrcode/:code", cfg.QRCode.GenerateQRCode)
	}

	return router
}
