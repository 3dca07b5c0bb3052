package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/niaga-platform/service-replacement/internal/handlers"
	"github.com/niaga-platform/service-replacement/internal/middleware"
)

// RouteConfig holds configuration for routes
type RouteConfig struct {
	ReplacementHandler *handlers.ReplacementHandler
	AdminHandler       *handlers.AdminHandler
	JWTManager         *middleware.JWTManager
	SubmitLimiter      *middleware.RateLimiter // optional
}

// SetupRoutes configures all routes
func SetupRoutes(router *gin.Engine, cfg *RouteConfig) {
	router.SetHTMLTemplate(handlers.Templates())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "replacement",
			"time":    time.Now().UTC(),
		})
	})

	auth := middleware.AuthMiddleware(cfg.JWTManager)
	submitLimit := func(c *gin.Context) { c.Next() }
	if cfg.SubmitLimiter != nil {
		submitLimit = cfg.SubmitLimiter.Middleware()
	}

	// Customer account pages
	account := router.Group("/my-account")
	account.Use(auth)
	{
		account.GET("/orders", cfg.ReplacementHandler.OrdersPage)
		account.GET("/view-order/:order_id", cfg.ReplacementHandler.ViewOrder)
		account.POST("/replacement-request", submitLimit, cfg.ReplacementHandler.SubmitForm)
	}

	// API v1 routes
	v1 := router.Group("/api/v1")

	replacements := v1.Group("/replacements")
	replacements.Use(auth)
	{
		replacements.GET("/orders/:order_id/eligibility", cfg.ReplacementHandler.GetEligibility)
		replacements.POST("", submitLimit, cfg.ReplacementHandler.Submit)
	}

	// Admin routes (require authentication and admin role)
	admin := v1.Group("/admin/replacements")
	admin.Use(auth)
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("", cfg.AdminHandler.List)
		admin.GET("/orders/labels", cfg.AdminHandler.GetOrderLabels)
		admin.GET("/orders/:order_id", cfg.AdminHandler.GetOrder)
		admin.GET("/refund-requests/labels", cfg.AdminHandler.GetRefundRequestLabels)
		admin.GET("/refund-requests/:id", cfg.AdminHandler.GetRefundRequest)
	}
}
