package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"github.com/zologic/city-ride/internal/handler"
	"github.com/zologic/city-ride/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PricingHandler     *handler.PricingHandler
	BookingHandler     *handler.BookingHandler
	DriverHandler      *handler.DriverHandler
	DiscountHandler    *handler.DiscountHandler
	StatsHandler       *handler.StatsHandler
	IntegrationHandler *handler.IntegrationHandler
	WebhookHandler     *handler.WebhookHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.Idempotency(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Pricing routes.
		v1.POST("/pricing/quote", deps.PricingHandler.Quote)
		v1.POST("/discounts/validate", deps.PricingHandler.ValidateDiscount)

		// Payment routes.
		v1.POST("/payments/intent", deps.BookingHandler.CreatePaymentIntent)
		v1.GET("/payments/intent/:id", deps.BookingHandler.GetPaymentIntent)

		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.CreateBooking)
			bookings.GET("", deps.BookingHandler.ListRides)
			bookings.GET("/:id", deps.BookingHandler.GetRide)
			bookings.POST("/:id/assign", deps.BookingHandler.AssignDriver)
			bookings.POST("/:id/complete", deps.BookingHandler.CompleteRide)
			bookings.POST("/:id/cancel", deps.BookingHandler.CancelRide)
			bookings.POST("/:id/no-show", deps.BookingHandler.MarkNoShow)
			bookings.PATCH("/:id/notes", deps.BookingHandler.UpdateNotes)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Create)
			drivers.GET("", deps.DriverHandler.List)
			drivers.GET("/:id", deps.DriverHandler.Get)
			drivers.PUT("/:id", deps.DriverHandler.Update)
			drivers.DELETE("/:id", deps.DriverHandler.Delete)
			drivers.GET("/:id/earnings", deps.DriverHandler.Earnings)
		}

		// Discount code routes.
		discounts := v1.Group("/discount-codes")
		{
			discounts.POST("", deps.DiscountHandler.Create)
			discounts.GET("", deps.DiscountHandler.List)
			discounts.PUT("/:id", deps.DiscountHandler.Update)
			discounts.PATCH("/:id/active", deps.DiscountHandler.SetActive)
			discounts.DELETE("/:id", deps.DiscountHandler.Delete)
		}

		// Statistics routes.
		stats := v1.Group("/stats")
		{
			stats.GET("/dashboard", deps.StatsHandler.Dashboard)
			stats.GET("/drivers", deps.StatsHandler.Drivers)
			stats.GET("/key-metrics", deps.StatsHandler.KeyMetrics)
			stats.GET("/peak-hours", deps.StatsHandler.PeakHours)
			stats.GET("/status-distribution", deps.StatsHandler.StatusDistribution)
			stats.GET("/analytics", deps.StatsHandler.Analytics)
		}

		// Outbound webhook operator routes.
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/test", deps.WebhookHandler.SendTest)
			webhooks.GET("/failures", deps.WebhookHandler.Failures)
			webhooks.GET("/last-status", deps.WebhookHandler.LastStatus)
		}
	}

	// Inbound provider callbacks.
	integration := router.Group("/integration")
	{
		integration.POST("/sms-delivery", deps.IntegrationHandler.DeliveryReport)
		integration.POST("/sms-message-id", deps.IntegrationHandler.LinkMessage)
		integration.POST("/payment-webhook", deps.IntegrationHandler.PaymentWebhook)
	}

	return router
}
