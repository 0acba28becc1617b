package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/middleware"
	"tour-booking/internal/models"
	"tour-booking/internal/services"
	"tour-booking/internal/utils"
)

// HealthChecker is satisfied by every store
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type RouterDeps struct {
	Config   *config.Config
	Services *services.Services
	Health   HealthChecker
	Log      *logger.Logger
}

// NewRouter wires middleware, guards and handlers for every /api route
func NewRouter(d RouterDeps) *gin.Engine {
	cfg := d.Config
	log := d.Log
	svc := d.Services

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.RegisterJSONFieldNames()

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.EnhancedLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.SecurityHeaders(log))
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log))
	router.Use(middleware.ErrorHandler(cfg.IsProduction(), log))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Route not found"))
	})

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := d.Health.HealthCheck(ctx); err != nil {
			log.Error("HEALTH", "Store health check failed: "+err.Error())
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
		})
	})

	requireAuth := middleware.RequireAuth(svc.Auth, log)
	optionalAuth := middleware.OptionalAuth(svc.Auth)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	bookingOwner := middleware.RequireOwnership("id", func(ctx context.Context, id int64) (int64, error) {
		b, err := svc.Bookings.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		return b.UserID, nil
	})
	reviewOwner := middleware.RequireOwnership("id", func(ctx context.Context, id int64) (int64, error) {
		r, err := svc.Reviews.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		return r.UserID, nil
	})

	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	tourHandler := NewTourHandler(svc.Tours)
	cityHandler := NewCityHandler(svc.Cities)
	categoryHandler := NewCategoryHandler(svc.Categories)
	bookingHandler := NewBookingHandler(svc.Bookings)
	paymentHandler := NewPaymentHandler(svc.Payments)
	stripeHandler := NewStripeHandler(svc.Payments)
	reviewHandler := NewReviewHandler(svc.Reviews)
	exportHandler := NewExportHandler(svc.Exports)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.Me)
			auth.PUT("/profile", requireAuth, authHandler.UpdateProfile)
			auth.PUT("/password", requireAuth, authHandler.ChangePassword)
		}

		users := api.Group("/users", requireAuth, adminOnly)
		{
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		tours := api.Group("/tours")
		{
			tours.GET("", optionalAuth, tourHandler.List)
			tours.GET("/:id", optionalAuth, tourHandler.Get)
			tours.POST("", requireAuth, adminOnly, tourHandler.Create)
			tours.PUT("/:id", requireAuth, adminOnly, tourHandler.Update)
			tours.DELETE("/:id", requireAuth, adminOnly, tourHandler.Delete)
		}

		cities := api.Group("/cities")
		{
			cities.GET("", cityHandler.List)
			cities.GET("/:id", cityHandler.Get)
			cities.POST("", requireAuth, adminOnly, cityHandler.Create)
			cities.PUT("/:id", requireAuth, adminOnly, cityHandler.Update)
			cities.DELETE("/:id", requireAuth, adminOnly, cityHandler.Delete)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", categoryHandler.List)
			categories.GET("/:id", categoryHandler.Get)
			categories.POST("", requireAuth, adminOnly, categoryHandler.Create)
			categories.PUT("/:id", requireAuth, adminOnly, categoryHandler.Update)
			categories.DELETE("/:id", requireAuth, adminOnly, categoryHandler.Delete)
		}

		bookings := api.Group("/bookings", requireAuth)
		{
			bookings.POST("", bookingHandler.Create)
			bookings.GET("", bookingHandler.List)
			bookings.GET("/stats", adminOnly, bookingHandler.Stats)
			bookings.GET("/:id", bookingOwner, bookingHandler.Get)
			bookings.PUT("/:id", bookingOwner, bookingHandler.Update)
			bookings.DELETE("/:id", bookingOwner, bookingHandler.Cancel)
			bookings.POST("/:id/payment", bookingOwner, paymentHandler.ProcessPayment)
			bookings.GET("/:id/payment", bookingOwner, paymentHandler.GetBookingPayment)
			bookings.POST("/:id/payment-intent", bookingOwner, stripeHandler.CreatePaymentIntent)
		}

		api.GET("/payments", requireAuth, adminOnly, paymentHandler.List)

		reviews := api.Group("/reviews")
		{
			reviews.GET("", optionalAuth, reviewHandler.List)
			reviews.GET("/my", requireAuth, reviewHandler.Mine)
			reviews.POST("", requireAuth, reviewHandler.Create)
			reviews.PUT("/:id", requireAuth, reviewOwner, reviewHandler.Update)
			reviews.DELETE("/:id", requireAuth, reviewOwner, reviewHandler.Delete)
		}

		export := api.Group("/export", requireAuth)
		{
			export.GET("/booking/:id/invoice", bookingOwner, exportHandler.Invoice)
			export.GET("/bookings/csv", adminOnly, exportHandler.BookingsCSV)
			export.GET("/bookings/excel", adminOnly, exportHandler.BookingsExcel)
		}
	}

	log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
