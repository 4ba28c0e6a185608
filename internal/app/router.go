package app

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/config"
	"carpool/internal/domain"
	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	RideHandler    *handler.RideHandler
	BookingHandler *handler.BookingHandler
	ReviewHandler  *handler.ReviewHandler
	JWTConfig      *config.JWTConfig
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(cors.Default())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := middleware.AuthMiddleware(deps.JWTConfig)
	driverOnly := middleware.RequireRole(domain.Role.CanDrive)
	passengerOnly := middleware.RequireRole(domain.Role.CanBook)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Auth routes.
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", deps.AuthHandler.Register)
			authGroup.POST("/login", deps.AuthHandler.Login)
		}

		// User routes.
		users := v1.Group("/users")
		{
			users.GET("/:id", deps.UserHandler.GetUser)
			users.GET("/:id/rating", deps.UserHandler.GetUserRating)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.GET("/search", deps.RideHandler.SearchRides)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.POST("", auth, driverOnly, deps.RideHandler.PublishRide)
			rides.GET("/driver/mine", auth, deps.RideHandler.ListMine)
			rides.PUT("/:id", auth, deps.RideHandler.UpdateRide)
			rides.POST("/:id/cancel", auth, deps.RideHandler.CancelRide)
			rides.POST("/:id/complete", auth, deps.RideHandler.CompleteRide)
		}

		// Booking routes.
		bookings := v1.Group("/bookings", auth)
		{
			bookings.POST("", passengerOnly, deps.BookingHandler.CreateBooking)
			bookings.GET("/mine", deps.BookingHandler.ListMine)
			bookings.GET("/ride/:id", deps.BookingHandler.ListByRide)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.POST("/:id/cancel", deps.BookingHandler.CancelBooking)
			bookings.PUT("/:id/status", deps.BookingHandler.SetStatus)
			bookings.POST("/:id/pay", deps.BookingHandler.MarkPaid)
			bookings.GET("/:id/receipt", deps.BookingHandler.GetReceipt)
		}

		// Review routes.
		reviews := v1.Group("/reviews")
		{
			reviews.POST("", auth, passengerOnly, deps.ReviewHandler.SubmitReview)
			reviews.GET("/user/:id", deps.ReviewHandler.ListForUser)
			reviews.GET("/by-user/:id", deps.ReviewHandler.ListByReviewer)
		}
	}

	return router
}
