package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/minisocial/internal/container"
	"github.com/joshua-takyi/minisocial/internal/handlers"
	"github.com/joshua-takyi/minisocial/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	cookie := container.SessionCookie
	requireAuth := middleware.AuthMiddleware(container.Guard, cookie)
	optionalAuth := middleware.OptionalAuth(container.Guard, cookie, container.Logger)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "minisocial-api",
			})
		})
	}

	auth := api.Group("/auth")
	{
		auth.POST("/signup", handlers.Signup(container.IdentityService))
		auth.POST("/verify-otp", handlers.VerifyOTP(container.IdentityService, cookie))
		auth.POST("/login", handlers.Login(container.IdentityService, cookie))
		auth.POST("/forgot", handlers.ForgotPassword(container.IdentityService))
		auth.POST("/forgot/verify-otp", handlers.VerifyForgotOTP(container.IdentityService))
		auth.POST("/reset-password", handlers.ResetPassword(container.IdentityService))
		auth.POST("/logout", requireAuth, handlers.Logout(container.IdentityService, cookie))
		auth.POST("/delete-account", requireAuth, handlers.DeleteAccount(container.IdentityService, cookie))
	}

	feed := api.Group("/feed", requireAuth)
	{
		feed.GET("", handlers.GetFeed(container.FeedService))
		feed.POST("/create", handlers.CreatePost(container.FeedService))
		feed.POST("/:id/like", handlers.ToggleLike(container.FeedService))
		feed.PUT("/posts/:id", handlers.EditPost(container.FeedService))
		feed.DELETE("/posts/:id", handlers.DeletePost(container.FeedService))
	}

	people := api.Group("/people")
	{
		people.GET("", optionalAuth, handlers.ListPeople(container.SocialService))
		people.GET("/:id", optionalAuth, handlers.GetProfile(container.SocialService))
		people.POST("/:id/follow", requireAuth, handlers.Follow(container.SocialService))
	}

	return r
}
