package http

import (
	"github.com/gin-gonic/gin"

	"github.com/widgetml/gatekeeper/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(handlers *AuthHandlers, gate *service.Gate) *gin.Engine {
	router := gin.Default()

	// Token issuance and lifecycle
	auth := router.Group("/auth")
	{
		auth.POST("/login", handlers.Login)
		auth.POST("/refresh", handlers.Refresh)
		auth.POST("/logout", handlers.Logout)
	}

	// Email verification and password recovery links
	verify := router.Group("/verify")
	{
		verify.POST("/request", handlers.RequestVerification)
		verify.POST("/confirm", handlers.ConfirmVerification)
	}

	// Human challenge
	router.GET("/challenge", handlers.Challenge)

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(gate))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
		api.POST("/revoke-all", handlers.RevokeAll)
	}

	return router
}
