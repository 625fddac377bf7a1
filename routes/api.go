package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/address-audit/app/controllers"
)

// SetupAPIRoutes registers the comparison and admin endpoints.
func SetupAPIRoutes(router *gin.Engine, compareController *controllers.CompareController, adminController *controllers.AdminController) {
	router.POST("/compare", compareController.Compare)

	v1 := router.Group("/v1")
	{
		admin := v1.Group("/admin")
		{
			admin.POST("/seed", adminController.Seed)
			admin.POST("/run", adminController.Run)
			admin.POST("/evaluate", adminController.Evaluate)
			admin.GET("/pois/search", adminController.SearchPOIs)
		}

		v1.GET("/health", compareController.HealthCheck)
	}
}

// SetupHealthRoutes registers the probe endpoints.
func SetupHealthRoutes(router *gin.Engine, compareController *controllers.CompareController) {
	router.GET("/health", compareController.HealthCheck)
	router.GET("/ready", compareController.HealthCheck)
	router.GET("/live", compareController.HealthCheck)
}

// SetupAllRoutes wires middleware, every route group, and the 404 handler.
func SetupAllRoutes(router *gin.Engine, compareController *controllers.CompareController, adminController *controllers.AdminController) {
	setupMiddleware(router)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, compareController)
	SetupAPIRoutes(router, compareController, adminController)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "Route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

func setupMiddleware(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
}
