package routes

import (
	"github.com/gin-gonic/gin"
)

// SetupWebRoutes registers the informational pages.
func SetupWebRoutes(router *gin.Engine) {
	web := router.Group("/")
	{
		web.GET("/", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"message": "Address Audit Service",
				"version": "1.0.0",
				"docs":    "/docs",
			})
		})

		web.GET("/docs", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"api": "Address Audit API v1",
				"endpoints": map[string]string{
					"compare":    "POST /compare",
					"seed":       "POST /v1/admin/seed",
					"run":        "POST /v1/admin/run",
					"evaluate":   "POST /v1/admin/evaluate",
					"poi_search": "GET /v1/admin/pois/search",
					"health":     "GET /health",
				},
			})
		})

		web.GET("/status", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "running",
				"service": "Address Audit",
			})
		})
	}
}
