// Package api serves captured deals over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(handler *Handler, logger logrus.FieldLogger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", handler.HealthCheck)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/deals", handler.ListDeals)
		apiGroup.GET("/stores", handler.ListStores)
	}

	return router
}

// LoggerMiddleware logs each request through logrus.
func LoggerMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("Request served")
	}
}
