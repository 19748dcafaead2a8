package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"elpa-backend/internal/shared/middleware"
	"elpa-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	router.GET("/health", healthCheckHandler(c))

	auth := middleware.TokenAuth(c.UserService)

	// JSON API
	v1 := router.Group("/v1")
	c.UserHandler.RegisterRoutes(v1, auth)

	// package.el đọc archive-contents và file package từ root
	c.ArchiveHandler.RegisterRoutes(v1, &router.RouterGroup, auth)

	return router
}

// ========================================
// HEALTH CHECK
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		services := appCtx.HealthCheck(ctx)

		status := "ok"
		code := http.StatusOK
		if services["database"] != "ok" || services["storage"] != "ok" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services":  services,
		})
	}
}
