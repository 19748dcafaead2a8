package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"elpa-backend/pkg/container"
)

// HealthChecker performs startup health checks
type HealthChecker struct {
	redisClient *redis.Client
	container   *container.Container
}

// startServices performs health checks and starts the health endpoint
func startServices(c *container.Container) error {
	log.Info().Msg("ELPA worker starting")

	checker := &HealthChecker{
		redisClient: redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Host,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		}),
		container: c,
	}
	defer checker.redisClient.Close()

	if err := checker.checkAll(); err != nil {
		return err
	}

	go startHealthCheckServer(c)
	return nil
}

func (h *HealthChecker) checkAll() error {
	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"Redis Connection", h.checkRedis},
		{"Database", h.checkDatabase},
	}

	for _, check := range checks {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := check.fn(ctx)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("check", check.name).Msg("Health check failed")
			return fmt.Errorf("%s failed: %w", check.name, err)
		}
		log.Info().Str("check", check.name).Msg("Health check OK")
	}
	return nil
}

// asynq dùng chung Redis này
func (h *HealthChecker) checkRedis(ctx context.Context) error {
	return h.redisClient.Ping(ctx).Err()
}

func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	if status := h.container.HealthCheck(ctx)["database"]; status != "ok" {
		return fmt.Errorf("database: %s", status)
	}
	return nil
}

// startHealthCheckServer: /health và /ready cho orchestrator
func startHealthCheckServer(c *container.Container) {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "UP", "service": "elpa-worker"})
	})
	router.GET("/ready", func(ctx *gin.Context) {
		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
		defer cancel()

		services := c.HealthCheck(reqCtx)
		if services["database"] != "ok" {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY", "services": services})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "READY", "services": services})
	})

	addr := ":" + c.Config.Jobs.HealthPort
	log.Info().Str("addr", addr).Msg("[Health] Starting health check server")
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Error().Err(err).Msg("[Health] Failed to start")
	}
}
