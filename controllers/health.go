package controllers

import (
	"time"

	"schedboard/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct{}

// HealthCheck reports service liveness and dependency status
func (hc *HealthController) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	dbStatus := "ok"

	if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		dbStatus = "unreachable"
	}

	redisStatus := "ok"
	if database.RedisClient == nil {
		redisStatus = "disabled"
	} else if err := database.RedisClient.Ping(c.Context()).Err(); err != nil {
		status = "degraded"
		redisStatus = "unreachable"
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"service":   "Schedule Board API",
		"database":  dbStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
