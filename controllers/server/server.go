package server

import (
	"context"
	"time"

	"eventpilot/config"
	"eventpilot/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Config  *config.Config
	started time.Time
}

func NewHealthController(db *gorm.DB, cfg *config.Config) *HealthController {
	return &HealthController{DB: db, Config: cfg, started: time.Now()}
}

// Health pings the database and reports which optional integrations are on.
func (h *HealthController) Health(c *fiber.Ctx) error {
	status, code := "ok", fiber.StatusOK
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status, code = "degraded", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(types.ApiResponse{
		Message: status,
		Status:  code,
		Data: fiber.Map{
			"database": err == nil,
			"email":    h.Config.EmailConfigured(),
			"ai":       h.Config.AIConfigured(),
			"storage":  h.Config.StorageConfigured(),
			"gallery":  h.Config.GalleryConfigured(),
			"uptime":   time.Since(h.started).Round(time.Second).String(),
		},
	})
}
