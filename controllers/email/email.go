package email

import (
	"strings"
	"time"

	"eventpilot/logger"
	emailModel "eventpilot/models/email"
	"eventpilot/types"
	emailTypes "eventpilot/types/email"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EmailController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewEmailController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *EmailController {
	return &EmailController{DB: db, Logger: asyncLogger}
}

func (ec *EmailController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	ec.Logger.Log(logEntry)
}

func (ec *EmailController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ec.logAPIRequest(c)
	return result
}

func (ec *EmailController) ok(c *fiber.Ctx, data interface{}) error {
	return ec.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (ec *EmailController) fail(c *fiber.Ctx, status int, message string) error {
	return ec.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (ec *EmailController) GetStats(c *fiber.Ctx) error {
	var rows []struct {
		Status emailModel.Status
		Count  int64
	}
	if err := ec.DB.Model(&emailModel.Log{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		logger.Error("Error fetching email stats", err)
		return ec.fail(c, fiber.StatusInternalServerError, "Error fetching email stats")
	}

	var stats emailTypes.Stats
	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case emailModel.StatusPending:
			stats.Pending = r.Count
		case emailModel.StatusSent:
			stats.Sent = r.Count
		case emailModel.StatusFailed:
			stats.Failed = r.Count
		}
	}

	today := now.BeginningOfDay()
	if err := ec.DB.Model(&emailModel.Log{}).
		Where("status = ? AND sent_at >= ?", emailModel.StatusSent, today).
		Count(&stats.SentToday).Error; err != nil {
		logger.Error("Error fetching email stats", err)
		return ec.fail(c, fiber.StatusInternalServerError, "Error fetching email stats")
	}
	if err := ec.DB.Model(&emailModel.Log{}).
		Where("status = ? AND updated_at >= ?", emailModel.StatusFailed, today).
		Count(&stats.FailedToday).Error; err != nil {
		logger.Error("Error fetching email stats", err)
		return ec.fail(c, fiber.StatusInternalServerError, "Error fetching email stats")
	}
	return ec.ok(c, stats)
}

func (ec *EmailController) GetLogs(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := ec.DB.Model(&emailModel.Log{})
	if status := c.Query("status"); status != "" {
		if !emailModel.Status(status).IsValid() {
			return ec.fail(c, fiber.StatusBadRequest, "الحالة غير صالحة")
		}
		query = query.Where("status = ?", status)
	}
	if kind := c.Query("type"); kind != "" {
		query = query.Where("type = ?", kind)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(to_address) LIKE ? OR LOWER(subject) LIKE ?", like, like)
	}

	var logs []emailModel.Log
	if err := query.Scopes(utils.CursorScope("email_logs", "created_at", true, cur)).Find(&logs).Error; err != nil {
		logger.Error("Error fetching email logs", err)
		return ec.fail(c, fiber.StatusInternalServerError, "Error fetching email logs")
	}
	logs, next := utils.NextCursor(logs, cur.Limit, func(l emailModel.Log) string { return l.ID })
	return ec.ok(c, types.CursorPage{Items: logs, NextCursor: next})
}

func (ec *EmailController) GetFailedEmails(c *fiber.Ctx) error {
	var logs []emailModel.Log
	err := ec.DB.Where("status = ?", emailModel.StatusFailed).
		Order("updated_at DESC").
		Limit(utils.MaxLimit).
		Find(&logs).Error
	if err != nil {
		logger.Error("Error fetching failed emails", err)
		return ec.fail(c, fiber.StatusInternalServerError, "Error fetching failed emails")
	}
	return ec.ok(c, logs)
}

// MarkForRetry puts failed rows back in the pending queue for the retry loop.
func (ec *EmailController) MarkForRetry(c *fiber.Ctx) error {
	var req emailTypes.RetryRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ec.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ec.fail(c, fiber.StatusBadRequest, err.Error())
	}

	result := ec.DB.Model(&emailModel.Log{}).
		Where("id IN ? AND status = ?", req.IDs, emailModel.StatusFailed).
		Updates(map[string]interface{}{
			"status":        emailModel.StatusPending,
			"attempts":      0,
			"error_message": nil,
		})
	if result.Error != nil {
		logger.Error("Failed to mark emails for retry", result.Error)
		return ec.fail(c, fiber.StatusInternalServerError, "Failed to mark emails for retry")
	}
	return ec.ok(c, fiber.Map{"count": result.RowsAffected})
}

func (ec *EmailController) Cleanup(c *fiber.Ctx) error {
	var req emailTypes.CleanupRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ec.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ec.fail(c, fiber.StatusBadRequest, err.Error())
	}

	cutoff := now.BeginningOfDay().Add(-time.Duration(req.OlderThanDays) * 24 * time.Hour)
	result := ec.DB.Where("created_at < ? AND status IN ?", cutoff, req.Statuses()).Delete(&emailModel.Log{})
	if result.Error != nil {
		logger.Error("Failed to clean up email logs", result.Error)
		return ec.fail(c, fiber.StatusInternalServerError, "Failed to clean up email logs")
	}
	logger.Info("Email logs cleaned up", zap.Int64("deleted", result.RowsAffected), zap.Int("olderThanDays", req.OlderThanDays))
	return ec.ok(c, fiber.Map{"deleted": result.RowsAffected})
}
