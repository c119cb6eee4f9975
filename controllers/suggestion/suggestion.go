package suggestion

import (
	"strings"

	"eventpilot/logger"
	"eventpilot/middleware"
	suggestionModel "eventpilot/models/suggestion"
	"eventpilot/types"
	suggestionTypes "eventpilot/types/suggestion"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type SuggestionController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewSuggestionController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *SuggestionController {
	return &SuggestionController{DB: db, Logger: asyncLogger}
}

func (sc *SuggestionController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	sc.Logger.Log(logEntry)
}

func (sc *SuggestionController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	sc.logAPIRequest(c)
	return result
}

func (sc *SuggestionController) ok(c *fiber.Ctx, data interface{}) error {
	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (sc *SuggestionController) fail(c *fiber.Ctx, status int, message string) error {
	return sc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (sc *SuggestionController) Create(c *fiber.Ctx) error {
	var req suggestionTypes.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	s := suggestionModel.Suggestion{
		UserID:  middleware.CurrentUserID(c),
		Content: strings.TrimSpace(req.Content),
	}
	if err := sc.DB.Create(&s).Error; err != nil {
		logger.Error("Failed to create suggestion", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Failed to create suggestion")
	}
	return sc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "شكراً لاقتراحك",
		Status:  fiber.StatusCreated,
		Data:    s,
	})
}

func (sc *SuggestionController) GetAll(c *fiber.Ctx) error {
	page, limit := utils.ParsePage(c)
	query := sc.DB.Model(&suggestionModel.Suggestion{})
	if status := c.Query("status"); status != "" {
		if !suggestionModel.Status(status).IsValid() {
			return sc.fail(c, fiber.StatusBadRequest, "الحالة غير صالحة")
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Error counting suggestions", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching suggestions")
	}
	var items []suggestionModel.Suggestion
	err := query.Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		logger.Error("Error fetching suggestions", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching suggestions")
	}
	return sc.ok(c, types.Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

func (sc *SuggestionController) GetStats(c *fiber.Ctx) error {
	var rows []struct {
		Status suggestionModel.Status
		Count  int64
	}
	err := sc.DB.Model(&suggestionModel.Suggestion{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Error fetching suggestion stats", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching suggestion stats")
	}
	var stats suggestionTypes.Stats
	for _, r := range rows {
		stats.Add(r.Status, r.Count)
	}
	return sc.ok(c, stats)
}

func (sc *SuggestionController) UpdateStatus(c *fiber.Ctx) error {
	var req suggestionTypes.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	result := sc.DB.Model(&suggestionModel.Suggestion{}).Where("id = ?", c.Params("id")).Update("status", req.Status)
	if result.Error != nil {
		logger.Error("Failed to update suggestion", result.Error)
		return sc.fail(c, fiber.StatusInternalServerError, "Failed to update suggestion")
	}
	if result.RowsAffected == 0 {
		return sc.fail(c, fiber.StatusNotFound, "الاقتراح غير موجود")
	}
	var s suggestionModel.Suggestion
	if err := sc.DB.Preload("User").Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		logger.Error("Error fetching suggestion", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching suggestion")
	}
	return sc.ok(c, s)
}

func (sc *SuggestionController) Delete(c *fiber.Ctx) error {
	result := sc.DB.Where("id = ?", c.Params("id")).Delete(&suggestionModel.Suggestion{})
	if result.Error != nil {
		logger.Error("Failed to delete suggestion", result.Error)
		return sc.fail(c, fiber.StatusInternalServerError, "Failed to delete suggestion")
	}
	if result.RowsAffected == 0 {
		return sc.fail(c, fiber.StatusNotFound, "الاقتراح غير موجود")
	}
	return sc.ok(c, types.SuccessResult{Success: true})
}
