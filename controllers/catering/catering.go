package catering

import (
	"errors"

	"eventpilot/logger"
	cateringModel "eventpilot/models/catering"
	"eventpilot/models/session"
	"eventpilot/types"
	cateringTypes "eventpilot/types/catering"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CateringController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewCateringController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *CateringController {
	return &CateringController{DB: db, Logger: asyncLogger}
}

func (cc *CateringController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	cc.Logger.Log(logEntry)
}

func (cc *CateringController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	cc.logAPIRequest(c)
	return result
}

func (cc *CateringController) ok(c *fiber.Ctx, data interface{}) error {
	return cc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (cc *CateringController) fail(c *fiber.Ctx, status int, message string) error {
	return cc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (cc *CateringController) list(sessionID string) ([]cateringModel.Catering, error) {
	var rows []cateringModel.Catering
	err := cc.DB.Preload("Host").Where("session_id = ?", sessionID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

type publicCatering struct {
	ID             string                    `json:"id"`
	HostName       string                    `json:"hostName"`
	HostingType    cateringModel.HostingType `json:"hostingType"`
	HostingLabel   string                    `json:"hostingLabel"`
	IsSelfCatering bool                      `json:"isSelfCatering"`
}

// GetPublicSessionCatering hides host contact details.
func (cc *CateringController) GetPublicSessionCatering(c *fiber.Ctx) error {
	rows, err := cc.list(c.Params("id"))
	if err != nil {
		logger.Error("Error fetching catering", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Error fetching catering")
	}
	out := make([]publicCatering, 0, len(rows))
	for _, r := range rows {
		name := ""
		switch {
		case r.Host != nil:
			name = r.Host.Name
		case r.HostName != nil:
			name = *r.HostName
		}
		out = append(out, publicCatering{
			ID:             r.ID,
			HostName:       name,
			HostingType:    r.HostingType,
			HostingLabel:   r.HostingType.Label(),
			IsSelfCatering: r.IsSelfCatering,
		})
	}
	return cc.ok(c, out)
}

func (cc *CateringController) GetSessionCatering(c *fiber.Ctx) error {
	rows, err := cc.list(c.Params("id"))
	if err != nil {
		logger.Error("Error fetching catering", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Error fetching catering")
	}
	return cc.ok(c, rows)
}

func (cc *CateringController) AddCatering(c *fiber.Ctx) error {
	var req cateringTypes.CateringRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return cc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateCreate(); err != nil {
		return cc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	sessionID := c.Params("id")
	if err := cc.DB.Where("id = ?", sessionID).First(&session.Session{}).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cc.fail(c, fiber.StatusNotFound, "الجلسة غير موجودة")
		}
		logger.Error("Error fetching session", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Error fetching session")
	}

	row := req.Model(sessionID)
	if err := cc.DB.Create(&row).Error; err != nil {
		logger.Error("Failed to add catering", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Failed to add catering")
	}
	return cc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تمت إضافة الضيافة",
		Status:  fiber.StatusCreated,
		Data:    row,
	})
}

func (cc *CateringController) UpdateCatering(c *fiber.Ctx) error {
	var req cateringTypes.CateringRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return cc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateUpdate(); err != nil {
		return cc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var row cateringModel.Catering
	err := cc.DB.Where("id = ?", c.Params("id")).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cc.fail(c, fiber.StatusNotFound, "الضيافة غير موجودة")
	}
	if err != nil {
		logger.Error("Error fetching catering", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Error fetching catering")
	}
	if cols := req.Columns(); len(cols) > 0 {
		if err := cc.DB.Model(&row).Updates(cols).Error; err != nil {
			logger.Error("Failed to update catering", err)
			return cc.fail(c, fiber.StatusInternalServerError, "Failed to update catering")
		}
	}
	if err := cc.DB.Preload("Host").Where("id = ?", row.ID).First(&row).Error; err != nil {
		logger.Error("Error fetching catering", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Error fetching catering")
	}
	return cc.ok(c, row)
}

func (cc *CateringController) DeleteCatering(c *fiber.Ctx) error {
	result := cc.DB.Where("id = ?", c.Params("id")).Delete(&cateringModel.Catering{})
	if result.Error != nil {
		logger.Error("Failed to delete catering", result.Error)
		return cc.fail(c, fiber.StatusInternalServerError, "Failed to delete catering")
	}
	if result.RowsAffected == 0 {
		return cc.fail(c, fiber.StatusNotFound, "الضيافة غير موجودة")
	}
	return cc.ok(c, types.SuccessResult{Success: true})
}

func (cc *CateringController) GetPotentialHosts(c *fiber.Ctx) error {
	hosts, err := cateringModel.PotentialHosts(cc.DB, c.Query("search"))
	if err != nil {
		logger.Error("Error fetching hosts", err)
		return cc.fail(c, fiber.StatusInternalServerError, "Error fetching hosts")
	}
	return cc.ok(c, hosts)
}
