package registration

import (
	"errors"
	"strings"

	"eventpilot/logger"
	"eventpilot/middleware"
	regModel "eventpilot/models/registration"
	"eventpilot/models/user"
	"eventpilot/services/qr"
	regService "eventpilot/services/registration"
	"eventpilot/types"
	regTypes "eventpilot/types/registration"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RegistrationController struct {
	DB      *gorm.DB
	Logger  *logger.AsyncLogger
	Service *regService.Service
}

func NewRegistrationController(db *gorm.DB, asyncLogger *logger.AsyncLogger, service *regService.Service) *RegistrationController {
	return &RegistrationController{DB: db, Logger: asyncLogger, Service: service}
}

func (rc *RegistrationController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	rc.Logger.Log(logEntry)
}

func (rc *RegistrationController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	rc.logAPIRequest(c)
	return result
}

func (rc *RegistrationController) ok(c *fiber.Ctx, data interface{}) error {
	return rc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (rc *RegistrationController) fail(c *fiber.Ctx, status int, message string) error {
	return rc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

// serviceError maps registration service errors to responses.
func (rc *RegistrationController) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return rc.fail(c, fiber.StatusNotFound, "غير موجود")
	case errors.Is(err, regService.ErrSessionClosed):
		return rc.fail(c, fiber.StatusBadRequest, "التسجيل مغلق لهذه الجلسة")
	case errors.Is(err, regService.ErrSessionFull):
		return rc.fail(c, fiber.StatusBadRequest, "الجلسة مكتملة العدد")
	case errors.Is(err, regService.ErrDeadlinePassed):
		return rc.fail(c, fiber.StatusBadRequest, "انتهى موعد التسجيل")
	case errors.Is(err, regService.ErrInviteRequired):
		return rc.fail(c, fiber.StatusForbidden, "هذه الجلسة بدعوة فقط")
	case errors.Is(err, regService.ErrInvalidInvite):
		return rc.fail(c, fiber.StatusForbidden, "رابط الدعوة غير صالح أو منتهي")
	case errors.Is(err, regService.ErrTooManyCompanions):
		return rc.fail(c, fiber.StatusBadRequest, "تجاوزت الحد الأقصى للمرافقين")
	case errors.Is(err, regService.ErrAlreadyRegistered):
		return rc.fail(c, fiber.StatusConflict, "أنت مسجل بالفعل في هذه الجلسة")
	case errors.Is(err, regService.ErrAlreadyApproved):
		return rc.fail(c, fiber.StatusBadRequest, "التسجيل معتمد مسبقاً")
	case errors.Is(err, regService.ErrNotOwner):
		return rc.fail(c, fiber.StatusForbidden, "غير مصرح")
	case errors.Is(err, regService.ErrNotCompanion):
		return rc.fail(c, fiber.StatusBadRequest, "هذا التسجيل ليس مرافقاً")
	case errors.Is(err, user.ErrEmailTaken):
		return rc.fail(c, fiber.StatusConflict, "البريد الإلكتروني أو رقم الهاتف مسجل مسبقاً")
	}
	logger.Error("Registration operation failed", err)
	return rc.fail(c, fiber.StatusInternalServerError, "Registration operation failed")
}

func (rc *RegistrationController) RegisterForSession(c *fiber.Ctx) error {
	var req regTypes.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return rc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := rc.Service.RegisterUser(c.UserContext(), middleware.CurrentUserID(c), req)
	if err != nil {
		return rc.serviceError(c, err)
	}
	logger.Success("Registration created", zap.String("registrationId", result.ID))
	return rc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم التسجيل بنجاح",
		Status:  fiber.StatusCreated,
		Data:    result,
	})
}

func (rc *RegistrationController) GuestRegister(c *fiber.Ctx) error {
	var req regTypes.GuestRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return rc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := rc.Service.GuestRegister(c.UserContext(), req)
	if err != nil {
		return rc.serviceError(c, err)
	}
	return rc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم التسجيل بنجاح",
		Status:  fiber.StatusCreated,
		Data:    result,
	})
}

func (rc *RegistrationController) GetMyRegistrations(c *fiber.Ctx) error {
	var regs []regModel.Registration
	err := rc.DB.Preload("Session").Preload("Attendance").Preload("Companions").
		Where("user_id = ? AND invited_by_registration_id IS NULL", middleware.CurrentUserID(c)).
		Order("registered_at DESC").
		Find(&regs).Error
	if err != nil {
		logger.Error("Error fetching registrations", err)
		return rc.fail(c, fiber.StatusInternalServerError, "Error fetching registrations")
	}
	return rc.ok(c, regs)
}

// GetSessionRegistrations lists primary registrations with their companions.
func (rc *RegistrationController) GetSessionRegistrations(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := rc.DB.Model(&regModel.Registration{}).
		Preload("User").Preload("Attendance").Preload("Companions").
		Where("registrations.session_id = ? AND registrations.invited_by_registration_id IS NULL", c.Params("id"))

	if approved := utils.QueryBool(c, "isApproved"); approved != nil {
		query = query.Where("registrations.is_approved = ?", *approved)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Joins("LEFT JOIN users ON users.id = registrations.user_id").
			Where("LOWER(users.name) LIKE ? OR LOWER(users.email) LIKE ? OR users.phone LIKE ? OR "+
				"LOWER(registrations.guest_name) LIKE ? OR LOWER(registrations.guest_email) LIKE ? OR registrations.guest_phone LIKE ?",
				like, like, like, like, like, like)
	}

	var regs []regModel.Registration
	if err := query.Scopes(utils.CursorScope("registrations", "registered_at", true, cur)).Find(&regs).Error; err != nil {
		logger.Error("Error fetching registrations", err)
		return rc.fail(c, fiber.StatusInternalServerError, "Error fetching registrations")
	}
	regs, next := utils.NextCursor(regs, cur.Limit, func(r regModel.Registration) string { return r.ID })
	return rc.ok(c, types.CursorPage{Items: regs, NextCursor: next})
}

func (rc *RegistrationController) Approve(c *fiber.Ctx) error {
	var req regTypes.ApproveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			logger.Error("Failed to parse request body", err)
			return rc.fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if err := rc.Service.Approve(c.UserContext(), c.Params("id"), req.ApprovalNotes); err != nil {
		return rc.serviceError(c, err)
	}
	return rc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم اعتماد التسجيل",
		Status:  fiber.StatusOK,
		Data:    types.SuccessResult{Success: true},
	})
}

func (rc *RegistrationController) ApproveAll(c *fiber.Ctx) error {
	count, err := rc.Service.ApproveAll(c.UserContext(), c.Params("id"))
	if err != nil {
		return rc.serviceError(c, err)
	}
	return rc.ok(c, fiber.Map{"approved": count})
}

// GetConfirmation is public: anyone holding the registration id sees the
// session summary, and the QR once approved.
func (rc *RegistrationController) GetConfirmation(c *fiber.Ctx) error {
	var reg regModel.Registration
	err := rc.DB.Preload("Session").Preload("User").Where("id = ?", c.Params("id")).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rc.fail(c, fiber.StatusNotFound, "التسجيل غير موجود")
	}
	if err != nil {
		logger.Error("Error fetching registration", err)
		return rc.fail(c, fiber.StatusInternalServerError, "Error fetching registration")
	}

	var qrCode *string
	if reg.IsApproved {
		url, err := qr.DataURL(qr.NewCheckIn(reg.ID, reg.SessionID).Encode())
		if err != nil {
			logger.Error("Failed to render QR code", err)
			return rc.fail(c, fiber.StatusInternalServerError, "Failed to render QR code")
		}
		qrCode = &url
	}

	s := reg.Session
	return rc.ok(c, fiber.Map{
		"id":         reg.ID,
		"isApproved": reg.IsApproved,
		"name":       reg.DisplayName(),
		"qrCode":     qrCode,
		"session": fiber.Map{
			"id":            s.ID,
			"title":         s.Title,
			"sessionNumber": s.SessionNumber,
			"date":          s.Date,
			"location":      s.Location,
			"locationUrl":   s.LocationURL,
			"slug":          s.Slug,
		},
	})
}

func (rc *RegistrationController) ManualRegister(c *fiber.Ctx) error {
	var req regTypes.ManualRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return rc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	result, err := rc.Service.ManualRegister(c.UserContext(), req)
	if err != nil {
		return rc.serviceError(c, err)
	}
	return rc.ok(c, result)
}

/*===== | Companions =====*/

func (rc *RegistrationController) AddCompanion(c *fiber.Ctx) error {
	var req regTypes.AddCompanionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return rc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return rc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	companion, err := rc.Service.AddCompanion(c.UserContext(), middleware.CurrentUserID(c), req)
	if err != nil {
		return rc.serviceError(c, err)
	}
	return rc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تمت إضافة المرافق",
		Status:  fiber.StatusCreated,
		Data:    companion,
	})
}

func (rc *RegistrationController) ListCompanions(c *fiber.Ctx) error {
	companions, err := rc.Service.Companions(middleware.CurrentUserID(c), c.Params("id"))
	if err != nil {
		return rc.serviceError(c, err)
	}
	return rc.ok(c, companions)
}

func (rc *RegistrationController) RemoveCompanion(c *fiber.Ctx) error {
	if err := rc.Service.RemoveCompanion(middleware.CurrentUserID(c), c.Params("id")); err != nil {
		return rc.serviceError(c, err)
	}
	return rc.ok(c, types.SuccessResult{Success: true})
}

// GetSessionCompanions lists every companion of a session with the
// registration that brought them.
func (rc *RegistrationController) GetSessionCompanions(c *fiber.Ctx) error {
	var companions []regModel.Registration
	err := rc.DB.Preload("InvitedByRegistration.User").
		Where("session_id = ? AND invited_by_registration_id IS NOT NULL", c.Params("id")).
		Order("registered_at ASC").
		Find(&companions).Error
	if err != nil {
		logger.Error("Error fetching companions", err)
		return rc.fail(c, fiber.StatusInternalServerError, "Error fetching companions")
	}
	return rc.ok(c, companions)
}
