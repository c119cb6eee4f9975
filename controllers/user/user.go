package user

import (
	"errors"
	"strings"
	"time"

	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/user"
	"eventpilot/types"
	userTypes "eventpilot/types/user"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewUserController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *UserController {
	return &UserController{DB: db, Logger: asyncLogger}
}

func (uc *UserController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	uc.Logger.Log(logEntry)
}

func (uc *UserController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	uc.logAPIRequest(c)
	return result
}

func (uc *UserController) ok(c *fiber.Ctx, data interface{}) error {
	return uc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (uc *UserController) fail(c *fiber.Ctx, status int, message string) error {
	return uc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

// GetProfile is the public profile by username.
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	var u user.User
	err := uc.DB.Where("username = ? AND is_active = ?", strings.ToLower(c.Params("username")), true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uc.fail(c, fiber.StatusNotFound, "المستخدم غير موجود")
	}
	if err != nil {
		logger.Error("Error fetching user", err)
		return uc.fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	var registrations, attended int64
	if err := uc.DB.Model(&registration.Registration{}).
		Where("user_id = ? AND is_approved = ?", u.ID, true).
		Count(&registrations).Error; err != nil {
		logger.Error("Error counting registrations", err)
		return uc.fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}
	if err := uc.DB.Model(&registration.Attendance{}).
		Joins("JOIN registrations ON registrations.id = attendances.registration_id").
		Where("registrations.user_id = ? AND attendances.attended = ?", u.ID, true).
		Count(&attended).Error; err != nil {
		logger.Error("Error counting attendance", err)
		return uc.fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}

	return uc.ok(c, fiber.Map{
		"profile":           u.Public(),
		"registrationCount": registrations,
		"attendanceCount":   attended,
	})
}

func (uc *UserController) GetMyProfile(c *fiber.Ctx) error {
	return uc.ok(c, middleware.CurrentUser(c))
}

func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var req userTypes.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return uc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return uc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	me := middleware.CurrentUser(c)
	cols := req.Columns()
	if phone, ok := cols["phone"].(string); ok {
		var taken int64
		if err := uc.DB.Model(&user.User{}).Where("phone = ? AND id <> ?", phone, me.ID).Count(&taken).Error; err != nil {
			logger.Error("Failed to check phone", err)
			return uc.fail(c, fiber.StatusInternalServerError, "Database error")
		}
		if taken > 0 {
			return uc.fail(c, fiber.StatusConflict, "رقم الهاتف مستخدم من قبل مستخدم آخر")
		}
	}
	if len(cols) > 0 {
		if err := uc.DB.Model(me).Updates(cols).Error; err != nil {
			logger.Error("Failed to update profile", err)
			return uc.fail(c, fiber.StatusInternalServerError, "Failed to update profile")
		}
	}

	var updated user.User
	if err := uc.DB.Where("id = ?", me.ID).First(&updated).Error; err != nil {
		logger.Error("Error fetching user", err)
		return uc.fail(c, fiber.StatusInternalServerError, "Error fetching user")
	}
	return uc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تحديث الملف الشخصي",
		Status:  fiber.StatusOK,
		Data:    updated,
	})
}

type dashboardStats struct {
	TotalRegistrations int `json:"totalRegistrations"`
	UpcomingEvents     int `json:"upcomingEvents"`
	AttendedEvents     int `json:"attendedEvents"`
}

// GetDashboard splits the caller's own registrations into upcoming and past.
func (uc *UserController) GetDashboard(c *fiber.Ctx) error {
	me := middleware.CurrentUser(c)

	var regs []registration.Registration
	err := uc.DB.Preload("Session").Preload("Attendance").Preload("Companions").
		Where("user_id = ? AND invited_by_registration_id IS NULL", me.ID).
		Order("registered_at DESC").
		Find(&regs).Error
	if err != nil {
		logger.Error("Error fetching registrations", err)
		return uc.fail(c, fiber.StatusInternalServerError, "Error fetching dashboard")
	}

	now := time.Now()
	upcoming := []registration.Registration{}
	past := []registration.Registration{}
	stats := dashboardStats{TotalRegistrations: len(regs)}
	for _, r := range regs {
		if r.Session != nil && !r.Session.Date.Before(now) {
			upcoming = append(upcoming, r)
		} else {
			past = append(past, r)
		}
		if r.Attendance != nil && r.Attendance.Attended {
			stats.AttendedEvents++
		}
	}
	stats.UpcomingEvents = len(upcoming)

	return uc.ok(c, fiber.Map{
		"user":                  me,
		"stats":                 stats,
		"upcomingRegistrations": upcoming,
		"pastRegistrations":     past,
	})
}

func (uc *UserController) CheckUsername(c *fiber.Ctx) error {
	username := strings.ToLower(strings.TrimSpace(c.Query("username")))
	if username == "" {
		return uc.fail(c, fiber.StatusBadRequest, "اسم المستخدم مطلوب")
	}
	var count int64
	if err := uc.DB.Model(&user.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		logger.Error("Failed to check username", err)
		return uc.fail(c, fiber.StatusInternalServerError, "Database error")
	}
	return uc.ok(c, fiber.Map{"available": count == 0})
}
