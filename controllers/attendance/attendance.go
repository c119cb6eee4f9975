package attendance

import (
	"errors"
	"math"
	"time"

	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/services/qr"
	"eventpilot/types"
	attendanceTypes "eventpilot/types/attendance"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	methodManual = "manual"
	methodQR     = "qr"
)

var errNotApproved = errors.New("registration not approved")

type AttendanceController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewAttendanceController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *AttendanceController {
	return &AttendanceController{DB: db, Logger: asyncLogger}
}

func (ac *AttendanceController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	ac.Logger.Log(logEntry)
}

func (ac *AttendanceController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ac.logAPIRequest(c)
	return result
}

func (ac *AttendanceController) ok(c *fiber.Ctx, data interface{}) error {
	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (ac *AttendanceController) fail(c *fiber.Ctx, status int, message string) error {
	return ac.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

// mark upserts the attendance row of an approved registration. It returns
// whether the registration was already checked in beforehand.
func mark(db *gorm.DB, reg *registration.Registration, attended bool, method, markedBy string) (*registration.Attendance, bool, error) {
	if !reg.IsApproved {
		return nil, false, errNotApproved
	}

	var previous registration.Attendance
	err := db.Where("registration_id = ?", reg.ID).First(&previous).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	already := err == nil && previous.Attended

	row := registration.Attendance{
		RegistrationID: reg.ID,
		SessionID:      reg.SessionID,
		Attended:       attended,
		CheckInMethod:  &method,
	}
	if markedBy != "" {
		row.MarkedByID = &markedBy
	}
	if attended {
		now := time.Now()
		if already && previous.CheckInTime != nil {
			now = *previous.CheckInTime
		}
		row.CheckInTime = &now
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registration_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"attended", "check_in_time", "check_in_method", "marked_by_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, false, err
	}
	// row keeps the id of the discarded insert, so load into a fresh value.
	var saved registration.Attendance
	if err := db.Where("registration_id = ?", reg.ID).First(&saved).Error; err != nil {
		return nil, false, err
	}
	return &saved, already, nil
}

func (ac *AttendanceController) markError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errNotApproved) {
		return ac.fail(c, fiber.StatusBadRequest, "التسجيل غير معتمد")
	}
	logger.Error("Failed to mark attendance", err)
	return ac.fail(c, fiber.StatusInternalServerError, "Failed to mark attendance")
}

func (ac *AttendanceController) MarkAttendance(c *fiber.Ctx) error {
	var req attendanceTypes.MarkRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var reg registration.Registration
	err := ac.DB.Where("id = ?", req.RegistrationID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ac.fail(c, fiber.StatusNotFound, "التسجيل غير موجود")
	}
	if err != nil {
		logger.Error("Error fetching registration", err)
		return ac.fail(c, fiber.StatusInternalServerError, "Error fetching registration")
	}

	row, _, err := mark(ac.DB, &reg, req.IsAttended(), methodManual, middleware.CurrentUserID(c))
	if err != nil {
		return ac.markError(c, err)
	}
	return ac.ok(c, row)
}

func (ac *AttendanceController) MarkAttendanceQR(c *fiber.Ctx) error {
	var req attendanceTypes.MarkQRRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}

	payload, err := qr.ParseCheckIn(req.QRData)
	if err != nil {
		return ac.fail(c, fiber.StatusBadRequest, "رمز QR غير صالح")
	}
	if payload.SessionID != req.SessionID {
		return ac.fail(c, fiber.StatusBadRequest, "رمز QR لجلسة أخرى")
	}

	var reg registration.Registration
	err = ac.DB.Preload("User").
		Where("id = ? AND session_id = ?", payload.RegistrationID, payload.SessionID).
		First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ac.fail(c, fiber.StatusNotFound, "التسجيل غير موجود")
	}
	if err != nil {
		logger.Error("Error fetching registration", err)
		return ac.fail(c, fiber.StatusInternalServerError, "Error fetching registration")
	}

	row, already, err := mark(ac.DB, &reg, true, methodQR, middleware.CurrentUserID(c))
	if err != nil {
		return ac.markError(c, err)
	}
	return ac.ok(c, fiber.Map{
		"attendance":       row,
		"alreadyCheckedIn": already,
		"name":             reg.DisplayName(),
		"email":            reg.ContactEmail(),
		"companyName":      reg.CompanyName(),
	})
}

func statsOf(regs []registration.Registration) attendanceTypes.Stats {
	stats := attendanceTypes.Stats{Total: len(regs)}
	for _, r := range regs {
		if r.Attendance != nil && r.Attendance.Attended {
			stats.Attended++
		}
	}
	stats.NotAttended = stats.Total - stats.Attended
	if stats.Total > 0 {
		stats.Rate = math.Round(float64(stats.Attended)*1000/float64(stats.Total)) / 10
	}
	return stats
}

// GetSessionAttendance covers approved registrations including companions.
func (ac *AttendanceController) GetSessionAttendance(c *fiber.Ctx) error {
	var regs []registration.Registration
	err := ac.DB.Preload("User").Preload("Attendance").
		Where("session_id = ? AND is_approved = ?", c.Params("id"), true).
		Order("registered_at ASC").
		Find(&regs).Error
	if err != nil {
		logger.Error("Error fetching attendance", err)
		return ac.fail(c, fiber.StatusInternalServerError, "Error fetching attendance")
	}
	return ac.ok(c, fiber.Map{
		"registrations": regs,
		"stats":         statsOf(regs),
	})
}

func (ac *AttendanceController) GetMyQR(c *fiber.Ctx) error {
	var reg registration.Registration
	err := ac.DB.Where("id = ? AND user_id = ?", c.Params("id"), middleware.CurrentUserID(c)).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ac.fail(c, fiber.StatusNotFound, "التسجيل غير موجود")
	}
	if err != nil {
		logger.Error("Error fetching registration", err)
		return ac.fail(c, fiber.StatusInternalServerError, "Error fetching registration")
	}
	if !reg.IsApproved {
		return ac.fail(c, fiber.StatusForbidden, "التسجيل غير معتمد بعد")
	}

	url, err := qr.DataURL(qr.NewCheckIn(reg.ID, reg.SessionID).Encode())
	if err != nil {
		logger.Error("Failed to render QR code", err)
		return ac.fail(c, fiber.StatusInternalServerError, "Failed to render QR code")
	}
	return ac.ok(c, fiber.Map{"qrCode": url, "registrationId": reg.ID})
}
