package admin

import (
	"errors"
	"strings"
	"time"

	"eventpilot/config"
	"eventpilot/logger"
	cateringModel "eventpilot/models/catering"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/qr"
	"eventpilot/types"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AdminController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
	Config *config.Config
}

func NewAdminController(db *gorm.DB, asyncLogger *logger.AsyncLogger, cfg *config.Config) *AdminController {
	return &AdminController{DB: db, Logger: asyncLogger, Config: cfg}
}

func (ac *AdminController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	ac.Logger.Log(logEntry)
}

func (ac *AdminController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ac.logAPIRequest(c)
	return result
}

func (ac *AdminController) ok(c *fiber.Ctx, data interface{}) error {
	return ac.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (ac *AdminController) fail(c *fiber.Ctx, status int, message string) error {
	return ac.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (ac *AdminController) dbError(c *fiber.Ctx, err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ac.fail(c, fiber.StatusNotFound, "غير موجود")
	}
	logger.Error(message, err)
	return ac.fail(c, fiber.StatusInternalServerError, message)
}

/*===== | Dashboard =====*/

type dashboardTotals struct {
	Users         int64 `json:"users"`
	Sessions      int64 `json:"sessions"`
	Registrations int64 `json:"registrations"`
	Attended      int64 `json:"attended"`
	Pending       int64 `json:"pendingApprovals"`
}

func (ac *AdminController) totals() (dashboardTotals, error) {
	var t dashboardTotals
	counts := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{ac.DB.Model(&user.User{}).Where("role = ?", user.RoleUser), &t.Users},
		{ac.DB.Model(&session.Session{}), &t.Sessions},
		{ac.DB.Model(&registration.Registration{}), &t.Registrations},
		{ac.DB.Model(&registration.Attendance{}).Where("attended = ?", true), &t.Attended},
		{ac.DB.Model(&registration.Registration{}).Where("is_approved = ?", false), &t.Pending},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dest).Error; err != nil {
			return t, err
		}
	}
	return t, nil
}

func (ac *AdminController) GetDashboard(c *fiber.Ctx) error {
	totals, err := ac.totals()
	if err != nil {
		return ac.dbError(c, err, "Error fetching dashboard")
	}

	var upcoming []session.Session
	err = ac.DB.Where("date >= ?", time.Now()).Order("date ASC").Limit(5).Find(&upcoming).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching dashboard")
	}

	var recent []registration.Registration
	err = ac.DB.Preload("User").Preload("Session").Order("registered_at DESC").Limit(10).Find(&recent).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching dashboard")
	}
	return ac.ok(c, fiber.Map{
		"totals":              totals,
		"upcomingSessions":    upcoming,
		"recentRegistrations": recent,
	})
}

/*===== | Exports =====*/

func csvResult(csv, name string) fiber.Map {
	return fiber.Map{"csv": csv, "filename": name + "-" + time.Now().In(utils.Riyadh).Format("2006-01-02") + ".csv"}
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (ac *AdminController) ExportUsers(c *fiber.Ctx) error {
	var users []user.User
	if err := ac.DB.Where("role = ?", user.RoleUser).Order("created_at ASC").Find(&users).Error; err != nil {
		return ac.dbError(c, err, "Error exporting users")
	}
	rows := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		rows = append(rows, map[string]interface{}{
			"name":         u.Name,
			"email":        u.Email,
			"phone":        u.Phone,
			"companyName":  text(u.CompanyName),
			"position":     text(u.Position),
			"activityType": text(u.ActivityType),
			"wantsToHost":  u.WantsToHost,
			"createdAt":    utils.FormatArabicDate(u.CreatedAt),
		})
	}
	csv := utils.ExportToCSV(rows, []utils.CSVColumn{
		{Key: "name", Label: "الاسم"},
		{Key: "email", Label: "البريد الإلكتروني"},
		{Key: "phone", Label: "الجوال"},
		{Key: "companyName", Label: "الشركة"},
		{Key: "position", Label: "المنصب"},
		{Key: "activityType", Label: "نوع النشاط"},
		{Key: "wantsToHost", Label: "يرغب بالضيافة"},
		{Key: "createdAt", Label: "تاريخ التسجيل"},
	})
	return ac.ok(c, csvResult(csv, "users"))
}

func (ac *AdminController) ExportSessionRegistrations(c *fiber.Ctx) error {
	var s session.Session
	if err := ac.DB.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		return ac.dbError(c, err, "Error fetching session")
	}
	var regs []registration.Registration
	err := ac.DB.Preload("User").Preload("Attendance").Preload("InvitedByRegistration.User").
		Where("session_id = ?", s.ID).
		Order("registered_at ASC").
		Find(&regs).Error
	if err != nil {
		return ac.dbError(c, err, "Error exporting registrations")
	}

	rows := make([]map[string]interface{}, 0, len(regs))
	for i := range regs {
		r := &regs[i]
		status := "بانتظار الموافقة"
		if r.IsApproved {
			status = "مؤكد"
		}
		invitedBy := ""
		if r.InvitedByRegistration != nil {
			invitedBy = r.InvitedByRegistration.DisplayName()
		}
		rows = append(rows, map[string]interface{}{
			"name":         r.DisplayName(),
			"email":        r.ContactEmail(),
			"phone":        r.ContactPhone(),
			"companyName":  r.CompanyName(),
			"position":     r.Position(),
			"status":       status,
			"invitedBy":    invitedBy,
			"attended":     r.Attendance != nil && r.Attendance.Attended,
			"registeredAt": utils.FormatArabicDate(r.RegisteredAt),
		})
	}
	csv := utils.ExportToCSV(rows, []utils.CSVColumn{
		{Key: "name", Label: "الاسم"},
		{Key: "email", Label: "البريد الإلكتروني"},
		{Key: "phone", Label: "الجوال"},
		{Key: "companyName", Label: "الشركة"},
		{Key: "position", Label: "المنصب"},
		{Key: "status", Label: "الحالة"},
		{Key: "invitedBy", Label: "مرافق لـ"},
		{Key: "attended", Label: "الحضور"},
		{Key: "registeredAt", Label: "تاريخ التسجيل"},
	})
	return ac.ok(c, csvResult(csv, "session-"+s.PathKey()+"-registrations"))
}

func (ac *AdminController) ExportHosts(c *fiber.Ctx) error {
	hosts, err := cateringModel.PotentialHosts(ac.DB, "")
	if err != nil {
		return ac.dbError(c, err, "Error exporting hosts")
	}
	rows := make([]map[string]interface{}, 0, len(hosts))
	for _, h := range hosts {
		labels := make([]string, 0, len(h.HostingTypes))
		for _, t := range h.HostingTypes {
			labels = append(labels, cateringModel.HostingType(t).Label())
		}
		rows = append(rows, map[string]interface{}{
			"name":         h.Name,
			"email":        h.Email,
			"phone":        h.Phone,
			"companyName":  text(h.CompanyName),
			"hostingTypes": strings.Join(labels, "، "),
			"source":       h.Source,
		})
	}
	csv := utils.ExportToCSV(rows, []utils.CSVColumn{
		{Key: "name", Label: "الاسم"},
		{Key: "email", Label: "البريد الإلكتروني"},
		{Key: "phone", Label: "الجوال"},
		{Key: "companyName", Label: "الشركة"},
		{Key: "hostingTypes", Label: "أنواع الضيافة"},
		{Key: "source", Label: "المصدر"},
	})
	return ac.ok(c, csvResult(csv, "hosts"))
}

// GetSessionQR encodes the public check-in URL of a session.
func (ac *AdminController) GetSessionQR(c *fiber.Ctx) error {
	var s session.Session
	if err := ac.DB.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		return ac.dbError(c, err, "Error fetching session")
	}
	url := strings.TrimRight(ac.Config.BaseURL, "/") + "/event/" + s.PathKey() + "/checkin"
	dataURL, err := qr.DataURL(url)
	if err != nil {
		return ac.dbError(c, err, "Failed to generate QR code")
	}
	return ac.ok(c, fiber.Map{"url": url, "qrCode": dataURL})
}
