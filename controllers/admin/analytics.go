package admin

import (
	"errors"
	"math"
	"strings"
	"time"

	"eventpilot/logger"
	cateringModel "eventpilot/models/catering"
	"eventpilot/models/common"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/ai"
	"eventpilot/types"
	adminTypes "eventpilot/types/admin"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

/*===== | Analytics =====*/

type sessionRate struct {
	SessionID     string  `json:"sessionId"`
	SessionNumber int     `json:"sessionNumber"`
	Title         string  `json:"title"`
	Date          string  `json:"date"`
	Registrations int64   `json:"registrations"`
	Attended      int64   `json:"attended"`
	Rate          float64 `json:"rate"`
}

func (ac *AdminController) attendanceBySession(limit int) ([]sessionRate, error) {
	var sessions []session.Session
	if err := ac.DB.Where("date <= ?", time.Now()).Order("date DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, err
	}
	out := make([]sessionRate, 0, len(sessions))
	for _, s := range sessions {
		row := sessionRate{SessionID: s.ID, SessionNumber: s.SessionNumber, Title: s.Title, Date: utils.FormatArabicDate(s.Date)}
		if err := ac.DB.Model(&registration.Registration{}).
			Where("session_id = ? AND is_approved = ?", s.ID, true).
			Count(&row.Registrations).Error; err != nil {
			return nil, err
		}
		if err := ac.DB.Model(&registration.Attendance{}).
			Where("session_id = ? AND attended = ?", s.ID, true).
			Count(&row.Attended).Error; err != nil {
			return nil, err
		}
		if row.Registrations > 0 {
			row.Rate = math.Round(float64(row.Attended)*1000/float64(row.Registrations)) / 10
		}
		out = append(out, row)
	}
	return out, nil
}

func (ac *AdminController) GetAnalytics(c *fiber.Ctx) error {
	months := c.QueryInt("months", 6)
	if months < 1 || months > 24 {
		months = 6
	}
	byMonth, err := ai.RegistrationsByMonth(ac.DB, time.Now().In(utils.Riyadh), months)
	if err != nil {
		return ac.dbError(c, err, "Error fetching analytics")
	}
	rates, err := ac.attendanceBySession(10)
	if err != nil {
		return ac.dbError(c, err, "Error fetching analytics")
	}

	var activities []ai.Count
	err = ac.DB.Model(&user.User{}).
		Select("activity_type AS label, COUNT(*) AS count").
		Where("activity_type IS NOT NULL AND activity_type <> ''").
		Group("activity_type").
		Order("count DESC").
		Limit(10).
		Scan(&activities).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching analytics")
	}

	totals, err := ac.totals()
	if err != nil {
		return ac.dbError(c, err, "Error fetching analytics")
	}
	return ac.ok(c, fiber.Map{
		"totals":               totals,
		"registrationsByMonth": byMonth,
		"attendanceBySession":  rates,
		"topActivityTypes":     activities,
	})
}

// GetRecommendations applies fixed thresholds to the platform totals.
func (ac *AdminController) GetRecommendations(c *fiber.Ctx) error {
	totals, err := ac.totals()
	if err != nil {
		return ac.dbError(c, err, "Error fetching recommendations")
	}
	rates, err := ac.attendanceBySession(10)
	if err != nil {
		return ac.dbError(c, err, "Error fetching recommendations")
	}
	return ac.ok(c, recommend(totals, rates))
}

func recommend(t dashboardTotals, rates []sessionRate) []adminTypes.Recommendation {
	out := []adminTypes.Recommendation{}
	if t.Users < 50 {
		out = append(out, adminTypes.Recommendation{
			Type:        "growth",
			Priority:    "high",
			Title:       "زيادة قاعدة المستخدمين",
			Description: "عدد المستخدمين أقل من 50. شارك روابط الفعاليات على وسائل التواصل وادعُ شركاءك.",
		})
	}
	if len(rates) > 0 {
		var sum int64
		for _, r := range rates {
			sum += r.Attended
		}
		if float64(sum)/float64(len(rates)) < 10 {
			out = append(out, adminTypes.Recommendation{
				Type:        "attendance",
				Priority:    "medium",
				Title:       "تحسين الحضور",
				Description: "متوسط الحضور أقل من 10 لكل فعالية. أرسل تذكيرات قبل الموعد وفعّل رمز QR في البريد.",
			})
		}
	}
	if t.Sessions < 5 {
		out = append(out, adminTypes.Recommendation{
			Type:        "content",
			Priority:    "low",
			Title:       "جدولة المزيد من الفعاليات",
			Description: "عدد الفعاليات أقل من 5. جدول فعاليات دورية للحفاظ على تفاعل الأعضاء.",
		})
	}
	return out
}

/*===== | Hosts =====*/

func (ac *AdminController) GetHosts(c *fiber.Ctx) error {
	hosts, err := cateringModel.PotentialHosts(ac.DB, c.Query("search"))
	if err != nil {
		return ac.dbError(c, err, "Error fetching hosts")
	}
	return ac.ok(c, hosts)
}

// CreateHost adds a password-less account flagged as a host. The person can
// claim it later through password reset.
func (ac *AdminController) CreateHost(c *fiber.Ctx) error {
	var req adminTypes.CreateHostRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var u user.User
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&user.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return user.ErrEmailTaken
		}
		username, err := user.GenerateUniqueUsername(tx, req.Name)
		if err != nil {
			return err
		}
		u = user.User{
			Name:         strings.TrimSpace(req.Name),
			Username:     username,
			Email:        email,
			Role:         user.RoleUser,
			IsActive:     true,
			WantsToHost:  true,
			HostingTypes: common.StringSlice(req.HostingTypes),
		}
		if req.Phone != "" {
			u.Phone = utils.FormatPhoneNumber(req.Phone)
		}
		if company := strings.TrimSpace(req.CompanyName); company != "" {
			u.CompanyName = &company
		}
		return tx.Create(&u).Error
	})
	if errors.Is(err, user.ErrEmailTaken) {
		return ac.fail(c, fiber.StatusConflict, "البريد الإلكتروني مسجل مسبقاً")
	}
	if err != nil {
		return ac.dbError(c, err, "Failed to create host")
	}
	return ac.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تمت إضافة المضيف",
		Status:  fiber.StatusCreated,
		Data:    u,
	})
}
