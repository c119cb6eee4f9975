package sponsor

import (
	"errors"
	"strings"
	"time"

	"eventpilot/logger"
	"eventpilot/models/session"
	sponsorModel "eventpilot/models/sponsor"
	"eventpilot/models/user"
	"eventpilot/types"
	sponsorTypes "eventpilot/types/sponsor"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var errLinked = errors.New("sponsorship already exists")

type SponsorController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewSponsorController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *SponsorController {
	return &SponsorController{DB: db, Logger: asyncLogger}
}

func (sc *SponsorController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	sc.Logger.Log(logEntry)
}

func (sc *SponsorController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	sc.logAPIRequest(c)
	return result
}

func (sc *SponsorController) ok(c *fiber.Ctx, data interface{}) error {
	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (sc *SponsorController) fail(c *fiber.Ctx, status int, message string) error {
	return sc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (sc *SponsorController) dbError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sc.fail(c, fiber.StatusNotFound, "غير موجود")
	case errors.Is(err, errLinked):
		return sc.fail(c, fiber.StatusConflict, "الراعي مرتبط بهذه الجلسة بنفس نوع الرعاية")
	}
	logger.Error(message, err)
	return sc.fail(c, fiber.StatusInternalServerError, message)
}

func (sc *SponsorController) GetAll(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := sc.DB.Model(&sponsorModel.Sponsor{})

	if active := utils.QueryBool(c, "isActive"); active != nil {
		query = query.Where("is_active = ?", *active)
	} else if c.Query("includeInactive") != "true" {
		query = query.Where("is_active = ?", true)
	}
	if t := c.Query("type"); t != "" {
		if !sponsorModel.Type(t).IsValid() {
			return sc.fail(c, fiber.StatusBadRequest, "type must be either 'person' or 'company'")
		}
		query = query.Where("type = ?", t)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var sponsors []sponsorModel.Sponsor
	if err := query.Preload("User").Scopes(utils.CursorScope("sponsors", "created_at", true, cur)).Find(&sponsors).Error; err != nil {
		return sc.dbError(c, err, "Error fetching sponsors")
	}
	sponsors, next := utils.NextCursor(sponsors, cur.Limit, func(s sponsorModel.Sponsor) string { return s.ID })
	return sc.ok(c, types.CursorPage{Items: sponsors, NextCursor: next})
}

func (sc *SponsorController) GetByID(c *fiber.Ctx) error {
	var s sponsorModel.Sponsor
	err := sc.DB.Preload("User").Preload("Sponsorships.Session").Where("id = ?", c.Params("id")).First(&s).Error
	if err != nil {
		return sc.dbError(c, err, "Error fetching sponsor")
	}
	return sc.ok(c, s)
}

func (sc *SponsorController) GetByUserID(c *fiber.Ctx) error {
	var sponsors []sponsorModel.Sponsor
	err := sc.DB.Preload("Sponsorships.Session").Where("user_id = ?", c.Params("userId")).
		Order("created_at DESC").Find(&sponsors).Error
	if err != nil {
		return sc.dbError(c, err, "Error fetching sponsors")
	}
	return sc.ok(c, sponsors)
}

func (sc *SponsorController) Create(c *fiber.Ctx) error {
	var req sponsorTypes.SponsorRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateCreate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	s := req.Model()
	if err := sc.DB.Create(&s).Error; err != nil {
		return sc.dbError(c, err, "Failed to create sponsor")
	}
	return sc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إضافة الراعي",
		Status:  fiber.StatusCreated,
		Data:    s,
	})
}

func (sc *SponsorController) Update(c *fiber.Ctx) error {
	var req sponsorTypes.SponsorRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateUpdate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var s sponsorModel.Sponsor
	if err := sc.DB.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		return sc.dbError(c, err, "Error fetching sponsor")
	}
	if cols := req.Columns(); len(cols) > 0 {
		if err := sc.DB.Model(&s).Updates(cols).Error; err != nil {
			return sc.dbError(c, err, "Failed to update sponsor")
		}
	}
	if err := sc.DB.Where("id = ?", s.ID).First(&s).Error; err != nil {
		return sc.dbError(c, err, "Error fetching sponsor")
	}
	return sc.ok(c, s)
}

// Delete deactivates the sponsor and keeps its sponsorships.
func (sc *SponsorController) Delete(c *fiber.Ctx) error {
	result := sc.DB.Model(&sponsorModel.Sponsor{}).Where("id = ?", c.Params("id")).Update("is_active", false)
	if result.Error != nil {
		return sc.dbError(c, result.Error, "Failed to delete sponsor")
	}
	if result.RowsAffected == 0 {
		return sc.dbError(c, gorm.ErrRecordNotFound, "")
	}
	return sc.ok(c, types.SuccessResult{Success: true})
}

func (sc *SponsorController) HardDelete(c *fiber.Ctx) error {
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sponsor_id = ?", c.Params("id")).Delete(&sponsorModel.Sponsorship{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", c.Params("id")).Delete(&sponsorModel.Sponsor{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return sc.dbError(c, err, "Failed to delete sponsor")
	}
	return sc.ok(c, types.SuccessResult{Success: true})
}

/*===== | Sponsorships =====*/

func (sc *SponsorController) sessionSponsorships(sessionID string, activeOnly bool) ([]sponsorModel.Sponsorship, error) {
	query := sc.DB.Preload("Sponsor").Where("event_sponsorships.session_id = ?", sessionID)
	if activeOnly {
		query = query.Joins("LEFT JOIN sponsors ON sponsors.id = event_sponsorships.sponsor_id").
			Where("event_sponsorships.is_self_sponsored = ? OR sponsors.is_active = ?", true, true)
	}
	var rows []sponsorModel.Sponsorship
	err := query.Order("event_sponsorships.created_at ASC").Find(&rows).Error
	return rows, err
}

func (sc *SponsorController) GetSessionSponsorships(c *fiber.Ctx) error {
	rows, err := sc.sessionSponsorships(c.Params("id"), true)
	if err != nil {
		return sc.dbError(c, err, "Error fetching sponsorships")
	}
	return sc.ok(c, rows)
}

func (sc *SponsorController) GetSessionSponsorshipsAdmin(c *fiber.Ctx) error {
	rows, err := sc.sessionSponsorships(c.Params("id"), false)
	if err != nil {
		return sc.dbError(c, err, "Error fetching sponsorships")
	}
	return sc.ok(c, rows)
}

func (sc *SponsorController) LinkToSession(c *fiber.Ctx) error {
	var req sponsorTypes.SponsorshipRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	kind := strings.TrimSpace(req.SponsorshipType)
	var row sponsorModel.Sponsorship
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", req.SessionID).First(&session.Session{}).Error; err != nil {
			return err
		}
		dup := tx.Model(&sponsorModel.Sponsorship{}).
			Where("session_id = ? AND sponsorship_type = ?", req.SessionID, kind)
		if req.IsSelfSponsored {
			dup = dup.Where("is_self_sponsored = ?", true)
			req.SponsorID = nil
		} else {
			if err := tx.Where("id = ?", *req.SponsorID).First(&sponsorModel.Sponsor{}).Error; err != nil {
				return err
			}
			dup = dup.Where("sponsor_id = ?", *req.SponsorID)
		}
		var existing int64
		if err := dup.Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errLinked
		}

		row = sponsorModel.Sponsorship{
			SessionID:       req.SessionID,
			SponsorID:       req.SponsorID,
			SponsorshipType: kind,
			IsSelfSponsored: req.IsSelfSponsored,
			Notes:           req.Notes,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return sc.dbError(c, err, "Failed to link sponsor")
	}
	return sc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم ربط الراعي بالجلسة",
		Status:  fiber.StatusCreated,
		Data:    row,
	})
}

func (sc *SponsorController) UpdateSponsorship(c *fiber.Ctx) error {
	var req sponsorTypes.UpdateSponsorshipRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	var row sponsorModel.Sponsorship
	if err := sc.DB.Where("id = ?", c.Params("id")).First(&row).Error; err != nil {
		return sc.dbError(c, err, "Error fetching sponsorship")
	}
	if cols := req.Columns(); len(cols) > 0 {
		if err := sc.DB.Model(&row).Updates(cols).Error; err != nil {
			return sc.dbError(c, err, "Failed to update sponsorship")
		}
	}
	if err := sc.DB.Preload("Sponsor").Where("id = ?", row.ID).First(&row).Error; err != nil {
		return sc.dbError(c, err, "Error fetching sponsorship")
	}
	return sc.ok(c, row)
}

func (sc *SponsorController) UnlinkFromSession(c *fiber.Ctx) error {
	result := sc.DB.Where("id = ?", c.Params("id")).Delete(&sponsorModel.Sponsorship{})
	if result.Error != nil {
		return sc.dbError(c, result.Error, "Failed to unlink sponsor")
	}
	if result.RowsAffected == 0 {
		return sc.dbError(c, gorm.ErrRecordNotFound, "")
	}
	return sc.ok(c, types.SuccessResult{Success: true})
}

var exportColumns = []utils.CSVColumn{
	{Key: "name", Label: "الاسم"},
	{Key: "type", Label: "النوع"},
	{Key: "email", Label: "البريد الإلكتروني"},
	{Key: "phone", Label: "الهاتف"},
	{Key: "sponsorshipTypes", Label: "أنواع الرعاية"},
	{Key: "sessions", Label: "عدد الجلسات"},
	{Key: "status", Label: "الحالة"},
	{Key: "createdAt", Label: "تاريخ الإضافة"},
}

func (sc *SponsorController) Export(c *fiber.Ctx) error {
	var sponsors []sponsorModel.Sponsor
	if err := sc.DB.Preload("Sponsorships").Order("name ASC").Find(&sponsors).Error; err != nil {
		return sc.dbError(c, err, "Error exporting sponsors")
	}
	rows := make([]map[string]interface{}, 0, len(sponsors))
	for _, s := range sponsors {
		status := "نشط"
		if !s.IsActive {
			status = "غير نشط"
		}
		rows = append(rows, map[string]interface{}{
			"name":             s.Name,
			"type":             s.Type.Label(),
			"email":            s.Email,
			"phone":            s.Phone,
			"sponsorshipTypes": strings.Join(s.SponsorshipTypes, "، "),
			"sessions":         len(s.Sponsorships),
			"status":           status,
			"createdAt":        utils.FormatArabicDate(s.CreatedAt),
		})
	}
	return sc.ok(c, fiber.Map{
		"csv":      utils.ExportToCSV(rows, exportColumns),
		"filename": "sponsors-" + time.Now().Format("2006-01-02") + ".csv",
	})
}

// GetAvailableSessions lists sessions the sponsor is not linked to yet.
func (sc *SponsorController) GetAvailableSessions(c *fiber.Ctx) error {
	var sessions []session.Session
	err := sc.DB.Where("id NOT IN (?)",
		sc.DB.Model(&sponsorModel.Sponsorship{}).Select("session_id").Where("sponsor_id = ?", c.Params("id")),
	).Order("date DESC").Limit(50).Find(&sessions).Error
	if err != nil {
		return sc.dbError(c, err, "Error fetching sessions")
	}
	return sc.ok(c, sessions)
}

// GetAvailableForSession lists active sponsors not linked to the session.
func (sc *SponsorController) GetAvailableForSession(c *fiber.Ctx) error {
	var sponsors []sponsorModel.Sponsor
	err := sc.DB.Where("is_active = ? AND id NOT IN (?)", true,
		sc.DB.Model(&sponsorModel.Sponsorship{}).Select("sponsor_id").
			Where("session_id = ? AND sponsor_id IS NOT NULL", c.Params("id")),
	).Order("name ASC").Find(&sponsors).Error
	if err != nil {
		return sc.dbError(c, err, "Error fetching sponsors")
	}
	return sc.ok(c, sponsors)
}

func (sc *SponsorController) LinkToUser(c *fiber.Ctx) error {
	var req sponsorTypes.LinkUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := sc.DB.Where("id = ?", req.UserID).First(&user.User{}).Error; err != nil {
		return sc.dbError(c, err, "Error fetching user")
	}
	return sc.setUser(c, &req.UserID)
}

func (sc *SponsorController) UnlinkFromUser(c *fiber.Ctx) error {
	return sc.setUser(c, nil)
}

func (sc *SponsorController) setUser(c *fiber.Ctx, userID *string) error {
	result := sc.DB.Model(&sponsorModel.Sponsor{}).Where("id = ?", c.Params("id")).Update("user_id", userID)
	if result.Error != nil {
		return sc.dbError(c, result.Error, "Failed to update sponsor")
	}
	if result.RowsAffected == 0 {
		return sc.dbError(c, gorm.ErrRecordNotFound, "")
	}
	return sc.ok(c, types.SuccessResult{Success: true})
}

func (sc *SponsorController) SearchUsersForLinking(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("query"))
	if len([]rune(search)) < 2 {
		return sc.ok(c, []user.PublicProfile{})
	}
	like := "%" + strings.ToLower(search) + "%"
	var users []user.User
	err := sc.DB.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like).
		Order("name ASC").Limit(10).Find(&users).Error
	if err != nil {
		return sc.dbError(c, err, "Error searching users")
	}
	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		out = append(out, fiber.Map{"id": u.ID, "name": u.Name, "email": u.Email, "phone": u.Phone})
	}
	return sc.ok(c, out)
}
