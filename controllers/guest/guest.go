package guest

import (
	"database/sql"
	"errors"
	"strings"

	"eventpilot/logger"
	guestModel "eventpilot/models/guest"
	"eventpilot/models/session"
	"eventpilot/types"
	guestTypes "eventpilot/types/guest"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var errLinked = errors.New("guest already linked")

type GuestController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
}

func NewGuestController(db *gorm.DB, asyncLogger *logger.AsyncLogger) *GuestController {
	return &GuestController{DB: db, Logger: asyncLogger}
}

func (gc *GuestController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	gc.Logger.Log(logEntry)
}

func (gc *GuestController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	gc.logAPIRequest(c)
	return result
}

func (gc *GuestController) ok(c *fiber.Ctx, data interface{}) error {
	return gc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (gc *GuestController) fail(c *fiber.Ctx, status int, message string) error {
	return gc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (gc *GuestController) dbError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return gc.fail(c, fiber.StatusNotFound, "الضيف غير موجود")
	case errors.Is(err, errLinked):
		return gc.fail(c, fiber.StatusConflict, "الضيف مرتبط بهذه الجلسة مسبقاً")
	}
	logger.Error(message, err)
	return gc.fail(c, fiber.StatusInternalServerError, message)
}

func searchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if search = strings.TrimSpace(search); search == "" {
			return db
		}
		like := "%" + strings.ToLower(search) + "%"
		return db.Where("LOWER(guests.name) LIKE ? OR LOWER(guests.company) LIKE ? OR LOWER(guests.job_title) LIKE ?", like, like, like)
	}
}

func (gc *GuestController) GetAll(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := gc.DB.Model(&guestModel.Guest{}).Scopes(searchScope(c.Query("search")))
	if active := utils.QueryBool(c, "isActive"); active != nil {
		query = query.Where("is_active = ?", *active)
	}
	if public := utils.QueryBool(c, "isPublic"); public != nil {
		query = query.Where("is_public = ?", *public)
	}

	var guests []guestModel.Guest
	if err := query.Preload("SessionGuests").Scopes(utils.CursorScope("guests", "created_at", true, cur)).Find(&guests).Error; err != nil {
		return gc.dbError(c, err, "Error fetching guests")
	}
	guests, next := utils.NextCursor(guests, cur.Limit, func(g guestModel.Guest) string { return g.ID })
	return gc.ok(c, types.CursorPage{Items: guests, NextCursor: next})
}

type topGuest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SessionCount int64  `json:"sessionCount"`
}

func (gc *GuestController) GetInsights(c *fiber.Ctx) error {
	var total, public, active int64
	if err := gc.DB.Model(&guestModel.Guest{}).Count(&total).Error; err != nil {
		return gc.dbError(c, err, "Error fetching insights")
	}
	if err := gc.DB.Model(&guestModel.Guest{}).Where("is_public = ?", true).Count(&public).Error; err != nil {
		return gc.dbError(c, err, "Error fetching insights")
	}
	if err := gc.DB.Model(&guestModel.Guest{}).Where("is_active = ?", true).Count(&active).Error; err != nil {
		return gc.dbError(c, err, "Error fetching insights")
	}

	var top []topGuest
	err := gc.DB.Model(&guestModel.SessionGuest{}).
		Select("guests.id AS id, guests.name AS name, COUNT(session_guests.id) AS session_count").
		Joins("JOIN guests ON guests.id = session_guests.guest_id").
		Group("guests.id, guests.name").
		Order("session_count DESC").
		Limit(5).
		Scan(&top).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching insights")
	}
	return gc.ok(c, fiber.Map{
		"totalGuests":  total,
		"publicGuests": public,
		"activeGuests": active,
		"topGuests":    top,
	})
}

func (gc *GuestController) GetByID(c *fiber.Ctx) error {
	var g guestModel.Guest
	if err := gc.DB.Preload("SessionGuests.Session").Where("id = ?", c.Params("id")).First(&g).Error; err != nil {
		return gc.dbError(c, err, "Error fetching guest")
	}
	return gc.ok(c, g)
}

// GetPublic returns a public, active guest with the sessions they appear in.
func (gc *GuestController) GetPublic(c *fiber.Ctx) error {
	var g guestModel.Guest
	err := gc.DB.Where("id = ? AND is_public = ? AND is_active = ?", c.Params("id"), true, true).First(&g).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching guest")
	}
	var sessions []session.Session
	err = gc.DB.Joins("JOIN session_guests ON session_guests.session_id = sessions.id").
		Where("session_guests.guest_id = ?", g.ID).
		Order("sessions.date DESC").
		Find(&sessions).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching guest sessions")
	}
	return gc.ok(c, fiber.Map{"guest": g, "sessions": sessions})
}

func (gc *GuestController) Create(c *fiber.Ctx) error {
	var req guestTypes.GuestRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateCreate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	g := req.Model()
	if err := gc.DB.Create(&g).Error; err != nil {
		return gc.dbError(c, err, "Failed to create guest")
	}
	return gc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إضافة الضيف",
		Status:  fiber.StatusCreated,
		Data:    g,
	})
}

// QuickCreate adds a private guest from just a name.
func (gc *GuestController) QuickCreate(c *fiber.Ctx) error {
	var req guestTypes.QuickCreateRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	g := guestModel.Guest{Name: strings.TrimSpace(req.Name), IsActive: true}
	if err := gc.DB.Create(&g).Error; err != nil {
		return gc.dbError(c, err, "Failed to create guest")
	}
	return gc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إضافة الضيف",
		Status:  fiber.StatusCreated,
		Data:    g,
	})
}

func (gc *GuestController) update(c *fiber.Ctx, cols map[string]interface{}) error {
	var g guestModel.Guest
	if err := gc.DB.Where("id = ?", c.Params("id")).First(&g).Error; err != nil {
		return gc.dbError(c, err, "Error fetching guest")
	}
	if len(cols) > 0 {
		if err := gc.DB.Model(&g).Updates(cols).Error; err != nil {
			return gc.dbError(c, err, "Failed to update guest")
		}
	}
	var updated guestModel.Guest
	if err := gc.DB.Where("id = ?", g.ID).First(&updated).Error; err != nil {
		return gc.dbError(c, err, "Error fetching guest")
	}
	return gc.ok(c, updated)
}

func (gc *GuestController) Update(c *fiber.Ctx) error {
	var req guestTypes.GuestRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateUpdate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	return gc.update(c, req.Columns())
}

func (gc *GuestController) UpdateSocialMedia(c *fiber.Ctx) error {
	var req guestTypes.SocialMediaRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	return gc.update(c, map[string]interface{}{"social_media_links": guestTypes.CleanLinks(req.SocialMediaLinks)})
}

func (gc *GuestController) Delete(c *fiber.Ctx) error {
	err := gc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("guest_id = ?", c.Params("id")).Delete(&guestModel.SessionGuest{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", c.Params("id")).Delete(&guestModel.Guest{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return gc.dbError(c, err, "Failed to delete guest")
	}
	return gc.ok(c, types.SuccessResult{Success: true})
}

/*===== | Session Guests =====*/

func (gc *GuestController) GetSessionGuests(c *fiber.Ctx) error {
	var rows []guestModel.SessionGuest
	err := gc.DB.Preload("Guest").
		Joins("JOIN guests ON guests.id = session_guests.guest_id").
		Where("session_guests.session_id = ? AND guests.is_active = ?", c.Params("id"), true).
		Order("session_guests.display_order ASC").
		Find(&rows).Error
	if err != nil {
		return gc.dbError(c, err, "Error fetching session guests")
	}
	return gc.ok(c, rows)
}

func nextDisplayOrder(tx *gorm.DB, sessionID string) (int, error) {
	var highest sql.NullInt64
	err := tx.Model(&guestModel.SessionGuest{}).
		Where("session_id = ?", sessionID).
		Select("MAX(display_order)").Row().Scan(&highest)
	if err != nil {
		return 0, err
	}
	if !highest.Valid {
		return 0, nil
	}
	return int(highest.Int64) + 1, nil
}

func (gc *GuestController) LinkToSession(c *fiber.Ctx) error {
	var req guestTypes.LinkRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var row guestModel.SessionGuest
	err := gc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", req.SessionID).First(&session.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", req.GuestID).First(&guestModel.Guest{}).Error; err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&guestModel.SessionGuest{}).
			Where("session_id = ? AND guest_id = ?", req.SessionID, req.GuestID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errLinked
		}

		order := 0
		if req.DisplayOrder != nil {
			order = *req.DisplayOrder
		} else {
			var err error
			if order, err = nextDisplayOrder(tx, req.SessionID); err != nil {
				return err
			}
		}
		row = guestModel.SessionGuest{SessionID: req.SessionID, GuestID: req.GuestID, DisplayOrder: order}
		return tx.Create(&row).Error
	})
	if err != nil {
		return gc.dbError(c, err, "Failed to link guest")
	}
	return gc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم ربط الضيف بالجلسة",
		Status:  fiber.StatusCreated,
		Data:    row,
	})
}

func (gc *GuestController) UnlinkFromSession(c *fiber.Ctx) error {
	var req guestTypes.LinkRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}
	result := gc.DB.Where("session_id = ? AND guest_id = ?", req.SessionID, req.GuestID).Delete(&guestModel.SessionGuest{})
	if result.Error != nil {
		return gc.dbError(c, result.Error, "Failed to unlink guest")
	}
	if result.RowsAffected == 0 {
		return gc.dbError(c, gorm.ErrRecordNotFound, "")
	}
	return gc.ok(c, types.SuccessResult{Success: true})
}

func (gc *GuestController) UpdateDisplayOrder(c *fiber.Ctx) error {
	var req guestTypes.DisplayOrderRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	result := gc.DB.Model(&guestModel.SessionGuest{}).Where("id = ?", c.Params("id")).Update("display_order", req.DisplayOrder)
	if result.Error != nil {
		return gc.dbError(c, result.Error, "Failed to update display order")
	}
	if result.RowsAffected == 0 {
		return gc.dbError(c, gorm.ErrRecordNotFound, "")
	}
	return gc.ok(c, types.SuccessResult{Success: true})
}

func (gc *GuestController) SearchForSelector(c *fiber.Ctx) error {
	var guests []guestModel.Guest
	err := gc.DB.Model(&guestModel.Guest{}).
		Scopes(searchScope(c.Query("search"))).
		Where("is_active = ?", true).
		Order("name ASC").
		Limit(20).
		Find(&guests).Error
	if err != nil {
		return gc.dbError(c, err, "Error searching guests")
	}
	return gc.ok(c, guests)
}

// SetSessionGuests replaces the session's guest list; displayOrder is the
// index in the request.
func (gc *GuestController) SetSessionGuests(c *fiber.Ctx) error {
	var req guestTypes.SetSessionGuestsRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return gc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return gc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	sessionID := c.Params("id")
	err := gc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", sessionID).First(&session.Session{}).Error; err != nil {
			return err
		}
		if len(req.GuestIDs) > 0 {
			var found int64
			if err := tx.Model(&guestModel.Guest{}).Where("id IN ?", req.GuestIDs).Count(&found).Error; err != nil {
				return err
			}
			if found != int64(len(req.GuestIDs)) {
				return gorm.ErrRecordNotFound
			}
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&guestModel.SessionGuest{}).Error; err != nil {
			return err
		}
		for i, id := range req.GuestIDs {
			row := guestModel.SessionGuest{SessionID: sessionID, GuestID: id, DisplayOrder: i}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return gc.dbError(c, err, "Failed to set session guests")
	}
	return gc.GetSessionGuests(c)
}
