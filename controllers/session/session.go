package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpilot/config"
	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/types"
	sessionTypes "eventpilot/types/session"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errNumberTaken = errors.New("session number taken")
	errSlugTaken   = errors.New("slug taken")
	errSlugInvalid = errors.New("slug invalid")
)

type SessionController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
	Config *config.Config
}

func NewSessionController(db *gorm.DB, asyncLogger *logger.AsyncLogger, cfg *config.Config) *SessionController {
	return &SessionController{DB: db, Logger: asyncLogger, Config: cfg}
}

func (sc *SessionController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	sc.Logger.Log(logEntry)
}

func (sc *SessionController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	sc.logAPIRequest(c)
	return result
}

func (sc *SessionController) ok(c *fiber.Ctx, data interface{}) error {
	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (sc *SessionController) fail(c *fiber.Ctx, status int, message string) error {
	return sc.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

// View is a session with its registration state.
type View struct {
	session.Session
	RegistrationCount *int64 `json:"registrationCount"`
	IsFull            bool   `json:"isFull"`
	CanRegister       bool   `json:"canRegister"`
}

func (sc *SessionController) view(s session.Session, now time.Time) (View, error) {
	count, err := registration.CountApprovedPrimary(sc.DB, s.ID)
	if err != nil {
		return View{}, err
	}
	v := View{
		Session:     s,
		IsFull:      count >= int64(s.MaxParticipants),
		CanRegister: s.CanRegister(count, now),
	}
	if s.ShowParticipantCount {
		v.RegistrationCount = &count
	}
	return v, nil
}

func (sc *SessionController) views(sessions []session.Session) ([]View, error) {
	now := time.Now()
	out := make([]View, 0, len(sessions))
	for _, s := range sessions {
		v, err := sc.view(s, now)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// List pages sessions by date, newest first.
func (sc *SessionController) List(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := sc.DB.Model(&session.Session{})
	if status := c.Query("status"); status != "" {
		if !session.Status(status).IsValid() {
			return sc.fail(c, fiber.StatusBadRequest, "حالة الجلسة غير صالحة")
		}
		query = query.Where("status = ?", status)
	}
	if upcoming := utils.QueryBool(c, "upcoming"); upcoming != nil && *upcoming {
		query = query.Where("date >= ?", time.Now())
	}

	var sessions []session.Session
	if err := query.Scopes(utils.CursorScope("sessions", "date", true, cur)).Find(&sessions).Error; err != nil {
		logger.Error("Error fetching sessions", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching sessions")
	}
	sessions, next := utils.NextCursor(sessions, cur.Limit, func(s session.Session) string { return s.ID })
	items, err := sc.views(sessions)
	if err != nil {
		logger.Error("Error counting registrations", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching sessions")
	}
	return sc.ok(c, types.CursorPage{Items: items, NextCursor: next})
}

func (sc *SessionController) GetUpcoming(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 5)
	if limit < 1 || limit > 10 {
		limit = 5
	}
	var sessions []session.Session
	err := sc.DB.Where("status = ? AND date >= ?", session.StatusOpen, time.Now()).
		Order("date ASC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		logger.Error("Error fetching sessions", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching sessions")
	}
	items, err := sc.views(sessions)
	if err != nil {
		logger.Error("Error counting registrations", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching sessions")
	}
	return sc.ok(c, items)
}

func (sc *SessionController) respondOne(c *fiber.Ctx, column, value string) error {
	var s session.Session
	err := sc.DB.Where(column+" = ?", value).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sc.fail(c, fiber.StatusNotFound, "الجلسة غير موجودة")
	}
	if err != nil {
		logger.Error("Error fetching session", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching session")
	}
	v, err := sc.view(s, time.Now())
	if err != nil {
		logger.Error("Error counting registrations", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching session")
	}
	return sc.ok(c, v)
}

func (sc *SessionController) GetByID(c *fiber.Ctx) error {
	return sc.respondOne(c, "id", c.Params("id"))
}

func (sc *SessionController) GetBySlug(c *fiber.Ctx) error {
	return sc.respondOne(c, "slug", c.Params("slug"))
}

func taken(tx *gorm.DB, column string, value interface{}, exceptID string) (bool, error) {
	var count int64
	q := tx.Model(&session.Session{}).Where(column+" = ?", value)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

// resolveSlug returns the slug to store. An explicit slug must normalise to
// something and be free; a generated one gets -<sessionNumber> when it
// collides, and that must be free too.
func resolveSlug(tx *gorm.DB, explicit *string, title string, number int, exceptID string) (*string, error) {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		slug := utils.GenerateSlug(*explicit)
		if slug == "" {
			return nil, errSlugInvalid
		}
		used, err := taken(tx, "slug", slug, exceptID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, errSlugTaken
		}
		return &slug, nil
	}

	slug := utils.GenerateSlug(title)
	if slug == "" {
		return nil, nil
	}
	used, err := taken(tx, "slug", slug, exceptID)
	if err != nil {
		return nil, err
	}
	if !used {
		return &slug, nil
	}
	slug = fmt.Sprintf("%s-%d", slug, number)
	if used, err = taken(tx, "slug", slug, exceptID); err != nil {
		return nil, err
	}
	if used {
		return nil, errSlugTaken
	}
	return &slug, nil
}

func (sc *SessionController) writeError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, errNumberTaken):
		return sc.fail(c, fiber.StatusConflict, "رقم الجلسة موجود مسبقاً")
	case errors.Is(err, errSlugTaken):
		return sc.fail(c, fiber.StatusConflict, "رابط الجلسة موجود مسبقاً")
	case errors.Is(err, errSlugInvalid):
		return sc.fail(c, fiber.StatusBadRequest, "رابط الجلسة غير صالح")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sc.fail(c, fiber.StatusNotFound, "الجلسة غير موجودة")
	}
	logger.Error("Failed to "+action+" session", err)
	return sc.fail(c, fiber.StatusInternalServerError, "Failed to "+action+" session")
}

func (sc *SessionController) Create(c *fiber.Ctx) error {
	var req sessionTypes.SessionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateCreate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	s := req.Model()
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		used, err := taken(tx, "session_number", s.SessionNumber, "")
		if err != nil {
			return err
		}
		if used {
			return errNumberTaken
		}
		if s.Slug, err = resolveSlug(tx, req.Slug, s.Title, s.SessionNumber, ""); err != nil {
			return err
		}
		return tx.Create(&s).Error
	})
	if err != nil {
		return sc.writeError(c, err, "create")
	}

	logger.Success(fmt.Sprintf("Session %d created", s.SessionNumber), zap.String("id", s.ID))
	return sc.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء الجلسة بنجاح",
		Status:  fiber.StatusCreated,
		Data:    s,
	})
}

func (sc *SessionController) Update(c *fiber.Ctx) error {
	var req sessionTypes.SessionRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return sc.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateUpdate(); err != nil {
		return sc.fail(c, fiber.StatusBadRequest, err.Error())
	}

	var s session.Session
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
			return err
		}
		cols := req.Columns()
		if req.SessionNumber != nil && *req.SessionNumber != s.SessionNumber {
			used, err := taken(tx, "session_number", *req.SessionNumber, s.ID)
			if err != nil {
				return err
			}
			if used {
				return errNumberTaken
			}
		}
		if req.Slug != nil && (s.Slug == nil || *req.Slug != *s.Slug) {
			title, number := s.Title, s.SessionNumber
			if req.Title != nil {
				title = *req.Title
			}
			if req.SessionNumber != nil {
				number = *req.SessionNumber
			}
			slug, err := resolveSlug(tx, req.Slug, title, number, s.ID)
			if err != nil {
				return err
			}
			cols["slug"] = slug
		}
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&s).Updates(cols).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", s.ID).First(&s).Error
	})
	if err != nil {
		return sc.writeError(c, err, "update")
	}
	return sc.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تحديث الجلسة بنجاح",
		Status:  fiber.StatusOK,
		Data:    s,
	})
}

func (sc *SessionController) find(c *fiber.Ctx) (*session.Session, error) {
	var s session.Session
	if err := sc.DB.Where("id = ?", c.Params("id")).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (sc *SessionController) GetCountdown(c *fiber.Ctx) error {
	s, err := sc.find(c)
	if err != nil {
		return sc.writeError(c, err, "load")
	}
	return sc.ok(c, s.CountdownAt(time.Now()))
}

type embedCode struct {
	EmbedURL     string  `json:"embedUrl"`
	MiniURL      *string `json:"miniUrl"`
	StandardCode string  `json:"standardCode"`
	MiniCode     *string `json:"miniCode"`
}

func (sc *SessionController) GetEmbedCode(c *fiber.Ctx) error {
	s, err := sc.find(c)
	if err != nil {
		return sc.writeError(c, err, "load")
	}
	if !s.EmbedEnabled {
		return sc.fail(c, fiber.StatusBadRequest, "التضمين غير مفعل لهذه الجلسة")
	}

	embedURL := strings.TrimRight(sc.Config.BaseURL, "/") + "/event/" + s.PathKey() + "/embed"
	code := embedCode{
		EmbedURL:     embedURL,
		StandardCode: fmt.Sprintf(`<iframe src="%s" width="100%%" height="600" frameborder="0"></iframe>`, embedURL),
	}
	if s.EnableMiniView {
		miniURL := embedURL + "?mini=true"
		miniCode := fmt.Sprintf(`<iframe src="%s" width="300" height="400" frameborder="0"></iframe>`, miniURL)
		code.MiniURL, code.MiniCode = &miniURL, &miniCode
	}
	return sc.ok(c, code)
}

// CheckRegistration reports the caller's registration for a session.
func (sc *SessionController) CheckRegistration(c *fiber.Ctx) error {
	var reg registration.Registration
	err := sc.DB.Preload("Companions").
		Where("session_id = ? AND user_id = ?", c.Params("id"), middleware.CurrentUserID(c)).
		First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sc.ok(c, fiber.Map{"registered": false})
	}
	if err != nil {
		logger.Error("Error fetching registration", err)
		return sc.fail(c, fiber.StatusInternalServerError, "Error fetching registration")
	}
	return sc.ok(c, fiber.Map{
		"registered": true,
		"registration": fiber.Map{
			"id":             reg.ID,
			"isApproved":     reg.IsApproved,
			"registeredAt":   reg.RegisteredAt,
			"companionCount": len(reg.Companions),
		},
	})
}
