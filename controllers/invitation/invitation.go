package invitation

import (
	"errors"
	"strings"
	"time"

	"eventpilot/logger"
	invitationModel "eventpilot/models/invitation"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/mailer"
	"eventpilot/types"
	invitationTypes "eventpilot/types/invitation"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenBytes = 32

type InvitationController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
	Mailer *mailer.Mailer
}

func NewInvitationController(db *gorm.DB, asyncLogger *logger.AsyncLogger, m *mailer.Mailer) *InvitationController {
	return &InvitationController{DB: db, Logger: asyncLogger, Mailer: m}
}

func (ic *InvitationController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	ic.Logger.Log(logEntry)
}

func (ic *InvitationController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	ic.logAPIRequest(c)
	return result
}

func (ic *InvitationController) ok(c *fiber.Ctx, data interface{}) error {
	return ic.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{Message: "OK", Status: fiber.StatusOK, Data: data})
}

func (ic *InvitationController) fail(c *fiber.Ctx, status int, message string) error {
	return ic.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

func (ic *InvitationController) loadSession(c *fiber.Ctx, id string) (*session.Session, error) {
	var s session.Session
	err := ic.DB.Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ic.fail(c, fiber.StatusNotFound, "الجلسة غير موجودة")
	}
	if err != nil {
		logger.Error("Error fetching session", err)
		return nil, ic.fail(c, fiber.StatusInternalServerError, "Error fetching session")
	}
	return &s, nil
}

func newInvite(sessionID string, at time.Time) (invitationModel.Invite, error) {
	token, err := utils.GenerateToken(tokenBytes)
	if err != nil {
		return invitationModel.Invite{}, err
	}
	return invitationModel.Invite{SessionID: sessionID, Token: token, ExpiresAt: at.Add(invitationModel.TTL)}, nil
}

// GetUsersForInvite lists active users who have no registration on the session.
func (ic *InvitationController) GetUsersForInvite(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return ic.fail(c, fiber.StatusBadRequest, "معرف الجلسة مطلوب")
	}
	query := ic.DB.Model(&user.User{}).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", ic.DB.Model(&registration.Registration{}).
			Select("user_id").
			Where("session_id = ? AND user_id IS NOT NULL", sessionID))
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var users []user.User
	if err := query.Order("name ASC").Limit(utils.MaxLimit).Find(&users).Error; err != nil {
		logger.Error("Error fetching users for invite", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Error fetching users")
	}
	out := make([]user.PublicProfile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return ic.ok(c, out)
}

func (ic *InvitationController) SendInvites(c *fiber.Ctx) error {
	var req invitationTypes.SendRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ic.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ic.fail(c, fiber.StatusBadRequest, err.Error())
	}
	if !ic.Mailer.Configured() {
		return ic.fail(c, fiber.StatusServiceUnavailable, "خدمة البريد غير مفعلة")
	}
	s, err := ic.loadSession(c, req.SessionID)
	if s == nil {
		return err
	}

	message := req.CustomMessage
	if strings.TrimSpace(message) == "" && s.InviteMessage != nil {
		message = *s.InviteMessage
	}

	at := time.Now()
	var result invitationTypes.SendResult
	for _, addr := range req.Recipients() {
		var live int64
		err := ic.DB.Model(&invitationModel.Invite{}).
			Where("session_id = ? AND email = ? AND used = ? AND expires_at > ?", s.ID, addr, false, at).
			Count(&live).Error
		if err != nil {
			logger.Error("Error checking invites", err)
			result.Failed++
			continue
		}
		if live > 0 {
			result.Skipped++
			continue
		}

		inv, err := newInvite(s.ID, at)
		if err != nil {
			logger.Error("Failed to generate invite token", err)
			result.Failed++
			continue
		}
		email := addr
		inv.Email = &email
		if err := ic.DB.Create(&inv).Error; err != nil {
			logger.Error("Failed to create invite", err)
			result.Failed++
			continue
		}
		if err := ic.Mailer.SendInvitation(c.UserContext(), addr, s, inv.Token, message); err != nil {
			logger.Warning("Invite email failed", zap.String("to", addr), zap.Error(err))
			result.Failed++
			continue
		}
		sentAt, via := time.Now(), "email"
		if err := ic.DB.Model(&inv).Updates(map[string]interface{}{"sent_at": sentAt, "sent_via": via}).Error; err != nil {
			logger.Error("Failed to mark invite sent", err, zap.String("invite", inv.ID))
		}
		result.Sent++
	}
	logger.Success("Invites sent", zap.String("sessionId", s.ID), zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped), zap.Int("failed", result.Failed))
	return ic.ok(c, result)
}

// GenerateWhatsAppLinks creates one invite per phone and returns wa.me links
// carrying the message and registration link.
func (ic *InvitationController) GenerateWhatsAppLinks(c *fiber.Ctx) error {
	var req invitationTypes.WhatsAppRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ic.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ic.fail(c, fiber.StatusBadRequest, err.Error())
	}
	s, err := ic.loadSession(c, req.SessionID)
	if s == nil {
		return err
	}

	message := req.CustomMessage
	if strings.TrimSpace(message) == "" {
		message = "يسعدنا دعوتك لحضور " + s.Title
		if s.InviteMessage != nil {
			message = *s.InviteMessage
		}
	}

	at := time.Now()
	links := make([]invitationTypes.WhatsAppLink, 0, len(req.Phones))
	err = ic.DB.Transaction(func(tx *gorm.DB) error {
		for _, raw := range req.Phones {
			inv, err := newInvite(s.ID, at)
			if err != nil {
				return err
			}
			phone, via := utils.FormatPhoneNumber(raw), "whatsapp"
			inv.Phone, inv.SentVia, inv.SentAt = &phone, &via, &at
			if err := tx.Create(&inv).Error; err != nil {
				return err
			}
			link := ic.Mailer.InviteLink(s, inv.Token)
			text := strings.ReplaceAll(message, mailer.InvitePlaceholder, link)
			if !strings.Contains(message, mailer.InvitePlaceholder) {
				text = text + "\n" + link
			}
			links = append(links, invitationTypes.WhatsAppLink{Phone: phone, Link: utils.WhatsAppLink(phone, text)})
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create WhatsApp invites", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Failed to create invites")
	}
	return ic.ok(c, links)
}

func (ic *InvitationController) GetSessionInvites(c *fiber.Ctx) error {
	var invites []invitationModel.Invite
	if err := ic.DB.Where("session_id = ?", c.Params("id")).Order("created_at DESC").Find(&invites).Error; err != nil {
		logger.Error("Error fetching invites", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Error fetching invites")
	}
	return ic.ok(c, invites)
}

// ValidateToken is public; it never reveals why a token is rejected.
func (ic *InvitationController) ValidateToken(c *fiber.Ctx) error {
	var req invitationTypes.ValidateTokenRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ic.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Token == "" || req.SessionID == "" {
		return ic.ok(c, fiber.Map{"valid": false})
	}

	inv, err := invitationModel.FindRedeemable(ic.DB, req.SessionID, req.Token, time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ic.ok(c, fiber.Map{"valid": false})
	}
	if err != nil {
		logger.Error("Error validating invite", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Error validating invite")
	}
	var s session.Session
	if err := ic.DB.Where("id = ?", inv.SessionID).First(&s).Error; err != nil || s.Status != session.StatusOpen {
		return ic.ok(c, fiber.Map{"valid": false})
	}
	return ic.ok(c, fiber.Map{"valid": true, "email": inv.Email, "phone": inv.Phone})
}

func (ic *InvitationController) ResendInvite(c *fiber.Ctx) error {
	var inv invitationModel.Invite
	err := ic.DB.Preload("Session").Where("id = ?", c.Params("id")).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ic.fail(c, fiber.StatusNotFound, "الدعوة غير موجودة")
	}
	if err != nil {
		logger.Error("Error fetching invite", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Error fetching invite")
	}
	if inv.Used {
		return ic.fail(c, fiber.StatusBadRequest, "تم استخدام الدعوة مسبقاً")
	}

	fresh, err := newInvite(inv.SessionID, time.Now())
	if err != nil {
		logger.Error("Failed to generate invite token", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Failed to resend invite")
	}
	cols := map[string]interface{}{"token": fresh.Token, "expires_at": fresh.ExpiresAt}

	if inv.Email != nil && *inv.Email != "" {
		if !ic.Mailer.Configured() {
			return ic.fail(c, fiber.StatusServiceUnavailable, "خدمة البريد غير مفعلة")
		}
		message := ""
		if inv.Session.InviteMessage != nil {
			message = *inv.Session.InviteMessage
		}
		if err := ic.Mailer.SendInvitation(c.UserContext(), *inv.Email, inv.Session, fresh.Token, message); err != nil {
			logger.Error("Failed to resend invite", err)
			return ic.fail(c, fiber.StatusBadGateway, "فشل إرسال الدعوة")
		}
		cols["sent_at"], cols["sent_via"] = time.Now(), "email"
	}
	if err := ic.DB.Model(&inv).Updates(cols).Error; err != nil {
		logger.Error("Failed to update invite", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Failed to resend invite")
	}
	var updated invitationModel.Invite
	if err := ic.DB.Where("id = ?", inv.ID).First(&updated).Error; err != nil {
		logger.Error("Error fetching invite", err)
		return ic.fail(c, fiber.StatusInternalServerError, "Error fetching invite")
	}
	return ic.ok(c, fiber.Map{"invite": updated, "link": ic.Mailer.InviteLink(inv.Session, updated.Token)})
}

func (ic *InvitationController) DeleteInvite(c *fiber.Ctx) error {
	result := ic.DB.Where("id = ?", c.Params("id")).Delete(&invitationModel.Invite{})
	if result.Error != nil {
		logger.Error("Failed to delete invite", result.Error)
		return ic.fail(c, fiber.StatusInternalServerError, "Failed to delete invite")
	}
	if result.RowsAffected == 0 {
		return ic.fail(c, fiber.StatusNotFound, "الدعوة غير موجودة")
	}
	return ic.ok(c, types.SuccessResult{Success: true})
}
