package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"eventpilot/config"
	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/common"
	"eventpilot/models/sponsor"
	"eventpilot/models/user"
	authService "eventpilot/services/auth"
	"eventpilot/services/permission"
	"eventpilot/types"
	authTypes "eventpilot/types/auth"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

// Mailer sends the account emails.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
}

type AuthController struct {
	DB     *gorm.DB
	Logger *logger.AsyncLogger
	Mailer Mailer
	Config *config.Config
}

func NewAuthController(db *gorm.DB, asyncLogger *logger.AsyncLogger, mailer Mailer, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Logger: asyncLogger, Mailer: mailer, Config: cfg}
}

func (h *AuthController) logAPIRequest(c *fiber.Ctx) {
	logEntry := utils.CreateSanitizedLogEntry(c)
	h.Logger.Log(logEntry)
}

func (h *AuthController) sendResponseWithLog(c *fiber.Ctx, status int, response types.ApiResponse) error {
	result := c.Status(status).JSON(response)
	h.logAPIRequest(c)
	return result
}

func (h *AuthController) fail(c *fiber.Ctx, status int, message string) error {
	return h.sendResponseWithLog(c, status, types.ApiResponse{Message: message, Status: status})
}

// setSecureCookie stores the access token for browser clients.
func (h *AuthController) setSecureCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		Secure:   strings.HasPrefix(h.Config.BaseURL, "https://"),
		SameSite: "Strict",
		MaxAge:   maxAge,
		Path:     "/",
	})
}

func (h *AuthController) issue(c *fiber.Ctx, u *user.User) (string, error) {
	token, err := authService.IssueUserToken(h.Config.JWTSecret, h.Config.JWTTTL, u)
	if err != nil {
		return "", err
	}
	h.setSecureCookie(c, "access", token, int(h.Config.JWTTTL.Seconds()))
	return token, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Register creates a USER account and signs it in.
func (h *AuthController) Register(c *fiber.Ctx) error {
	var req authTypes.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := utils.FormatPhoneNumber(req.Phone)

	var u user.User
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&user.User{}).Where("email = ? OR phone = ?", email, phone).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return user.ErrEmailTaken
		}

		username, err := user.GenerateUniqueUsername(tx, req.Name)
		if err != nil {
			return err
		}
		hash, err := authService.HashPassword(req.Password)
		if err != nil {
			return err
		}

		hostingTypes := req.HostingTypes
		if req.WantsToSponsor {
			hostingTypes = req.SponsorshipTypes
		}
		u = user.User{
			Name:         strings.TrimSpace(req.Name),
			Username:     username,
			Email:        email,
			Phone:        phone,
			PasswordHash: hash,
			Role:         user.RoleUser,
			IsActive:     true,
			CompanyName:  optional(req.CompanyName),
			Position:     optional(req.Position),
			ActivityType: optional(req.ActivityType),
			Gender:       optional(req.Gender),
			Goal:         optional(req.Goal),
			Instagram:    optional(req.Instagram),
			Snapchat:     optional(req.Snapchat),
			Twitter:      optional(req.Twitter),
			WantsToHost:  req.WantsToHost || req.WantsToSponsor,
			HostingTypes: common.StringSlice(hostingTypes),
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}

		if !req.WantsToSponsor {
			return nil
		}
		sponsorType := sponsor.Type(req.SponsorType)
		if sponsorType == "" {
			sponsorType = sponsor.TypePerson
		}
		return tx.Create(&sponsor.Sponsor{
			Name:                 req.SponsorName(),
			Type:                 sponsorType,
			Email:                &email,
			Phone:                &phone,
			SponsorshipTypes:     common.StringSlice(req.SponsorshipTypes),
			SponsorshipOtherText: optional(req.SponsorshipOtherText),
			IsActive:             true,
			UserID:               &u.ID,
		}).Error
	})
	if errors.Is(err, user.ErrEmailTaken) {
		return h.fail(c, fiber.StatusConflict, "الحساب مسجل مسبقاً، يرجى تسجيل الدخول")
	}
	if err != nil {
		logger.Error("Failed to register user", err, zap.String("email", email))
		return h.fail(c, fiber.StatusInternalServerError, "Failed to create account")
	}

	if err := h.Mailer.SendWelcome(c.UserContext(), u.Email, u.Name); err != nil {
		logger.Warning("Welcome email not sent", zap.String("to", u.Email), zap.Error(err))
	}

	token, err := h.issue(c, &u)
	if err != nil {
		logger.Error("Failed to issue token", err)
		return h.fail(c, fiber.StatusInternalServerError, "Failed to create session")
	}

	logger.Success("User registered: " + u.Username)
	return h.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء الحساب بنجاح",
		Status:  fiber.StatusCreated,
		Token:   token,
		Data: fiber.Map{
			"userId":   u.ID,
			"username": u.Username,
		},
	})
}

// Login accepts an email or username with the password.
func (h *AuthController) Login(c *fiber.Ctx) error {
	var req authTypes.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}

	u, err := user.FindByLogin(h.DB, req.Login)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to look up user", err)
		return h.fail(c, fiber.StatusInternalServerError, "Database error")
	}
	if u == nil || u.PasswordHash == "" || !authService.CheckPassword(u.PasswordHash, req.Password) {
		return h.fail(c, fiber.StatusUnauthorized, "بيانات الدخول غير صحيحة")
	}
	if !u.IsActive {
		return h.fail(c, fiber.StatusForbidden, "هذا الحساب غير مفعل")
	}

	token, err := h.issue(c, u)
	if err != nil {
		logger.Error("Failed to issue token", err)
		return h.fail(c, fiber.StatusInternalServerError, "Failed to create session")
	}
	return h.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تسجيل الدخول بنجاح",
		Status:  fiber.StatusOK,
		Token:   token,
		Data: fiber.Map{
			"id":          u.ID,
			"name":        u.Name,
			"username":    u.Username,
			"email":       u.Email,
			"role":        u.Role,
			"permissions": permission.List(u),
		},
	})
}

func (h *AuthController) Logout(c *fiber.Ctx) error {
	h.setSecureCookie(c, "access", "", -1)
	return h.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تسجيل الخروج",
		Status:  fiber.StatusOK,
	})
}

// ForgotPassword always answers success so callers cannot probe for
// registered emails.
func (h *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var req authTypes.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}
	done := types.ApiResponse{
		Message: "إذا كان البريد مسجلاً فستصلك رسالة لإعادة تعيين كلمة المرور",
		Status:  fiber.StatusOK,
		Data:    types.SuccessResult{Success: true},
	}

	var u user.User
	err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return h.sendResponseWithLog(c, fiber.StatusOK, done)
	}
	if err != nil {
		logger.Error("Failed to look up user", err)
		return h.fail(c, fiber.StatusInternalServerError, "Database error")
	}

	token, err := utils.GenerateHexToken(32)
	if err != nil {
		logger.Error("Failed to generate reset token", err)
		return h.fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}
	reset := user.PasswordResetToken{
		UserID:    u.ID,
		TokenHash: utils.HashToken(token),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := h.DB.Create(&reset).Error; err != nil {
		logger.Error("Failed to store reset token", err)
		return h.fail(c, fiber.StatusInternalServerError, "Database error")
	}

	resetURL := strings.TrimRight(h.Config.BaseURL, "/") + "/reset-password?token=" + token
	if err := h.Mailer.SendPasswordReset(c.UserContext(), u.Email, u.Name, resetURL); err != nil {
		logger.Warning("Password reset email not sent", zap.String("to", u.Email), zap.Error(err))
	}
	return h.sendResponseWithLog(c, fiber.StatusOK, done)
}

func (h *AuthController) findResetToken(db *gorm.DB, token string) (*user.PasswordResetToken, error) {
	var reset user.PasswordResetToken
	if err := db.Where("token_hash = ?", utils.HashToken(token)).First(&reset).Error; err != nil {
		return nil, err
	}
	if !reset.Usable(time.Now()) {
		return nil, gorm.ErrRecordNotFound
	}
	return &reset, nil
}

func (h *AuthController) ValidateResetToken(c *fiber.Ctx) error {
	_, err := h.findResetToken(h.DB, c.Query("token"))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to look up reset token", err)
		return h.fail(c, fiber.StatusInternalServerError, "Database error")
	}
	return h.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "OK",
		Status:  fiber.StatusOK,
		Data:    fiber.Map{"valid": err == nil},
	})
}

// ResetPassword consumes the token; a second use is rejected.
func (h *AuthController) ResetPassword(c *fiber.Ctx) error {
	var req authTypes.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}

	invalid := errors.New("invalid reset token")
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		reset, err := h.findResetToken(tx, req.Token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid
		}
		if err != nil {
			return err
		}
		result := tx.Model(&user.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", reset.ID).
			Update("used_at", time.Now())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invalid
		}
		hash, err := authService.HashPassword(req.Password)
		if err != nil {
			return err
		}
		return tx.Model(&user.User{}).Where("id = ?", reset.UserID).Update("password_hash", hash).Error
	})
	if errors.Is(err, invalid) {
		return h.fail(c, fiber.StatusBadRequest, "رابط إعادة تعيين كلمة المرور غير صالح أو منتهي الصلاحية")
	}
	if err != nil {
		logger.Error("Failed to reset password", err)
		return h.fail(c, fiber.StatusInternalServerError, "Failed to reset password")
	}
	return h.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تغيير كلمة المرور بنجاح",
		Status:  fiber.StatusOK,
		Data:    types.SuccessResult{Success: true},
	})
}

func (h *AuthController) ChangePassword(c *fiber.Ctx) error {
	var req authTypes.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return h.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return h.fail(c, fiber.StatusBadRequest, err.Error())
	}

	u := middleware.CurrentUser(c)
	if u == nil || u.PasswordHash == "" {
		return h.fail(c, fiber.StatusNotFound, "المستخدم غير موجود")
	}
	if !authService.CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return h.fail(c, fiber.StatusBadRequest, "كلمة المرور الحالية غير صحيحة")
	}
	hash, err := authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return h.fail(c, fiber.StatusInternalServerError, "Failed to change password")
	}
	if err := h.DB.Model(u).Update("password_hash", hash).Error; err != nil {
		logger.Error("Failed to update password", err)
		return h.fail(c, fiber.StatusInternalServerError, "Failed to change password")
	}
	return h.sendResponseWithLog(c, fiber.StatusOK, types.ApiResponse{
		Message: "تم تغيير كلمة المرور بنجاح",
		Status:  fiber.StatusOK,
		Data:    types.SuccessResult{Success: true},
	})
}
