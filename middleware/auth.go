package middleware

import (
	"errors"
	"strings"

	"eventpilot/models/user"
	"eventpilot/services/auth"
	"eventpilot/services/permission"
	"eventpilot/types"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Authenticator resolves the caller from a user JWT and loads the account
// so role, permission and active-flag changes apply without a new login.
type Authenticator struct {
	DB     *gorm.DB
	Secret string
}

func NewAuthenticator(db *gorm.DB, secret string) *Authenticator {
	return &Authenticator{DB: db, Secret: secret}
}

var errNoToken = errors.New("authorization token missing")

// bearerOrCookie reads "Authorization: Bearer" and falls back to the
// access cookie.
func bearerOrCookie(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}
	if token := c.Cookies("access"); token != "" {
		return token, nil
	}
	return "", errNoToken
}

func (a *Authenticator) resolve(c *fiber.Ctx) (*user.User, error) {
	token, err := bearerOrCookie(c)
	if err != nil {
		return nil, err
	}
	claims, err := auth.ParseUserToken(a.Secret, token)
	if err != nil {
		return nil, err
	}
	var u user.User
	if err := a.DB.Where("id = ?", claims.UserID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(types.ApiResponse{
		Message: message,
		Status:  fiber.StatusUnauthorized,
	})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(types.ApiResponse{
		Message: message,
		Status:  fiber.StatusForbidden,
	})
}

func setUser(c *fiber.Ctx, u *user.User) {
	c.Locals("userID", u.ID)
	c.Locals("user", u)
}

// RequireAuth rejects requests without a valid token for an active user.
func (a *Authenticator) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := a.resolve(c)
		if err != nil {
			return unauthorized(c, "يجب تسجيل الدخول")
		}
		if !u.IsActive {
			return forbidden(c, "هذا الحساب غير مفعل")
		}
		setUser(c, u)
		return c.Next()
	}
}

// OptionalAuth sets the user when a valid token is present and otherwise
// lets the request through anonymously.
func (a *Authenticator) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if u, err := a.resolve(c); err == nil && u.IsActive {
			setUser(c, u)
		}
		return c.Next()
	}
}

// RequireAdmin needs an ADMIN or SUPER_ADMIN holding every listed flag.
func (a *Authenticator) RequireAdmin(permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := a.resolve(c)
		if err != nil {
			return unauthorized(c, "يجب تسجيل الدخول")
		}
		if !u.IsActive {
			return forbidden(c, "هذا الحساب غير مفعل")
		}
		if !permission.HasAll(u, permissions...) {
			return forbidden(c, "ليس لديك صلاحية للوصول")
		}
		setUser(c, u)
		return c.Next()
	}
}

func (a *Authenticator) RequireSuperAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := a.resolve(c)
		if err != nil {
			return unauthorized(c, "يجب تسجيل الدخول")
		}
		if !u.IsActive {
			return forbidden(c, "هذا الحساب غير مفعل")
		}
		if u.Role != user.RoleSuperAdmin {
			return forbidden(c, "هذه العملية متاحة للمدير العام فقط")
		}
		setUser(c, u)
		return c.Next()
	}
}

// CurrentUser returns the user set by one of the auth handlers, or nil.
func CurrentUser(c *fiber.Ctx) *user.User {
	u, _ := c.Locals("user").(*user.User)
	return u
}

func CurrentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
