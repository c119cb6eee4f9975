package middleware

import (
	"eventpilot/models/valet"
	"eventpilot/services/auth"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const valetTokenHeader = "x-valet-token"

// ValetAuth authenticates valet staff. Their tokens are separate from user
// tokens and carry type "valet".
type ValetAuth struct {
	DB     *gorm.DB
	Secret string
}

func NewValetAuth(db *gorm.DB, secret string) *ValetAuth {
	return &ValetAuth{DB: db, Secret: secret}
}

func (v *ValetAuth) RequireValet() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get(valetTokenHeader)
		if token == "" {
			var err error
			if token, err = bearerOrCookie(c); err != nil {
				return unauthorized(c, "يجب تسجيل الدخول كموظف فاليه")
			}
		}
		claims, err := auth.ParseValetToken(v.Secret, token)
		if err != nil {
			return unauthorized(c, "رمز الدخول غير صالح")
		}

		var employee valet.Employee
		if err := v.DB.Where("id = ?", claims.EmployeeID).First(&employee).Error; err != nil {
			return unauthorized(c, "رمز الدخول غير صالح")
		}
		if !employee.IsActive {
			return forbidden(c, "هذا الحساب غير مفعل")
		}
		c.Locals("valetEmployee", &employee)
		return c.Next()
	}
}

// CurrentValet returns the employee set by RequireValet, or nil.
func CurrentValet(c *fiber.Ctx) *valet.Employee {
	e, _ := c.Locals("valetEmployee").(*valet.Employee)
	return e
}
