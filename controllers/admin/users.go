package admin

import (
	"errors"
	"strings"

	"eventpilot/database/seeders"
	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/registration"
	"eventpilot/models/user"
	"eventpilot/services/auth"
	"eventpilot/services/permission"
	"eventpilot/types"
	adminTypes "eventpilot/types/admin"
	"eventpilot/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

/*===== | Users =====*/

func (ac *AdminController) GetUsers(c *fiber.Ctx) error {
	cur := utils.ParseCursor(c)
	query := ac.DB.Model(&user.User{})
	if role := c.Query("role"); role != "" {
		if !user.Role(role).IsValid() {
			return ac.fail(c, fiber.StatusBadRequest, "الدور غير صالح")
		}
		query = query.Where("role = ?", role)
	}
	if label := c.Query("labelId"); label != "" {
		query = query.Where("id IN (?)", ac.DB.Table("user_label_assignments").Select("user_id").Where("label_id = ?", label))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR phone LIKE ?", like, like, like, like)
	}

	var users []user.User
	if err := query.Preload("Labels").Scopes(utils.CursorScope("users", "created_at", true, cur)).Find(&users).Error; err != nil {
		return ac.dbError(c, err, "Error fetching users")
	}
	users, next := utils.NextCursor(users, cur.Limit, func(u user.User) string { return u.ID })
	return ac.ok(c, types.CursorPage{Items: users, NextCursor: next})
}

func (ac *AdminController) GetUserByID(c *fiber.Ctx) error {
	var u user.User
	if err := ac.DB.Preload("Labels").Where("id = ?", c.Params("id")).First(&u).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	var regs []registration.Registration
	err := ac.DB.Preload("Session").Preload("Attendance").
		Where("user_id = ?", u.ID).
		Order("registered_at DESC").
		Find(&regs).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching user registrations")
	}
	var attended int
	for _, r := range regs {
		if r.Attendance != nil && r.Attendance.Attended {
			attended++
		}
	}
	return ac.ok(c, fiber.Map{
		"user":          u,
		"permissions":   permission.List(&u),
		"registrations": regs,
		"attendedCount": attended,
	})
}

func (ac *AdminController) ToggleUserActive(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == middleware.CurrentUserID(c) {
		return ac.fail(c, fiber.StatusBadRequest, "لا يمكنك تعطيل حسابك")
	}
	var u user.User
	if err := ac.DB.Where("id = ?", id).First(&u).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	if u.Role == user.RoleSuperAdmin && middleware.CurrentUser(c).Role != user.RoleSuperAdmin {
		return ac.fail(c, fiber.StatusForbidden, "Forbidden")
	}
	if err := ac.DB.Model(&u).Update("is_active", !u.IsActive).Error; err != nil {
		return ac.dbError(c, err, "Failed to update user")
	}
	return ac.ok(c, fiber.Map{"id": u.ID, "isActive": !u.IsActive})
}

/*===== | Admins (SUPER_ADMIN) =====*/

func (ac *AdminController) UpdateUserRole(c *fiber.Ctx) error {
	var req adminTypes.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	id := c.Params("id")
	if id == middleware.CurrentUserID(c) && req.Role != user.RoleSuperAdmin {
		return ac.fail(c, fiber.StatusBadRequest, "لا يمكنك تغيير دورك")
	}

	var u user.User
	if err := ac.DB.Where("id = ?", id).First(&u).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	cols := map[string]interface{}{"role": req.Role}
	if req.Role == user.RoleUser {
		u.Role = req.Role
		permission.Apply(&u, nil)
		for k, v := range permission.Columns(&u) {
			cols[k] = v
		}
	}
	if err := ac.DB.Model(&u).Updates(cols).Error; err != nil {
		return ac.dbError(c, err, "Failed to update role")
	}
	logger.Info("User role changed", zap.String("user", u.ID), zap.String("role", string(req.Role)),
		zap.String("by", middleware.CurrentUserID(c)))
	if err := ac.DB.Where("id = ?", u.ID).First(&u).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	return ac.ok(c, u)
}

func (ac *AdminController) CreateAdmin(c *fiber.Ctx) error {
	var req adminTypes.CreateAdminRequest
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
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			return err
		}
		username, err := user.GenerateUniqueUsername(tx, req.Name)
		if err != nil {
			return err
		}
		u = user.User{
			Name:         strings.TrimSpace(req.Name),
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         user.RoleAdmin,
			IsActive:     true,
		}
		permission.Apply(&u, req.Permissions)
		return tx.Create(&u).Error
	})
	if errors.Is(err, user.ErrEmailTaken) {
		return ac.fail(c, fiber.StatusConflict, "البريد الإلكتروني مسجل مسبقاً")
	}
	if err != nil {
		return ac.dbError(c, err, "Failed to create admin")
	}
	logger.Success("Admin created", zap.String("user", u.ID), zap.String("by", middleware.CurrentUserID(c)))
	return ac.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء المشرف",
		Status:  fiber.StatusCreated,
		Data:    fiber.Map{"user": u, "permissions": permission.List(&u)},
	})
}

type adminView struct {
	user.User
	Permissions []string `json:"permissions"`
}

func (ac *AdminController) GetAdminUsers(c *fiber.Ctx) error {
	var users []user.User
	err := ac.DB.Where("role IN ?", []user.Role{user.RoleAdmin, user.RoleSuperAdmin}).Order("created_at ASC").Find(&users).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching admins")
	}
	out := make([]adminView, 0, len(users))
	for i := range users {
		out = append(out, adminView{User: users[i], Permissions: permission.List(&users[i])})
	}
	return ac.ok(c, out)
}

func (ac *AdminController) UpdateUserPermissions(c *fiber.Ctx) error {
	var req adminTypes.PermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	var u user.User
	if err := ac.DB.Where("id = ?", c.Params("id")).First(&u).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	if u.Role != user.RoleAdmin {
		return ac.fail(c, fiber.StatusBadRequest, "الصلاحيات تطبق على المشرفين فقط")
	}
	permission.Apply(&u, req.Permissions)
	if err := ac.DB.Model(&u).Updates(permission.Columns(&u)).Error; err != nil {
		return ac.dbError(c, err, "Failed to update permissions")
	}
	return ac.ok(c, adminView{User: u, Permissions: permission.List(&u)})
}

// BootstrapSuperAdmin creates the first SUPER_ADMIN from the request or the
// configured credentials. Refused once any super admin exists.
func (ac *AdminController) BootstrapSuperAdmin(c *fiber.Ctx) error {
	var req adminTypes.BootstrapRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			logger.Error("Failed to parse request body", err)
			return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if req.Email == "" {
		req.Email, req.Password = ac.Config.SuperAdminEmail, ac.Config.SuperAdminPassword
	}

	u, err := seeders.SeedSuperAdmin(ac.DB, req.Name, req.Email, req.Password)
	if errors.Is(err, seeders.ErrSuperAdminExists) {
		return ac.fail(c, fiber.StatusForbidden, "يوجد مشرف عام بالفعل")
	}
	if err != nil {
		logger.Warning("Super admin bootstrap failed", zap.Error(err))
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	return ac.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء المشرف العام",
		Status:  fiber.StatusCreated,
		Data:    u,
	})
}
