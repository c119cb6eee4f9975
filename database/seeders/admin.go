package seeders

import (
	"errors"
	"fmt"
	"strings"

	"eventpilot/logger"
	"eventpilot/models/user"
	"eventpilot/services/auth"

	"gorm.io/gorm"
)

var ErrSuperAdminExists = errors.New("a super admin already exists")

// SeedSuperAdmin creates the first SUPER_ADMIN. It refuses once any super
// admin exists. An existing account with the same email is promoted.
func SeedSuperAdmin(db *gorm.DB, name, email, password string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("super admin email and a password of at least %d characters are required", auth.MinPasswordLength)
	}
	if name == "" {
		name = "Super Admin"
	}

	var created *user.User
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&user.User{}).Where("role = ?", user.RoleSuperAdmin).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrSuperAdminExists
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		var existing user.User
		err = tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			existing.Role = user.RoleSuperAdmin
			existing.IsActive = true
			existing.PasswordHash = hash
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			created = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		username, err := user.GenerateUniqueUsername(tx, name)
		if err != nil {
			return err
		}
		u := user.User{
			Name:         name,
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         user.RoleSuperAdmin,
			IsActive:     true,
		}
		if err := tx.Create(&u).Error; err != nil {
			return err
		}
		created = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Success("Super admin ready: " + created.Email)
	return created, nil
}
