package admin

import (
	"errors"
	"strings"

	"eventpilot/logger"
	"eventpilot/middleware"
	"eventpilot/models/settings"
	"eventpilot/models/user"
	"eventpilot/types"
	adminTypes "eventpilot/types/admin"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var errLabelTaken = errors.New("label name taken")

/*===== | Labels =====*/

type labelView struct {
	user.Label
	UserCount int64 `json:"userCount"`
}

func (ac *AdminController) GetLabels(c *fiber.Ctx) error {
	var labels []user.Label
	if err := ac.DB.Order("name ASC").Find(&labels).Error; err != nil {
		return ac.dbError(c, err, "Error fetching labels")
	}
	var counts []struct {
		LabelID string
		Count   int64
	}
	err := ac.DB.Table("user_label_assignments").
		Select("label_id, COUNT(*) AS count").
		Group("label_id").
		Scan(&counts).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching labels")
	}
	byLabel := make(map[string]int64, len(counts))
	for _, r := range counts {
		byLabel[r.LabelID] = r.Count
	}
	out := make([]labelView, 0, len(labels))
	for _, l := range labels {
		out = append(out, labelView{Label: l, UserCount: byLabel[l.ID]})
	}
	return ac.ok(c, out)
}

func nameTaken(tx *gorm.DB, name, exceptID string) error {
	var n int64
	q := tx.Model(&user.Label{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errLabelTaken
	}
	return nil
}

func (ac *AdminController) labelError(c *fiber.Ctx, err error, message string) error {
	if errors.Is(err, errLabelTaken) {
		return ac.fail(c, fiber.StatusConflict, "اسم التصنيف مستخدم مسبقاً")
	}
	return ac.dbError(c, err, message)
}

func (ac *AdminController) CreateLabel(c *fiber.Ctx) error {
	var req adminTypes.LabelRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateCreate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	l := req.Model()
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := nameTaken(tx, l.Name, ""); err != nil {
			return err
		}
		return tx.Create(&l).Error
	})
	if err != nil {
		return ac.labelError(c, err, "Failed to create label")
	}
	return ac.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء التصنيف",
		Status:  fiber.StatusCreated,
		Data:    l,
	})
}

func (ac *AdminController) UpdateLabel(c *fiber.Ctx) error {
	var req adminTypes.LabelRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.ValidateUpdate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	var l user.Label
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", c.Params("id")).First(&l).Error; err != nil {
			return err
		}
		if req.Name != nil {
			if err := nameTaken(tx, strings.TrimSpace(*req.Name), l.ID); err != nil {
				return err
			}
		}
		if cols := req.Columns(); len(cols) > 0 {
			if err := tx.Model(&l).Updates(cols).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", l.ID).First(&l).Error
	})
	if err != nil {
		return ac.labelError(c, err, "Failed to update label")
	}
	return ac.ok(c, l)
}

func (ac *AdminController) DeleteLabel(c *fiber.Ctx) error {
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var l user.Label
		if err := tx.Where("id = ?", c.Params("id")).First(&l).Error; err != nil {
			return err
		}
		if err := tx.Model(&l).Association("Users").Clear(); err != nil {
			return err
		}
		return tx.Delete(&l).Error
	})
	if err != nil {
		return ac.dbError(c, err, "Failed to delete label")
	}
	return ac.ok(c, types.SuccessResult{Success: true})
}

// AssignLabelsToUser replaces the user's labels with the given set.
func (ac *AdminController) AssignLabelsToUser(c *fiber.Ctx) error {
	var req adminTypes.AssignLabelsRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	var u user.User
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", req.UserID).First(&u).Error; err != nil {
			return err
		}
		labels := []user.Label{}
		if len(req.LabelIDs) > 0 {
			if err := tx.Where("id IN ?", req.LabelIDs).Find(&labels).Error; err != nil {
				return err
			}
			if len(labels) != len(req.LabelIDs) {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Model(&u).Association("Labels").Replace(labels)
	})
	if err != nil {
		return ac.dbError(c, err, "Failed to assign labels")
	}
	if err := ac.DB.Preload("Labels").Where("id = ?", u.ID).First(&u).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	return ac.ok(c, u.Labels)
}

func (ac *AdminController) CreateAndAssignLabel(c *fiber.Ctx) error {
	var req adminTypes.CreateAndAssignRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	labelReq := adminTypes.LabelRequest{Name: &req.Name, Color: req.Color}
	if err := labelReq.ValidateCreate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	l := labelReq.Model()
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var u user.User
		if err := tx.Where("id = ?", req.UserID).First(&u).Error; err != nil {
			return err
		}
		if err := nameTaken(tx, l.Name, ""); err != nil {
			return err
		}
		if err := tx.Create(&l).Error; err != nil {
			return err
		}
		return tx.Model(&u).Association("Labels").Append(&l)
	})
	if err != nil {
		return ac.labelError(c, err, "Failed to create label")
	}
	return ac.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تم إنشاء التصنيف",
		Status:  fiber.StatusCreated,
		Data:    l,
	})
}

/*===== | Notes =====*/

func (ac *AdminController) GetUserNotes(c *fiber.Ctx) error {
	var notes []user.Note
	err := ac.DB.Preload("CreatedBy").Where("user_id = ?", c.Params("userId")).Order("created_at DESC").Find(&notes).Error
	if err != nil {
		return ac.dbError(c, err, "Error fetching notes")
	}
	return ac.ok(c, notes)
}

func (ac *AdminController) CreateNote(c *fiber.Ctx) error {
	var req adminTypes.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	if err := ac.DB.Where("id = ?", req.UserID).First(&user.User{}).Error; err != nil {
		return ac.dbError(c, err, "Error fetching user")
	}
	n := user.Note{UserID: req.UserID, CreatedByID: middleware.CurrentUserID(c), Content: strings.TrimSpace(req.Content)}
	if err := ac.DB.Create(&n).Error; err != nil {
		return ac.dbError(c, err, "Failed to create note")
	}
	if err := ac.DB.Preload("CreatedBy").Where("id = ?", n.ID).First(&n).Error; err != nil {
		return ac.dbError(c, err, "Error fetching note")
	}
	return ac.sendResponseWithLog(c, fiber.StatusCreated, types.ApiResponse{
		Message: "تمت إضافة الملاحظة",
		Status:  fiber.StatusCreated,
		Data:    n,
	})
}

// DeleteNote is allowed for the note's author or a SUPER_ADMIN.
func (ac *AdminController) DeleteNote(c *fiber.Ctx) error {
	var n user.Note
	if err := ac.DB.Where("id = ?", c.Params("id")).First(&n).Error; err != nil {
		return ac.dbError(c, err, "Error fetching note")
	}
	me := middleware.CurrentUser(c)
	if n.CreatedByID != me.ID && me.Role != user.RoleSuperAdmin {
		return ac.fail(c, fiber.StatusForbidden, "لا يمكنك حذف ملاحظة مشرف آخر")
	}
	if err := ac.DB.Delete(&n).Error; err != nil {
		return ac.dbError(c, err, "Failed to delete note")
	}
	return ac.ok(c, types.SuccessResult{Success: true})
}

/*===== | Settings =====*/

// GetSettings is public; the registration form reads its toggles.
func (ac *AdminController) GetSettings(c *fiber.Ctx) error {
	s, err := settings.LoadOrCreate(ac.DB)
	if err != nil {
		return ac.dbError(c, err, "Error fetching settings")
	}
	return ac.ok(c, s)
}

func (ac *AdminController) UpdateSettings(c *fiber.Ctx) error {
	var req adminTypes.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", err)
		return ac.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ac.fail(c, fiber.StatusBadRequest, err.Error())
	}
	s, err := settings.LoadOrCreate(ac.DB)
	if err != nil {
		return ac.dbError(c, err, "Error fetching settings")
	}
	if cols := req.Columns(); len(cols) > 0 {
		if err := ac.DB.Model(s).Updates(cols).Error; err != nil {
			return ac.dbError(c, err, "Failed to update settings")
		}
	}
	s, err = settings.LoadOrCreate(ac.DB)
	if err != nil {
		return ac.dbError(c, err, "Error fetching settings")
	}
	return ac.ok(c, s)
}
