package user

import (
	"fmt"
	"strings"

	"eventpilot/utils"
)

// UpdateProfileRequest is a partial update; nil fields are left alone.
type UpdateProfileRequest struct {
	Name         *string `json:"name"`
	Phone        *string `json:"phone"`
	Bio          *string `json:"bio"`
	AvatarURL    *string `json:"avatarUrl"`
	Instagram    *string `json:"instagram"`
	Snapchat     *string `json:"snapchat"`
	Twitter      *string `json:"twitter"`
	CompanyName  *string `json:"companyName"`
	Position     *string `json:"position"`
	ActivityType *string `json:"activityType"`
	Gender       *string `json:"gender"`
	Goal         *string `json:"goal"`
}

func (r UpdateProfileRequest) Validate() error {
	if r.Name != nil && len([]rune(strings.TrimSpace(*r.Name))) < 2 {
		return fmt.Errorf("الاسم يجب أن يكون حرفين على الأقل")
	}
	if r.Phone != nil && !utils.ValidateSaudiPhone(*r.Phone) {
		return fmt.Errorf("رقم الهاتف غير صالح")
	}
	if r.Gender != nil && *r.Gender != "" && *r.Gender != "male" && *r.Gender != "female" {
		return fmt.Errorf("الجنس غير صالح")
	}
	return nil
}

// Columns maps the set fields to column updates. Blank optional text
// clears the column.
func (r UpdateProfileRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.Name != nil {
		cols["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Phone != nil {
		cols["phone"] = utils.FormatPhoneNumber(*r.Phone)
	}
	optional := map[string]*string{
		"bio":           r.Bio,
		"avatar_url":    r.AvatarURL,
		"instagram":     r.Instagram,
		"snapchat":      r.Snapchat,
		"twitter":       r.Twitter,
		"company_name":  r.CompanyName,
		"position":      r.Position,
		"activity_type": r.ActivityType,
		"gender":        r.Gender,
		"goal":          r.Goal,
	}
	for col, v := range optional {
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(*v); s != "" {
			cols[col] = s
		} else {
			cols[col] = nil
		}
	}
	return cols
}
