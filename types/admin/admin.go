package admin

import (
	"fmt"
	"strings"

	"eventpilot/constants"
	cateringModel "eventpilot/models/catering"
	"eventpilot/models/user"
	"eventpilot/services/auth"
	"eventpilot/utils"
)

type RoleRequest struct {
	Role user.Role `json:"role"`
}

func (r RoleRequest) Validate() error {
	if !r.Role.IsValid() {
		return fmt.Errorf("الدور غير صالح")
	}
	return nil
}

type PermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (r PermissionsRequest) Validate() error {
	for _, p := range r.Permissions {
		if !constants.IsPermission(p) {
			return fmt.Errorf("صلاحية غير معروفة: %s", p)
		}
	}
	return nil
}

type CreateAdminRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Permissions []string `json:"permissions"`
}

func (r CreateAdminRequest) Validate() error {
	if len([]rune(strings.TrimSpace(r.Name))) < 2 {
		return fmt.Errorf("الاسم يجب أن يكون حرفين على الأقل")
	}
	if !utils.ValidEmail(r.Email) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	if len(r.Password) < auth.MinPasswordLength {
		return fmt.Errorf("كلمة المرور يجب أن تكون %d أحرف على الأقل", auth.MinPasswordLength)
	}
	return PermissionsRequest{Permissions: r.Permissions}.Validate()
}

type BootstrapRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateHostRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	CompanyName  string   `json:"companyName"`
	HostingTypes []string `json:"hostingTypes"`
}

func (r CreateHostRequest) Validate() error {
	if len([]rune(strings.TrimSpace(r.Name))) < 2 {
		return fmt.Errorf("الاسم يجب أن يكون حرفين على الأقل")
	}
	if !utils.ValidEmail(r.Email) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	if r.Phone != "" && !utils.ValidateSaudiPhone(r.Phone) {
		return fmt.Errorf("رقم الهاتف غير صالح")
	}
	for _, t := range r.HostingTypes {
		if !cateringModel.HostingType(t).IsValid() {
			return fmt.Errorf("نوع الضيافة غير صالح")
		}
	}
	return nil
}

type LabelRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (r LabelRequest) validateColor() error {
	if r.Color != nil && *r.Color != "" && !utils.ValidHexColor(*r.Color) {
		return fmt.Errorf("اللون غير صالح")
	}
	return nil
}

func (r LabelRequest) ValidateCreate() error {
	if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("اسم التصنيف مطلوب")
	}
	return r.validateColor()
}

func (r LabelRequest) ValidateUpdate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("اسم التصنيف مطلوب")
	}
	return r.validateColor()
}

func (r LabelRequest) Model() user.Label {
	l := user.Label{Name: strings.TrimSpace(*r.Name), Color: user.DefaultLabelColor}
	if r.Color != nil && *r.Color != "" {
		l.Color = strings.ToLower(*r.Color)
	}
	return l
}

func (r LabelRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.Name != nil {
		cols["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Color != nil && *r.Color != "" {
		cols["color"] = strings.ToLower(*r.Color)
	}
	return cols
}

// AssignLabelsRequest replaces the labels of a user.
type AssignLabelsRequest struct {
	UserID   string   `json:"userId"`
	LabelIDs []string `json:"labelIds"`
}

type CreateAndAssignRequest struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Color  *string `json:"color"`
}

type NoteRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

func (r NoteRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("معرف المستخدم مطلوب")
	}
	if strings.TrimSpace(r.Content) == "" {
		return fmt.Errorf("محتوى الملاحظة مطلوب")
	}
	return nil
}

// SettingsRequest is a partial update of the global settings row.
type SettingsRequest struct {
	ShowSocialMediaFields   *bool   `json:"showSocialMediaFields"`
	ShowRegistrationPurpose *bool   `json:"showRegistrationPurpose"`
	ShowCateringInterest    *bool   `json:"showCateringInterest"`
	SiteName                *string `json:"siteName"`
	ContactEmail            *string `json:"contactEmail"`
	ContactPhone            *string `json:"contactPhone"`
	TwitterHandle           *string `json:"twitterHandle"`
	InstagramHandle         *string `json:"instagramHandle"`
	SnapchatHandle          *string `json:"snapchatHandle"`
	LinkedinURL             *string `json:"linkedinUrl"`
	WhatsappNumber          *string `json:"whatsappNumber"`
}

func (r SettingsRequest) Validate() error {
	if r.ContactEmail != nil && *r.ContactEmail != "" && !utils.ValidEmail(*r.ContactEmail) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	return nil
}

func (r SettingsRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	flags := map[string]*bool{
		"show_social_media_fields":  r.ShowSocialMediaFields,
		"show_registration_purpose": r.ShowRegistrationPurpose,
		"show_catering_interest":    r.ShowCateringInterest,
	}
	for col, v := range flags {
		if v != nil {
			cols[col] = *v
		}
	}
	text := map[string]*string{
		"site_name":        r.SiteName,
		"contact_email":    r.ContactEmail,
		"contact_phone":    r.ContactPhone,
		"twitter_handle":   r.TwitterHandle,
		"instagram_handle": r.InstagramHandle,
		"snapchat_handle":  r.SnapchatHandle,
		"linkedin_url":     r.LinkedinURL,
		"whatsapp_number":  r.WhatsappNumber,
	}
	for col, v := range text {
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

// Recommendation is one rule-based suggestion on the dashboard.
type Recommendation struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
