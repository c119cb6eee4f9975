package auth

import (
	"fmt"
	"strings"

	"eventpilot/models/sponsor"
	"eventpilot/utils"
)

const MinPasswordLength = 6

type RegisterRequest struct {
	Name                 string   `json:"name" validate:"required,min=2"`
	Email                string   `json:"email" validate:"required,email"`
	Phone                string   `json:"phone" validate:"required"`
	Password             string   `json:"password" validate:"required,min=6"`
	Instagram            string   `json:"instagram"`
	Snapchat             string   `json:"snapchat"`
	Twitter              string   `json:"twitter"`
	CompanyName          string   `json:"companyName"`
	Position             string   `json:"position"`
	ActivityType         string   `json:"activityType"`
	Gender               string   `json:"gender" validate:"omitempty,oneof=male female"`
	Goal                 string   `json:"goal"`
	WantsToHost          bool     `json:"wantsToHost"`
	HostingTypes         []string `json:"hostingTypes"`
	WantsToSponsor       bool     `json:"wantsToSponsor"`
	SponsorshipTypes     []string `json:"sponsorshipTypes"`
	SponsorshipOtherText string   `json:"sponsorshipOtherText"`
	SponsorType          string   `json:"sponsorType" validate:"omitempty,oneof=person company"`
	SponsorCompanyName   string   `json:"sponsorCompanyName"`
}

func (r RegisterRequest) Validate() error {
	if len([]rune(strings.TrimSpace(r.Name))) < 2 {
		return fmt.Errorf("الاسم يجب أن يكون حرفين على الأقل")
	}
	if !utils.ValidEmail(strings.TrimSpace(r.Email)) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	if !utils.ValidateSaudiPhone(r.Phone) {
		return fmt.Errorf("رقم الهاتف غير صالح")
	}
	if len(r.Password) < MinPasswordLength {
		return fmt.Errorf("كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	if r.Gender != "" && r.Gender != "male" && r.Gender != "female" {
		return fmt.Errorf("الجنس غير صالح")
	}
	if r.SponsorType != "" && !sponsor.Type(r.SponsorType).IsValid() {
		return fmt.Errorf("نوع الراعي غير صالح")
	}
	return nil
}

// SponsorName is the company name for company sponsors, else the person.
func (r RegisterRequest) SponsorName() string {
	if r.SponsorType == string(sponsor.TypeCompany) && strings.TrimSpace(r.SponsorCompanyName) != "" {
		return strings.TrimSpace(r.SponsorCompanyName)
	}
	return strings.TrimSpace(r.Name)
}

// LoginRequest accepts an email or a username in Login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Login) == "" {
		return fmt.Errorf("البريد الإلكتروني أو اسم المستخدم مطلوب")
	}
	if r.Password == "" {
		return fmt.Errorf("كلمة المرور مطلوبة")
	}
	return nil
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r ForgotPasswordRequest) Validate() error {
	if !utils.ValidEmail(strings.TrimSpace(r.Email)) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	return nil
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

func (r ResetPasswordRequest) Validate() error {
	if r.Token == "" {
		return fmt.Errorf("الرمز مطلوب")
	}
	if len(r.Password) < MinPasswordLength {
		return fmt.Errorf("كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

func (r ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return fmt.Errorf("كلمة المرور الحالية مطلوبة")
	}
	if len(r.NewPassword) < MinPasswordLength {
		return fmt.Errorf("كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	return nil
}
