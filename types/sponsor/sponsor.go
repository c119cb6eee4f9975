package sponsor

import (
	"fmt"
	"strings"

	"eventpilot/models/common"
	sponsorModel "eventpilot/models/sponsor"
	"eventpilot/utils"
)

// SponsorRequest creates or partially updates a sponsor.
type SponsorRequest struct {
	Name                 *string            `json:"name"`
	Type                 *sponsorModel.Type `json:"type"`
	Email                *string            `json:"email"`
	Phone                *string            `json:"phone"`
	LogoURL              *string            `json:"logoUrl"`
	SponsorshipTypes     []string           `json:"sponsorshipTypes"`
	SponsorshipOtherText *string            `json:"sponsorshipOtherText"`
	IsActive             *bool              `json:"isActive"`
}

func (r SponsorRequest) ValidateCreate() error {
	if r.Name == nil || len([]rune(strings.TrimSpace(*r.Name))) < 2 {
		return fmt.Errorf("اسم الراعي مطلوب")
	}
	return r.ValidateUpdate()
}

func (r SponsorRequest) ValidateUpdate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return fmt.Errorf("اسم الراعي مطلوب")
	}
	if r.Type != nil && !r.Type.IsValid() {
		return fmt.Errorf("type must be either 'person' or 'company'")
	}
	if r.Email != nil && *r.Email != "" && !utils.ValidEmail(*r.Email) {
		return fmt.Errorf("البريد الإلكتروني غير صالح")
	}
	return nil
}

func text(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (r SponsorRequest) Model() sponsorModel.Sponsor {
	s := sponsorModel.Sponsor{
		Name:                 strings.TrimSpace(*r.Name),
		Type:                 sponsorModel.TypePerson,
		Email:                text(r.Email),
		Phone:                text(r.Phone),
		LogoURL:              text(r.LogoURL),
		SponsorshipTypes:     common.StringSlice(r.SponsorshipTypes),
		SponsorshipOtherText: text(r.SponsorshipOtherText),
		IsActive:             r.IsActive == nil || *r.IsActive,
	}
	if r.Type != nil {
		s.Type = *r.Type
	}
	if s.Email != nil {
		email := strings.ToLower(*s.Email)
		s.Email = &email
	}
	return s
}

func (r SponsorRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.Name != nil {
		cols["name"] = strings.TrimSpace(*r.Name)
	}
	if r.Type != nil {
		cols["type"] = *r.Type
	}
	if r.Email != nil {
		if email := text(r.Email); email != nil {
			cols["email"] = strings.ToLower(*email)
		} else {
			cols["email"] = nil
		}
	}
	if r.Phone != nil {
		cols["phone"] = text(r.Phone)
	}
	if r.LogoURL != nil {
		cols["logo_url"] = text(r.LogoURL)
	}
	if r.SponsorshipTypes != nil {
		cols["sponsorship_types"] = common.StringSlice(r.SponsorshipTypes)
	}
	if r.SponsorshipOtherText != nil {
		cols["sponsorship_other_text"] = text(r.SponsorshipOtherText)
	}
	if r.IsActive != nil {
		cols["is_active"] = *r.IsActive
	}
	return cols
}

// SponsorshipRequest links a sponsor, or the session itself, to a session.
type SponsorshipRequest struct {
	SessionID       string  `json:"sessionId"`
	SponsorID       *string `json:"sponsorId"`
	SponsorshipType string  `json:"sponsorshipType"`
	IsSelfSponsored bool    `json:"isSelfSponsored"`
	Notes           *string `json:"notes"`
}

func (r SponsorshipRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if strings.TrimSpace(r.SponsorshipType) == "" {
		return fmt.Errorf("نوع الرعاية مطلوب")
	}
	if !r.IsSelfSponsored && (r.SponsorID == nil || *r.SponsorID == "") {
		return fmt.Errorf("sponsorId is required unless self sponsored")
	}
	return nil
}

type UpdateSponsorshipRequest struct {
	SponsorshipType *string `json:"sponsorshipType"`
	Notes           *string `json:"notes"`
}

func (r UpdateSponsorshipRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.SponsorshipType != nil && strings.TrimSpace(*r.SponsorshipType) != "" {
		cols["sponsorship_type"] = strings.TrimSpace(*r.SponsorshipType)
	}
	if r.Notes != nil {
		cols["notes"] = text(r.Notes)
	}
	return cols
}

type LinkUserRequest struct {
	UserID string `json:"userId"`
}

func (r LinkUserRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	return nil
}
