package registration

import (
	"fmt"
	"strings"

	"eventpilot/types"
	"eventpilot/utils"
)

type CompanionRequest struct {
	Name    string `json:"name" validate:"required,min=2"`
	Company string `json:"company"`
	Title   string `json:"title"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (c CompanionRequest) Validate() error {
	if err := types.ValidateStruct(c); err != nil {
		return err
	}
	if len([]rune(strings.TrimSpace(c.Name))) < 2 {
		return fmt.Errorf("اسم المرافق مطلوب")
	}
	if c.Phone != "" && !utils.ValidateSaudiPhone(c.Phone) {
		return fmt.Errorf("رقم هاتف المرافق غير صالح")
	}
	return nil
}

// RegisterRequest is the signed-in registration for a session.
type RegisterRequest struct {
	SessionID   string             `json:"sessionId" validate:"required"`
	InviteToken string             `json:"inviteToken"`
	Companions  []CompanionRequest `json:"companions"`
}

func (r RegisterRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	for _, c := range r.Companions {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GuestRegisterRequest registers without an account, optionally creating one.
type GuestRegisterRequest struct {
	RegisterRequest
	Name          string   `json:"name" validate:"required,min=2"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone" validate:"required,min=9"`
	Instagram     string   `json:"instagram"`
	Snapchat      string   `json:"snapchat"`
	Twitter       string   `json:"twitter"`
	CompanyName   string   `json:"companyName"`
	Position      string   `json:"position"`
	ActivityType  string   `json:"activityType"`
	Gender        string   `json:"gender" validate:"omitempty,oneof=male female"`
	Goal          string   `json:"goal"`
	CreateAccount bool     `json:"createAccount"`
	Password      string   `json:"password"`
	WantsToHost   bool     `json:"wantsToHost"`
	HostingTypes  []string `json:"hostingTypes"`
}

func (g GuestRegisterRequest) Validate() error {
	if err := g.RegisterRequest.Validate(); err != nil {
		return err
	}
	if err := types.ValidateStruct(g); err != nil {
		return err
	}
	if len([]rune(strings.TrimSpace(g.Name))) < 2 {
		return fmt.Errorf("الاسم مطلوب")
	}
	if !utils.ValidateSaudiPhone(g.Phone) {
		return fmt.Errorf("رقم الهاتف غير صالح")
	}
	if g.CreateAccount && len(g.Password) < 6 {
		return fmt.Errorf("كلمة المرور يجب أن تكون 6 أحرف على الأقل")
	}
	return nil
}

type ApproveRequest struct {
	ApprovalNotes string `json:"approvalNotes"`
}

// AddCompanionRequest adds a companion under an existing registration.
type AddCompanionRequest struct {
	RegistrationID string `json:"registrationId" validate:"required"`
	CompanionRequest
}

func (a AddCompanionRequest) Validate() error {
	if a.RegistrationID == "" {
		return fmt.Errorf("registrationId is required")
	}
	if a.Phone == "" {
		return fmt.Errorf("رقم الهاتف مطلوب")
	}
	return a.CompanionRequest.Validate()
}

type ManualGuest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
	Position    string `json:"position"`
}

// ManualRegisterRequest lets an admin add people to a session directly.
type ManualRegisterRequest struct {
	SessionID   string        `json:"sessionId" validate:"required"`
	UserIDs     []string      `json:"userIds"`
	NewGuests   []ManualGuest `json:"newGuests"`
	SendQrEmail *bool         `json:"sendQrEmail"`
}

func (m ManualRegisterRequest) Validate() error {
	if m.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if len(m.UserIDs) == 0 && len(m.NewGuests) == 0 {
		return fmt.Errorf("userIds or newGuests is required")
	}
	for _, g := range m.NewGuests {
		if strings.TrimSpace(g.Name) == "" || strings.TrimSpace(g.Phone) == "" {
			return fmt.Errorf("name and phone are required for every guest")
		}
		if g.Email != "" && !utils.ValidEmail(g.Email) {
			return fmt.Errorf("البريد الإلكتروني غير صالح: %s", g.Email)
		}
	}
	return nil
}

// SendsQrEmail defaults to true.
func (m ManualRegisterRequest) SendsQrEmail() bool {
	return m.SendQrEmail == nil || *m.SendQrEmail
}
