package catering

import (
	"strings"
	"time"

	"eventpilot/models/common"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/utils"

	"gorm.io/gorm"
)

type HostingType string

const (
	HostingDinner   HostingType = "dinner"
	HostingBeverage HostingType = "beverage"
	HostingDessert  HostingType = "dessert"
	HostingOther    HostingType = "other"
)

var hostingLabels = map[HostingType]string{
	HostingDinner:   "عشاء",
	HostingBeverage: "مشروبات",
	HostingDessert:  "حلا",
	HostingOther:    "أخرى",
}

func (h HostingType) IsValid() bool {
	_, ok := hostingLabels[h]
	return ok
}

// Label returns the Arabic label, or the raw value when unknown.
func (h HostingType) Label() string {
	if l, ok := hostingLabels[h]; ok {
		return l
	}
	return string(h)
}

// Catering is one hospitality contribution to a session.
type Catering struct {
	ID             string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID      string      `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	HostID         *string     `gorm:"type:varchar(36);index" json:"hostId"`
	HostName       *string     `gorm:"type:varchar(255)" json:"hostName"`
	HostingType    HostingType `gorm:"type:varchar(20);not null" json:"hostingType"`
	IsSelfCatering bool        `gorm:"not null;default:false" json:"isSelfCatering"`
	Notes          *string     `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`

	Session *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
	Host    *user.User       `gorm:"foreignKey:HostID;constraint:OnDelete:SET NULL" json:"host,omitempty"`
}

func (Catering) TableName() string {
	return "event_caterings"
}

func (c *Catering) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = common.NewID()
	}
	return nil
}

// Host is someone who offered to host, with or without an account.
type Host struct {
	ID           string             `json:"id"`
	Source       string             `json:"source"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Phone        string             `json:"phone"`
	CompanyName  *string            `json:"companyName"`
	HostingTypes common.StringSlice `json:"hostingTypes"`
	SessionID    *string            `json:"sessionId,omitempty"`
}

const (
	HostSourceUser  = "user"
	HostSourceGuest = "guest"
)

// PotentialHosts lists users with wantsToHost followed by account-less
// guest registrations that asked to host. A guest email already listed as
// a user is skipped. search matches name or email after Arabic
// normalization.
func PotentialHosts(db *gorm.DB, search string) ([]Host, error) {
	var users []user.User
	if err := db.Where("wants_to_host = ? AND is_active = ?", true, true).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	var guests []registration.Registration
	err := db.Where("user_id IS NULL AND guest_wants_to_host = ?", true).
		Order("registered_at DESC").
		Find(&guests).Error
	if err != nil {
		return nil, err
	}

	hosts := make([]Host, 0, len(users)+len(guests))
	seen := map[string]bool{}
	for _, u := range users {
		seen[u.Email] = true
		hosts = append(hosts, Host{
			ID:           u.ID,
			Source:       HostSourceUser,
			Name:         u.Name,
			Email:        u.Email,
			Phone:        u.Phone,
			CompanyName:  u.CompanyName,
			HostingTypes: u.HostingTypes,
		})
	}
	for i := range guests {
		g := &guests[i]
		email := g.ContactEmail()
		if email != "" && seen[email] {
			continue
		}
		seen[email] = true
		sessionID := g.SessionID
		hosts = append(hosts, Host{
			ID:           g.ID,
			Source:       HostSourceGuest,
			Name:         g.DisplayName(),
			Email:        email,
			Phone:        g.ContactPhone(),
			CompanyName:  g.GuestCompanyName,
			HostingTypes: g.GuestHostingTypes,
			SessionID:    &sessionID,
		})
	}

	if search = strings.TrimSpace(search); search == "" {
		return hosts, nil
	}
	matched := hosts[:0]
	for _, h := range hosts {
		if utils.NormalizedContains(h.Name, search) || utils.NormalizedContains(h.Email, search) {
			matched = append(matched, h)
		}
	}
	return matched, nil
}
