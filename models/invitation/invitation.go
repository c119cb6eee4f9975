package invitation

import (
	"time"

	"eventpilot/models/common"
	"eventpilot/models/session"

	"gorm.io/gorm"
)

// TTL is how long an invite link stays valid.
const TTL = 7 * 24 * time.Hour

// Invite grants access to an invite-only session.
type Invite struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID string     `gorm:"type:varchar(36);not null;index" json:"sessionId"`
	Email     *string    `gorm:"type:varchar(255);index" json:"email"`
	Phone     *string    `gorm:"type:varchar(20)" json:"phone"`
	Token     string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"token"`
	Used      bool       `gorm:"not null;default:false" json:"used"`
	UsedAt    *time.Time `json:"usedAt"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	SentAt    *time.Time `json:"sentAt"`
	SentVia   *string    `gorm:"type:varchar(20)" json:"sentVia"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`

	Session *session.Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session,omitempty"`
}

func (i *Invite) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = common.NewID()
	}
	return nil
}

// Live reports whether the invite can still be redeemed.
func (i *Invite) Live(now time.Time) bool {
	return !i.Used && now.Before(i.ExpiresAt)
}

// FindRedeemable returns the unused, unexpired invite for token on session.
func FindRedeemable(db *gorm.DB, sessionID, token string, now time.Time) (*Invite, error) {
	var inv Invite
	err := db.Where("token = ? AND session_id = ? AND used = ? AND expires_at > ?", token, sessionID, false, now).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
