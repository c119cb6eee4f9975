package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpilot/logger"
	"eventpilot/models/common"
	"eventpilot/models/invitation"
	regModel "eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/services/auth"
	"eventpilot/services/qr"
	regTypes "eventpilot/types/registration"
	"eventpilot/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSessionClosed     = errors.New("registration closed")
	ErrSessionFull       = errors.New("session full")
	ErrDeadlinePassed    = errors.New("registration deadline passed")
	ErrInviteRequired    = errors.New("invite required")
	ErrInvalidInvite     = errors.New("invalid invite")
	ErrTooManyCompanions = errors.New("too many companions")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrAlreadyApproved   = errors.New("already approved")
	ErrNotOwner          = errors.New("not the registration owner")
	ErrNotCompanion      = errors.New("not a companion")
)

// Fallback names used in companion emails.
const (
	companionFallbackName  = "المرافق"
	registrantFallbackName = "المسجل"
)

// Notifier is the subset of the mailer used during registration.
type Notifier interface {
	SendConfirmed(ctx context.Context, to, name string, s *session.Session, registrationID string, qrPNG []byte) error
	SendPending(ctx context.Context, to, name string, s *session.Session, registrationID string) error
	SendCompanion(ctx context.Context, to, name, registrant string, s *session.Session, registrationID string, approved bool, qrPNG []byte) error
	SendWelcome(ctx context.Context, to, name string) error
}

type Service struct {
	DB       *gorm.DB
	Notifier Notifier

	now func() time.Time
}

func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{DB: db, Notifier: notifier, now: time.Now}
}

// Result is what a new registration reports back.
type Result struct {
	Registration *regModel.Registration  `json:"-"`
	Companions   []regModel.Registration `json:"-"`
	Session      *session.Session        `json:"-"`
	ID           string                  `json:"id"`
	IsApproved   bool                    `json:"isApproved"`
	HasAccount   bool                    `json:"hasAccount"`
	Companion    int                     `json:"companionCount"`
	QRCode       *string                 `json:"qrCode"`
}

// Admit applies the shared admission checks inside tx in their fixed order:
// existence, open status, capacity, deadline, invite, companion limit. A
// valid invite is consumed in the same transaction.
func (s *Service) Admit(tx *gorm.DB, sessionID, inviteToken string, companions int) (*session.Session, error) {
	var sess session.Session
	if err := tx.Where("id = ?", sessionID).First(&sess).Error; err != nil {
		return nil, err
	}
	if sess.Status != session.StatusOpen {
		return nil, ErrSessionClosed
	}

	approved, err := regModel.CountApprovedPrimary(tx, sess.ID)
	if err != nil {
		return nil, err
	}
	if approved >= int64(sess.MaxParticipants) {
		return nil, ErrSessionFull
	}

	now := s.now()
	if sess.DeadlinePassed(now) {
		return nil, ErrDeadlinePassed
	}

	if sess.InviteOnly {
		if inviteToken == "" {
			return nil, ErrInviteRequired
		}
		result := tx.Model(&invitation.Invite{}).
			Where("token = ? AND session_id = ? AND used = ? AND expires_at > ?", inviteToken, sess.ID, false, now).
			Updates(map[string]interface{}{"used": true, "used_at": now})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrInvalidInvite
		}
	}

	if companions > sess.MaxCompanions {
		return nil, ErrTooManyCompanions
	}
	return &sess, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func companionRow(parent *regModel.Registration, approved bool, c regTypes.CompanionRequest) regModel.Registration {
	row := regModel.Registration{
		SessionID:               parent.SessionID,
		InvitedByRegistrationID: &parent.ID,
		IsApproved:              approved,
		GuestName:               optional(c.Name),
		GuestCompanyName:        optional(c.Company),
		GuestPosition:           optional(c.Title),
	}
	if c.Phone != "" {
		phone := utils.FormatPhoneNumber(c.Phone)
		row.GuestPhone = &phone
	}
	if email := strings.ToLower(strings.TrimSpace(c.Email)); email != "" {
		row.GuestEmail = &email
	}
	return row
}

func (s *Service) createCompanions(tx *gorm.DB, parent *regModel.Registration, companions []regTypes.CompanionRequest) ([]regModel.Registration, error) {
	rows := make([]regModel.Registration, 0, len(companions))
	for _, c := range companions {
		row := companionRow(parent, parent.IsApproved, c)
		if err := tx.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("create companion: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RegisterUser registers a signed-in user and their companions.
func (s *Service) RegisterUser(ctx context.Context, userID string, req regTypes.RegisterRequest) (*Result, error) {
	var (
		account user.User
		result  Result
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", userID).First(&account).Error; err != nil {
			return err
		}
		sess, err := s.Admit(tx, req.SessionID, req.InviteToken, len(req.Companions))
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&regModel.Registration{}).
			Where("session_id = ? AND user_id = ?", sess.ID, userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyRegistered
		}

		reg := regModel.Registration{SessionID: sess.ID, UserID: &account.ID, IsApproved: !sess.RequiresApproval}
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}
		companions, err := s.createCompanions(tx, &reg, req.Companions)
		if err != nil {
			return err
		}
		reg.User = &account

		result = Result{Registration: &reg, Companions: companions, Session: sess, HasAccount: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.finish(ctx, &result, account.Email, account.Name)
	return &result, nil
}

// GuestRegister registers without a signed-in account. With CreateAccount
// a user is created and the registration bound to it; otherwise an existing
// account with the same email or phone is reused.
func (s *Service) GuestRegister(ctx context.Context, req regTypes.GuestRegisterRequest) (*Result, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := utils.FormatPhoneNumber(req.Phone)
	name := strings.TrimSpace(req.Name)

	var (
		result     Result
		newAccount bool
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		sess, err := s.Admit(tx, req.SessionID, req.InviteToken, len(req.Companions))
		if err != nil {
			return err
		}

		var duplicates int64
		if err := tx.Model(&regModel.Registration{}).
			Where("session_id = ? AND (guest_email = ? OR guest_phone = ?)", sess.ID, email, phone).
			Count(&duplicates).Error; err != nil {
			return err
		}
		if duplicates > 0 {
			return ErrAlreadyRegistered
		}

		var account *user.User
		var existing user.User
		err = tx.Where("email = ? OR phone = ?", email, phone).First(&existing).Error
		switch {
		case err == nil && req.CreateAccount:
			return user.ErrEmailTaken
		case err == nil:
			account = &existing
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		case req.CreateAccount:
			account, err = s.createAccount(tx, req, email, phone)
			if err != nil {
				return err
			}
			newAccount = true
		}

		reg := regModel.Registration{SessionID: sess.ID, IsApproved: !sess.RequiresApproval}
		if account != nil {
			var taken int64
			if err := tx.Model(&regModel.Registration{}).
				Where("session_id = ? AND user_id = ?", sess.ID, account.ID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrAlreadyRegistered
			}
			reg.UserID = &account.ID
			reg.User = account
		} else {
			reg.GuestName = &name
			reg.GuestEmail = &email
			reg.GuestPhone = &phone
			reg.GuestInstagram = optional(req.Instagram)
			reg.GuestSnapchat = optional(req.Snapchat)
			reg.GuestTwitter = optional(req.Twitter)
			reg.GuestCompanyName = optional(req.CompanyName)
			reg.GuestPosition = optional(req.Position)
			reg.GuestActivityType = optional(req.ActivityType)
			reg.GuestGender = optional(req.Gender)
			reg.GuestGoal = optional(req.Goal)
			reg.GuestWantsToHost = req.WantsToHost
			if req.WantsToHost {
				reg.GuestHostingTypes = req.HostingTypes
			}
		}

		if err := tx.Omit("User").Create(&reg).Error; err != nil {
			return err
		}
		companions, err := s.createCompanions(tx, &reg, req.Companions)
		if err != nil {
			return err
		}

		result = Result{Registration: &reg, Companions: companions, Session: sess, HasAccount: account != nil}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newAccount && s.Notifier != nil {
		if err := s.Notifier.SendWelcome(ctx, email, name); err != nil {
			logger.Warning("Failed to send welcome email", zap.String("to", email), zap.Error(err))
		}
	}
	s.finish(ctx, &result, email, name)
	return &result, nil
}

func (s *Service) createAccount(tx *gorm.DB, req regTypes.GuestRegisterRequest, email, phone string) (*user.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	username, err := user.GenerateUniqueUsername(tx, req.Name)
	if err != nil {
		return nil, err
	}
	account := user.User{
		Name:         strings.TrimSpace(req.Name),
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		IsActive:     true,
		Instagram:    optional(req.Instagram),
		Snapchat:     optional(req.Snapchat),
		Twitter:      optional(req.Twitter),
		CompanyName:  optional(req.CompanyName),
		Position:     optional(req.Position),
		ActivityType: optional(req.ActivityType),
		Gender:       optional(req.Gender),
		Goal:         optional(req.Goal),
		WantsToHost:  req.WantsToHost,
	}
	if req.WantsToHost {
		account.HostingTypes = common.StringSlice(req.HostingTypes)
	}
	if err := tx.Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// finish fills the result fields and sends the registrant and companion
// emails once the transaction has committed.
func (s *Service) finish(ctx context.Context, r *Result, to, name string) {
	reg := r.Registration
	r.ID = reg.ID
	r.IsApproved = reg.IsApproved
	r.Companion = len(r.Companions)

	var png []byte
	if reg.IsApproved {
		data := qr.NewCheckIn(reg.ID, reg.SessionID).Encode()
		if url, err := qr.DataURL(data); err == nil {
			r.QRCode = &url
		}
		png, _ = qr.PNG(data)
	}

	if s.Notifier == nil {
		return
	}
	if reg.IsApproved {
		s.warn(s.Notifier.SendConfirmed(ctx, to, name, r.Session, reg.ID, png), "confirmed", to)
	} else {
		s.warn(s.Notifier.SendPending(ctx, to, name, r.Session, reg.ID), "pending", to)
	}
	s.notifyCompanions(ctx, r.Session, r.Companions, name, reg.IsApproved)
}

func (s *Service) notifyCompanions(ctx context.Context, sess *session.Session, companions []regModel.Registration, registrant string, approved bool) {
	if s.Notifier == nil {
		return
	}
	if registrant == "" {
		registrant = registrantFallbackName
	}
	for i := range companions {
		c := &companions[i]
		if c.GuestEmail == nil || *c.GuestEmail == "" {
			continue
		}
		name := companionFallbackName
		if c.GuestName != nil && *c.GuestName != "" {
			name = *c.GuestName
		}
		var png []byte
		if approved {
			png, _ = qr.PNG(qr.NewCheckIn(c.ID, sess.ID).Encode())
		}
		s.warn(s.Notifier.SendCompanion(ctx, *c.GuestEmail, name, registrant, sess, c.ID, approved, png), "companion", *c.GuestEmail)
	}
}

func (s *Service) warn(err error, kind, to string) {
	if err != nil {
		logger.Warning("Failed to send "+kind+" email", zap.String("to", to), zap.Error(err))
	}
}

func (s *Service) load(db *gorm.DB, id string) (*regModel.Registration, error) {
	var reg regModel.Registration
	err := db.Preload("Session").Preload("User").Preload("Companions").
		Where("id = ?", id).First(&reg).Error
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Approve approves a registration and its companions and emails them.
func (s *Service) Approve(ctx context.Context, registrationID, notes string) error {
	reg, err := s.load(s.DB, registrationID)
	if err != nil {
		return err
	}
	if reg.IsApproved {
		return ErrAlreadyApproved
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&regModel.Registration{}).Where("id = ?", reg.ID).
			Updates(map[string]interface{}{"is_approved": true, "approval_notes": optional(notes)}).Error; err != nil {
			return err
		}
		return tx.Model(&regModel.Registration{}).
			Where("invited_by_registration_id = ?", reg.ID).
			Update("is_approved", true).Error
	})
	if err != nil {
		return err
	}

	s.sendApproved(ctx, reg)
	return nil
}

func (s *Service) sendApproved(ctx context.Context, reg *regModel.Registration) {
	if s.Notifier == nil {
		return
	}
	name := reg.DisplayName()
	if to := reg.ContactEmail(); to != "" && name != "" {
		png, _ := qr.PNG(qr.NewCheckIn(reg.ID, reg.SessionID).Encode())
		s.warn(s.Notifier.SendConfirmed(ctx, to, name, reg.Session, reg.ID, png), "confirmed", to)
	}
	s.notifyCompanions(ctx, reg.Session, reg.Companions, name, true)
}

// ApproveAll approves every pending primary registration of a session
// along with all pending companions and returns the primary count.
func (s *Service) ApproveAll(ctx context.Context, sessionID string) (int, error) {
	var sess session.Session
	if err := s.DB.Where("id = ?", sessionID).First(&sess).Error; err != nil {
		return 0, err
	}

	var pending []regModel.Registration
	err := s.DB.Preload("User").Preload("Companions").
		Where("session_id = ? AND is_approved = ? AND invited_by_registration_id IS NULL", sessionID, false).
		Find(&pending).Error
	if err != nil {
		return 0, err
	}

	err = s.DB.Model(&regModel.Registration{}).
		Where("session_id = ? AND is_approved = ?", sessionID, false).
		Update("is_approved", true).Error
	if err != nil {
		return 0, err
	}

	for i := range pending {
		pending[i].Session = &sess
		s.sendApproved(ctx, &pending[i])
	}
	return len(pending), nil
}

// AddCompanion adds a companion under the caller's own registration.
func (s *Service) AddCompanion(ctx context.Context, userID string, req regTypes.AddCompanionRequest) (*regModel.Registration, error) {
	parent, err := s.load(s.DB, req.RegistrationID)
	if err != nil {
		return nil, err
	}
	if parent.UserID == nil || *parent.UserID != userID {
		return nil, ErrNotOwner
	}
	if len(parent.Companions) >= parent.Session.MaxCompanions {
		return nil, ErrTooManyCompanions
	}

	row := companionRow(parent, !parent.Session.RequiresApproval, req.CompanionRequest)
	if err := s.DB.Create(&row).Error; err != nil {
		return nil, err
	}

	if parent.IsApproved {
		s.notifyCompanions(ctx, parent.Session, []regModel.Registration{row}, parent.DisplayName(), true)
	}
	return &row, nil
}

// Companions lists the companions of the caller's registration.
func (s *Service) Companions(userID, registrationID string) ([]regModel.Registration, error) {
	parent, err := s.load(s.DB, registrationID)
	if err != nil {
		return nil, err
	}
	if parent.UserID == nil || *parent.UserID != userID {
		return nil, ErrNotOwner
	}
	return parent.Companions, nil
}

// RemoveCompanion deletes a companion registration owned by the caller.
func (s *Service) RemoveCompanion(userID, companionID string) error {
	var companion regModel.Registration
	err := s.DB.Preload("InvitedByRegistration").Where("id = ?", companionID).First(&companion).Error
	if err != nil {
		return err
	}
	if !companion.IsCompanion() || companion.InvitedByRegistration == nil {
		return ErrNotCompanion
	}
	owner := companion.InvitedByRegistration.UserID
	if owner == nil || *owner != userID {
		return ErrNotOwner
	}
	return s.DB.Delete(&companion).Error
}

// ManualResult counts the outcome of a manual registration batch.
type ManualResult struct {
	Registered   int `json:"registered"`
	Skipped      int `json:"skipped"`
	EmailsSent   int `json:"emailsSent"`
	EmailsFailed int `json:"emailsFailed"`
}

// ManualRegister adds users and walk-in guests as approved registrations.
// Capacity, deadline and invite rules do not apply. People already
// registered on the session are skipped.
func (s *Service) ManualRegister(ctx context.Context, req regTypes.ManualRegisterRequest) (*ManualResult, error) {
	var sess session.Session
	if err := s.DB.Where("id = ?", req.SessionID).First(&sess).Error; err != nil {
		return nil, err
	}

	var existing []regModel.Registration
	if err := s.DB.Select("user_id", "guest_phone").Where("session_id = ?", sess.ID).Find(&existing).Error; err != nil {
		return nil, err
	}
	users := map[string]bool{}
	phones := map[string]bool{}
	for _, r := range existing {
		if r.UserID != nil {
			users[*r.UserID] = true
		}
		if r.GuestPhone != nil {
			phones[utils.FormatPhoneNumber(*r.GuestPhone)] = true
		}
	}

	type pendingMail struct {
		to, name string
		regID    string
	}
	var (
		out   ManualResult
		mails []pendingMail
	)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range req.UserIDs {
			if users[id] {
				out.Skipped++
				continue
			}
			var account user.User
			if err := tx.Where("id = ?", id).First(&account).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			reg := regModel.Registration{SessionID: sess.ID, UserID: &account.ID, IsApproved: true}
			if err := tx.Create(&reg).Error; err != nil {
				return err
			}
			users[id] = true
			out.Registered++
			mails = append(mails, pendingMail{to: account.Email, name: account.Name, regID: reg.ID})
		}

		for _, g := range req.NewGuests {
			phone := utils.FormatPhoneNumber(g.Phone)
			if phones[phone] {
				out.Skipped++
				continue
			}
			var account user.User
			err := tx.Where("phone = ?", phone).First(&account).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil && users[account.ID] {
				out.Skipped++
				continue
			}

			reg := regModel.Registration{
				SessionID:        sess.ID,
				IsApproved:       true,
				GuestName:        optional(g.Name),
				GuestPhone:       &phone,
				GuestEmail:       optional(strings.ToLower(g.Email)),
				GuestCompanyName: optional(g.CompanyName),
				GuestPosition:    optional(g.Position),
			}
			if err == nil {
				reg.UserID = &account.ID
				users[account.ID] = true
			}
			if err := tx.Create(&reg).Error; err != nil {
				return err
			}
			phones[phone] = true
			out.Registered++
			if reg.GuestEmail != nil {
				mails = append(mails, pendingMail{to: *reg.GuestEmail, name: strings.TrimSpace(g.Name), regID: reg.ID})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !req.SendsQrEmail() || s.Notifier == nil {
		return &out, nil
	}
	for _, m := range mails {
		png, _ := qr.PNG(qr.NewCheckIn(m.regID, sess.ID).Encode())
		if err := s.Notifier.SendConfirmed(ctx, m.to, m.name, &sess, m.regID, png); err != nil {
			logger.Warning("Failed to send manual registration email", zap.String("to", m.to), zap.Error(err))
			out.EmailsFailed++
			continue
		}
		out.EmailsSent++
	}
	return &out, nil
}
