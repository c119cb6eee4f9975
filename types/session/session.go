package session

import (
	"fmt"
	"strings"
	"time"

	"eventpilot/models/session"
	"eventpilot/types"
)

// SessionRequest is shared by create and update. On update only the set
// fields change.
type SessionRequest struct {
	SessionNumber             *int       `json:"sessionNumber" validate:"omitempty,gt=0"`
	Title                     *string    `json:"title" validate:"omitempty,min=1"`
	Slug                      *string    `json:"slug"`
	Description               *string    `json:"description"`
	Date                      *time.Time `json:"date"`
	GuestName                 *string    `json:"guestName"`
	GuestProfile              *string    `json:"guestProfile"`
	MaxParticipants           *int       `json:"maxParticipants" validate:"omitempty,gt=0"`
	MaxCompanions             *int       `json:"maxCompanions" validate:"omitempty,gte=0"`
	Status                    *string    `json:"status" validate:"omitempty,oneof=open closed completed"`
	RequiresApproval          *bool      `json:"requiresApproval"`
	ShowParticipantCount      *bool      `json:"showParticipantCount"`
	Location                  *string    `json:"location"`
	LocationURL               *string    `json:"locationUrl"`
	RegistrationDeadline      *time.Time `json:"registrationDeadline"`
	ClearDeadline             bool       `json:"clearDeadline"`
	ShowCountdown             *bool      `json:"showCountdown"`
	ShowGuestProfile          *bool      `json:"showGuestProfile"`
	EnableMiniView            *bool      `json:"enableMiniView"`
	CustomConfirmationMessage *string    `json:"customConfirmationMessage"`
	EmbedEnabled              *bool      `json:"embedEnabled"`
	InviteOnly                *bool      `json:"inviteOnly"`
	InviteMessage             *string    `json:"inviteMessage"`
	SendQrInEmail             *bool      `json:"sendQrInEmail"`
}

func (r SessionRequest) validateFields() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return fmt.Errorf("عنوان الجلسة مطلوب")
	}
	return nil
}

// ValidateCreate also requires the fields a new session cannot go without.
func (r SessionRequest) ValidateCreate() error {
	if r.SessionNumber == nil {
		return fmt.Errorf("رقم الجلسة مطلوب")
	}
	if r.Title == nil {
		return fmt.Errorf("عنوان الجلسة مطلوب")
	}
	if r.Date == nil {
		return fmt.Errorf("تاريخ الجلسة مطلوب")
	}
	return r.validateFields()
}

func (r SessionRequest) ValidateUpdate() error {
	return r.validateFields()
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func text(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// Model builds a new session with the create defaults. Slug is resolved by
// the caller.
func (r SessionRequest) Model() session.Session {
	s := session.Session{
		SessionNumber:             *r.SessionNumber,
		Title:                     strings.TrimSpace(*r.Title),
		Description:               text(r.Description),
		Date:                      *r.Date,
		GuestName:                 text(r.GuestName),
		GuestProfile:              text(r.GuestProfile),
		MaxParticipants:           intOr(r.MaxParticipants, session.DefaultMaxParticipants),
		MaxCompanions:             intOr(r.MaxCompanions, session.DefaultMaxCompanions),
		RequiresApproval:          boolOr(r.RequiresApproval, false),
		ShowParticipantCount:      boolOr(r.ShowParticipantCount, true),
		Location:                  text(r.Location),
		LocationURL:               text(r.LocationURL),
		RegistrationDeadline:      r.RegistrationDeadline,
		ShowCountdown:             boolOr(r.ShowCountdown, true),
		ShowGuestProfile:          boolOr(r.ShowGuestProfile, true),
		EnableMiniView:            boolOr(r.EnableMiniView, false),
		CustomConfirmationMessage: text(r.CustomConfirmationMessage),
		EmbedEnabled:              boolOr(r.EmbedEnabled, true),
		InviteOnly:                boolOr(r.InviteOnly, false),
		InviteMessage:             text(r.InviteMessage),
		SendQrInEmail:             boolOr(r.SendQrInEmail, true),
	}
	if r.Status != nil {
		s.Status = session.Status(*r.Status)
	}
	return s
}

// Columns lists the update columns for the set fields, slug excluded.
func (r SessionRequest) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if r.SessionNumber != nil {
		cols["session_number"] = *r.SessionNumber
	}
	if r.Title != nil {
		cols["title"] = strings.TrimSpace(*r.Title)
	}
	if r.Date != nil {
		cols["date"] = *r.Date
	}
	if r.MaxParticipants != nil {
		cols["max_participants"] = *r.MaxParticipants
	}
	if r.MaxCompanions != nil {
		cols["max_companions"] = *r.MaxCompanions
	}
	if r.Status != nil {
		cols["status"] = *r.Status
	}
	if r.RegistrationDeadline != nil {
		cols["registration_deadline"] = *r.RegistrationDeadline
	} else if r.ClearDeadline {
		cols["registration_deadline"] = nil
	}

	texts := map[string]*string{
		"description":                 r.Description,
		"guest_name":                  r.GuestName,
		"guest_profile":               r.GuestProfile,
		"location":                    r.Location,
		"location_url":                r.LocationURL,
		"custom_confirmation_message": r.CustomConfirmationMessage,
		"invite_message":              r.InviteMessage,
	}
	for col, v := range texts {
		if v != nil {
			cols[col] = text(v)
		}
	}

	flags := map[string]*bool{
		"requires_approval":      r.RequiresApproval,
		"show_participant_count": r.ShowParticipantCount,
		"show_countdown":         r.ShowCountdown,
		"show_guest_profile":     r.ShowGuestProfile,
		"enable_mini_view":       r.EnableMiniView,
		"embed_enabled":          r.EmbedEnabled,
		"invite_only":            r.InviteOnly,
		"send_qr_in_email":       r.SendQrInEmail,
	}
	for col, v := range flags {
		if v != nil {
			cols[col] = *v
		}
	}
	return cols
}
