package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpilot/httpServices/resend"
	"eventpilot/logger"
	"eventpilot/models/email"
	"eventpilot/models/session"
	"eventpilot/services/qr"
	"eventpilot/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotConfigured = errors.New("email delivery is not configured")

const qrContentID = "qrcode"

// Message is one outgoing email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []resend.Attachment
}

// Sender delivers a message. The Resend client is the production sender.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender adapts the Resend REST client to Sender.
type ResendSender struct {
	Client *resend.Client
}

func (s ResendSender) Send(ctx context.Context, msg Message) error {
	_, err := s.Client.SendEmail(ctx, resend.SendEmailRequest{
		To:          []string{msg.To},
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Attachments: msg.Attachments,
	})
	return err
}

// Refs link an email log row to the records it concerns.
type Refs struct {
	SessionID      *string
	RegistrationID *string
}

// Mailer renders templates, sends through Sender and records every
// attempt in email_logs.
type Mailer struct {
	db      *gorm.DB
	sender  Sender
	baseURL string

	// retryAfter keeps RetryPending away from rows still being delivered.
	retryAfter time.Duration
}

// New returns a Mailer. A nil sender makes every send return
// ErrNotConfigured without writing a log row.
func New(db *gorm.DB, sender Sender, baseURL string) *Mailer {
	return &Mailer{
		db:         db,
		sender:     sender,
		baseURL:    strings.TrimRight(baseURL, "/"),
		retryAfter: 30 * time.Second,
	}
}

func (m *Mailer) Configured() bool {
	return m != nil && m.sender != nil
}

func (m *Mailer) BaseURL() string {
	return m.baseURL
}

// deliver writes a pending row, attempts the send and records the outcome.
func (m *Mailer) deliver(ctx context.Context, kind email.Kind, msg Message, refs Refs) error {
	if !m.Configured() {
		logger.Warning("Email not configured, skipping", zap.String("to", msg.To), zap.String("type", string(kind)))
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("empty recipient")
	}

	row := email.Log{
		To:             strings.ToLower(strings.TrimSpace(msg.To)),
		Subject:        msg.Subject,
		Type:           kind,
		Status:         email.StatusPending,
		HTML:           msg.HTML,
		SessionID:      refs.SessionID,
		RegistrationID: refs.RegistrationID,
	}
	if err := m.db.Create(&row).Error; err != nil {
		return fmt.Errorf("create email log: %w", err)
	}
	return m.attempt(ctx, &row, msg)
}

func (m *Mailer) attempt(ctx context.Context, row *email.Log, msg Message) error {
	sendErr := m.sender.Send(ctx, msg)

	updates := map[string]interface{}{"attempts": gorm.Expr("attempts + 1")}
	if sendErr != nil {
		errMsg := sendErr.Error()
		updates["status"] = email.StatusFailed
		updates["error_message"] = errMsg
		logger.Error("Email sending failed", sendErr, zap.String("to", row.To), zap.String("type", string(row.Type)))
	} else {
		now := time.Now()
		updates["status"] = email.StatusSent
		updates["sent_at"] = now
		updates["error_message"] = nil
	}
	if err := m.db.Model(&email.Log{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
		logger.Error("Failed to update email log", err, zap.String("id", row.ID))
	}
	return sendErr
}

// RetryPending resends pending rows that still have attempts left and
// returns how many were sent.
func (m *Mailer) RetryPending(ctx context.Context) (int, error) {
	if !m.Configured() {
		return 0, nil
	}
	query := m.db.Where("status = ? AND attempts < ?", email.StatusPending, email.MaxAttempts)
	if m.retryAfter > 0 {
		query = query.Where("updated_at <= ?", time.Now().Add(-m.retryAfter))
	}

	var rows []email.Log
	err := query.Order("created_at ASC").Limit(50).Find(&rows).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		row := &rows[i]
		msg := Message{To: row.To, Subject: row.Subject, HTML: row.HTML, Attachments: retryAttachments(row)}
		if err := m.attempt(ctx, row, msg); err == nil {
			sent++
		}
	}
	return sent, nil
}

// retryAttachments re-renders the check-in QR for rows whose HTML embeds
// it. Attachments are not stored on the log row.
func retryAttachments(row *email.Log) []resend.Attachment {
	if !strings.Contains(row.HTML, "cid:"+qrContentID) || row.RegistrationID == nil || row.SessionID == nil {
		return nil
	}
	png, err := qr.PNG(qr.NewCheckIn(*row.RegistrationID, *row.SessionID).Encode())
	if err != nil {
		logger.Error("Failed to render QR for retry", err, zap.String("id", row.ID))
		return nil
	}
	return qrAttachment(png)
}

// RunRetryLoop calls RetryPending every interval until ctx is done.
func (m *Mailer) RunRetryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := m.RetryPending(ctx)
			if err != nil {
				logger.Error("Email retry failed", err)
				continue
			}
			if sent > 0 {
				logger.Info(fmt.Sprintf("Resent %d pending emails", sent))
			}
		}
	}
}

func viewOf(s *session.Session) sessionView {
	location := "سيتم الإعلان عنه لاحقاً"
	if s.Location != nil && *s.Location != "" {
		location = *s.Location
	}
	return sessionView{
		Title:    s.Title,
		Number:   s.SessionNumber,
		Date:     utils.FormatArabicDateTime(s.Date),
		Location: location,
	}
}

func qrAttachment(png []byte) []resend.Attachment {
	if len(png) == 0 {
		return nil
	}
	return []resend.Attachment{{
		Filename:  "qrcode.png",
		Content:   base64.StdEncoding.EncodeToString(png),
		ContentID: qrContentID,
	}}
}

func (m *Mailer) send(ctx context.Context, kind email.Kind, tmpl, to, subject string, v view, refs Refs, attachments []resend.Attachment) error {
	html, err := render(tmpl, v)
	if err != nil {
		return fmt.Errorf("render %s email: %w", tmpl, err)
	}
	return m.deliver(ctx, kind, Message{To: to, Subject: subject, HTML: html, Attachments: attachments}, refs)
}

// EventLink is the public page of a session.
func (m *Mailer) EventLink(s *session.Session) string {
	return m.baseURL + "/event/" + s.PathKey()
}

// SendConfirmed tells a registrant they are approved. qrPNG is attached
// only when the session sends QR codes by email.
func (m *Mailer) SendConfirmed(ctx context.Context, to, name string, s *session.Session, registrationID string, qrPNG []byte) error {
	kind := email.KindConfirmation
	v := view{Name: name, Session: viewOf(s)}
	var attachments []resend.Attachment
	if s.SendQrInEmail && len(qrPNG) > 0 {
		kind = email.KindConfirmed
		v.WithQR = true
		attachments = qrAttachment(qrPNG)
	}
	return m.send(ctx, kind, "confirmed", to, "تأكيد التسجيل - "+s.Title, v,
		Refs{SessionID: &s.ID, RegistrationID: &registrationID}, attachments)
}

func (m *Mailer) SendPending(ctx context.Context, to, name string, s *session.Session, registrationID string) error {
	return m.send(ctx, email.KindPending, "pending", to, "استلام التسجيل - "+s.Title,
		view{Name: name, Session: viewOf(s)},
		Refs{SessionID: &s.ID, RegistrationID: &registrationID}, nil)
}

func (m *Mailer) SendCompanion(ctx context.Context, to, name, registrant string, s *session.Session, registrationID string, approved bool, qrPNG []byte) error {
	v := view{Name: name, Registrant: registrant, Approved: approved, Session: viewOf(s)}
	var attachments []resend.Attachment
	if approved && s.SendQrInEmail && len(qrPNG) > 0 {
		v.WithQR = true
		attachments = qrAttachment(qrPNG)
	}
	return m.send(ctx, email.KindCompanion, "companion", to, "تم تسجيلك كمرافق - "+s.Title, v,
		Refs{SessionID: &s.ID, RegistrationID: &registrationID}, attachments)
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, email.KindWelcome, "welcome", to, "مرحباً بك في "+brandName,
		view{Name: name, ButtonText: "تسجيل الدخول", ButtonURL: m.baseURL + "/user/login"}, Refs{}, nil)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	return m.send(ctx, email.KindPasswordReset, "passwordReset", to, "إعادة تعيين كلمة المرور - "+brandName,
		view{Name: name, ButtonText: "إعادة تعيين كلمة المرور", ButtonURL: resetURL}, Refs{}, nil)
}

// InviteLink is the registration URL carrying an invite token.
func (m *Mailer) InviteLink(s *session.Session, token string) string {
	return m.EventLink(s) + "/register?token=" + token
}

// InvitePlaceholder is replaced by the registration link in custom messages.
const InvitePlaceholder = "[رابط التسجيل]"

// SendInvitation sends the invite link. A custom message has the
// placeholder swapped for the link and is rendered line by line.
func (m *Mailer) SendInvitation(ctx context.Context, to string, s *session.Session, token, customMessage string) error {
	link := m.InviteLink(s, token)
	v := view{Session: viewOf(s), ButtonText: "التسجيل الآن", ButtonURL: link}
	if strings.TrimSpace(customMessage) != "" {
		v.Custom = splitLines(strings.ReplaceAll(customMessage, InvitePlaceholder, link))
	}
	return m.send(ctx, email.KindInvitation, "invitation", to, "دعوة خاصة - "+s.Title, v,
		Refs{SessionID: &s.ID}, nil)
}

// ValetParked carries the details of a parking notice.
type ValetParked struct {
	GuestName    string
	EventName    string
	VehicleInfo  string
	ParkingSlot  string
	TicketNumber int
	TrackingURL  string
}

func (m *Mailer) SendValetParked(ctx context.Context, to string, p ValetParked, refs Refs) error {
	slot := p.ParkingSlot
	if slot == "" {
		slot = "N/A"
	}
	return m.send(ctx, email.KindValetParked, "valetParked", to, "تم ركن سيارتك - "+p.EventName, view{
		Name:         p.GuestName,
		EventName:    p.EventName,
		VehicleInfo:  p.VehicleInfo,
		ParkingSlot:  slot,
		TicketNumber: p.TicketNumber,
		ButtonText:   "تتبع سيارتك",
		ButtonURL:    p.TrackingURL,
	}, refs, nil)
}

func (m *Mailer) SendValetReady(ctx context.Context, to, guestName, eventName, vehicleInfo string, refs Refs) error {
	return m.send(ctx, email.KindValetReady, "valetReady", to, "سيارتك جاهزة - "+eventName,
		view{Name: guestName, EventName: eventName, VehicleInfo: vehicleInfo}, refs, nil)
}

func (m *Mailer) SendValetBroadcast(ctx context.Context, to, guestName, eventName, message string, refs Refs) error {
	return m.send(ctx, email.KindValetNotice, "valetBroadcast", to, "تنبيه الفاليه - "+eventName,
		view{Name: guestName, EventName: eventName, Custom: splitLines(message)}, refs, nil)
}

func (m *Mailer) SendGalleryShare(ctx context.Context, to, name, eventName, photosURL string, refs Refs) error {
	return m.send(ctx, email.KindGalleryShare, "galleryShare", to, "صورك من "+eventName,
		view{Name: name, EventName: eventName, ButtonText: "عرض الصور", ButtonURL: photosURL}, refs, nil)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
