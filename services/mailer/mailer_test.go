package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	"eventpilot/models/email"
	"eventpilot/models/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sendFunc func(ctx context.Context, msg Message) error
	sent     []Message
}

func (f *fakeSender) Send(ctx context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	if f.sendFunc != nil {
		return f.sendFunc(ctx, msg)
	}
	return nil
}

func testSession() *session.Session {
	return &session.Session{ID: "sess-1", Title: "Tuesday Meetup", SessionNumber: 7, Date: time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC)}
}

func TestDeliver_WritesSentRow(t *testing.T) {
	db := testdb.New(t)
	sender := &fakeSender{}
	m := New(db, sender, "https://events.example.com/")

	require.NoError(t, m.SendPending(context.Background(), "Guest@Example.com", "Sara", testSession(), "reg-1"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Subject, "Tuesday Meetup")
	assert.Contains(t, sender.sent[0].HTML, "Sara")

	var row email.Log
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "guest@example.com", row.To)
	assert.Equal(t, email.StatusSent, row.Status)
	assert.Equal(t, email.KindPending, row.Type)
	assert.Equal(t, 1, row.Attempts)
	assert.NotNil(t, row.SentAt)
	require.NotNil(t, row.RegistrationID)
	assert.Equal(t, "reg-1", *row.RegistrationID)
}

func TestDeliver_RecordsFailure(t *testing.T) {
	db := testdb.New(t)
	sender := &fakeSender{sendFunc: func(context.Context, Message) error { return errors.New("smtp down") }}
	m := New(db, sender, "https://events.example.com")

	err := m.SendWelcome(context.Background(), "a@example.com", "Ali")
	require.Error(t, err)

	var row email.Log
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, email.StatusFailed, row.Status)
	require.NotNil(t, row.ErrorMessage)
	assert.Equal(t, "smtp down", *row.ErrorMessage)
}

func TestDeliver_NotConfigured(t *testing.T) {
	db := testdb.New(t)
	m := New(db, nil, "https://events.example.com")

	err := m.SendWelcome(context.Background(), "a@example.com", "Ali")
	assert.ErrorIs(t, err, ErrNotConfigured)

	var count int64
	db.Model(&email.Log{}).Count(&count)
	assert.Zero(t, count)
}

func TestSendConfirmed_AttachesQROnlyWhenEnabled(t *testing.T) {
	db := testdb.New(t)
	sender := &fakeSender{}
	m := New(db, sender, "https://events.example.com")
	s := testSession()

	require.NoError(t, m.SendConfirmed(context.Background(), "a@example.com", "Ali", s, "reg-1", []byte("png")))
	s.SendQrInEmail = true
	require.NoError(t, m.SendConfirmed(context.Background(), "a@example.com", "Ali", s, "reg-1", []byte("png")))

	require.Len(t, sender.sent, 2)
	assert.Empty(t, sender.sent[0].Attachments)
	require.Len(t, sender.sent[1].Attachments, 1)
	assert.Equal(t, "qrcode", sender.sent[1].Attachments[0].ContentID)
	assert.Contains(t, sender.sent[1].HTML, "cid:qrcode")
}

func TestSendInvitation_CustomMessage(t *testing.T) {
	db := testdb.New(t)
	sender := &fakeSender{}
	m := New(db, sender, "https://events.example.com")
	s := testSession()
	slug := "tuesday"
	s.Slug = &slug

	msg := "أهلاً\nسجل من هنا: " + InvitePlaceholder
	require.NoError(t, m.SendInvitation(context.Background(), "a@example.com", s, "tok", msg))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].HTML, "https://events.example.com/event/tuesday/register?token=tok")
	assert.False(t, strings.Contains(sender.sent[0].HTML, InvitePlaceholder))
}

func TestRetryPending(t *testing.T) {
	db := testdb.New(t)
	sender := &fakeSender{}
	m := New(db, sender, "https://events.example.com")
	m.retryAfter = 0

	rows := []email.Log{
		{To: "a@example.com", Subject: "one", Type: email.KindWelcome, Status: email.StatusPending, HTML: "<p>1</p>"},
		{To: "b@example.com", Subject: "two", Type: email.KindWelcome, Status: email.StatusPending, Attempts: email.MaxAttempts},
		{To: "c@example.com", Subject: "three", Type: email.KindWelcome, Status: email.StatusFailed},
	}
	require.NoError(t, db.Create(&rows).Error)

	sent, err := m.RetryPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@example.com", sender.sent[0].To)

	var first email.Log
	require.NoError(t, db.Where("subject = ?", "one").First(&first).Error)
	assert.Equal(t, email.StatusSent, first.Status)
}

func TestRetryPending_RestoresQRAttachment(t *testing.T) {
	db := testdb.New(t)
	down := true
	sender := &fakeSender{sendFunc: func(context.Context, Message) error {
		if down {
			return errors.New("smtp down")
		}
		return nil
	}}
	m := New(db, sender, "https://events.example.com")
	m.retryAfter = 0
	s := testSession()
	s.SendQrInEmail = true

	require.Error(t, m.SendConfirmed(context.Background(), "a@example.com", "Ali", s, "reg-1", []byte("png")))
	require.NoError(t, db.Model(&email.Log{}).Where("1 = 1").Updates(map[string]interface{}{"status": email.StatusPending, "attempts": 0}).Error)

	down = false
	sent, err := m.RetryPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, sender.sent, 2)
	retried := sender.sent[1]
	assert.Contains(t, retried.HTML, "cid:qrcode")
	require.Len(t, retried.Attachments, 1)
	assert.Equal(t, "qrcode", retried.Attachments[0].ContentID)
	assert.NotEmpty(t, retried.Attachments[0].Content)
}
