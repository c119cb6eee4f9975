package registration

import (
	"context"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	"eventpilot/models/invitation"
	regModel "eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	regTypes "eventpilot/types/registration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	kind string
	to   string
	qr   bool
}

type fakeNotifier struct {
	sent []sentMail
}

func (f *fakeNotifier) SendConfirmed(_ context.Context, to, _ string, _ *session.Session, _ string, png []byte) error {
	f.sent = append(f.sent, sentMail{kind: "confirmed", to: to, qr: len(png) > 0})
	return nil
}

func (f *fakeNotifier) SendPending(_ context.Context, to, _ string, _ *session.Session, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "pending", to: to})
	return nil
}

func (f *fakeNotifier) SendCompanion(_ context.Context, to, _, _ string, _ *session.Session, _ string, approved bool, png []byte) error {
	f.sent = append(f.sent, sentMail{kind: "companion", to: to, qr: approved && len(png) > 0})
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, to, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "welcome", to: to})
	return nil
}

func (f *fakeNotifier) kinds() []string {
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.kind)
	}
	return out
}

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*gorm.DB, *Service, *fakeNotifier) {
	t.Helper()
	db := testdb.New(t)
	n := &fakeNotifier{}
	svc := NewService(db, n)
	svc.now = func() time.Time { return now }
	return db, svc, n
}

func createSession(t *testing.T, db *gorm.DB, number int, mutate func(*session.Session)) *session.Session {
	t.Helper()
	s := &session.Session{SessionNumber: number, Title: "Meetup", Date: now.Add(7 * 24 * time.Hour), MaxCompanions: 2}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func createUser(t *testing.T, db *gorm.DB, name, email, phone string) *user.User {
	t.Helper()
	u := &user.User{Name: name, Username: email, Email: email, Phone: phone}
	require.NoError(t, db.Create(u).Error)
	return u
}

func guestRequest(sessionID, email, phone string) regTypes.GuestRegisterRequest {
	return regTypes.GuestRegisterRequest{
		RegisterRequest: regTypes.RegisterRequest{SessionID: sessionID},
		Name:            "Sara Ali",
		Email:           email,
		Phone:           phone,
	}
}

func TestRegisterUser_ApprovedWithCompanions(t *testing.T) {
	db, svc, n := setup(t)
	sess := createSession(t, db, 1, nil)
	u := createUser(t, db, "Omar", "omar@example.com", "+966501234567")

	res, err := svc.RegisterUser(context.Background(), u.ID, regTypes.RegisterRequest{
		SessionID: sess.ID,
		Companions: []regTypes.CompanionRequest{
			{Name: "Huda", Email: "Huda@Example.com", Phone: "0507654321"},
			{Name: "Fahad"},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.IsApproved)
	assert.Equal(t, 2, res.Companion)
	require.NotNil(t, res.QRCode)
	assert.Contains(t, *res.QRCode, "data:image/png;base64,")

	var companions []regModel.Registration
	require.NoError(t, db.Where("invited_by_registration_id = ?", res.ID).Find(&companions).Error)
	require.Len(t, companions, 2)
	for _, c := range companions {
		assert.True(t, c.IsApproved)
	}

	assert.Equal(t, []string{"confirmed", "companion"}, n.kinds())
	assert.Equal(t, "huda@example.com", n.sent[1].to)

	_, err = svc.RegisterUser(context.Background(), u.ID, regTypes.RegisterRequest{SessionID: sess.ID})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterUser_RequiresApproval(t *testing.T) {
	db, svc, n := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.RequiresApproval = true })
	u := createUser(t, db, "Omar", "omar@example.com", "+966501234567")

	res, err := svc.RegisterUser(context.Background(), u.ID, regTypes.RegisterRequest{SessionID: sess.ID})
	require.NoError(t, err)
	assert.False(t, res.IsApproved)
	assert.Nil(t, res.QRCode)
	assert.Equal(t, []string{"pending"}, n.kinds())
}

func TestAdmit_Order(t *testing.T) {
	db, svc, _ := setup(t)
	past := now.Add(-time.Hour)

	closed := createSession(t, db, 1, func(s *session.Session) { s.Status = session.StatusClosed })
	full := createSession(t, db, 2, func(s *session.Session) { s.MaxParticipants = 1 })
	late := createSession(t, db, 3, func(s *session.Session) { s.RegistrationDeadline = &past })
	invite := createSession(t, db, 4, func(s *session.Session) { s.InviteOnly = true })

	other := createUser(t, db, "Other", "other@example.com", "+966500000001")
	require.NoError(t, db.Create(&regModel.Registration{SessionID: full.ID, UserID: &other.ID, IsApproved: true}).Error)

	cases := []struct {
		name       string
		sessionID  string
		token      string
		companions int
		want       error
	}{
		{"missing", "nope", "", 0, gorm.ErrRecordNotFound},
		{"closed", closed.ID, "", 0, ErrSessionClosed},
		{"full", full.ID, "", 0, ErrSessionFull},
		{"deadline", late.ID, "", 0, ErrDeadlinePassed},
		{"invite required", invite.ID, "", 0, ErrInviteRequired},
		{"invite invalid", invite.ID, "bogus", 0, ErrInvalidInvite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Admit(db, tc.sessionID, tc.token, tc.companions)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	open := createSession(t, db, 5, nil)
	_, err := svc.Admit(db, open.ID, "", 3)
	assert.ErrorIs(t, err, ErrTooManyCompanions)
}

func TestAdmit_CompanionsDoNotCountTowardCapacity(t *testing.T) {
	db, svc, _ := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.MaxParticipants = 2 })
	u := createUser(t, db, "Omar", "omar@example.com", "+966501234567")

	primary := regModel.Registration{SessionID: sess.ID, UserID: &u.ID, IsApproved: true}
	require.NoError(t, db.Create(&primary).Error)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&regModel.Registration{SessionID: sess.ID, InvitedByRegistrationID: &primary.ID, IsApproved: true}).Error)
	}

	_, err := svc.Admit(db, sess.ID, "", 0)
	assert.NoError(t, err)
}

func TestGuestRegister_ConsumesInvite(t *testing.T) {
	db, svc, _ := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.InviteOnly = true })
	inv := invitation.Invite{SessionID: sess.ID, Token: "tok-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, db.Create(&inv).Error)

	req := guestRequest(sess.ID, "sara@example.com", "0501234567")
	req.InviteToken = "tok-1"
	res, err := svc.GuestRegister(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.HasAccount)

	require.NoError(t, db.First(&inv, "id = ?", inv.ID).Error)
	assert.True(t, inv.Used)
	assert.NotNil(t, inv.UsedAt)

	again := guestRequest(sess.ID, "other@example.com", "0507654321")
	again.InviteToken = "tok-1"
	_, err = svc.GuestRegister(context.Background(), again)
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestGuestRegister_Duplicates(t *testing.T) {
	db, svc, _ := setup(t)
	sess := createSession(t, db, 1, nil)

	_, err := svc.GuestRegister(context.Background(), guestRequest(sess.ID, "sara@example.com", "0501234567"))
	require.NoError(t, err)

	_, err = svc.GuestRegister(context.Background(), guestRequest(sess.ID, "SARA@example.com", "0509999999"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = svc.GuestRegister(context.Background(), guestRequest(sess.ID, "new@example.com", "+966501234567"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestGuestRegister_CreateAccount(t *testing.T) {
	db, svc, n := setup(t)
	sess := createSession(t, db, 1, nil)

	req := guestRequest(sess.ID, "sara@example.com", "0501234567")
	req.CreateAccount = true
	req.Password = "secret1"
	res, err := svc.GuestRegister(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.HasAccount)

	var account user.User
	require.NoError(t, db.Where("email = ?", "sara@example.com").First(&account).Error)
	assert.Equal(t, "+966501234567", account.Phone)
	assert.NotEmpty(t, account.Username)
	require.NotNil(t, res.Registration.UserID)
	assert.Equal(t, account.ID, *res.Registration.UserID)
	assert.Equal(t, []string{"welcome", "confirmed"}, n.kinds())

	other := createSession(t, db, 2, nil)
	req.SessionID = other.ID
	_, err = svc.GuestRegister(context.Background(), req)
	assert.ErrorIs(t, err, user.ErrEmailTaken)
}

func TestApprove(t *testing.T) {
	db, svc, n := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.RequiresApproval = true })
	u := createUser(t, db, "Omar", "omar@example.com", "+966501234567")
	res, err := svc.RegisterUser(context.Background(), u.ID, regTypes.RegisterRequest{
		SessionID:  sess.ID,
		Companions: []regTypes.CompanionRequest{{Name: "Huda", Email: "huda@example.com"}},
	})
	require.NoError(t, err)
	n.sent = nil

	require.NoError(t, svc.Approve(context.Background(), res.ID, "welcome"))

	var count int64
	db.Model(&regModel.Registration{}).Where("session_id = ? AND is_approved = ?", sess.ID, true).Count(&count)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, []string{"confirmed", "companion"}, n.kinds())
	assert.True(t, n.sent[1].qr)

	assert.ErrorIs(t, svc.Approve(context.Background(), res.ID, ""), ErrAlreadyApproved)
}

func TestApproveAll(t *testing.T) {
	db, svc, n := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.RequiresApproval = true })
	_, err := svc.GuestRegister(context.Background(), guestRequest(sess.ID, "a@example.com", "0501111111"))
	require.NoError(t, err)
	_, err = svc.GuestRegister(context.Background(), guestRequest(sess.ID, "b@example.com", "0502222222"))
	require.NoError(t, err)
	n.sent = nil

	approved, err := svc.ApproveAll(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, approved)
	assert.Equal(t, []string{"confirmed", "confirmed"}, n.kinds())
}

func TestCompanions_Ownership(t *testing.T) {
	db, svc, _ := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.MaxCompanions = 1 })
	owner := createUser(t, db, "Omar", "omar@example.com", "+966501234567")
	stranger := createUser(t, db, "Ali", "ali@example.com", "+966507654321")
	res, err := svc.RegisterUser(context.Background(), owner.ID, regTypes.RegisterRequest{SessionID: sess.ID})
	require.NoError(t, err)

	add := regTypes.AddCompanionRequest{RegistrationID: res.ID, CompanionRequest: regTypes.CompanionRequest{Name: "Huda", Phone: "0501112222"}}
	_, err = svc.AddCompanion(context.Background(), stranger.ID, add)
	assert.ErrorIs(t, err, ErrNotOwner)

	companion, err := svc.AddCompanion(context.Background(), owner.ID, add)
	require.NoError(t, err)
	assert.Equal(t, "+966501112222", *companion.GuestPhone)

	_, err = svc.AddCompanion(context.Background(), owner.ID, add)
	assert.ErrorIs(t, err, ErrTooManyCompanions)

	list, err := svc.Companions(owner.ID, res.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, svc.RemoveCompanion(stranger.ID, companion.ID), ErrNotOwner)
	assert.ErrorIs(t, svc.RemoveCompanion(owner.ID, res.ID), ErrNotCompanion)
	require.NoError(t, svc.RemoveCompanion(owner.ID, companion.ID))
}

func TestManualRegister(t *testing.T) {
	db, svc, n := setup(t)
	sess := createSession(t, db, 1, func(s *session.Session) { s.MaxParticipants = 1 })
	a := createUser(t, db, "Omar", "omar@example.com", "+966501234567")
	b := createUser(t, db, "Ali", "ali@example.com", "+966507654321")
	require.NoError(t, db.Create(&regModel.Registration{SessionID: sess.ID, UserID: &a.ID, IsApproved: true}).Error)

	res, err := svc.ManualRegister(context.Background(), regTypes.ManualRegisterRequest{
		SessionID: sess.ID,
		UserIDs:   []string{a.ID, b.ID},
		NewGuests: []regTypes.ManualGuest{
			{Name: "Walk In", Phone: "0503334444", Email: "walkin@example.com"},
			{Name: "Walk In Again", Phone: "+966503334444"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Registered)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.EmailsSent)
	assert.Len(t, n.sent, 2)
}
