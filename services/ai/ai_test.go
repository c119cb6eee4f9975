package ai

import (
	"context"
	"strings"
	"testing"
	"time"

	"eventpilot/internal/testdb"
	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply   string
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, nil
}

func TestGenerateDescription(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("كلمة ", 70))
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"plain json", `{"description": "رائد أعمال في التقنية"}`, "رائد أعمال في التقنية"},
		{"fenced json", "```json\n{\"description\": \"مستثمر\"}\n```", "مستثمر"},
		{"truncated", `{"description": "` + long + `"}`, strings.TrimSpace(strings.Repeat("كلمة ", 50))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: tc.reply}
			svc := NewService(nil, gen)
			got, err := svc.GenerateDescription(context.Background(), "التوسع", "تقنية")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			require.Len(t, gen.prompts, 1)
			assert.Contains(t, gen.prompts[0], "التوسع")
		})
	}
}

func TestGenerateDescription_Errors(t *testing.T) {
	_, err := NewService(nil, nil).GenerateDescription(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewService(nil, &fakeGenerator{reply: "not json"}).GenerateDescription(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON(`  {"a":1} `))
}

func TestAnalyze(t *testing.T) {
	db := testdb.New(t)
	female, tech := "female", "تقنية"
	u := &user.User{Name: "Sara", Username: "sara", Email: "sara@example.com", Gender: &female, ActivityType: &tech}
	require.NoError(t, db.Create(u).Error)
	sess := &session.Session{SessionNumber: 1, Title: "Meetup", Date: time.Now()}
	require.NoError(t, db.Create(sess).Error)
	reg := &registration.Registration{SessionID: sess.ID, UserID: &u.ID, IsApproved: true}
	require.NoError(t, db.Create(reg).Error)
	require.NoError(t, db.Create(&registration.Attendance{RegistrationID: reg.ID, SessionID: sess.ID, Attended: true}).Error)

	gen := &fakeGenerator{reply: " تحليل "}
	svc := NewService(db, gen)

	got, err := svc.Analyze(context.Background(), AnalysisDemographics)
	require.NoError(t, err)
	assert.Equal(t, "تحليل", got.Analysis)
	assert.Equal(t, int64(1), got.Stats.TotalUsers)
	assert.Equal(t, 100.0, got.Stats.AttendanceRate)
	assert.Equal(t, []Count{{Label: "female", Count: 1}}, got.Stats.Genders)
	assert.Contains(t, gen.prompts[0], `"totalRegistrations":1`)

	trends, err := svc.Analyze(context.Background(), AnalysisTrends)
	require.NoError(t, err)
	require.Len(t, trends.Stats.RegistrationsByMonth, 6)
	assert.Equal(t, int64(1), trends.Stats.RegistrationsByMonth[5].Count)

	_, err = svc.Analyze(context.Background(), "weather")
	assert.ErrorIs(t, err, ErrUnknownAnalysis)
}
