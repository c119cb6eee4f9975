// Package ai writes session descriptions and analytics summaries with a
// language model.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpilot/models/registration"
	"eventpilot/models/session"
	"eventpilot/models/user"
	"eventpilot/utils"

	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

var (
	ErrNotConfigured   = errors.New("AI service is not configured")
	ErrInvalidResponse = errors.New("AI returned an unexpected response")
	ErrUnknownAnalysis = errors.New("unknown analysis type")
)

const DescriptionMaxWords = 50

type AnalysisType string

const (
	AnalysisDemographics AnalysisType = "demographics"
	AnalysisTrends       AnalysisType = "trends"
	AnalysisInsights     AnalysisType = "insights"
)

func (t AnalysisType) IsValid() bool {
	return t == AnalysisDemographics || t == AnalysisTrends || t == AnalysisInsights
}

type Service struct {
	DB  *gorm.DB
	Gen Generator
	now func() time.Time
}

// NewService returns a Service. A nil generator makes every call return
// ErrNotConfigured.
func NewService(db *gorm.DB, gen Generator) *Service {
	return &Service{DB: db, Gen: gen, now: time.Now}
}

func (s *Service) Configured() bool {
	return s != nil && s.Gen != nil
}

const descriptionPrompt = `أنت كاتب محتوى محترف لفعاليات ريادة الأعمال.
اكتب وصفاً احترافياً باللغة العربية لا يتجاوز %d كلمة لمشارك في فعالية.
هدف المشارك: %s
نوع النشاط: %s
أعد JSON فقط بالشكل: {"description": "..."}`

// GenerateDescription drafts a short Arabic bio from the goal and activity.
func (s *Service) GenerateDescription(ctx context.Context, goal, activityType string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	prompt := fmt.Sprintf(descriptionPrompt, DescriptionMaxWords, strings.TrimSpace(goal), strings.TrimSpace(activityType))
	text, err := s.Gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	description := utils.TruncateWords(parsed.Description, DescriptionMaxWords)
	if description == "" {
		return "", ErrInvalidResponse
	}
	return description, nil
}

type Count struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// Stats are the aggregates sent to the model with an analysis prompt.
type Stats struct {
	TotalUsers           int64        `json:"totalUsers"`
	TotalSessions        int64        `json:"totalSessions"`
	TotalRegistrations   int64        `json:"totalRegistrations"`
	TotalAttended        int64        `json:"totalAttended"`
	AttendanceRate       float64      `json:"attendanceRate"`
	Genders              []Count      `json:"genders,omitempty"`
	ActivityTypes        []Count      `json:"activityTypes,omitempty"`
	RegistrationsByMonth []MonthCount `json:"registrationsByMonth,omitempty"`
}

type Analysis struct {
	Type     AnalysisType `json:"type"`
	Stats    *Stats       `json:"stats"`
	Analysis string       `json:"analysis"`
}

var analysisFocus = map[AnalysisType]string{
	AnalysisDemographics: "حلل التركيبة السكانية للمشاركين (الجنس ونوع النشاط) واذكر أبرز الملاحظات.",
	AnalysisTrends:       "حلل اتجاهات التسجيل الشهرية وتوقع ما يمكن أن يحدث في الأشهر القادمة.",
	AnalysisInsights:     "قدم رؤى وتوصيات عملية لتحسين الحضور والتفاعل في الفعاليات القادمة.",
}

// Analyze builds aggregate statistics and asks the model to interpret them.
func (s *Service) Analyze(ctx context.Context, kind AnalysisType) (*Analysis, error) {
	if !kind.IsValid() {
		return nil, ErrUnknownAnalysis
	}
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	stats, err := s.Stats(kind)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("أنت محلل بيانات لمنصة فعاليات. %s\nالبيانات:\n%s\nاكتب التحليل باللغة العربية في فقرات قصيرة.",
		analysisFocus[kind], payload)
	text, err := s.Gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return &Analysis{Type: kind, Stats: stats, Analysis: strings.TrimSpace(text)}, nil
}

// Stats collects the totals every analysis shares plus the breakdown the
// analysis type needs.
func (s *Service) Stats(kind AnalysisType) (*Stats, error) {
	var st Stats
	if err := s.DB.Model(&user.User{}).Where("role = ?", user.RoleUser).Count(&st.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&session.Session{}).Count(&st.TotalSessions).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&registration.Registration{}).Count(&st.TotalRegistrations).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&registration.Attendance{}).Where("attended = ?", true).Count(&st.TotalAttended).Error; err != nil {
		return nil, err
	}
	if st.TotalRegistrations > 0 {
		st.AttendanceRate = float64(st.TotalAttended) * 100 / float64(st.TotalRegistrations)
	}

	switch kind {
	case AnalysisDemographics:
		genders, err := s.groupUsers("gender")
		if err != nil {
			return nil, err
		}
		activities, err := s.groupUsers("activity_type")
		if err != nil {
			return nil, err
		}
		st.Genders, st.ActivityTypes = genders, activities
	case AnalysisTrends:
		months, err := RegistrationsByMonth(s.DB, s.now(), 6)
		if err != nil {
			return nil, err
		}
		st.RegistrationsByMonth = months
	}
	return &st, nil
}

func (s *Service) groupUsers(column string) ([]Count, error) {
	var rows []Count
	err := s.DB.Model(&user.User{}).
		Select(column+" AS label, COUNT(*) AS count").
		Where(column + " IS NOT NULL AND " + column + " <> ''").
		Group(column).
		Order("count DESC").
		Limit(10).
		Scan(&rows).Error
	return rows, err
}

// RegistrationsByMonth counts registrations in each of the last n calendar
// months ending with the month of at, oldest first.
func RegistrationsByMonth(db *gorm.DB, at time.Time, n int) ([]MonthCount, error) {
	out := make([]MonthCount, 0, n)
	start := now.With(at).BeginningOfMonth().AddDate(0, -(n - 1), 0)
	for i := 0; i < n; i++ {
		month := now.With(start.AddDate(0, i, 0))
		var count int64
		err := db.Model(&registration.Registration{}).
			Where("registered_at >= ? AND registered_at <= ?", month.BeginningOfMonth(), month.EndOfMonth()).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		out = append(out, MonthCount{Month: month.Format("2006-01"), Count: count})
	}
	return out, nil
}
