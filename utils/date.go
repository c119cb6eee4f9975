package utils

import (
	"fmt"
	"time"
)

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

var arabicDays = [...]string{
	"الأحد", "الاثنين", "الثلاثاء", "الأربعاء", "الخميس", "الجمعة", "السبت",
}

// Riyadh is the display zone for every date shown to guests.
var Riyadh = loadRiyadh()

func loadRiyadh() *time.Location {
	loc, err := time.LoadLocation("Asia/Riyadh")
	if err != nil {
		return time.FixedZone("AST", 3*60*60)
	}
	return loc
}

// FormatArabicDate renders e.g. "الثلاثاء 14 أكتوبر 2025".
func FormatArabicDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(Riyadh)
	return fmt.Sprintf("%s %d %s %d", arabicDays[t.Weekday()], t.Day(), arabicMonths[t.Month()-1], t.Year())
}

// FormatArabicTime renders 24-hour HH:MM.
func FormatArabicTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Riyadh).Format("15:04")
}

func FormatArabicDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return FormatArabicDate(t) + " - " + FormatArabicTime(t)
}
