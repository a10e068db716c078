// Package timeutil provides timezone utilities for Almaty timezone (UTC+5).
// Training centers, trainees and class schedules all live in Almaty time,
// while the database stores UTC. Handles date formatting, class-day
// boundaries, and timezone-aware time operations.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// AlmatyTZ is the Almaty timezone (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so this is constant year-round.
var AlmatyTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in Almaty timezone.
func Now() time.Time {
	return time.Now().In(AlmatyTZ)
}

// ToAlmaty converts a time to Almaty timezone.
func ToAlmaty(t time.Time) time.Time {
	return t.In(AlmatyTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in Almaty timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, AlmatyTZ)
}

// DateTime creates a time in Almaty timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, AlmatyTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Almaty timezone.
func StartOfDay(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	return time.Date(almaty.Year(), almaty.Month(), almaty.Day(), 0, 0, 0, 0, AlmatyTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in Almaty timezone.
func EndOfDay(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	return time.Date(almaty.Year(), almaty.Month(), almaty.Day(), 23, 59, 59, 999999999, AlmatyTZ)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in Almaty timezone.
func StartOfWeek(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	weekday := int(almaty.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(almaty.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in Almaty timezone.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	return EndOfDay(start.AddDate(0, 0, 6))
}

// IsToday checks if the given time is today in Almaty timezone.
func IsToday(t time.Time) bool {
	now := Now()
	almaty := ToAlmaty(t)
	return almaty.Year() == now.Year() &&
		almaty.Month() == now.Month() &&
		almaty.Day() == now.Day()
}

// DaysSince calculates the number of days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	duration := now.Sub(then)
	return int(duration.Hours() / 24)
}

// DaysUntil calculates the number of days until the given time.
// Negative when the time is in the past.
func DaysUntil(t time.Time) int {
	return -DaysSince(t)
}

// Training center hours.
const (
	// CenterOpenTime is when classrooms open.
	CenterOpenTime = 8
	// CenterCloseTime is when classrooms close.
	CenterCloseTime = 22
)

// IsCenterOpen checks if the training center is open (8:00-22:00).
func IsCenterOpen(t time.Time) bool {
	almaty := ToAlmaty(t)
	hour := almaty.Hour()
	return hour >= CenterOpenTime && hour < CenterCloseTime
}

// IsWeekend checks if the given time is on a weekend.
func IsWeekend(t time.Time) bool {
	almaty := ToAlmaty(t)
	weekday := almaty.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsWorkday checks if the given time is on a workday (Mon-Fri).
func IsWorkday(t time.Time) bool {
	return !IsWeekend(t)
}

// NextWorkday returns the next workday (skipping weekends).
func NextWorkday(t time.Time) time.Time {
	next := ToAlmaty(t).AddDate(0, 0, 1)
	for IsWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return StartOfDay(next)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatRussianDate is the Russian date format (DD.MM.YYYY).
	// Used on certificate documents.
	FormatRussianDate = "02.01.2006"
	// FormatRussianDateTime is the Russian datetime format.
	FormatRussianDateTime = "02.01.2006 15:04"
)

// FormatAlmaty formats a time in Almaty timezone with the given layout.
func FormatAlmaty(t time.Time, layout string) string {
	return ToAlmaty(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in Almaty timezone.
func FormatDateStr(t time.Time) string {
	return FormatAlmaty(t, FormatDate)
}

// FormatTimeStr formats a time as a time string (HH:MM) in Almaty timezone.
func FormatTimeStr(t time.Time) string {
	return FormatAlmaty(t, FormatTime)
}

// FormatRussian formats a time in Russian format (DD.MM.YYYY).
func FormatRussian(t time.Time) string {
	return FormatAlmaty(t, FormatRussianDate)
}

// ParseAlmaty parses a time string in Almaty timezone.
func ParseAlmaty(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, AlmatyTZ)
}

// ParseDateAlmaty parses a date string (YYYY-MM-DD) in Almaty timezone.
func ParseDateAlmaty(value string) (time.Time, error) {
	return ParseAlmaty(FormatDate, value)
}

// IsSameDay checks if two times are on the same day in Almaty timezone.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToAlmaty(t1), ToAlmaty(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	a1 := StartOfDay(t1)
	a2 := StartOfDay(t2)
	duration := a2.Sub(a1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Notification timing helpers.

// IsSafeNotificationTime checks if it's appropriate to notify trainees (9:00-22:00).
func IsSafeNotificationTime(t time.Time) bool {
	almaty := ToAlmaty(t)
	hour := almaty.Hour()
	return hour >= 9 && hour < 22
}

// NextSafeNotificationTime returns the next time when notifications are appropriate.
func NextSafeNotificationTime(t time.Time) time.Time {
	almaty := ToAlmaty(t)
	hour := almaty.Hour()

	if hour < 9 {
		// Before 9 AM - return 9 AM today
		return DateTime(almaty.Year(), int(almaty.Month()), almaty.Day(), 9, 0, 0)
	} else if hour >= 22 {
		// After 10 PM - return 9 AM tomorrow
		tomorrow := almaty.AddDate(0, 0, 1)
		return DateTime(tomorrow.Year(), int(tomorrow.Month()), tomorrow.Day(), 9, 0, 0)
	}

	// Already in safe time window
	return almaty
}

// WeekdayNameRu returns the Russian name for a weekday.
// Used on printed schedules.
func WeekdayNameRu(t time.Time) string {
	almaty := ToAlmaty(t)
	switch almaty.Weekday() {
	case time.Monday:
		return "Понедельник"
	case time.Tuesday:
		return "Вторник"
	case time.Wednesday:
		return "Среда"
	case time.Thursday:
		return "Четверг"
	case time.Friday:
		return "Пятница"
	case time.Saturday:
		return "Суббота"
	case time.Sunday:
		return "Воскресенье"
	default:
		return ""
	}
}
