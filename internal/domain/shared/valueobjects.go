// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// UserID identifies a trainee, instructor, or approver (UUID format).
type UserID string

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool { return uuidRegex.MatchString(string(u)) }

// String returns the string representation.
func (u UserID) String() string { return string(u) }

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool { return u == "" }

// CourseID identifies a course (UUID format).
type CourseID string

func (c CourseID) IsValid() bool  { return uuidRegex.MatchString(string(c)) }
func (c CourseID) String() string { return string(c) }
func (c CourseID) IsEmpty() bool  { return c == "" }

// ClassID identifies a class within a course.
type ClassID string

func (c ClassID) IsValid() bool  { return uuidRegex.MatchString(string(c)) }
func (c ClassID) String() string { return string(c) }

// ClassSubjectID identifies the unit of scheduling: one subject taught
// to one class by one assigned instructor.
type ClassSubjectID string

func (c ClassSubjectID) IsValid() bool  { return uuidRegex.MatchString(string(c)) }
func (c ClassSubjectID) String() string { return string(c) }
func (c ClassSubjectID) IsEmpty() bool  { return c == "" }

// SubjectID identifies a subject.
type SubjectID string

func (s SubjectID) IsValid() bool  { return uuidRegex.MatchString(string(s)) }
func (s SubjectID) String() string { return string(s) }

// ScheduleID identifies a training schedule.
type ScheduleID string

func (s ScheduleID) IsValid() bool  { return uuidRegex.MatchString(string(s)) }
func (s ScheduleID) String() string { return string(s) }
func (s ScheduleID) IsEmpty() bool  { return s == "" }

// TraineeAssignID identifies a trainee-to-class-subject assignment.
type TraineeAssignID string

func (t TraineeAssignID) IsValid() bool  { return uuidRegex.MatchString(string(t)) }
func (t TraineeAssignID) String() string { return string(t) }

// CertificateID identifies a certificate. The ID survives renewals:
// a recurrent renewal mutates the certificate row in place and the
// identity is carried forward.
type CertificateID string

func (c CertificateID) IsValid() bool  { return uuidRegex.MatchString(string(c)) }
func (c CertificateID) String() string { return string(c) }
func (c CertificateID) IsEmpty() bool  { return c == "" }

// RequestID identifies an approval request.
type RequestID string

func (r RequestID) IsValid() bool  { return uuidRegex.MatchString(string(r)) }
func (r RequestID) String() string { return string(r) }

// ═══════════════════════════════════════════════════════════════════════════
// Specialty
// ═══════════════════════════════════════════════════════════════════════════

// Specialty is a vocational track code (e.g., "AV-MNT", "GND-OPS").
// It gates which subjects, schedules, and instructors a trainee may be
// matched with.
type Specialty string

var specialtyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}(-[A-Z0-9]{1,10})*$`)

// IsValid checks the specialty code format.
func (s Specialty) IsValid() bool { return specialtyRegex.MatchString(string(s)) }

// String returns the string representation.
func (s Specialty) String() string { return string(s) }

// IsEmpty checks if the specialty is empty.
func (s Specialty) IsEmpty() bool { return s == "" }

// Matches compares two specialties, ignoring surrounding whitespace.
func (s Specialty) Matches(other Specialty) bool {
	return strings.TrimSpace(string(s)) == strings.TrimSpace(string(other))
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Level
// ═══════════════════════════════════════════════════════════════════════════

// CourseLevel defines the kind of course offering. It is shared between
// the course, certificate, and scheduling domains because certification
// semantics (fresh issue vs renewal-in-place) depend on it.
type CourseLevel string

const (
	// LevelInitial is the first certification course of a lineage.
	LevelInitial CourseLevel = "initial"
	// LevelRecurrent is a periodic renewal of an Initial course's
	// certification for the same specialty.
	LevelRecurrent CourseLevel = "recurrent"
	// LevelRelearn is a remedial re-take of an Initial course.
	LevelRelearn CourseLevel = "relearn"
	// LevelProfessional is a standalone professional development course.
	LevelProfessional CourseLevel = "professional"
)

// IsValid reports whether the level is one of the known constants.
func (l CourseLevel) IsValid() bool {
	switch l {
	case LevelInitial, LevelRecurrent, LevelRelearn, LevelProfessional:
		return true
	default:
		return false
	}
}

// RequiresRelatedCourse reports whether a course of this level must
// reference the Initial course it renews or re-teaches.
func (l CourseLevel) RequiresRelatedCourse() bool {
	return l == LevelRecurrent || l == LevelRelearn
}

// RenewsInPlace reports whether certification for this level mutates
// the trainee's existing certificate instead of creating a new one.
func (l CourseLevel) RenewsInPlace() bool {
	return l == LevelRecurrent
}

// String returns the string representation.
func (l CourseLevel) String() string { return string(l) }

// ═══════════════════════════════════════════════════════════════════════════
// Request Status
// ═══════════════════════════════════════════════════════════════════════════

// RequestStatus is the generic approval state gating mutation of
// approved entities (courses, training plans, schedules, assignments).
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestUpdating RequestStatus = "updating"
	RequestDeleting RequestStatus = "deleting"
)

// IsValid reports whether the status is a known constant.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestUpdating, RequestDeleting:
		return true
	default:
		return false
	}
}

// IsResolved reports whether the request has left the pending state
// for a terminal answer.
func (s RequestStatus) IsResolved() bool {
	return s == RequestApproved || s == RequestRejected
}

// String returns the string representation.
func (s RequestStatus) String() string { return string(s) }

// ═══════════════════════════════════════════════════════════════════════════
// Time Of Day
// ═══════════════════════════════════════════════════════════════════════════

// TimeOfDay is a wall-clock class time expressed as minutes since
// midnight. It carries no date or timezone; schedules pair it with a
// date range and a weekday set.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, NewDomainError("shared", "NewTimeOfDay", ErrValueOutOfRange,
			fmt.Sprintf("invalid time of day %02d:%02d", hour, minute))
	}
	return TimeOfDay(hour*60 + minute), nil
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, WrapError("shared", "ParseTimeOfDay", ErrInvalidFormat, "expected HH:MM", err)
	}
	return NewTimeOfDay(h, m)
}

// IsValid reports whether the value lies within a day.
func (t TimeOfDay) IsValid() bool { return t >= 0 && t < 24*60 }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add returns the time of day shifted by the given number of minutes.
// The result may exceed 24h; interval comparisons stay correct because
// both endpoints live on the same minute axis.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// String formats as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MinuteInterval is a half-open [Start, End) interval on the minute axis.
type MinuteInterval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether two half-open intervals intersect.
// Touching endpoints (a.End == b.Start) do not overlap.
func (i MinuteInterval) Overlaps(other MinuteInterval) bool {
	return i.Start < other.End && other.Start < i.End
}

// ═══════════════════════════════════════════════════════════════════════════
// Date Range
// ═══════════════════════════════════════════════════════════════════════════

// DateRange is an inclusive [Start, End] range of calendar days.
// Times of day on Start/End are ignored for overlap purposes.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange validates start < end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if !truncateToDay(start).Before(truncateToDay(end)) {
		return DateRange{}, NewDomainError("shared", "NewDateRange", ErrValidation,
			"start day must be before end day")
	}
	return DateRange{Start: start, End: end}, nil
}

// Overlaps reports whether two inclusive day ranges intersect.
func (r DateRange) Overlaps(other DateRange) bool {
	a0, a1 := truncateToDay(r.Start), truncateToDay(r.End)
	b0, b1 := truncateToDay(other.Start), truncateToDay(other.End)
	return !a0.After(b1) && !b0.After(a1)
}

// Contains reports whether the given instant falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateToDay(t)
	return !d.Before(truncateToDay(r.Start)) && !d.After(truncateToDay(r.End))
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ═══════════════════════════════════════════════════════════════════════════
// Weekday Set
// ═══════════════════════════════════════════════════════════════════════════

// WeekdaySet is a bitmask of repeating days of week, bit 0 = Sunday.
type WeekdaySet uint8

// NewWeekdaySet builds a set from weekdays.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// Contains reports whether the set includes the weekday.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Intersects reports whether two sets share at least one weekday.
func (s WeekdaySet) Intersects(other WeekdaySet) bool {
	return s&other != 0
}

// IsEmpty reports whether the set has no days.
func (s WeekdaySet) IsEmpty() bool { return s == 0 }

// Days returns the weekdays in the set, Sunday first.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// String formats like "Mon,Wed,Fri".
func (s WeekdaySet) String() string {
	if s.IsEmpty() {
		return "none"
	}
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, d.String()[:3])
	}
	return strings.Join(parts, ",")
}
