// Package schedule содержит доменную модель расписания занятий и
// валидатор конфликтов. Здесь нет внешних зависимостей.
package schedule

import (
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

// Границы длительности занятия в минутах.
const (
	MinDurationMinutes = 80
	MaxDurationMinutes = 170
)

// allowedClassTimes - фиксированный набор допустимых времён начала
// занятий. Часы 10:00, 12:00 и 17:00 исключены регламентом центра.
var allowedClassTimes = map[shared.TimeOfDay]bool{
	mustTime(7, 0):  true,
	mustTime(8, 0):  true,
	mustTime(9, 0):  true,
	mustTime(11, 0): true,
	mustTime(13, 0): true,
	mustTime(14, 0): true,
	mustTime(15, 0): true,
	mustTime(16, 0): true,
	mustTime(18, 0): true,
	mustTime(19, 0): true,
	mustTime(20, 0): true,
}

func mustTime(h, m int) shared.TimeOfDay {
	t, err := shared.NewTimeOfDay(h, m)
	if err != nil {
		panic(err)
	}
	return t
}

// IsAllowedClassTime проверяет принадлежность времени начала занятия
// допустимому набору.
func IsAllowedClassTime(t shared.TimeOfDay) bool {
	return allowedClassTimes[t]
}

// AllowedClassTimes возвращает копию допустимого набора времён.
func AllowedClassTimes() []shared.TimeOfDay {
	times := make([]shared.TimeOfDay, 0, len(allowedClassTimes))
	for t := range allowedClassTimes {
		times = append(times, t)
	}
	return times
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет статус расписания.
type Status string

const (
	// StatusPending - расписание создано и ожидает утверждения.
	StatusPending Status = "pending"
	// StatusIncoming - расписание утверждено и ещё не началось.
	StatusIncoming Status = "incoming"
	// StatusCanceled - расписание отменено через отклонение запроса.
	StatusCanceled Status = "canceled"
	// StatusCompleted - занятия по расписанию завершены.
	StatusCompleted Status = "completed"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusIncoming, StatusCanceled, StatusCompleted:
		return true
	default:
		return false
	}
}

// IsClosed проверяет, что расписание больше не активно и не участвует
// в конфликтах (и не блокирует завершение курса).
func (s Status) IsClosed() bool {
	return s == StatusCanceled || s == StatusCompleted
}

// Occupies проверяет, что расписание занимает аудиторию и инструктора
// и должно учитываться при поиске конфликтов.
func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusIncoming
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: TRAINING SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// TrainingSchedule - повторяющееся расписание занятий одного
// ClassSubject: дни недели, ежедневное время начала и длительность,
// общий диапазон дат, аудитория и инструктор.
type TrainingSchedule struct {
	// ID - уникальный идентификатор (UUID).
	ID shared.ScheduleID

	// ClassSubjectID - владелец расписания. Ровно одно расписание на
	// ClassSubject.
	ClassSubjectID shared.ClassSubjectID

	// InstructorID - инструктор, ведущий занятия.
	InstructorID shared.UserID

	// Days - повторяющиеся дни недели.
	Days shared.WeekdaySet

	// ClassTime - ежедневное время начала из допустимого набора.
	ClassTime shared.TimeOfDay

	// DurationMinutes - длительность занятия, [80, 170] минут.
	DurationMinutes int

	// Range - общий диапазон дат [startDay, endDay].
	Range shared.DateRange

	// Location, Room - место проведения.
	Location string
	Room     string

	// Status - статус жизненного цикла.
	Status Status

	// CreatedAt, UpdatedAt - служебные отметки времени.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewScheduleParams содержит параметры нового расписания.
type NewScheduleParams struct {
	ID              shared.ScheduleID
	ClassSubjectID  shared.ClassSubjectID
	InstructorID    shared.UserID
	Days            shared.WeekdaySet
	ClassTime       shared.TimeOfDay
	DurationMinutes int
	Range           shared.DateRange
	Location        string
	Room            string
	Now             time.Time
}

// NewTrainingSchedule создаёт расписание в статусе Pending.
// Содержательные проверки (время начала, длительность, порядок дат,
// конфликты) выполняет валидатор конфликтов.
func NewTrainingSchedule(params NewScheduleParams) (*TrainingSchedule, error) {
	if !params.ID.IsValid() {
		return nil, shared.NewDomainError("schedule", "New", shared.ErrInvalidID, "schedule id must be a UUID")
	}
	if params.ClassSubjectID.IsEmpty() {
		return nil, shared.NewDomainError("schedule", "New", shared.ErrEmptyValue, "class subject is required")
	}
	if params.InstructorID.IsEmpty() {
		return nil, shared.NewDomainError("schedule", "New", shared.ErrEmptyValue, "instructor is required")
	}
	if params.Days.IsEmpty() {
		return nil, shared.NewDomainError("schedule", "New", shared.ErrEmptyValue, "at least one weekday is required")
	}

	now := params.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &TrainingSchedule{
		ID:              params.ID,
		ClassSubjectID:  params.ClassSubjectID,
		InstructorID:    params.InstructorID,
		Days:            params.Days,
		ClassTime:       params.ClassTime,
		DurationMinutes: params.DurationMinutes,
		Range:           params.Range,
		Location:        params.Location,
		Room:            params.Room,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Interval возвращает полуоткрытый интервал занятия
// [classTime, classTime+duration) на оси минут.
func (s *TrainingSchedule) Interval() shared.MinuteInterval {
	return shared.MinuteInterval{
		Start: s.ClassTime,
		End:   s.ClassTime.Add(s.DurationMinutes),
	}
}

// SameRoom проверяет совпадение места проведения.
func (s *TrainingSchedule) SameRoom(other *TrainingSchedule) bool {
	return s.Location == other.Location && s.Room == other.Room
}

// Complete помечает расписание завершённым.
func (s *TrainingSchedule) Complete() error {
	if s.Status != StatusIncoming {
		return shared.NewDomainError("schedule", "Complete", shared.ErrStateTransition,
			"only an incoming schedule can be completed")
	}
	s.Status = StatusCompleted
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel отменяет расписание.
func (s *TrainingSchedule) Cancel() error {
	if s.Status.IsClosed() {
		return shared.NewDomainError("schedule", "Cancel", shared.ErrStateTransition,
			"schedule is already closed")
	}
	s.Status = StatusCanceled
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Approve переводит утверждённое расписание в статус Incoming.
func (s *TrainingSchedule) Approve() error {
	if s.Status != StatusPending {
		return shared.NewDomainError("schedule", "Approve", shared.ErrStateTransition,
			"only a pending schedule can be approved")
	}
	s.Status = StatusIncoming
	s.UpdatedAt = time.Now().UTC()
	return nil
}
