// Package course содержит доменную модель учебного курса центра
// профессиональной подготовки. Это ядро бизнес-логики - здесь нет
// внешних зависимостей.
package course

import (
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет административный статус курса.
type Status string

const (
	// StatusPending - курс создан и ожидает утверждения.
	StatusPending Status = "pending"
	// StatusApproved - курс утверждён через внешний запрос на утверждение.
	StatusApproved Status = "approved"
	// StatusRejected - запрос на утверждение отклонён.
	StatusRejected Status = "rejected"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Progress определяет стадию прохождения курса.
// Переходы строго монотонны: NotYet -> Ongoing -> Completed.
type Progress string

const (
	// ProgressNotYet - курс ещё не начался.
	ProgressNotYet Progress = "not_yet"
	// ProgressOngoing - курс идёт (наступила дата начала утверждённого курса).
	ProgressOngoing Progress = "ongoing"
	// ProgressCompleted - все расписания закрыты и все слушатели оценены.
	// Терминальное состояние.
	ProgressCompleted Progress = "completed"
)

// IsValid проверяет, что стадия корректна.
func (p Progress) IsValid() bool {
	switch p {
	case ProgressNotYet, ProgressOngoing, ProgressCompleted:
		return true
	default:
		return false
	}
}

// rank возвращает порядковый номер стадии для проверки монотонности.
func (p Progress) rank() int {
	switch p {
	case ProgressNotYet:
		return 0
	case ProgressOngoing:
		return 1
	case ProgressCompleted:
		return 2
	default:
		return -1
	}
}

// CanAdvanceTo проверяет, что переход не откатывает прогресс назад.
func (p Progress) CanAdvanceTo(next Progress) bool {
	return next.IsValid() && next.rank() > p.rank()
}

// String возвращает строковое представление.
func (p Progress) String() string { return string(p) }

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course - курс подготовки по одной специальности.
// Recurrent/Relearn курсы ссылаются на исходный Initial курс,
// сертификацию которого они продлевают или повторяют.
type Course struct {
	// ID - уникальный идентификатор (UUID).
	ID shared.CourseID

	// Code - человекочитаемый код курса (например, "AVI-2025-04").
	Code string

	// Name - название курса.
	Name string

	// Level - уровень курса (Initial/Recurrent/Relearn/Professional).
	Level shared.CourseLevel

	// Specialty - специальность, по которой ведётся подготовка.
	Specialty shared.Specialty

	// Status - административный статус (Pending/Approved/Rejected).
	Status Status

	// Progress - стадия прохождения (NotYet/Ongoing/Completed).
	Progress Progress

	// StartAt, EndAt - временное окно курса.
	StartAt time.Time
	EndAt   time.Time

	// RelatedCourseID - ссылка на исходный Initial курс.
	// Обязательна для Recurrent/Relearn, запрещена для остальных.
	RelatedCourseID shared.CourseID

	// ApprovedBy - кто утвердил курс (пусто, пока Pending).
	ApprovedBy shared.UserID

	// CreatedAt, UpdatedAt - служебные отметки времени.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCourseParams содержит параметры для создания курса.
type NewCourseParams struct {
	ID              shared.CourseID
	Code            string
	Name            string
	Level           shared.CourseLevel
	Specialty       shared.Specialty
	StartAt         time.Time
	EndAt           time.Time
	RelatedCourseID shared.CourseID
}

// NewCourse создаёт курс с валидацией всех полей и инварианта
// связанного курса.
func NewCourse(params NewCourseParams) (*Course, error) {
	if !params.ID.IsValid() {
		return nil, shared.NewDomainError("course", "New", shared.ErrInvalidID, "course id must be a UUID")
	}

	code := strings.TrimSpace(params.Code)
	if code == "" {
		return nil, shared.NewDomainError("course", "New", shared.ErrEmptyValue, "course code is required")
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, shared.NewDomainError("course", "New", shared.ErrEmptyValue, "course name is required")
	}

	if !params.Level.IsValid() {
		return nil, shared.NewDomainError("course", "New", shared.ErrInvalidInput, "unknown course level")
	}

	if !params.Specialty.IsValid() {
		return nil, shared.NewDomainError("course", "New", shared.ErrInvalidInput, "invalid specialty code")
	}

	if !params.StartAt.Before(params.EndAt) {
		return nil, shared.NewDomainError("course", "New", shared.ErrValidation, "course start must be before end")
	}

	if err := checkRelatedCourse(params.Level, params.RelatedCourseID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Course{
		ID:              params.ID,
		Code:            code,
		Name:            name,
		Level:           params.Level,
		Specialty:       params.Specialty,
		Status:          StatusPending,
		Progress:        ProgressNotYet,
		StartAt:         params.StartAt,
		EndAt:           params.EndAt,
		RelatedCourseID: params.RelatedCourseID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// checkRelatedCourse проверяет инвариант: Initial курс не ссылается на
// другой курс; Recurrent/Relearn обязаны ссылаться на исходный Initial.
func checkRelatedCourse(level shared.CourseLevel, related shared.CourseID) error {
	if level.RequiresRelatedCourse() {
		if related.IsEmpty() {
			return shared.ErrRelatedCourseMissing
		}
		if !related.IsValid() {
			return shared.NewDomainError("course", "Validate", shared.ErrInvalidID, "related course id must be a UUID")
		}
		return nil
	}
	if !related.IsEmpty() {
		return shared.ErrRelatedCourseMustNotBeSet
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Approve утверждает курс. Вызывается обработчиком внешнего запроса
// на утверждение; повторное утверждение - ошибка перехода.
func (c *Course) Approve(by shared.UserID) error {
	if c.Status != StatusPending {
		return shared.NewDomainError("course", "Approve", shared.ErrStateTransition,
			"only a pending course can be approved")
	}
	c.Status = StatusApproved
	c.ApprovedBy = by
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// Reject отклоняет курс.
func (c *Course) Reject() error {
	if c.Status != StatusPending {
		return shared.NewDomainError("course", "Reject", shared.ErrStateTransition,
			"only a pending course can be rejected")
	}
	c.Status = StatusRejected
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// IsApproved проверяет, что курс утверждён.
func (c *Course) IsApproved() bool { return c.Status == StatusApproved }

// HasStarted проверяет, что наступила дата начала курса.
func (c *Course) HasStarted(now time.Time) bool {
	return !now.Before(c.StartAt)
}

// OriginalCourseID возвращает идентификатор исходного курса линии
// сертификации: для Recurrent/Relearn это связанный Initial курс,
// иначе сам курс.
func (c *Course) OriginalCourseID() shared.CourseID {
	if c.Level.RequiresRelatedCourse() && !c.RelatedCourseID.IsEmpty() {
		return c.RelatedCourseID
	}
	return c.ID
}

// ══════════════════════════════════════════════════════════════════════════════
// CHILD ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Class - учебная группа внутри курса.
type Class struct {
	ID       shared.ClassID
	CourseID shared.CourseID
	Name     string
}

// ClassSubject - единица расписания: один предмет, преподаваемый
// одной группе одним назначенным инструктором. Владеет не более чем
// одним расписанием.
type ClassSubject struct {
	ID        shared.ClassSubjectID
	ClassID   shared.ClassID
	CourseID  shared.CourseID
	SubjectID shared.SubjectID

	// Specialty - специальность пары предмет-специальность.
	Specialty shared.Specialty

	// InstructorID - утверждённый инструктор (пусто до назначения).
	InstructorID shared.UserID
}

// Subject - предмет с проходным баллом.
type Subject struct {
	ID           shared.SubjectID
	Code         string
	Name         string
	PassingScore float64
}

// SubjectSpecialty - пара предмет-специальность, обязательная для
// получения сертификата по данной специальности в рамках курса.
type SubjectSpecialty struct {
	SubjectID shared.SubjectID
	Specialty shared.Specialty
}

// InstructorAssignment - назначение инструктора на ClassSubject.
// Создаётся или перенаправляется транзакционно вместе с расписанием.
type InstructorAssignment struct {
	ID             string
	ClassSubjectID shared.ClassSubjectID
	InstructorID   shared.UserID
	Status         shared.RequestStatus
	AssignedAt     time.Time
}

// TraineeAssign - привязка слушателя к ClassSubject. Один слушатель
// может иметь не более одной привязки на ClassSubject.
type TraineeAssign struct {
	ID             shared.TraineeAssignID
	ClassSubjectID shared.ClassSubjectID
	TraineeID      shared.UserID
	Status         shared.RequestStatus
	CreatedAt      time.Time
}

// ErrDuplicateTraineeAssign - повторная привязка слушателя к тому же ClassSubject.
var ErrDuplicateTraineeAssign = shared.NewDomainError("course", "EnrollTrainee", shared.ErrAlreadyExists, "trainee already assigned to this class subject")

// NewTraineeAssign создаёт привязку слушателя к ClassSubject.
func NewTraineeAssign(id shared.TraineeAssignID, classSubjectID shared.ClassSubjectID, traineeID shared.UserID, now time.Time) (*TraineeAssign, error) {
	if !id.IsValid() {
		return nil, shared.NewDomainError("course", "EnrollTrainee", shared.ErrInvalidID, "trainee assign id must be a UUID")
	}
	if !classSubjectID.IsValid() {
		return nil, shared.NewDomainError("course", "EnrollTrainee", shared.ErrInvalidID, "class subject id must be a UUID")
	}
	if !traineeID.IsValid() {
		return nil, shared.NewDomainError("course", "EnrollTrainee", shared.ErrInvalidID, "trainee id must be a UUID")
	}
	return &TraineeAssign{
		ID:             id,
		ClassSubjectID: classSubjectID,
		TraineeID:      traineeID,
		Status:         shared.RequestApproved,
		CreatedAt:      now,
	}, nil
}
