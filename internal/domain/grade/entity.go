// Package grade содержит доменную модель оценки слушателя и правило
// агрегации итогового балла. Здесь нет внешних зависимостей.
package grade

import (
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING
// Итоговый балл: 0.1*участие + 0.3*задание + 0.6*(пересдача, если
// сдавалась, иначе экзамен). Нулевое участие или нулевое задание -
// безусловный Fail независимо от итога.
// ══════════════════════════════════════════════════════════════════════════════

// Веса компонентов итогового балла.
const (
	WeightParticipation = 0.1
	WeightAssignment    = 0.3
	WeightFinal         = 0.6
)

// Границы компонентного балла.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// GradeStatus - производный статус оценки.
type GradeStatus string

const (
	// StatusPass - слушатель сдал предмет.
	StatusPass GradeStatus = "pass"
	// StatusFail - слушатель не сдал предмет.
	StatusFail GradeStatus = "fail"
	// StatusPending - компоненты ещё не выставлены полностью.
	StatusPending GradeStatus = "pending"
)

// IsValid проверяет, что статус корректен.
func (s GradeStatus) IsValid() bool {
	switch s {
	case StatusPass, StatusFail, StatusPending:
		return true
	default:
		return false
	}
}

// Components - четыре компонентных балла оценки.
// Отрицательный FinalExam или Resit означает, что компонент ещё не
// сдавался.
type Components struct {
	Participation float64
	Assignment    float64
	FinalExam     float64
	Resit         float64
}

// Validate проверяет диапазоны компонентов.
func (c Components) Validate() error {
	for _, score := range []float64{c.Participation, c.Assignment} {
		if score < MinScore || score > MaxScore {
			return shared.ErrScoreOutOfRange
		}
	}
	if c.FinalExam > MaxScore || c.Resit > MaxScore {
		return shared.ErrScoreOutOfRange
	}
	return nil
}

// Complete сообщает, выставлен ли финальный компонент: экзамен или
// замещающая его пересдача.
func (c Components) Complete() bool {
	return c.FinalExam >= 0 || c.Resit > 0
}

// effectiveFinal возвращает балл финального компонента: пересдача
// замещает экзамен, если сдавалась.
func (c Components) effectiveFinal() float64 {
	if c.Resit > 0 {
		return c.Resit
	}
	if c.FinalExam < 0 {
		return 0
	}
	return c.FinalExam
}

// Total вычисляет итоговый балл. При валидных компонентах результат
// всегда лежит в [0, 10].
func (c Components) Total() float64 {
	return WeightParticipation*c.Participation +
		WeightAssignment*c.Assignment +
		WeightFinal*c.effectiveFinal()
}

// StatusFor выводит статус оценки по проходному баллу предмета.
// Нулевое участие или нулевое задание - безусловный Fail; без
// финального компонента оценка остаётся Pending.
func (c Components) StatusFor(passingScore float64) GradeStatus {
	if c.Participation == 0 || c.Assignment == 0 {
		return StatusFail
	}
	if !c.Complete() {
		return StatusPending
	}
	if c.Total() >= passingScore {
		return StatusPass
	}
	return StatusFail
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: GRADE
// ══════════════════════════════════════════════════════════════════════════════

// Grade - одна оценка на пару (TraineeAssign, Subject).
type Grade struct {
	// ID - уникальный идентификатор (UUID).
	ID string

	// TraineeAssignID - привязка слушателя, по которой выставлена оценка.
	TraineeAssignID shared.TraineeAssignID

	// TraineeID - слушатель (денормализовано для агрегации).
	TraineeID shared.UserID

	// SubjectID - предмет.
	SubjectID shared.SubjectID

	// Components - компонентные баллы.
	Components Components

	// TotalScore - вычисленный итоговый балл.
	TotalScore float64

	// Status - производный статус (Pass/Fail/Pending).
	Status GradeStatus

	// GradedBy - кто выставил оценку.
	GradedBy shared.UserID

	// GradedAt - когда выставлена.
	GradedAt time.Time

	// UpdatedAt - служебная отметка времени.
	UpdatedAt time.Time
}

// NewGradeParams содержит параметры для выставления оценки.
type NewGradeParams struct {
	ID              string
	TraineeAssignID shared.TraineeAssignID
	TraineeID       shared.UserID
	SubjectID       shared.SubjectID
	Components      Components
	PassingScore    float64
	GradedBy        shared.UserID
}

// NewGrade создаёт оценку: валидирует компоненты, вычисляет итог и
// выводит статус.
func NewGrade(params NewGradeParams) (*Grade, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("grade", "New", shared.ErrEmptyValue, "grade id is required")
	}
	if !params.TraineeAssignID.IsValid() {
		return nil, shared.NewDomainError("grade", "New", shared.ErrInvalidID, "trainee assign id must be a UUID")
	}
	if !params.SubjectID.IsValid() {
		return nil, shared.NewDomainError("grade", "New", shared.ErrInvalidID, "subject id must be a UUID")
	}
	if err := params.Components.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Grade{
		ID:              params.ID,
		TraineeAssignID: params.TraineeAssignID,
		TraineeID:       params.TraineeID,
		SubjectID:       params.SubjectID,
		Components:      params.Components,
		TotalScore:      params.Components.Total(),
		Status:          params.Components.StatusFor(params.PassingScore),
		GradedBy:        params.GradedBy,
		GradedAt:        now,
		UpdatedAt:       now,
	}, nil
}

// Rescore пересчитывает оценку с новыми компонентами.
func (g *Grade) Rescore(components Components, passingScore float64, gradedBy shared.UserID) error {
	if err := components.Validate(); err != nil {
		return err
	}
	g.Components = components
	g.TotalScore = components.Total()
	g.Status = components.StatusFor(passingScore)
	g.GradedBy = gradedBy
	g.UpdatedAt = time.Now().UTC()
	return nil
}
