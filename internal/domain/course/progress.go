package course

import (
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PROGRESS STATE MACHINE
// NotYet -> Ongoing -> Completed. Прогресс никогда не откатывается.
// Отмена курса достижима только через отклонение внешнего запроса на
// утверждение, а не из этой машины состояний.
// ══════════════════════════════════════════════════════════════════════════════

// SubjectEvidence - свидетельство завершённости одного ClassSubject,
// собранное хранилищем: сколько расписаний закрыто и сколько
// слушателей оценено.
type SubjectEvidence struct {
	ClassSubjectID shared.ClassSubjectID

	// TotalSchedules - всего расписаний у ClassSubject (0 или 1 по
	// инварианту, но свидетельство не полагается на это).
	TotalSchedules int

	// ClosedSchedules - расписания в статусе Completed или Canceled.
	ClosedSchedules int

	// Trainees - привязанные слушатели.
	Trainees int

	// GradedTrainees - слушатели хотя бы с одной записанной оценкой.
	GradedTrainees int
}

// Satisfied проверяет, что ClassSubject не блокирует завершение курса:
// (a) все существующие расписания закрыты и (b) все слушатели оценены.
// ClassSubject без единого расписания считается незанятым и не
// блокирует завершение.
func (e SubjectEvidence) Satisfied() bool {
	if e.TotalSchedules == 0 {
		return true
	}
	if e.ClosedSchedules < e.TotalSchedules {
		return false
	}
	return e.GradedTrainees >= e.Trainees
}

// ClassEvidence - свидетельства по всем ClassSubject одной группы.
type ClassEvidence struct {
	ClassID  shared.ClassID
	Subjects []SubjectEvidence
}

// CompletionEvidence - полный срез курса для оценки завершённости.
type CompletionEvidence struct {
	CourseID shared.CourseID
	Classes  []ClassEvidence
}

// Complete проверяет, что каждая группа по каждому предмету
// удовлетворяет условиям завершения.
func (ev CompletionEvidence) Complete() bool {
	for _, class := range ev.Classes {
		for _, subj := range class.Subjects {
			if !subj.Satisfied() {
				return false
			}
		}
	}
	return true
}

// Blocking возвращает ClassSubject, которые ещё блокируют завершение.
func (ev CompletionEvidence) Blocking() []shared.ClassSubjectID {
	var blocking []shared.ClassSubjectID
	for _, class := range ev.Classes {
		for _, subj := range class.Subjects {
			if !subj.Satisfied() {
				blocking = append(blocking, subj.ClassSubjectID)
			}
		}
	}
	return blocking
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// EvaluateProgress вычисляет следующую стадию курса по текущему
// времени и свидетельствам. Возвращает текущую стадию, если переход
// не положен. Повторная оценка завершённого курса - no-op.
func EvaluateProgress(c *Course, now time.Time, ev CompletionEvidence) Progress {
	if !c.IsApproved() {
		return c.Progress
	}

	switch c.Progress {
	case ProgressNotYet:
		if c.HasStarted(now) {
			return ProgressOngoing
		}
	case ProgressOngoing:
		if ev.Complete() {
			return ProgressCompleted
		}
	case ProgressCompleted:
		// Терминальное состояние.
	}

	return c.Progress
}

// AdvanceTo переводит курс на следующую стадию с проверкой
// монотонности.
func (c *Course) AdvanceTo(next Progress) error {
	if next == c.Progress {
		return nil
	}
	if !c.Progress.CanAdvanceTo(next) {
		return shared.ErrProgressRegression
	}
	c.Progress = next
	c.UpdatedAt = time.Now().UTC()
	return nil
}
