package course

import (
	"context"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// Repository определяет контракт хранилища курсов.
// Реализация живёт в infrastructure/persistence/postgres.
type Repository interface {
	// Create сохраняет новый курс.
	Create(ctx context.Context, c *Course) error

	// GetByID возвращает курс по идентификатору.
	GetByID(ctx context.Context, id shared.CourseID) (*Course, error)

	// Update сохраняет изменения курса (статус, прогресс, окно).
	Update(ctx context.Context, c *Course) error

	// ListSweepable возвращает утверждённые курсы, ещё не достигшие
	// ProgressCompleted. Используется фоновой развёрткой прогресса.
	ListSweepable(ctx context.Context) ([]*Course, error)

	// ListRecurrentOf возвращает Recurrent курсы, ссылающиеся на
	// данный Initial курс. Используется при восстановлении линии
	// сертификации.
	ListRecurrentOf(ctx context.Context, originalID shared.CourseID) ([]*Course, error)

	// CompletionEvidence собирает свидетельства завершённости курса:
	// по каждой группе, по каждому ClassSubject - счётчики расписаний
	// и оценок.
	CompletionEvidence(ctx context.Context, courseID shared.CourseID) (CompletionEvidence, error)

	// ListClasses возвращает группы курса.
	ListClasses(ctx context.Context, courseID shared.CourseID) ([]*Class, error)

	// GetClassSubject возвращает ClassSubject вместе со специальностью
	// пары предмет-специальность.
	GetClassSubject(ctx context.Context, id shared.ClassSubjectID) (*ClassSubject, error)

	// ListClassSubjects возвращает все ClassSubject курса.
	ListClassSubjects(ctx context.Context, courseID shared.CourseID) ([]*ClassSubject, error)

	// ListSubjectSpecialties возвращает пары предмет-специальность курса.
	ListSubjectSpecialties(ctx context.Context, courseID shared.CourseID) ([]SubjectSpecialty, error)

	// GetSubject возвращает предмет с проходным баллом.
	GetSubject(ctx context.Context, id shared.SubjectID) (*Subject, error)

	// UpsertInstructorAssignment создаёт назначение инструктора на
	// ClassSubject или перенаправляет существующее на нового
	// инструктора. Вызывается в одной транзакции с записью расписания.
	UpsertInstructorAssignment(ctx context.Context, classSubjectID shared.ClassSubjectID, instructorID shared.UserID) error

	// CreateTraineeAssign записывает привязку слушателя к ClassSubject.
	// Возвращает ErrDuplicateTraineeAssign при повторной привязке.
	CreateTraineeAssign(ctx context.Context, ta *TraineeAssign) error

	// ListTraineeAssigns возвращает утверждённые привязки слушателей
	// по всем ClassSubject курса.
	ListTraineeAssigns(ctx context.Context, courseID shared.CourseID) ([]*TraineeAssign, error)

	// GetCourseByTraineeAssign разворачивает привязку слушателя в её
	// курс через ClassSubject.
	GetCourseByTraineeAssign(ctx context.Context, assignID shared.TraineeAssignID) (*Course, error)
}
