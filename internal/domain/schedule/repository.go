package schedule

import (
	"context"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// Repository определяет контракт хранилища расписаний.
type Repository interface {
	// Create сохраняет новое расписание.
	Create(ctx context.Context, s *TrainingSchedule) error

	// Update сохраняет изменения расписания.
	Update(ctx context.Context, s *TrainingSchedule) error

	// GetByID возвращает расписание по идентификатору.
	GetByID(ctx context.Context, id shared.ScheduleID) (*TrainingSchedule, error)

	// GetByClassSubject возвращает расписание, которым владеет
	// ClassSubject, или shared.ErrNotFound.
	GetByClassSubject(ctx context.Context, id shared.ClassSubjectID) (*TrainingSchedule, error)

	// ListByRoom возвращает расписания той же аудитории для поиска
	// конфликтов.
	ListByRoom(ctx context.Context, location, room string) ([]*TrainingSchedule, error)

	// ListByInstructor возвращает все расписания инструктора.
	ListByInstructor(ctx context.Context, instructorID shared.UserID) ([]*TrainingSchedule, error)
}
