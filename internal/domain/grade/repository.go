package grade

import (
	"context"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// Repository определяет контракт хранилища оценок.
type Repository interface {
	// Upsert сохраняет оценку. Одна оценка на пару
	// (TraineeAssign, Subject): повторная запись замещает компоненты.
	Upsert(ctx context.Context, g *Grade) error

	// GetByAssignAndSubject возвращает оценку по паре.
	GetByAssignAndSubject(ctx context.Context, assignID shared.TraineeAssignID, subjectID shared.SubjectID) (*Grade, error)

	// ListByCourse возвращает все оценки по утверждённым привязкам
	// слушателей курса. Используется движком сертификации.
	ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*Grade, error)

	// ListByTrainee возвращает оценки слушателя в рамках курса.
	ListByTrainee(ctx context.Context, courseID shared.CourseID, traineeID shared.UserID) ([]*Grade, error)
}
