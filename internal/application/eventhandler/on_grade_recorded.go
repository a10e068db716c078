package eventhandler

import (
	"context"
	"log/slog"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON GRADE RECORDED HANDLER
// Обрабатывает событие записи оценки: переоценивает прогресс курса
// (последняя оценка может завершить курс) и инвалидирует кеш истории
// сертификации слушателя.
// ═══════════════════════════════════════════════════════════════════════════

// OnGradeRecordedHandler обрабатывает событие записи оценки.
type OnGradeRecordedHandler struct {
	advancer   *command.AdvanceCourseHandler
	courseRepo course.Repository
	certRepo   certificate.Repository
	cache      certificate.HistoryCache
	logger     *slog.Logger
}

// NewOnGradeRecordedHandler создаёт новый обработчик. Кеш может быть
// nil.
func NewOnGradeRecordedHandler(
	advancer *command.AdvanceCourseHandler,
	courseRepo course.Repository,
	certRepo certificate.Repository,
	cache certificate.HistoryCache,
	logger *slog.Logger,
) *OnGradeRecordedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnGradeRecordedHandler{
		advancer:   advancer,
		courseRepo: courseRepo,
		certRepo:   certRepo,
		cache:      cache,
		logger:     logger,
	}
}

// Handle реализует shared.EventHandler.
func (h *OnGradeRecordedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	gradeEvent, ok := event.(shared.GradeRecordedEvent)
	if !ok {
		h.logger.Warn("received non-GradeRecordedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing grade recorded event",
		"grade_id", gradeEvent.GradeID,
		"trainee_id", gradeEvent.TraineeID,
		"status", gradeEvent.Status,
	)

	h.reevaluateCourse(ctx, gradeEvent)
	h.invalidateHistoryCache(ctx, gradeEvent)
	return nil
}

// reevaluateCourse переоценивает прогресс курса, которому принадлежит
// оценка.
func (h *OnGradeRecordedHandler) reevaluateCourse(ctx context.Context, gradeEvent shared.GradeRecordedEvent) {
	for _, courseID := range h.coursesOfGrade(ctx, gradeEvent) {
		result, err := h.advancer.Evaluate(ctx, courseID)
		if err != nil {
			h.logger.Error("failed to evaluate course after grade",
				"course_id", courseID.String(),
				"error", err,
			)
			continue
		}
		if result.Changed {
			h.logger.Info("course progress advanced after grade",
				"course_id", courseID.String(),
				"from", string(result.From),
				"to", string(result.To),
			)
		}
	}
}

// coursesOfGrade находит курсы, затронутые оценкой, через привязку
// слушателя. Репозиторий разворачивает привязку в курс по ClassSubject.
func (h *OnGradeRecordedHandler) coursesOfGrade(ctx context.Context, gradeEvent shared.GradeRecordedEvent) []shared.CourseID {
	crs, err := h.courseRepo.GetCourseByTraineeAssign(ctx, shared.TraineeAssignID(gradeEvent.TraineeAssignID))
	if err != nil {
		h.logger.Warn("failed to resolve course of grade",
			"trainee_assign_id", gradeEvent.TraineeAssignID,
			"error", err,
		)
		return nil
	}
	return []shared.CourseID{crs.ID}
}

// invalidateHistoryCache сбрасывает кеш истории по сертификатам
// слушателя: свежая оценка может привести к выдаче или продлению.
func (h *OnGradeRecordedHandler) invalidateHistoryCache(ctx context.Context, gradeEvent shared.GradeRecordedEvent) {
	if h.cache == nil {
		return
	}
	crs, err := h.courseRepo.GetCourseByTraineeAssign(ctx, shared.TraineeAssignID(gradeEvent.TraineeAssignID))
	if err != nil {
		return
	}
	certs, err := h.certRepo.ListByTraineeAndCourses(ctx, shared.UserID(gradeEvent.TraineeID), []shared.CourseID{crs.ID, crs.OriginalCourseID()})
	if err != nil {
		return
	}
	for _, c := range certs {
		if err := h.cache.Invalidate(ctx, c.ID); err != nil {
			h.logger.Warn("failed to invalidate history cache",
				"certificate_id", c.ID.String(),
				"error", err,
			)
		}
	}
}
