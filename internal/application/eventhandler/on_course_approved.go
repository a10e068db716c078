// Package eventhandler содержит обработчики доменных событий.
// Обработчики связывают части системы через события шины: реагируют
// на изменения и запускают побочные эффекты.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE APPROVED HANDLER
// Обрабатывает событие утверждения курса: немедленно переоценивает
// прогресс курса, не дожидаясь ближайшей фоновой развёртки. Курс,
// утверждённый после даты начала, сразу переходит в Ongoing.
// ═══════════════════════════════════════════════════════════════════════════

// OnCourseApprovedHandler обрабатывает событие утверждения курса.
type OnCourseApprovedHandler struct {
	advancer *command.AdvanceCourseHandler
	logger   *slog.Logger
}

// NewOnCourseApprovedHandler создаёт новый обработчик.
func NewOnCourseApprovedHandler(advancer *command.AdvanceCourseHandler, logger *slog.Logger) *OnCourseApprovedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCourseApprovedHandler{advancer: advancer, logger: logger}
}

// Handle реализует shared.EventHandler.
func (h *OnCourseApprovedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	approvedEvent, ok := event.(shared.CourseApprovedEvent)
	if !ok {
		h.logger.Warn("received non-CourseApprovedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	result, err := h.advancer.Evaluate(ctx, shared.CourseID(approvedEvent.CourseID))
	if err != nil {
		// Ошибка переоценки не роняет утверждение: фоновая развёртка
		// доберёт курс на следующем проходе.
		h.logger.Error("failed to evaluate approved course",
			"course_id", approvedEvent.CourseID,
			"error", err,
		)
		return nil
	}

	if result.Changed {
		h.logger.Info("course progress advanced after approval",
			"course_id", approvedEvent.CourseID,
			"from", string(result.From),
			"to", string(result.To),
		)
	}
	return nil
}
