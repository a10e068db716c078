package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADVANCE COURSE COMMAND
// Drives the course progress machine: evaluated eagerly when a course
// is approved or a grade lands, and lazily by the periodic sweep.
// Idempotent; a course already at its computed progress is left alone.
// ══════════════════════════════════════════════════════════════════════════════

// AdvanceCourseResult contains the outcome of one evaluation.
type AdvanceCourseResult struct {
	CourseID shared.CourseID

	// From and To are the progress values before and after.
	From course.Progress
	To   course.Progress

	// Changed indicates the course was advanced and persisted.
	Changed bool

	// Blocking lists the class subjects holding completion back, when
	// the course stayed at Ongoing.
	Blocking []shared.ClassSubjectID
}

// SweepResult contains the itemized outcome of a full sweep.
type SweepResult struct {
	// Evaluated is the number of courses visited.
	Evaluated int

	// Advanced is the number of courses whose progress changed.
	Advanced int

	// Failures maps course ids to their individual errors. A failing
	// course never aborts the sweep.
	Failures map[shared.CourseID]error

	// StartedAt and FinishedAt bound the sweep run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// AdvanceCourseHandler evaluates and persists course progress.
type AdvanceCourseHandler struct {
	uow        UnitOfWork
	courseRepo course.Repository
	publisher  shared.EventPublisher
	clock      Clock
}

// NewAdvanceCourseHandler creates a new AdvanceCourseHandler.
func NewAdvanceCourseHandler(
	uow UnitOfWork,
	courseRepo course.Repository,
	publisher shared.EventPublisher,
	clock Clock,
) *AdvanceCourseHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AdvanceCourseHandler{
		uow:        uow,
		courseRepo: courseRepo,
		publisher:  publisher,
		clock:      clock,
	}
}

// Evaluate recomputes the progress of one course and persists the
// transition when it advanced.
func (h *AdvanceCourseHandler) Evaluate(ctx context.Context, courseID shared.CourseID) (*AdvanceCourseResult, error) {
	if courseID.IsEmpty() {
		return nil, errors.New("advance_course: course_id is required")
	}

	now := h.clock.Now()
	result := &AdvanceCourseResult{CourseID: courseID}

	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		crs, err := h.courseRepo.GetByID(ctx, courseID)
		if err != nil {
			return fmt.Errorf("advance_course: course: %w", err)
		}
		result.From = crs.Progress
		result.To = crs.Progress

		evidence, err := h.courseRepo.CompletionEvidence(ctx, courseID)
		if err != nil {
			return fmt.Errorf("advance_course: evidence: %w", err)
		}

		next := course.EvaluateProgress(crs, now, evidence)
		if next == crs.Progress {
			if next == course.ProgressOngoing {
				result.Blocking = evidence.Blocking()
			}
			return nil
		}

		if err := crs.AdvanceTo(next); err != nil {
			return err
		}
		if err := h.courseRepo.Update(ctx, crs); err != nil {
			return fmt.Errorf("advance_course: persist: %w", err)
		}
		result.To = next
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		_ = h.publisher.Publish(shared.NewCourseProgressChangedEvent(courseID, string(result.From), string(result.To)))
	}
	return result, nil
}

// SweepOnce evaluates every approved, not yet completed course. Each
// course is processed independently; a single failure is recorded and
// the sweep moves on. Cancellation is observed between courses.
func (h *AdvanceCourseHandler) SweepOnce(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{
		Failures:  make(map[shared.CourseID]error),
		StartedAt: h.clock.Now(),
	}

	courses, err := h.courseRepo.ListSweepable(ctx)
	if err != nil {
		return nil, fmt.Errorf("advance_course: sweepable courses: %w", err)
	}

	for _, crs := range courses {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Evaluated++

		res, err := h.Evaluate(ctx, crs.ID)
		if err != nil {
			result.Failures[crs.ID] = err
			continue
		}
		if res.Changed {
			result.Advanced++
		}
	}

	result.FinishedAt = h.clock.Now()
	return result, nil
}
