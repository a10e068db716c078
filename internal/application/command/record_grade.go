package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/grade"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD GRADE COMMAND
// Records or updates a trainee's grade for a subject. The weighted
// total and pass/fail status are computed by the domain; a resit score
// replaces the final exam score when present.
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeCommand contains the data to record a grade.
type RecordGradeCommand struct {
	// TraineeAssignID identifies the trainee's assignment to a class
	// subject.
	TraineeAssignID string

	// TraineeID is the trainee being graded.
	TraineeID string

	// SubjectID is the subject being graded.
	SubjectID string

	// Score components on the [0, 10] scale. Resit < 0 means not taken.
	Participation float64
	Assignment    float64
	FinalExam     float64
	Resit         float64

	// GradedBy is the instructor recording the grade.
	GradedBy string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordGradeCommand) Validate() error {
	if !shared.TraineeAssignID(c.TraineeAssignID).IsValid() {
		return errors.New("record_grade: trainee_assign_id must be a UUID")
	}
	if !shared.UserID(c.TraineeID).IsValid() {
		return errors.New("record_grade: trainee_id must be a UUID")
	}
	if !shared.SubjectID(c.SubjectID).IsValid() {
		return errors.New("record_grade: subject_id must be a UUID")
	}
	if !shared.UserID(c.GradedBy).IsValid() {
		return errors.New("record_grade: graded_by must be a UUID")
	}
	return nil
}

// RecordGradeResult contains the outcome of grading.
type RecordGradeResult struct {
	// GradeID is the id of the created or updated grade.
	GradeID string

	// TotalScore is the computed weighted total.
	TotalScore float64

	// Status is the computed pass/fail status.
	Status grade.GradeStatus

	// Updated indicates an existing grade was rescored.
	Updated bool

	// RecordedAt is when the grade was persisted.
	RecordedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordGradeHandler handles the RecordGradeCommand.
type RecordGradeHandler struct {
	uow        UnitOfWork
	gradeRepo  grade.Repository
	courseRepo course.Repository
	publisher  shared.EventPublisher
	clock      Clock
}

// NewRecordGradeHandler creates a new RecordGradeHandler.
func NewRecordGradeHandler(
	uow UnitOfWork,
	gradeRepo grade.Repository,
	courseRepo course.Repository,
	publisher shared.EventPublisher,
	clock Clock,
) *RecordGradeHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RecordGradeHandler{
		uow:        uow,
		gradeRepo:  gradeRepo,
		courseRepo: courseRepo,
		publisher:  publisher,
		clock:      clock,
	}
}

// Handle executes the record grade command.
func (h *RecordGradeHandler) Handle(ctx context.Context, cmd RecordGradeCommand) (*RecordGradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	assignID := shared.TraineeAssignID(cmd.TraineeAssignID)
	subjectID := shared.SubjectID(cmd.SubjectID)
	components := grade.Components{
		Participation: cmd.Participation,
		Assignment:    cmd.Assignment,
		FinalExam:     cmd.FinalExam,
		Resit:         cmd.Resit,
	}

	result := &RecordGradeResult{RecordedAt: h.clock.Now()}
	var event shared.GradeRecordedEvent

	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		subject, err := h.courseRepo.GetSubject(ctx, subjectID)
		if err != nil {
			return fmt.Errorf("record_grade: subject: %w", err)
		}

		existing, err := h.gradeRepo.GetByAssignAndSubject(ctx, assignID, subjectID)
		switch {
		case err == nil:
			if err := existing.Rescore(components, subject.PassingScore, shared.UserID(cmd.GradedBy)); err != nil {
				return err
			}
			if err := h.gradeRepo.Upsert(ctx, existing); err != nil {
				return fmt.Errorf("record_grade: persist: %w", err)
			}
			result.GradeID = existing.ID
			result.TotalScore = existing.TotalScore
			result.Status = existing.Status
			result.Updated = true
		case errors.Is(err, shared.ErrGradeNotFound):
			g, err := grade.NewGrade(grade.NewGradeParams{
				ID:              uuid.NewString(),
				TraineeAssignID: assignID,
				TraineeID:       shared.UserID(cmd.TraineeID),
				SubjectID:       subjectID,
				Components:      components,
				PassingScore:    subject.PassingScore,
				GradedBy:        shared.UserID(cmd.GradedBy),
			})
			if err != nil {
				return err
			}
			if err := h.gradeRepo.Upsert(ctx, g); err != nil {
				return fmt.Errorf("record_grade: persist: %w", err)
			}
			result.GradeID = g.ID
			result.TotalScore = g.TotalScore
			result.Status = g.Status
		default:
			return fmt.Errorf("record_grade: lookup: %w", err)
		}

		event = shared.NewGradeRecordedEvent(result.GradeID, assignID, shared.UserID(cmd.TraineeID), subjectID, result.TotalScore, string(result.Status))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return result, nil
}
