package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL TRAINEE COMMAND
// Assigns a trainee to a class subject. A trainee holds at most one
// assignment per class subject; a repeat enrollment is rejected.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollTraineeCommand contains the data to enroll a trainee.
type EnrollTraineeCommand struct {
	// ClassSubjectID is the class subject the trainee joins.
	ClassSubjectID string

	// TraineeID is the trainee being enrolled.
	TraineeID string
}

// Validate validates the command.
func (c EnrollTraineeCommand) Validate() error {
	if !shared.ClassSubjectID(c.ClassSubjectID).IsValid() {
		return errors.New("enroll_trainee: class_subject_id must be a UUID")
	}
	if !shared.UserID(c.TraineeID).IsValid() {
		return errors.New("enroll_trainee: trainee_id must be a UUID")
	}
	return nil
}

// EnrollTraineeResult contains the outcome of the command.
type EnrollTraineeResult struct {
	// TraineeAssignID is the id of the created assignment.
	TraineeAssignID shared.TraineeAssignID
}

// EnrollTraineeHandler handles the EnrollTraineeCommand.
type EnrollTraineeHandler struct {
	courseRepo course.Repository
	clock      Clock
}

// NewEnrollTraineeHandler creates a new EnrollTraineeHandler.
func NewEnrollTraineeHandler(courseRepo course.Repository, clock Clock) *EnrollTraineeHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &EnrollTraineeHandler{courseRepo: courseRepo, clock: clock}
}

// Handle executes the enroll trainee command.
func (h *EnrollTraineeHandler) Handle(ctx context.Context, cmd EnrollTraineeCommand) (*EnrollTraineeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// The class subject must exist before a trainee can join it.
	if _, err := h.courseRepo.GetClassSubject(ctx, shared.ClassSubjectID(cmd.ClassSubjectID)); err != nil {
		return nil, fmt.Errorf("enroll_trainee: class subject: %w", err)
	}

	ta, err := course.NewTraineeAssign(
		shared.TraineeAssignID(uuid.NewString()),
		shared.ClassSubjectID(cmd.ClassSubjectID),
		shared.UserID(cmd.TraineeID),
		h.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := h.courseRepo.CreateTraineeAssign(ctx, ta); err != nil {
		return nil, err
	}

	return &EnrollTraineeResult{TraineeAssignID: ta.ID}, nil
}
