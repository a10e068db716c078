package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE DECISION COMMAND
// Produces the administrative sign-off decision for a qualifying
// course after a successful certificate batch. At most one decision
// per course; repeated calls return the existing one.
// ══════════════════════════════════════════════════════════════════════════════

// IssueDecisionCommand contains the data to issue a decision.
type IssueDecisionCommand struct {
	// CourseID is the qualifying course.
	CourseID string

	// Number is the human-readable decision number.
	Number string

	// TraineeCount is the number of trainees covered by the batch.
	TraineeCount int

	// IssuedBy is the approver issuing the decision.
	IssuedBy string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IssueDecisionCommand) Validate() error {
	if !shared.CourseID(c.CourseID).IsValid() {
		return errors.New("issue_decision: course_id must be a UUID")
	}
	if c.Number == "" {
		return errors.New("issue_decision: number is required")
	}
	if !shared.UserID(c.IssuedBy).IsValid() {
		return errors.New("issue_decision: issued_by must be a UUID")
	}
	return nil
}

// IssueDecisionResult contains the outcome of the command.
type IssueDecisionResult struct {
	Decision *certificate.Decision

	// AlreadyIssued indicates an existing decision was returned
	// instead of creating a new one.
	AlreadyIssued bool
}

// IssueDecisionHandler handles the IssueDecisionCommand.
type IssueDecisionHandler struct {
	uow        UnitOfWork
	courseRepo course.Repository
	certRepo   certificate.Repository
	publisher  shared.EventPublisher
	clock      Clock
}

// NewIssueDecisionHandler creates a new IssueDecisionHandler.
func NewIssueDecisionHandler(
	uow UnitOfWork,
	courseRepo course.Repository,
	certRepo certificate.Repository,
	publisher shared.EventPublisher,
	clock Clock,
) *IssueDecisionHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &IssueDecisionHandler{
		uow:        uow,
		courseRepo: courseRepo,
		certRepo:   certRepo,
		publisher:  publisher,
		clock:      clock,
	}
}

// Handle executes the issue decision command.
func (h *IssueDecisionHandler) Handle(ctx context.Context, cmd IssueDecisionCommand) (*IssueDecisionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	courseID := shared.CourseID(cmd.CourseID)
	result := &IssueDecisionResult{}

	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		crs, err := h.courseRepo.GetByID(ctx, courseID)
		if err != nil {
			return fmt.Errorf("issue_decision: course: %w", err)
		}
		if !crs.IsApproved() {
			return shared.ErrCourseNotApproved
		}

		existing, err := h.certRepo.GetDecisionByCourse(ctx, courseID)
		if err == nil {
			result.Decision = existing
			result.AlreadyIssued = true
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("issue_decision: lookup: %w", err)
		}

		decision, err := certificate.NewDecision(uuid.NewString(), courseID, cmd.Number, shared.UserID(cmd.IssuedBy), cmd.TraineeCount, h.clock.Now())
		if err != nil {
			return err
		}
		if err := h.certRepo.CreateDecision(ctx, decision); err != nil {
			return fmt.Errorf("issue_decision: persist: %w", err)
		}
		result.Decision = decision
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyIssued {
		ev := shared.NewDecisionIssuedEvent(result.Decision.ID, courseID, shared.UserID(cmd.IssuedBy))
		if cmd.CorrelationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(ev)
	}

	return result, nil
}
