package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/request"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REVIEW REQUEST COMMAND
// Resolves a pending change request. Approving a course request also
// approves the course itself and publishes CourseApproved, so progress
// is re-evaluated immediately instead of waiting for the next sweep.
// ══════════════════════════════════════════════════════════════════════════════

// ReviewVerdict is the reviewer's resolution of a request.
type ReviewVerdict string

const (
	VerdictApprove ReviewVerdict = "approve"
	VerdictReject  ReviewVerdict = "reject"
)

// ReviewRequestCommand contains the data to resolve a request.
type ReviewRequestCommand struct {
	// RequestID identifies the pending request.
	RequestID string

	// Verdict is the reviewer's resolution.
	Verdict ReviewVerdict

	// Note explains a rejection. Ignored on approval.
	Note string

	// ReviewedBy is the reviewing approver.
	ReviewedBy string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ReviewRequestCommand) Validate() error {
	if !shared.RequestID(c.RequestID).IsValid() {
		return errors.New("review_request: request_id must be a UUID")
	}
	if c.Verdict != VerdictApprove && c.Verdict != VerdictReject {
		return errors.New("review_request: verdict must be approve or reject")
	}
	if !shared.UserID(c.ReviewedBy).IsValid() {
		return errors.New("review_request: reviewed_by must be a UUID")
	}
	return nil
}

// ReviewRequestResult contains the outcome of the command.
type ReviewRequestResult struct {
	Request *request.Request
}

// ReviewRequestHandler handles the ReviewRequestCommand.
type ReviewRequestHandler struct {
	uow         UnitOfWork
	requestRepo request.Repository
	courseRepo  course.Repository
	publisher   shared.EventPublisher
	clock       Clock
}

// NewReviewRequestHandler creates a new ReviewRequestHandler.
func NewReviewRequestHandler(
	uow UnitOfWork,
	requestRepo request.Repository,
	courseRepo course.Repository,
	publisher shared.EventPublisher,
	clock Clock,
) *ReviewRequestHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ReviewRequestHandler{
		uow:         uow,
		requestRepo: requestRepo,
		courseRepo:  courseRepo,
		publisher:   publisher,
		clock:       clock,
	}
}

// Handle executes the review request command.
func (h *ReviewRequestHandler) Handle(ctx context.Context, cmd ReviewRequestCommand) (*ReviewRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	reviewer := shared.UserID(cmd.ReviewedBy)
	now := h.clock.Now()

	var (
		resolved       *request.Request
		approvedCourse shared.CourseID
	)
	err := h.uow.WithinTx(ctx, func(ctx context.Context) error {
		req, err := h.requestRepo.GetByID(ctx, shared.RequestID(cmd.RequestID))
		if err != nil {
			return fmt.Errorf("review_request: load: %w", err)
		}

		switch cmd.Verdict {
		case VerdictApprove:
			if err := req.Approve(reviewer, now); err != nil {
				return err
			}
		case VerdictReject:
			if err := req.Reject(reviewer, cmd.Note, now); err != nil {
				return err
			}
		}

		if err := h.requestRepo.Update(ctx, req); err != nil {
			return fmt.Errorf("review_request: persist: %w", err)
		}

		// The course stays Pending until its request is approved.
		if cmd.Verdict == VerdictApprove && req.Target == request.TargetCourse {
			crs, err := h.courseRepo.GetByID(ctx, shared.CourseID(req.TargetID))
			if err != nil {
				return fmt.Errorf("review_request: course: %w", err)
			}
			if err := crs.Approve(reviewer); err != nil {
				return err
			}
			if err := h.courseRepo.Update(ctx, crs); err != nil {
				return fmt.Errorf("review_request: course persist: %w", err)
			}
			approvedCourse = crs.ID
		}

		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if approvedCourse != "" {
		ev := shared.NewCourseApprovedEvent(approvedCourse, reviewer)
		if cmd.CorrelationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(ev)
	}

	return &ReviewRequestResult{Request: resolved}, nil
}
