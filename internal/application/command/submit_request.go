package command

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/vta-hub/vta-training-hub/internal/domain/request"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT REQUEST COMMAND
// Files a change request for later review. The payload is stored
// opaquely and applied only once an approver resolves the request.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitRequestCommand contains the data to file a request.
type SubmitRequestCommand struct {
	Kind     request.Kind
	Target   request.TargetKind
	TargetID string

	// Payload is the proposed change, serialized by the caller.
	Payload json.RawMessage

	// RequestedBy is the submitting user.
	RequestedBy string
}

// Validate validates the command.
func (c SubmitRequestCommand) Validate() error {
	if !c.Kind.IsValid() {
		return errors.New("submit_request: unknown kind")
	}
	if !shared.UserID(c.RequestedBy).IsValid() {
		return errors.New("submit_request: requested_by must be a UUID")
	}
	return nil
}

// SubmitRequestHandler handles the SubmitRequestCommand.
type SubmitRequestHandler struct {
	requestRepo request.Repository
	clock       Clock
}

// NewSubmitRequestHandler creates a new SubmitRequestHandler.
func NewSubmitRequestHandler(requestRepo request.Repository, clock Clock) *SubmitRequestHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &SubmitRequestHandler{requestRepo: requestRepo, clock: clock}
}

// Handle executes the submit request command.
func (h *SubmitRequestHandler) Handle(ctx context.Context, cmd SubmitRequestCommand) (*request.Request, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	req, err := request.NewRequest(
		shared.RequestID(uuid.NewString()),
		cmd.Kind,
		cmd.Target,
		cmd.TargetID,
		cmd.Payload,
		shared.UserID(cmd.RequestedBy),
		h.clock.Now(),
	)
	if err != nil {
		return nil, err
	}

	if err := h.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}
