package certificate

import (
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DECISION
// ══════════════════════════════════════════════════════════════════════════════

// Decision - приказ о выдаче сертификатов по завершённому курсу.
// Не более одного приказа на курс.
type Decision struct {
	ID           string
	CourseID     shared.CourseID
	Number       string
	IssuedBy     shared.UserID
	IssuedAt     time.Time
	TraineeCount int
	CreatedAt    time.Time
}

// NewDecision создаёт приказ о выдаче.
func NewDecision(id string, courseID shared.CourseID, number string, issuedBy shared.UserID, traineeCount int, now time.Time) (*Decision, error) {
	if courseID.IsEmpty() {
		return nil, shared.NewDomainError("certificate", "NewDecision", shared.ErrEmptyValue, "course id is required")
	}
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError("certificate", "NewDecision", shared.ErrEmptyValue, "decision number is required")
	}
	if traineeCount <= 0 {
		return nil, shared.NewDomainError("certificate", "NewDecision", shared.ErrValidation, "decision must cover at least one trainee")
	}
	return &Decision{
		ID:           id,
		CourseID:     courseID,
		Number:       strings.TrimSpace(number),
		IssuedBy:     issuedBy,
		IssuedAt:     now,
		TraineeCount: traineeCount,
		CreatedAt:    now,
	}, nil
}
