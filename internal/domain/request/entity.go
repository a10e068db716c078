// Package request содержит конверт заявки на изменение: создание,
// обновление и удаление ключевых сущностей проходят через заявку и
// требуют подтверждения уполномоченным лицом.
package request

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Kind определяет тип заявки.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// IsValid проверяет, что тип заявки корректен.
func (k Kind) IsValid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return true
	default:
		return false
	}
}

// TargetKind определяет сущность, которой касается заявка.
type TargetKind string

const (
	TargetCourse      TargetKind = "course"
	TargetSchedule    TargetKind = "schedule"
	TargetCertificate TargetKind = "certificate"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: REQUEST
// ══════════════════════════════════════════════════════════════════════════════

// Request - заявка на изменение сущности. Полезная нагрузка хранится
// как JSON и применяется только после подтверждения.
type Request struct {
	ID         shared.RequestID
	Kind       Kind
	Target     TargetKind
	TargetID   string
	Payload    json.RawMessage
	Status     shared.RequestStatus
	ReviewNote string

	RequestedBy shared.UserID
	RequestedAt time.Time
	ResolvedBy  shared.UserID
	ResolvedAt  time.Time
}

// NewRequest создаёт заявку в статусе Pending.
func NewRequest(id shared.RequestID, kind Kind, target TargetKind, targetID string, payload json.RawMessage, requestedBy shared.UserID, now time.Time) (*Request, error) {
	if !id.IsValid() {
		return nil, shared.NewDomainError("request", "New", shared.ErrInvalidID, "request id must be a UUID")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("request", "New", shared.ErrValidation, "unknown request kind")
	}
	if kind != KindCreate && strings.TrimSpace(targetID) == "" {
		return nil, shared.NewDomainError("request", "New", shared.ErrEmptyValue, "target id is required for update and delete")
	}
	if requestedBy.IsEmpty() {
		return nil, shared.NewDomainError("request", "New", shared.ErrEmptyValue, "requester is required")
	}

	return &Request{
		ID:          id,
		Kind:        kind,
		Target:      target,
		TargetID:    strings.TrimSpace(targetID),
		Payload:     payload,
		Status:      shared.RequestPending,
		RequestedBy: requestedBy,
		RequestedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Approve подтверждает заявку. Только заявки в статусе Pending могут
// быть подтверждены.
func (r *Request) Approve(by shared.UserID, now time.Time) error {
	if r.Status != shared.RequestPending {
		return shared.ErrRequestNotPending
	}
	r.Status = shared.RequestApproved
	r.ResolvedBy = by
	r.ResolvedAt = now
	return nil
}

// Reject отклоняет заявку с пояснением.
func (r *Request) Reject(by shared.UserID, note string, now time.Time) error {
	if r.Status != shared.RequestPending {
		return shared.ErrRequestNotPending
	}
	r.Status = shared.RequestRejected
	r.ReviewNote = note
	r.ResolvedBy = by
	r.ResolvedAt = now
	return nil
}

// Repository определяет порт хранилища заявок.
type Repository interface {
	// Create сохраняет новую заявку.
	Create(ctx context.Context, req *Request) error

	// GetByID возвращает заявку по идентификатору.
	// Возвращает shared.ErrRequestNotFound, если не найдена.
	GetByID(ctx context.Context, id shared.RequestID) (*Request, error)

	// Update сохраняет изменение статуса заявки.
	Update(ctx context.Context, req *Request) error

	// ListPending возвращает неразрешённые заявки в порядке подачи.
	ListPending(ctx context.Context, limit int) ([]Request, error)
}
