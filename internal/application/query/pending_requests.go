package query

import (
	"context"
	"errors"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/request"
)

// ══════════════════════════════════════════════════════════════════════════════
// PENDING REQUESTS QUERY
// Возвращает неразрешённые заявки в порядке подачи. Используется
// очередью проверяющего.
// ══════════════════════════════════════════════════════════════════════════════

// PendingRequestsQuery содержит параметры запроса.
type PendingRequestsQuery struct {
	// Limit - количество записей (по умолчанию 50, максимум 200).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *PendingRequestsQuery) Validate() error {
	if q.Limit < 0 {
		return errors.New("pending_requests: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	return nil
}

// PendingRequestDTO - одна запись результата.
type PendingRequestDTO struct {
	RequestID   string    `json:"request_id"`
	Kind        string    `json:"kind"`
	Target      string    `json:"target"`
	TargetID    string    `json:"target_id,omitempty"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// PendingRequestsResult содержит результат запроса.
type PendingRequestsResult struct {
	Requests []PendingRequestDTO `json:"requests"`
	Total    int                 `json:"total"`
}

// PendingRequestsHandler обрабатывает PendingRequestsQuery.
type PendingRequestsHandler struct {
	requestRepo request.Repository
}

// NewPendingRequestsHandler создаёт новый обработчик.
func NewPendingRequestsHandler(requestRepo request.Repository) *PendingRequestsHandler {
	return &PendingRequestsHandler{requestRepo: requestRepo}
}

// Handle выполняет запрос.
func (h *PendingRequestsHandler) Handle(ctx context.Context, query PendingRequestsQuery) (*PendingRequestsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	pending, err := h.requestRepo.ListPending(ctx, query.Limit)
	if err != nil {
		return nil, err
	}

	result := &PendingRequestsResult{
		Requests: make([]PendingRequestDTO, 0, len(pending)),
		Total:    len(pending),
	}
	for _, r := range pending {
		result.Requests = append(result.Requests, PendingRequestDTO{
			RequestID:   r.ID.String(),
			Kind:        string(r.Kind),
			Target:      string(r.Target),
			TargetID:    r.TargetID,
			RequestedBy: r.RequestedBy.String(),
			RequestedAt: r.RequestedAt,
		})
	}
	return result, nil
}
