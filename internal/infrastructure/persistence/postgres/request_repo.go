package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/request"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RequestRepository implements request.Repository for PostgreSQL.
type RequestRepository struct {
	conn *Connection
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(conn *Connection) *RequestRepository {
	return &RequestRepository{conn: conn}
}

// Create creates a new change request.
func (r *RequestRepository) Create(ctx context.Context, req *request.Request) error {
	query := `
		INSERT INTO requests (
			id, kind, target, target_id, payload, status, review_note,
			requested_by, requested_at, resolved_by, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		string(req.ID),
		string(req.Kind),
		string(req.Target),
		req.TargetID,
		[]byte(req.Payload),
		string(req.Status),
		req.ReviewNote,
		string(req.RequestedBy),
		req.RequestedAt,
		nullUUID(string(req.ResolvedBy)),
		nullTime(req.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return nil
}

// GetByID returns a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id shared.RequestID) (*request.Request, error) {
	query := requestSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	req, err := scanRequest(row)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Update saves a request status change.
func (r *RequestRepository) Update(ctx context.Context, req *request.Request) error {
	query := `
		UPDATE requests SET
			status = $1,
			review_note = $2,
			resolved_by = $3,
			resolved_at = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		string(req.Status),
		req.ReviewNote,
		nullUUID(string(req.ResolvedBy)),
		nullTime(req.ResolvedAt),
		string(req.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrRequestNotFound
	}

	return nil
}

// ListPending returns unresolved requests in submission order.
func (r *RequestRepository) ListPending(ctx context.Context, limit int) ([]request.Request, error) {
	query := requestSelectColumns + `
		WHERE status = 'pending'
		ORDER BY requested_at ASC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer rows.Close()

	var requests []request.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}

	return requests, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

const requestSelectColumns = `
	SELECT id, kind, target, target_id, payload, status, review_note,
		   requested_by, requested_at, COALESCE(resolved_by::text, ''), resolved_at
	FROM requests
`

// scanRequest scans a single request from a row.
func scanRequest(row pgx.Row) (*request.Request, error) {
	var req request.Request
	var id, kind, target, status, requestedBy, resolvedBy string
	var payload []byte
	var resolvedAt *time.Time

	err := row.Scan(
		&id,
		&kind,
		&target,
		&req.TargetID,
		&payload,
		&status,
		&req.ReviewNote,
		&requestedBy,
		&req.RequestedAt,
		&resolvedBy,
		&resolvedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	req.ID = shared.RequestID(id)
	req.Kind = request.Kind(kind)
	req.Target = request.TargetKind(target)
	req.Payload = payload
	req.Status = shared.RequestStatus(status)
	req.RequestedBy = shared.UserID(requestedBy)
	req.ResolvedBy = shared.UserID(resolvedBy)
	if resolvedAt != nil {
		req.ResolvedAt = *resolvedAt
	}

	return &req, nil
}
