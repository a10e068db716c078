package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CertificateRepository implements certificate.Repository for PostgreSQL.
// It also covers templates, the renewal log and issuance decisions since
// they share the certification aggregate boundary.
type CertificateRepository struct {
	conn *Connection
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(conn *Connection) *CertificateRepository {
	return &CertificateRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Certificates
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new certificate.
func (r *CertificateRepository) Create(ctx context.Context, cert *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (
			id, code, trainee_id, course_id, template_id, specialty, status,
			issued_by, issued_at, expires_at, artifact_url, artifact_digest,
			revoked_at, revoked_by, revoke_reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.conn.Exec(ctx, query,
		string(cert.ID),
		cert.Code,
		string(cert.TraineeID),
		string(cert.CourseID),
		nullUUID(cert.TemplateID),
		string(cert.Specialty),
		string(cert.Status),
		string(cert.IssuedBy),
		cert.IssuedAt,
		cert.ExpiresAt,
		cert.ArtifactURL,
		cert.ArtifactDigest,
		nullTime(cert.RevokedAt),
		nullUUID(string(cert.RevokedBy)),
		cert.RevokeReason,
		cert.CreatedAt,
		cert.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrCertificateDuplicate
		}
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	return nil
}

// Update updates a certificate, including an in-place renewal.
func (r *CertificateRepository) Update(ctx context.Context, cert *certificate.Certificate) error {
	query := `
		UPDATE certificates SET
			course_id = $1,
			template_id = $2,
			specialty = $3,
			status = $4,
			issued_by = $5,
			issued_at = $6,
			expires_at = $7,
			artifact_url = $8,
			artifact_digest = $9,
			revoked_at = $10,
			revoked_by = $11,
			revoke_reason = $12,
			updated_at = $13
		WHERE id = $14
	`

	result, err := r.conn.Exec(ctx, query,
		string(cert.CourseID),
		nullUUID(cert.TemplateID),
		string(cert.Specialty),
		string(cert.Status),
		string(cert.IssuedBy),
		cert.IssuedAt,
		cert.ExpiresAt,
		cert.ArtifactURL,
		cert.ArtifactDigest,
		nullTime(cert.RevokedAt),
		nullUUID(string(cert.RevokedBy)),
		cert.RevokeReason,
		time.Now().UTC(),
		string(cert.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update certificate: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCertificateNotFound
	}

	return nil
}

// GetByID returns a certificate by ID.
func (r *CertificateRepository) GetByID(ctx context.Context, id shared.CertificateID) (*certificate.Certificate, error) {
	query := certificateSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	cert, err := scanCertificate(row)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetActiveByTraineeAndCourse returns the active certificate a trainee holds
// for one of the given lineage courses.
func (r *CertificateRepository) GetActiveByTraineeAndCourse(ctx context.Context, traineeID shared.UserID, courseIDs []shared.CourseID) (*certificate.Certificate, error) {
	if len(courseIDs) == 0 {
		return nil, shared.ErrCertificateNotFound
	}

	args := []interface{}{string(traineeID)}
	for _, id := range courseIDs {
		args = append(args, string(id))
	}

	query := certificateSelectColumns + fmt.Sprintf(`
		WHERE trainee_id = $1 AND status = 'active' AND course_id IN (%s)
		ORDER BY expires_at DESC
		LIMIT 1
	`, inClause(2, len(courseIDs)))

	row := r.conn.QueryRow(ctx, query, args...)
	cert, err := scanCertificate(row)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// ListByTraineeAndCourses returns the non-revoked certificates a trainee
// holds for the given lineage courses.
func (r *CertificateRepository) ListByTraineeAndCourses(ctx context.Context, traineeID shared.UserID, courseIDs []shared.CourseID) ([]certificate.Certificate, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}

	args := []interface{}{string(traineeID)}
	for _, id := range courseIDs {
		args = append(args, string(id))
	}

	query := certificateSelectColumns + fmt.Sprintf(`
		WHERE trainee_id = $1 AND status <> 'revoked' AND course_id IN (%s)
		ORDER BY issued_at ASC
	`, inClause(2, len(courseIDs)))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	return scanCertificates(rows)
}

// ListActiveExpiringBefore returns active certificates expiring before the deadline.
func (r *CertificateRepository) ListActiveExpiringBefore(ctx context.Context, deadline time.Time, limit int) ([]certificate.Certificate, error) {
	query := certificateSelectColumns + `
		WHERE status = 'active' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, deadline, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring certificates: %w", err)
	}
	defer rows.Close()

	return scanCertificates(rows)
}

// MarkExpired transitions active certificates past their expiry to expired.
func (r *CertificateRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE certificates
		SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND expires_at <= $1
	`

	result, err := r.conn.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired certificates: %w", err)
	}

	return result.RowsAffected(), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Renewal Log
// ─────────────────────────────────────────────────────────────────────────────

// AppendRenewal appends a renewal event to the log.
func (r *CertificateRepository) AppendRenewal(ctx context.Context, event certificate.RenewalEvent) error {
	query := `
		INSERT INTO certificate_renewals (
			id, certificate_id, course_id, previous_course_id,
			previous_expiry, new_expiry, issued_by, renewed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		event.ID,
		string(event.CertificateID),
		string(event.CourseID),
		string(event.PreviousCourseID),
		event.PreviousExpiry,
		event.NewExpiry,
		string(event.IssuedBy),
		event.RenewedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append renewal event: %w", err)
	}

	return nil
}

// ListRenewals returns the renewal log of the given certificates.
func (r *CertificateRepository) ListRenewals(ctx context.Context, certIDs []shared.CertificateID) ([]certificate.RenewalEvent, error) {
	if len(certIDs) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(certIDs))
	for i, id := range certIDs {
		args[i] = string(id)
	}

	query := fmt.Sprintf(`
		SELECT id, certificate_id, course_id, previous_course_id,
			   previous_expiry, new_expiry, issued_by, renewed_at
		FROM certificate_renewals
		WHERE certificate_id IN (%s)
		ORDER BY renewed_at ASC
	`, inClause(1, len(certIDs)))

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list renewal events: %w", err)
	}
	defer rows.Close()

	var events []certificate.RenewalEvent
	for rows.Next() {
		var event certificate.RenewalEvent
		var certID, courseID, prevCourseID, issuedBy string

		err := rows.Scan(
			&event.ID,
			&certID,
			&courseID,
			&prevCourseID,
			&event.PreviousExpiry,
			&event.NewExpiry,
			&issuedBy,
			&event.RenewedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan renewal event: %w", err)
		}

		event.CertificateID = shared.CertificateID(certID)
		event.CourseID = shared.CourseID(courseID)
		event.PreviousCourseID = shared.CourseID(prevCourseID)
		event.IssuedBy = shared.UserID(issuedBy)
		events = append(events, event)
	}

	return events, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Templates
// ─────────────────────────────────────────────────────────────────────────────

// ListTemplates returns all certificate templates.
func (r *CertificateRepository) ListTemplates(ctx context.Context) ([]certificate.Template, error) {
	query := `
		SELECT id, name, sequence, active, content, created_at, updated_at
		FROM certificate_templates
		ORDER BY sequence DESC, name ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []certificate.Template
	for rows.Next() {
		var t certificate.Template
		err := rows.Scan(&t.ID, &t.Name, &t.Sequence, &t.Active, &t.Content, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}

	return templates, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Decisions
// ─────────────────────────────────────────────────────────────────────────────

// CreateDecision creates an issuance decision for a course.
func (r *CertificateRepository) CreateDecision(ctx context.Context, decision *certificate.Decision) error {
	query := `
		INSERT INTO decisions (id, course_id, number, issued_by, issued_at, trainee_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		decision.ID,
		string(decision.CourseID),
		decision.Number,
		string(decision.IssuedBy),
		decision.IssuedAt,
		decision.TraineeCount,
		decision.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDecisionAlreadyIssued
		}
		return fmt.Errorf("failed to create decision: %w", err)
	}

	return nil
}

// GetDecisionByCourse returns the issuance decision of a course.
func (r *CertificateRepository) GetDecisionByCourse(ctx context.Context, courseID shared.CourseID) (*certificate.Decision, error) {
	query := `
		SELECT id, course_id, number, issued_by, issued_at, trainee_count, created_at
		FROM decisions
		WHERE course_id = $1
	`

	var d certificate.Decision
	var cid, issuedBy string

	err := r.conn.QueryRow(ctx, query, string(courseID)).Scan(
		&d.ID,
		&cid,
		&d.Number,
		&issuedBy,
		&d.IssuedAt,
		&d.TraineeCount,
		&d.CreatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}

	d.CourseID = shared.CourseID(cid)
	d.IssuedBy = shared.UserID(issuedBy)

	return &d, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

const certificateSelectColumns = `
	SELECT id, code, trainee_id, course_id, COALESCE(template_id::text, ''),
		   specialty, status, issued_by, issued_at, expires_at,
		   artifact_url, artifact_digest, revoked_at,
		   COALESCE(revoked_by::text, ''), revoke_reason, created_at, updated_at
	FROM certificates
`

// scanCertificate scans a single certificate from a row.
func scanCertificate(row pgx.Row) (certificate.Certificate, error) {
	var cert certificate.Certificate
	var id, traineeID, courseID, specialty, status, issuedBy, revokedBy string
	var revokedAt *time.Time

	err := row.Scan(
		&id,
		&cert.Code,
		&traineeID,
		&courseID,
		&cert.TemplateID,
		&specialty,
		&status,
		&issuedBy,
		&cert.IssuedAt,
		&cert.ExpiresAt,
		&cert.ArtifactURL,
		&cert.ArtifactDigest,
		&revokedAt,
		&revokedBy,
		&cert.RevokeReason,
		&cert.CreatedAt,
		&cert.UpdatedAt,
	)

	if IsNoRows(err) {
		return certificate.Certificate{}, shared.ErrCertificateNotFound
	}
	if err != nil {
		return certificate.Certificate{}, fmt.Errorf("failed to scan certificate: %w", err)
	}

	cert.ID = shared.CertificateID(id)
	cert.TraineeID = shared.UserID(traineeID)
	cert.CourseID = shared.CourseID(courseID)
	cert.Specialty = shared.Specialty(specialty)
	cert.Status = certificate.Status(status)
	cert.IssuedBy = shared.UserID(issuedBy)
	cert.RevokedBy = shared.UserID(revokedBy)
	if revokedAt != nil {
		cert.RevokedAt = *revokedAt
	}

	return cert, nil
}

// scanCertificates scans multiple certificates from rows.
func scanCertificates(rows pgx.Rows) ([]certificate.Certificate, error) {
	var certs []certificate.Certificate
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return certs, nil
}

// nullTime converts a zero time to a NULL value.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
