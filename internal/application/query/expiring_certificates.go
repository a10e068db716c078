package query

import (
	"context"
	"errors"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRING CERTIFICATES QUERY
// Возвращает действующие сертификаты, срок которых истекает в
// пределах окна продления. Используется страницей продлений и
// фоновой развёрткой уведомлений.
// ══════════════════════════════════════════════════════════════════════════════

// ExpiringCertificatesQuery содержит параметры запроса.
type ExpiringCertificatesQuery struct {
	// WithinDays - ширина окна в днях (по умолчанию окно продления).
	WithinDays int

	// Limit - количество записей (по умолчанию 100, максимум 500).
	Limit int
}

// Validate проверяет корректность параметров запроса.
func (q *ExpiringCertificatesQuery) Validate() error {
	if q.WithinDays < 0 {
		return errors.New("expiring_certificates: within_days cannot be negative")
	}
	if q.WithinDays == 0 {
		q.WithinDays = certificate.RenewalWindowDays
	}
	if q.Limit < 0 {
		return errors.New("expiring_certificates: limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = 100
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	return nil
}

// ExpiringCertificateDTO - одна запись результата.
type ExpiringCertificateDTO struct {
	CertificateID string    `json:"certificate_id"`
	Code          string    `json:"code"`
	TraineeID     string    `json:"trainee_id"`
	CourseID      string    `json:"course_id"`
	Specialty     string    `json:"specialty"`
	ExpiresAt     time.Time `json:"expires_at"`
	DaysLeft      int       `json:"days_left"`
}

// ExpiringCertificatesResult содержит результат запроса.
type ExpiringCertificatesResult struct {
	Certificates []ExpiringCertificateDTO `json:"certificates"`
	WithinDays   int                      `json:"within_days"`
	GeneratedAt  time.Time                `json:"generated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ExpiringCertificatesHandler обрабатывает ExpiringCertificatesQuery.
type ExpiringCertificatesHandler struct {
	certRepo certificate.Repository
	now      func() time.Time
}

// NewExpiringCertificatesHandler создаёт новый обработчик.
func NewExpiringCertificatesHandler(certRepo certificate.Repository) *ExpiringCertificatesHandler {
	return &ExpiringCertificatesHandler{
		certRepo: certRepo,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle выполняет запрос.
func (h *ExpiringCertificatesHandler) Handle(ctx context.Context, query ExpiringCertificatesQuery) (*ExpiringCertificatesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	now := h.now()
	deadline := now.AddDate(0, 0, query.WithinDays)

	certs, err := h.certRepo.ListActiveExpiringBefore(ctx, deadline, query.Limit)
	if err != nil {
		return nil, err
	}

	result := &ExpiringCertificatesResult{
		Certificates: make([]ExpiringCertificateDTO, 0, len(certs)),
		WithinDays:   query.WithinDays,
		GeneratedAt:  now,
	}
	for _, c := range certs {
		if !c.ExpiresAt.After(now) {
			continue
		}
		result.Certificates = append(result.Certificates, ExpiringCertificateDTO{
			CertificateID: c.ID.String(),
			Code:          c.Code,
			TraineeID:     c.TraineeID.String(),
			CourseID:      c.CourseID.String(),
			Specialty:     c.Specialty.String(),
			ExpiresAt:     c.ExpiresAt,
			DaysLeft:      int(c.ExpiresAt.Sub(now).Hours() / 24),
		})
	}
	return result, nil
}
