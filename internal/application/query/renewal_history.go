// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RENEWAL HISTORY QUERY
// Восстанавливает историю выдач и продлений сертификата по линии
// Initial/Recurrent курсов. Путь чтения: кеш, затем полная
// реконструкция из журнала продлений и временных меток.
// ══════════════════════════════════════════════════════════════════════════════

// RenewalHistoryQuery содержит параметры запроса истории.
type RenewalHistoryQuery struct {
	// CertificateID - сертификат, чья линия восстанавливается.
	CertificateID string

	// SkipCache отключает чтение из кеша.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q *RenewalHistoryQuery) Validate() error {
	if !shared.CertificateID(q.CertificateID).IsValid() {
		return errors.New("renewal_history: certificate_id must be a UUID")
	}
	return nil
}

// HistoryEntryDTO - одна запись истории сертификации.
type HistoryEntryDTO struct {
	CertificateID string    `json:"certificate_id"`
	Code          string    `json:"code"`
	CourseID      string    `json:"course_id"`
	Kind          string    `json:"kind"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Status        string    `json:"status"`
	Inferred      bool      `json:"inferred,omitempty"`
}

// RenewalHistoryResult содержит восстановленную историю.
type RenewalHistoryResult struct {
	// CertificateID - запрошенный сертификат.
	CertificateID string `json:"certificate_id"`

	// OriginalCourseID - исходный курс линии.
	OriginalCourseID string `json:"original_course_id,omitempty"`

	// OriginalIssuedAt - дата исходной выдачи линии.
	OriginalIssuedAt time.Time `json:"original_issued_at,omitempty"`

	// Entries - записи истории по убыванию даты выдачи.
	Entries []HistoryEntryDTO `json:"entries"`

	// RenewalCount - количество продлений в линии.
	RenewalCount int `json:"renewal_count"`

	// Empty - линия пуста (все сертификаты отозваны).
	Empty bool `json:"empty"`

	// FromCache - результат получен из кеша.
	FromCache bool `json:"from_cache"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RenewalHistoryHandler обрабатывает RenewalHistoryQuery.
type RenewalHistoryHandler struct {
	certRepo   certificate.Repository
	courseRepo course.Repository
	cache      certificate.HistoryCache
	cacheTTL   time.Duration
}

// NewRenewalHistoryHandler создаёт новый RenewalHistoryHandler.
// Кеш может быть nil; тогда каждый запрос выполняет полную
// реконструкцию.
func NewRenewalHistoryHandler(
	certRepo certificate.Repository,
	courseRepo course.Repository,
	cache certificate.HistoryCache,
	cacheTTL time.Duration,
) *RenewalHistoryHandler {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RenewalHistoryHandler{
		certRepo:   certRepo,
		courseRepo: courseRepo,
		cache:      cache,
		cacheTTL:   cacheTTL,
	}
}

// Handle выполняет запрос истории.
func (h *RenewalHistoryHandler) Handle(ctx context.Context, query RenewalHistoryQuery) (*RenewalHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	certID := shared.CertificateID(query.CertificateID)

	if !query.SkipCache && h.cache != nil {
		if lineage, err := h.cache.GetLineage(ctx, certID); err == nil && lineage != nil {
			return buildHistoryResult(certID, *lineage, true), nil
		}
	}

	lineage, err := h.resolve(ctx, certID)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.SetLineage(ctx, certID, *lineage, h.cacheTTL)
	}
	return buildHistoryResult(certID, *lineage, false), nil
}

// resolve собирает сертификаты линии и восстанавливает историю.
func (h *RenewalHistoryHandler) resolve(ctx context.Context, certID shared.CertificateID) (*certificate.Lineage, error) {
	cert, err := h.certRepo.GetByID(ctx, certID)
	if err != nil {
		return nil, err
	}

	crs, err := h.courseRepo.GetByID(ctx, cert.CourseID)
	if err != nil {
		return nil, err
	}

	ref := certificate.CourseRef{ID: crs.ID, Level: crs.Level, RelatedID: crs.RelatedCourseID}
	originalID := ref.OriginalCourseID()

	courseIDs := []shared.CourseID{originalID}
	courses := map[shared.CourseID]certificate.CourseRef{crs.ID: ref}
	if originalID != crs.ID {
		if original, err := h.courseRepo.GetByID(ctx, originalID); err == nil {
			courses[originalID] = certificate.CourseRef{ID: original.ID, Level: original.Level, RelatedID: original.RelatedCourseID}
		}
	}

	recurrents, err := h.courseRepo.ListRecurrentOf(ctx, originalID)
	if err != nil {
		return nil, err
	}
	for _, rc := range recurrents {
		courseIDs = append(courseIDs, rc.ID)
		courses[rc.ID] = certificate.CourseRef{ID: rc.ID, Level: rc.Level, RelatedID: rc.RelatedCourseID}
	}

	siblings, err := h.certRepo.ListByTraineeAndCourses(ctx, cert.TraineeID, courseIDs)
	if err != nil {
		return nil, err
	}

	certIDs := make([]shared.CertificateID, 0, len(siblings))
	for _, s := range siblings {
		certIDs = append(certIDs, s.ID)
	}
	renewals, err := h.certRepo.ListRenewals(ctx, certIDs)
	if err != nil {
		return nil, err
	}

	lineage := certificate.ResolveHistory(cert.TraineeID, siblings, renewals, courses)
	return &lineage, nil
}

func buildHistoryResult(certID shared.CertificateID, lineage certificate.Lineage, fromCache bool) *RenewalHistoryResult {
	result := &RenewalHistoryResult{
		CertificateID:    certID.String(),
		OriginalCourseID: lineage.OriginalCourseID.String(),
		Empty:            lineage.Empty(),
		FromCache:        fromCache,
		Entries:          make([]HistoryEntryDTO, 0, len(lineage.Entries)),
	}

	for _, e := range lineage.Entries {
		if e.Kind == certificate.KindRenewal {
			result.RenewalCount++
		}
		if e.Kind == certificate.KindOriginal {
			result.OriginalIssuedAt = e.IssuedAt
		}
		result.Entries = append(result.Entries, HistoryEntryDTO{
			CertificateID: e.CertificateID.String(),
			Code:          e.Code,
			CourseID:      e.CourseID.String(),
			Kind:          string(e.Kind),
			IssuedAt:      e.IssuedAt,
			ExpiresAt:     e.ExpiresAt,
			Status:        string(e.Status),
			Inferred:      e.Inferred,
		})
	}
	return result
}
