// Package certificate содержит доменную модель сертификата,
// восстановление цепочки продлений и выбор шаблона. Центральный
// инвариант: Recurrent курс продлевает существующий сертификат на
// месте - идентичность строки (id и код) сохраняется, новая строка не
// создаётся.
package certificate

import (
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// InitialValidityYears - срок действия свежевыданного сертификата.
	InitialValidityYears = 3

	// RenewalExtensionYears - продление срока при Recurrent сертификации.
	RenewalExtensionYears = 2

	// RenewalWindowDays - окно продления: истечение в пределах этого
	// количества дней до следующей выдачи классифицируется как
	// продление.
	RenewalWindowDays = 180

	// InferredRenewalGapDays - зазор между выдачами по одному курсу,
	// после которого пара классифицируется как продление.
	InferredRenewalGapDays = 365
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status определяет статус сертификата.
type Status string

const (
	// StatusPending - сертификат выдан и ожидает подписания.
	StatusPending Status = "pending"
	// StatusActive - сертификат подписан и действует.
	StatusActive Status = "active"
	// StatusExpired - срок действия истёк.
	StatusExpired Status = "expired"
	// StatusRevoked - сертификат отозван. Строки не удаляются.
	StatusRevoked Status = "revoked"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusRevoked:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: CERTIFICATE
// ══════════════════════════════════════════════════════════════════════════════

// Certificate - сертификат слушателя по линии курса. Не более одного
// активного сертификата на (слушатель, линия курса).
type Certificate struct {
	// ID - уникальный идентификатор. Сохраняется при продлениях.
	ID shared.CertificateID

	// Code - человекочитаемый код сертификата. Сохраняется при
	// продлениях.
	Code string

	// TraineeID - владелец.
	TraineeID shared.UserID

	// CourseID - курс, по которому выдан или последний раз продлён
	// сертификат. Recurrent продление перенаправляет ссылку на
	// Recurrent курс.
	CourseID shared.CourseID

	// TemplateID - шаблон, по которому отрисован документ.
	TemplateID string

	// Specialty - специальность сертификации.
	Specialty shared.Specialty

	// Status - статус жизненного цикла.
	Status Status

	// IssuedBy, IssuedAt - кто и когда выдал (или последний раз продлил).
	IssuedBy shared.UserID
	IssuedAt time.Time

	// ExpiresAt - срок действия.
	ExpiresAt time.Time

	// ArtifactURL - адрес отрисованного документа во внешнем хранилище.
	ArtifactURL string

	// ArtifactDigest - контрольная сумма отрисованного документа.
	ArtifactDigest string

	// Метаданные отзыва.
	RevokedAt     time.Time
	RevokedBy     shared.UserID
	RevokeReason  string

	// CreatedAt, UpdatedAt - служебные отметки времени.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCertificateParams содержит параметры свежей выдачи.
type NewCertificateParams struct {
	ID             shared.CertificateID
	Code           string
	TraineeID      shared.UserID
	CourseID       shared.CourseID
	TemplateID     string
	Specialty      shared.Specialty
	IssuedBy       shared.UserID
	IssuedAt       time.Time
	ArtifactURL    string
	ArtifactDigest string
}

// NewCertificate создаёт свежий сертификат со сроком действия
// InitialValidityYears и статусом Pending до подписания.
func NewCertificate(params NewCertificateParams) (*Certificate, error) {
	if !params.ID.IsValid() {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrInvalidID, "certificate id must be a UUID")
	}
	if strings.TrimSpace(params.Code) == "" {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrEmptyValue, "certificate code is required")
	}
	if params.TraineeID.IsEmpty() || params.CourseID.IsEmpty() {
		return nil, shared.NewDomainError("certificate", "New", shared.ErrEmptyValue, "trainee and course are required")
	}

	issuedAt := params.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	return &Certificate{
		ID:             params.ID,
		Code:           strings.TrimSpace(params.Code),
		TraineeID:      params.TraineeID,
		CourseID:       params.CourseID,
		TemplateID:     params.TemplateID,
		Specialty:      params.Specialty,
		Status:         StatusPending,
		IssuedBy:       params.IssuedBy,
		IssuedAt:       issuedAt,
		ExpiresAt:      issuedAt.AddDate(InitialValidityYears, 0, 0),
		ArtifactURL:    params.ArtifactURL,
		ArtifactDigest: params.ArtifactDigest,
		CreatedAt:      issuedAt,
		UpdatedAt:      issuedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// IsActive проверяет, что сертификат действует на данный момент.
func (c *Certificate) IsActive(now time.Time) bool {
	return c.Status == StatusActive && now.Before(c.ExpiresAt)
}

// Activate помечает подписанный сертификат действующим.
func (c *Certificate) Activate() error {
	if c.Status != StatusPending {
		return shared.NewDomainError("certificate", "Activate", shared.ErrStateTransition,
			"only a pending certificate can be activated")
	}
	c.Status = StatusActive
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkExpired помечает сертификат истёкшим. Идемпотентно.
func (c *Certificate) MarkExpired(now time.Time) bool {
	if c.Status != StatusActive || now.Before(c.ExpiresAt) {
		return false
	}
	c.Status = StatusExpired
	c.UpdatedAt = now
	return true
}

// Revoke отзывает сертификат с метаданными отзыва. Строка не
// удаляется.
func (c *Certificate) Revoke(by shared.UserID, reason string, now time.Time) error {
	if c.Status == StatusRevoked {
		return shared.ErrCertificateRevoked
	}
	c.Status = StatusRevoked
	c.RevokedAt = now
	c.RevokedBy = by
	c.RevokeReason = reason
	c.UpdatedAt = now
	return nil
}

// ExpiresWithin проверяет, что срок действия истекает в пределах
// данного количества дней от now.
func (c *Certificate) ExpiresWithin(now time.Time, days int) bool {
	return c.ExpiresAt.After(now) && !c.ExpiresAt.After(now.AddDate(0, 0, days))
}

// ══════════════════════════════════════════════════════════════════════════════
// RENEWAL
// ══════════════════════════════════════════════════════════════════════════════

// RenewalEvent - зафиксированное продление сертификата. Дописывается
// в журнал продлений; строка сертификата остаётся изменяемой
// проекцией текущего состояния.
type RenewalEvent struct {
	ID               string
	CertificateID    shared.CertificateID
	CourseID         shared.CourseID
	PreviousCourseID shared.CourseID
	PreviousExpiry   time.Time
	NewExpiry        time.Time
	IssuedBy         shared.UserID
	RenewedAt        time.Time

	// Inferred - событие восстановлено из временных меток соседних
	// сертификатов, а не из журнала.
	Inferred bool
}

// RenewInPlace продлевает сертификат Recurrent курсом: новый срок
// действия отсчитывается от даты продления (RenewalExtensionYears
// вперёд от now), ссылка на курс перенаправляется, статус
// возвращается в Pending до нового подписания. Идентичность
// (ID, Code) не меняется.
func (c *Certificate) RenewInPlace(recurrentCourseID shared.CourseID, issuedBy shared.UserID, specialty shared.Specialty, now time.Time) (RenewalEvent, error) {
	if c.Status == StatusRevoked {
		return RenewalEvent{}, shared.ErrCertificateRevoked
	}

	event := RenewalEvent{
		CertificateID:    c.ID,
		CourseID:         recurrentCourseID,
		PreviousCourseID: c.CourseID,
		PreviousExpiry:   c.ExpiresAt,
		NewExpiry:        now.AddDate(RenewalExtensionYears, 0, 0),
		IssuedBy:         issuedBy,
		RenewedAt:        now,
	}

	c.CourseID = recurrentCourseID
	c.ExpiresAt = event.NewExpiry
	c.Status = StatusPending
	c.IssuedBy = issuedBy
	c.IssuedAt = now
	c.Specialty = specialty
	c.UpdatedAt = now

	return event, nil
}
