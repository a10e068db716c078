package certificate

import (
	"context"
	"errors"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// Repository определяет порт хранилища сертификатов, шаблонов,
// журнала продлений и приказов о выдаче.
type Repository interface {
	// Create сохраняет новый сертификат.
	Create(ctx context.Context, cert *Certificate) error

	// Update сохраняет изменения существующего сертификата, включая
	// продление на месте.
	Update(ctx context.Context, cert *Certificate) error

	// GetByID возвращает сертификат по идентификатору.
	// Возвращает shared.ErrCertificateNotFound, если не найден.
	GetByID(ctx context.Context, id shared.CertificateID) (*Certificate, error)

	// GetActiveByTraineeAndCourse возвращает действующий сертификат
	// слушателя по одному из перечисленных курсов линии.
	// Возвращает shared.ErrCertificateNotFound, если такого нет.
	GetActiveByTraineeAndCourse(ctx context.Context, traineeID shared.UserID, courseIDs []shared.CourseID) (*Certificate, error)

	// ListByTraineeAndCourses возвращает неотозванные сертификаты
	// слушателя по перечисленным курсам линии, для восстановления
	// истории.
	ListByTraineeAndCourses(ctx context.Context, traineeID shared.UserID, courseIDs []shared.CourseID) ([]Certificate, error)

	// ListActiveExpiringBefore возвращает действующие сертификаты,
	// срок которых истекает до deadline.
	ListActiveExpiringBefore(ctx context.Context, deadline time.Time, limit int) ([]Certificate, error)

	// MarkExpired переводит действующие сертификаты с истёкшим сроком
	// в статус Expired. Возвращает количество затронутых строк.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	// AppendRenewal дописывает событие продления в журнал.
	AppendRenewal(ctx context.Context, event RenewalEvent) error

	// ListRenewals возвращает журнал продлений перечисленных
	// сертификатов.
	ListRenewals(ctx context.Context, certIDs []shared.CertificateID) ([]RenewalEvent, error)

	// ListTemplates возвращает все шаблоны сертификатов.
	ListTemplates(ctx context.Context) ([]Template, error)

	// CreateDecision сохраняет приказ о выдаче.
	// Возвращает shared.ErrDecisionAlreadyIssued, если приказ по курсу
	// уже существует.
	CreateDecision(ctx context.Context, decision *Decision) error

	// GetDecisionByCourse возвращает приказ по курсу.
	// Возвращает shared.ErrNotFound, если приказа нет.
	GetDecisionByCourse(ctx context.Context, courseID shared.CourseID) (*Decision, error)
}

// ErrHistoryCacheMiss - промах кеша линий сертификации.
var ErrHistoryCacheMiss = errors.New("certification lineage not cached")

// HistoryCache кеширует восстановленные линии сертификации на пути
// чтения. Продление или отзыв сертификата инвалидирует запись.
type HistoryCache interface {
	// GetLineage возвращает закешированную линию или ошибку промаха.
	GetLineage(ctx context.Context, certID shared.CertificateID) (*Lineage, error)

	// SetLineage сохраняет линию с временем жизни.
	SetLineage(ctx context.Context, certID shared.CertificateID, lineage Lineage, ttl time.Duration) error

	// Invalidate удаляет закешированную линию.
	Invalidate(ctx context.Context, certID shared.CertificateID) error
}
