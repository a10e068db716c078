package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATION HISTORY CACHE
// ══════════════════════════════════════════════════════════════════════════════

// HistoryCache implements certificate.HistoryCache over Redis. Resolved
// lineages are cached as JSON on the read path; any renewal or grade
// change invalidates the entry.
type HistoryCache struct {
	cache *Cache
}

// NewHistoryCache creates a new HistoryCache.
func NewHistoryCache(cache *Cache) *HistoryCache {
	return &HistoryCache{cache: cache}
}

// cachedLineage is the storage shape of a resolved lineage.
type cachedLineage struct {
	TraineeID        string              `json:"trainee_id"`
	OriginalCourseID string              `json:"original_course_id"`
	Entries          []cachedEntry       `json:"entries"`
}

type cachedEntry struct {
	CertificateID string    `json:"certificate_id"`
	Code          string    `json:"code"`
	CourseID      string    `json:"course_id"`
	Kind          string    `json:"kind"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	Status        string    `json:"status"`
	Inferred      bool      `json:"inferred"`
}

// GetLineage returns a cached lineage or certificate.ErrHistoryCacheMiss.
func (h *HistoryCache) GetLineage(ctx context.Context, certID shared.CertificateID) (*certificate.Lineage, error) {
	var stored cachedLineage
	err := h.cache.Get(ctx, HistoryKey(string(certID)), &stored)
	if errors.Is(err, ErrCacheMiss) {
		return nil, certificate.ErrHistoryCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached lineage: %w", err)
	}

	lineage := &certificate.Lineage{
		TraineeID:        shared.UserID(stored.TraineeID),
		OriginalCourseID: shared.CourseID(stored.OriginalCourseID),
	}
	for _, e := range stored.Entries {
		lineage.Entries = append(lineage.Entries, certificate.HistoryEntry{
			CertificateID: shared.CertificateID(e.CertificateID),
			Code:          e.Code,
			CourseID:      shared.CourseID(e.CourseID),
			Kind:          certificate.EntryKind(e.Kind),
			IssuedAt:      e.IssuedAt,
			ExpiresAt:     e.ExpiresAt,
			Status:        certificate.Status(e.Status),
			Inferred:      e.Inferred,
		})
	}

	return lineage, nil
}

// SetLineage stores a resolved lineage with a TTL.
func (h *HistoryCache) SetLineage(ctx context.Context, certID shared.CertificateID, lineage certificate.Lineage, ttl time.Duration) error {
	stored := cachedLineage{
		TraineeID:        string(lineage.TraineeID),
		OriginalCourseID: string(lineage.OriginalCourseID),
	}
	for _, e := range lineage.Entries {
		stored.Entries = append(stored.Entries, cachedEntry{
			CertificateID: string(e.CertificateID),
			Code:          e.Code,
			CourseID:      string(e.CourseID),
			Kind:          string(e.Kind),
			IssuedAt:      e.IssuedAt,
			ExpiresAt:     e.ExpiresAt,
			Status:        string(e.Status),
			Inferred:      e.Inferred,
		})
	}

	if err := h.cache.Set(ctx, HistoryKey(string(certID)), stored, ttl); err != nil {
		return fmt.Errorf("failed to cache lineage: %w", err)
	}
	return nil
}

// Invalidate removes a cached lineage.
func (h *HistoryCache) Invalidate(ctx context.Context, certID shared.CertificateID) error {
	return h.cache.Delete(ctx, HistoryKey(string(certID)))
}
