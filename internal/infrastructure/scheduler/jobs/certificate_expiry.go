package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE EXPIRY JOB
// ══════════════════════════════════════════════════════════════════════════════

// CertificateExpiryJob runs daily. It transitions overdue certificates to
// Expired and warns holders whose certificates enter the renewal window,
// so a Recurrent course can be scheduled before the certification lapses.
type CertificateExpiryJob struct {
	certRepo  certificate.Repository
	sink      command.NotificationSink
	publisher shared.EventPublisher
	cache     *redis.Cache
	logger    *slog.Logger
	config    CertificateExpiryConfig
}

// CertificateExpiryConfig contains configuration for the expiry job.
type CertificateExpiryConfig struct {
	// WarnWithinDays is the look-ahead horizon for expiry warnings.
	WarnWithinDays int

	// BatchLimit caps how many expiring certificates one run processes.
	BatchLimit int

	// NotifyHolders enables notifications to certificate holders.
	NotifyHolders bool

	// Timeout is the maximum duration for one run.
	Timeout time.Duration

	// LockTTL is the distributed lock lifetime.
	LockTTL time.Duration
}

// DefaultCertificateExpiryConfig returns sensible defaults.
func DefaultCertificateExpiryConfig() CertificateExpiryConfig {
	return CertificateExpiryConfig{
		WarnWithinDays: certificate.RenewalWindowDays,
		BatchLimit:     500,
		NotifyHolders:  true,
		Timeout:        5 * time.Minute,
		LockTTL:        redis.TTLJobLock,
	}
}

// NewCertificateExpiryJob creates a new expiry job. The cache is optional;
// without it warnings are not deduplicated across runs.
func NewCertificateExpiryJob(
	certRepo certificate.Repository,
	sink command.NotificationSink,
	publisher shared.EventPublisher,
	cache *redis.Cache,
	logger *slog.Logger,
	config CertificateExpiryConfig,
) *CertificateExpiryJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.WarnWithinDays <= 0 {
		config.WarnWithinDays = certificate.RenewalWindowDays
	}
	if config.BatchLimit <= 0 {
		config.BatchLimit = 500
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = redis.TTLJobLock
	}

	return &CertificateExpiryJob{
		certRepo:  certRepo,
		sink:      sink,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
		config:    config,
	}
}

// Name returns the unique name of the job.
func (j *CertificateExpiryJob) Name() string {
	return "certificate-expiry"
}

// Description returns a human-readable description.
func (j *CertificateExpiryJob) Description() string {
	return "Expires overdue certificates and warns holders inside the renewal window"
}

// Run executes one expiry pass.
func (j *CertificateExpiryJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.cache != nil {
		lockKey := redis.LockKey(j.Name())
		acquired, err := j.cache.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), j.config.LockTTL)
		if err != nil {
			j.logger.Warn("expiry lock unavailable, proceeding unguarded", "error", err)
		} else if !acquired {
			j.logger.Info("expiry job already running elsewhere, skipping")
			return nil
		} else {
			defer func() {
				if err := j.cache.Delete(context.Background(), lockKey); err != nil {
					j.logger.Warn("failed to release expiry lock", "error", err)
				}
			}()
		}
	}

	now := time.Now().UTC()

	expired, err := j.certRepo.MarkExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("mark expired certificates: %w", err)
	}
	if expired > 0 {
		j.logger.Info("certificates expired", "count", expired)
	}

	deadline := now.AddDate(0, 0, j.config.WarnWithinDays)
	expiring, err := j.certRepo.ListActiveExpiringBefore(ctx, deadline, j.config.BatchLimit)
	if err != nil {
		return fmt.Errorf("list expiring certificates: %w", err)
	}

	warned := 0
	for _, cert := range expiring {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if j.warn(ctx, cert, now) {
			warned++
		}
	}

	j.logger.Info("expiry pass finished",
		"expired", expired,
		"expiring", len(expiring),
		"warned", warned,
	)

	return nil
}

// warn publishes an expiring event and notifies the holder once per window.
func (j *CertificateExpiryJob) warn(ctx context.Context, cert certificate.Certificate, now time.Time) bool {
	daysLeft := int(cert.ExpiresAt.Sub(now).Hours() / 24)
	if daysLeft < 0 {
		return false
	}

	if j.cache != nil {
		fresh, err := j.cache.SetNX(ctx, redis.ExpiryNoticeKey(string(cert.ID)), now.Format(time.RFC3339), redis.TTLExpiryNotice)
		if err == nil && !fresh {
			return false
		}
	}

	event := shared.NewCertificateExpiringEvent(cert.ID, cert.TraineeID, cert.ExpiresAt, daysLeft)
	if err := j.publisher.Publish(event); err != nil {
		j.logger.Error("failed to publish expiring event", "certificate_id", cert.ID, "error", err)
	}

	if j.config.NotifyHolders && j.sink != nil {
		body := fmt.Sprintf(
			"Certificate %s expires on %s. Schedule a recurrent course to keep the certification current.",
			cert.Code, cert.ExpiresAt.Format("2006-01-02"),
		)
		if err := j.sink.Notify(ctx, cert.TraineeID, "Certificate expiring soon", body, "certificate"); err != nil {
			j.logger.Error("failed to notify certificate holder",
				"certificate_id", cert.ID,
				"trainee_id", cert.TraineeID,
				"error", err,
			)
		}
	}

	return true
}
