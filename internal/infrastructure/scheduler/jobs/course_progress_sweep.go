// Package jobs contains implementations of the training hub's scheduled jobs.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/infrastructure/persistence/redis"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE PROGRESS SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// CourseProgressSweepJob periodically re-evaluates the progress stage of
// every approved course. It is the safety net behind the event-driven
// advancement path: a course whose grade events were lost still reaches
// Completed on the next sweep.
type CourseProgressSweepJob struct {
	advancer *command.AdvanceCourseHandler
	locks    *redis.Cache
	logger   *slog.Logger
	config   CourseProgressSweepConfig
}

// CourseProgressSweepConfig contains configuration for the sweep job.
type CourseProgressSweepConfig struct {
	// Timeout is the maximum duration for one sweep.
	Timeout time.Duration

	// LockTTL is the distributed lock lifetime. A crashed worker frees
	// the sweep for the next instance after this long.
	LockTTL time.Duration
}

// DefaultCourseProgressSweepConfig returns sensible defaults.
func DefaultCourseProgressSweepConfig() CourseProgressSweepConfig {
	return CourseProgressSweepConfig{
		Timeout: 5 * time.Minute,
		LockTTL: redis.TTLJobLock,
	}
}

// NewCourseProgressSweepJob creates a new sweep job. The lock cache is
// optional; without it the sweep runs unguarded.
func NewCourseProgressSweepJob(
	advancer *command.AdvanceCourseHandler,
	locks *redis.Cache,
	logger *slog.Logger,
	config CourseProgressSweepConfig,
) *CourseProgressSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.LockTTL <= 0 {
		config.LockTTL = redis.TTLJobLock
	}

	return &CourseProgressSweepJob{
		advancer: advancer,
		locks:    locks,
		logger:   logger,
		config:   config,
	}
}

// Name returns the unique name of the job.
func (j *CourseProgressSweepJob) Name() string {
	return "course-progress-sweep"
}

// Description returns a human-readable description.
func (j *CourseProgressSweepJob) Description() string {
	return "Re-evaluates progress of approved courses and advances them when due"
}

// Run executes one sweep.
func (j *CourseProgressSweepJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if j.locks != nil {
		lockKey := redis.LockKey(j.Name())
		acquired, err := j.locks.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), j.config.LockTTL)
		if err != nil {
			j.logger.Warn("sweep lock unavailable, proceeding unguarded", "error", err)
		} else if !acquired {
			j.logger.Info("sweep already running elsewhere, skipping")
			return nil
		} else {
			defer func() {
				if err := j.locks.Delete(context.Background(), lockKey); err != nil {
					j.logger.Warn("failed to release sweep lock", "error", err)
				}
			}()
		}
	}

	result, err := j.advancer.SweepOnce(ctx)
	if err != nil {
		return err
	}

	j.logger.Info("progress sweep finished",
		"evaluated", result.Evaluated,
		"advanced", result.Advanced,
		"failures", len(result.Failures),
		"duration", result.FinishedAt.Sub(result.StartedAt).String(),
	)

	for courseID, ferr := range result.Failures {
		j.logger.Error("course evaluation failed", "course_id", courseID, "error", ferr)
	}

	return nil
}
