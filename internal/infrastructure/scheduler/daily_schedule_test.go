package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailySchedule_Next(t *testing.T) {
	s := NewDailySchedule(6, 0)

	// Before today's slot: runs today.
	now := time.Date(2026, 7, 1, 5, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC), s.Next(now))

	// After today's slot: runs tomorrow.
	now = time.Date(2026, 7, 1, 6, 0, 1, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 2, 6, 0, 0, 0, time.UTC), s.Next(now))

	// Exactly at the slot: runs tomorrow, not immediately again.
	now = time.Date(2026, 7, 1, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 7, 2, 6, 0, 0, 0, time.UTC), s.Next(now))
}

func TestDailySchedule_KeepsLocation(t *testing.T) {
	almaty := time.FixedZone("Asia/Almaty", 5*60*60)
	s := NewDailySchedule(6, 30)

	now := time.Date(2026, 7, 1, 7, 0, 0, 0, almaty)
	next := s.Next(now)
	assert.Equal(t, almaty, next.Location())
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 30, next.Minute())
	assert.Equal(t, 2, next.Day())
}

func TestDailySchedule_ClampsOutOfRange(t *testing.T) {
	s := NewDailySchedule(25, -1)
	assert.Equal(t, 0, s.Hour)
	assert.Equal(t, 0, s.Minute)
	assert.Equal(t, "@daily 00:00", s.String())
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(30 * time.Minute)

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(30*time.Minute), s.Next(now))
	assert.Equal(t, "@every 30m0s", s.String())
}
