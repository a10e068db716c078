package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

var testNow = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func buildSchedule(t *testing.T, id string, days shared.WeekdaySet, hour int, duration int, room string) *TrainingSchedule {
	t.Helper()
	classTime, err := shared.NewTimeOfDay(hour, 0)
	require.NoError(t, err)
	r, err := shared.NewDateRange(
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	s, err := NewTrainingSchedule(NewScheduleParams{
		ID:              shared.ScheduleID(id),
		ClassSubjectID:  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		InstructorID:    "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		Days:            days,
		ClassTime:       classTime,
		DurationMinutes: duration,
		Range:           r,
		Location:        "Building A",
		Room:            room,
		Now:             testNow,
	})
	require.NoError(t, err)
	return s
}

func candidateFor(s *TrainingSchedule) Candidate {
	return Candidate{
		Schedule:            s,
		SubjectSpecialty:    "AV-MNT",
		InstructorSpecialty: "AV-MNT",
	}
}

func TestValidate_AcceptsCleanCandidate(t *testing.T) {
	cand := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440000",
		shared.NewWeekdaySet(time.Monday, time.Wednesday), 9, 90, "101")

	err := Validate(candidateFor(cand), Environment{Now: testNow})
	assert.NoError(t, err)
}

func TestValidate_RoomTripleOverlap(t *testing.T) {
	// Room 101: Mon/Wed 09:00, 90 minutes -> [09:00, 10:30).
	existing := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440000",
		shared.NewWeekdaySet(time.Monday, time.Wednesday), 9, 90, "101")
	existing.Status = StatusIncoming

	// Wed/Fri 11:00 shares Wednesday and the room but starts after
	// 10:30, so only the date range and weekday dimensions intersect.
	cand := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440001",
		shared.NewWeekdaySet(time.Wednesday, time.Friday), 11, 90, "101")
	assert.True(t, existing.Range.Overlaps(cand.Range))
	assert.True(t, existing.Days.Intersects(cand.Days))

	env := Environment{Now: testNow, RoomNeighbors: []*TrainingSchedule{existing}}
	err := Validate(candidateFor(cand), env)
	assert.NoError(t, err)

	// 09:00 collides head-on.
	colliding := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440002",
		shared.NewWeekdaySet(time.Wednesday, time.Friday), 9, 90, "101")
	err = Validate(candidateFor(colliding), env)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "room_conflict", verr.Rule)
	assert.Equal(t, ReasonRoomConflict, verr.Reason)
	assert.Equal(t, existing.ID, verr.ConflictingScheduleID)
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestValidate_NoConflictWhenAnyDimensionDisjoint(t *testing.T) {
	existing := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440000",
		shared.NewWeekdaySet(time.Monday, time.Wednesday), 9, 90, "101")

	// Same room and time, disjoint weekdays.
	tueThu := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440003",
		shared.NewWeekdaySet(time.Tuesday, time.Thursday), 9, 90, "101")

	env := Environment{Now: testNow, RoomNeighbors: []*TrainingSchedule{existing}}
	assert.NoError(t, Validate(candidateFor(tueThu), env))

	// Same room and weekday, disjoint minute intervals.
	later := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440004",
		shared.NewWeekdaySet(time.Monday), 13, 90, "101")
	assert.NoError(t, Validate(candidateFor(later), env))
}

func TestValidate_ClosedNeighborsIgnored(t *testing.T) {
	existing := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440000",
		shared.NewWeekdaySet(time.Monday), 9, 90, "101")
	require.NoError(t, existing.Cancel())

	colliding := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440005",
		shared.NewWeekdaySet(time.Monday), 9, 90, "101")

	env := Environment{Now: testNow, RoomNeighbors: []*TrainingSchedule{existing}}
	assert.NoError(t, Validate(candidateFor(colliding), env))
}

func TestValidate_InstructorConflictAcrossRooms(t *testing.T) {
	existing := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440000",
		shared.NewWeekdaySet(time.Monday), 9, 90, "101")

	elsewhere := buildSchedule(t, "550e8400-e29b-41d4-a716-446655440006",
		shared.NewWeekdaySet(time.Monday), 9, 90, "205")

	env := Environment{Now: testNow, InstructorNeighbors: []*TrainingSchedule{existing}}
	err := Validate(candidateFor(elsewhere), env)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "instructor_conflict", verr.Rule)
}

func TestValidate_StructuralRules(t *testing.T) {
	base := func() *TrainingSchedule {
		return buildSchedule(t, "550e8400-e29b-41d4-a716-446655440000",
			shared.NewWeekdaySet(time.Monday), 9, 90, "101")
	}

	t.Run("owned by other class subject", func(t *testing.T) {
		env := Environment{Now: testNow, OwnedScheduleID: "550e8400-e29b-41d4-a716-446655440009"}
		err := Validate(candidateFor(base()), env)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "single_schedule_per_class_subject", verr.Rule)
	})

	t.Run("update of own schedule allowed", func(t *testing.T) {
		s := base()
		env := Environment{Now: testNow, OwnedScheduleID: s.ID}
		assert.NoError(t, Validate(candidateFor(s), env))
	})

	t.Run("specialty mismatch", func(t *testing.T) {
		cand := candidateFor(base())
		cand.InstructorSpecialty = "GND-OPS"
		err := Validate(cand, Environment{Now: testNow})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "instructor_specialty", verr.Rule)
	})

	t.Run("forbidden class time", func(t *testing.T) {
		s := base()
		s.ClassTime, _ = shared.NewTimeOfDay(10, 0)
		err := Validate(candidateFor(s), Environment{Now: testNow})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "allowed_class_time", verr.Rule)
	})

	t.Run("duration bounds", func(t *testing.T) {
		for _, d := range []int{79, 171} {
			s := base()
			s.DurationMinutes = d
			err := Validate(candidateFor(s), Environment{Now: testNow})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "duration_bounds", verr.Rule)
		}
		for _, d := range []int{80, 170} {
			s := base()
			s.DurationMinutes = d
			assert.NoError(t, Validate(candidateFor(s), Environment{Now: testNow}))
		}
	})

	t.Run("start in past", func(t *testing.T) {
		s := base()
		err := Validate(candidateFor(s), Environment{Now: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "start_not_in_past", verr.Rule)
	})
}

func TestIsAllowedClassTime(t *testing.T) {
	for _, h := range []int{7, 8, 9, 11, 13, 14, 15, 16, 18, 19, 20} {
		tod, _ := shared.NewTimeOfDay(h, 0)
		assert.True(t, IsAllowedClassTime(tod), "hour %d", h)
	}
	for _, h := range []int{10, 12, 17} {
		tod, _ := shared.NewTimeOfDay(h, 0)
		assert.False(t, IsAllowedClassTime(tod), "hour %d", h)
	}
	halfPast, _ := shared.NewTimeOfDay(9, 30)
	assert.False(t, IsAllowedClassTime(halfPast))
}
