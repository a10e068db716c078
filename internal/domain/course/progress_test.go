package course

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

func newApprovedCourse(t *testing.T, start, end time.Time) *Course {
	t.Helper()

	c, err := NewCourse(NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-01",
		Name:      "Avionics Maintenance",
		Level:     shared.LevelInitial,
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   start,
		EndAt:     end,
	})
	require.NoError(t, err)
	require.NoError(t, c.Approve(shared.UserID(uuid.NewString())))
	return c
}

func TestSubjectEvidence_Satisfied(t *testing.T) {
	// A ClassSubject that never got a schedule does not block completion.
	assert.True(t, SubjectEvidence{TotalSchedules: 0, Trainees: 12}.Satisfied())

	assert.True(t, SubjectEvidence{
		TotalSchedules: 1, ClosedSchedules: 1,
		Trainees: 12, GradedTrainees: 12,
	}.Satisfied())

	assert.False(t, SubjectEvidence{
		TotalSchedules: 1, ClosedSchedules: 0,
		Trainees: 12, GradedTrainees: 12,
	}.Satisfied())

	assert.False(t, SubjectEvidence{
		TotalSchedules: 1, ClosedSchedules: 1,
		Trainees: 12, GradedTrainees: 11,
	}.Satisfied())
}

func TestCompletionEvidence_Complete(t *testing.T) {
	done := SubjectEvidence{
		ClassSubjectID: shared.ClassSubjectID(uuid.NewString()),
		TotalSchedules: 1, ClosedSchedules: 1, Trainees: 5, GradedTrainees: 5,
	}
	open := SubjectEvidence{
		ClassSubjectID: shared.ClassSubjectID(uuid.NewString()),
		TotalSchedules: 1, ClosedSchedules: 1, Trainees: 5, GradedTrainees: 3,
	}

	ev := CompletionEvidence{
		Classes: []ClassEvidence{{Subjects: []SubjectEvidence{done, open}}},
	}
	assert.False(t, ev.Complete())
	require.Len(t, ev.Blocking(), 1)
	assert.Equal(t, open.ClassSubjectID, ev.Blocking()[0])

	ev.Classes[0].Subjects[1].GradedTrainees = 5
	assert.True(t, ev.Complete())
	assert.Empty(t, ev.Blocking())

	// A course with no classes at all is vacuously complete.
	assert.True(t, CompletionEvidence{}.Complete())
}

func TestEvaluateProgress(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	c := newApprovedCourse(t, start, end)

	empty := CompletionEvidence{CourseID: c.ID}

	// Before the start date the course stays NotYet.
	got := EvaluateProgress(c, start.Add(-24*time.Hour), empty)
	assert.Equal(t, ProgressNotYet, got)

	// On the start date it moves to Ongoing.
	got = EvaluateProgress(c, start, empty)
	assert.Equal(t, ProgressOngoing, got)

	require.NoError(t, c.AdvanceTo(ProgressOngoing))

	incomplete := CompletionEvidence{
		CourseID: c.ID,
		Classes: []ClassEvidence{{Subjects: []SubjectEvidence{{
			TotalSchedules: 1, ClosedSchedules: 0, Trainees: 3,
		}}}},
	}
	got = EvaluateProgress(c, end, incomplete)
	assert.Equal(t, ProgressOngoing, got)

	complete := CompletionEvidence{
		CourseID: c.ID,
		Classes: []ClassEvidence{{Subjects: []SubjectEvidence{{
			TotalSchedules: 1, ClosedSchedules: 1, Trainees: 3, GradedTrainees: 3,
		}}}},
	}
	got = EvaluateProgress(c, end, complete)
	assert.Equal(t, ProgressCompleted, got)

	require.NoError(t, c.AdvanceTo(ProgressCompleted))

	// Completed is terminal.
	got = EvaluateProgress(c, end.Add(24*time.Hour), complete)
	assert.Equal(t, ProgressCompleted, got)
}

func TestEvaluateProgress_UnapprovedCourseNeverAdvances(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewCourse(NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-02",
		Name:      "Avionics Maintenance",
		Level:     shared.LevelInitial,
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   start,
		EndAt:     start.AddDate(0, 3, 0),
	})
	require.NoError(t, err)

	got := EvaluateProgress(c, start.AddDate(0, 1, 0), CompletionEvidence{})
	assert.Equal(t, ProgressNotYet, got)
}

func TestAdvanceTo_Monotonic(t *testing.T) {
	c := newApprovedCourse(t,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC))

	// Advancing to the current stage is a no-op.
	require.NoError(t, c.AdvanceTo(ProgressNotYet))

	require.NoError(t, c.AdvanceTo(ProgressOngoing))
	assert.Equal(t, ProgressOngoing, c.Progress)

	// Skipping straight from NotYet to Completed is allowed by rank,
	// but going backwards never is.
	err := c.AdvanceTo(ProgressNotYet)
	assert.ErrorIs(t, err, shared.ErrProgressRegression)
	assert.Equal(t, ProgressOngoing, c.Progress)

	require.NoError(t, c.AdvanceTo(ProgressCompleted))
	err = c.AdvanceTo(ProgressOngoing)
	assert.ErrorIs(t, err, shared.ErrProgressRegression)
}

func TestNewCourse_RelatedCourseInvariant(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	base := NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-03",
		Name:      "Avionics Recurrent",
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   start,
		EndAt:     end,
	}

	params := base
	params.Level = shared.LevelRecurrent
	_, err := NewCourse(params)
	assert.ErrorIs(t, err, shared.ErrRelatedCourseMissing)

	params.RelatedCourseID = shared.CourseID(uuid.NewString())
	c, err := NewCourse(params)
	require.NoError(t, err)
	assert.Equal(t, params.RelatedCourseID, c.OriginalCourseID())

	params = base
	params.Level = shared.LevelInitial
	params.RelatedCourseID = shared.CourseID(uuid.NewString())
	_, err = NewCourse(params)
	assert.ErrorIs(t, err, shared.ErrRelatedCourseMustNotBeSet)
}
