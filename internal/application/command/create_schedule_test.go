package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/schedule"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

var scheduleNow = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

type scheduleFixture struct {
	uow          *fakeUnitOfWork
	courseRepo   *fakeCourseRepo
	scheduleRepo *fakeScheduleRepo
	directory    *fakeDirectory
	publisher    *capturingPublisher

	classSubjectID shared.ClassSubjectID
	instructorID   shared.UserID
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()

	f := &scheduleFixture{
		uow:            &fakeUnitOfWork{},
		courseRepo:     newFakeCourseRepo(),
		scheduleRepo:   newFakeScheduleRepo(),
		directory:      &fakeDirectory{users: make(map[shared.UserID]DirectoryUser)},
		publisher:      &capturingPublisher{},
		classSubjectID: shared.ClassSubjectID(uuid.NewString()),
		instructorID:   shared.UserID(uuid.NewString()),
	}

	crs, err := course.NewCourse(course.NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-10",
		Name:      "Avionics Maintenance",
		Level:     shared.LevelInitial,
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   scheduleNow.AddDate(0, 1, 0),
		EndAt:     scheduleNow.AddDate(0, 5, 0),
	})
	require.NoError(t, err)
	require.NoError(t, crs.Approve(shared.UserID(uuid.NewString())))
	f.courseRepo.courses[crs.ID] = crs

	f.courseRepo.classSubjects[f.classSubjectID] = &course.ClassSubject{
		ID: f.classSubjectID, CourseID: crs.ID,
		SubjectID: shared.SubjectID(uuid.NewString()), Specialty: shared.Specialty("AV-MNT"),
	}
	f.directory.users[f.instructorID] = DirectoryUser{
		ID: f.instructorID, FullName: "Erlan Zhaksybekov",
		Specialty: shared.Specialty("AV-MNT"), Active: true,
	}
	return f
}

func (f *scheduleFixture) handler() *CreateScheduleHandler {
	return NewCreateScheduleHandler(f.uow, f.courseRepo, f.scheduleRepo, f.directory, f.publisher, fixedClock{now: scheduleNow})
}

func (f *scheduleFixture) command() CreateScheduleCommand {
	return CreateScheduleCommand{
		ClassSubjectID:  f.classSubjectID.String(),
		InstructorID:    f.instructorID.String(),
		Location:        "Building A",
		Room:            "101",
		StartDate:       time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
		Days:            []time.Weekday{time.Monday, time.Wednesday},
		ClassTime:       "09:00",
		DurationMinutes: 90,
	}
}

// neighborSchedule builds an occupying schedule in the same room and
// time slot as the fixture command.
func (f *scheduleFixture) neighborSchedule(t *testing.T) *schedule.TrainingSchedule {
	t.Helper()

	classTime, err := shared.ParseTimeOfDay("09:00")
	require.NoError(t, err)
	dateRange, err := shared.NewDateRange(
		time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	s, err := schedule.NewTrainingSchedule(schedule.NewScheduleParams{
		ID:              shared.ScheduleID(uuid.NewString()),
		ClassSubjectID:  shared.ClassSubjectID(uuid.NewString()),
		InstructorID:    shared.UserID(uuid.NewString()),
		Days:            shared.NewWeekdaySet(time.Monday),
		ClassTime:       classTime,
		DurationMinutes: 90,
		Range:           dateRange,
		Location:        "Building A",
		Room:            "101",
		Now:             scheduleNow,
	})
	require.NoError(t, err)
	return s
}

func TestCreateSchedule_Success(t *testing.T) {
	f := newScheduleFixture(t)

	result, err := f.handler().Handle(context.Background(), f.command())
	require.NoError(t, err)

	assert.False(t, result.Replaced)
	assert.Equal(t, scheduleNow, result.CreatedAt)

	require.Len(t, f.scheduleRepo.created, 1)
	created := f.scheduleRepo.created[0]
	assert.Equal(t, result.ScheduleID, created.ID)
	assert.Equal(t, f.classSubjectID, created.ClassSubjectID)
	assert.Equal(t, schedule.StatusPending, created.Status)

	// The instructor assignment is written in the same transaction.
	assert.Equal(t, f.instructorID, f.courseRepo.assignments[f.classSubjectID])
	assert.Equal(t, 1, f.uow.txCalls)

	assert.Len(t, f.publisher.ofType(shared.EventScheduleCreated), 1)
}

func TestCreateSchedule_RoomConflictRejected(t *testing.T) {
	f := newScheduleFixture(t)
	neighbor := f.neighborSchedule(t)
	f.scheduleRepo.addNeighbor(neighbor)

	_, err := f.handler().Handle(context.Background(), f.command())
	require.Error(t, err)

	var verr *schedule.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "room_conflict", verr.Rule)
	assert.Equal(t, neighbor.ID, verr.ConflictingScheduleID)

	// Nothing was persisted and no event went out.
	assert.Empty(t, f.scheduleRepo.created)
	assert.Empty(t, f.courseRepo.assignments)
	assert.Empty(t, f.publisher.events)
}

func TestCreateSchedule_ReplacesOwnSchedule(t *testing.T) {
	f := newScheduleFixture(t)

	// The previous schedule of the same class subject occupies the same
	// slot. It must not count as a conflict and must be canceled.
	previous := f.neighborSchedule(t)
	previous.ClassSubjectID = f.classSubjectID
	f.scheduleRepo.addNeighbor(previous)

	result, err := f.handler().Handle(context.Background(), f.command())
	require.NoError(t, err)

	assert.True(t, result.Replaced)
	assert.Equal(t, schedule.StatusCanceled, previous.Status)
	require.Len(t, f.scheduleRepo.updated, 1)
	assert.Equal(t, previous.ID, f.scheduleRepo.updated[0].ID)
	require.Len(t, f.scheduleRepo.created, 1)
	assert.NotEqual(t, previous.ID, f.scheduleRepo.created[0].ID)
}

func TestCreateSchedule_SpecialtyMismatchRejected(t *testing.T) {
	f := newScheduleFixture(t)
	f.directory.users[f.instructorID] = DirectoryUser{
		ID: f.instructorID, FullName: "Erlan Zhaksybekov",
		Specialty: shared.Specialty("EL-SYS"), Active: true,
	}

	_, err := f.handler().Handle(context.Background(), f.command())
	require.Error(t, err)

	var verr *schedule.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "instructor_specialty", verr.Rule)
}

func TestCreateSchedule_UnapprovedCourseRejected(t *testing.T) {
	f := newScheduleFixture(t)
	for _, crs := range f.courseRepo.courses {
		crs.Status = course.StatusPending
	}

	_, err := f.handler().Handle(context.Background(), f.command())
	assert.ErrorIs(t, err, shared.ErrCourseNotApproved)
}

func TestCreateScheduleCommand_Validate(t *testing.T) {
	f := newScheduleFixture(t)

	cmd := f.command()
	assert.NoError(t, cmd.Validate())

	bad := cmd
	bad.ClassTime = "9 o'clock"
	assert.Error(t, bad.Validate())

	bad = cmd
	bad.Days = nil
	assert.Error(t, bad.Validate())

	bad = cmd
	bad.Room = ""
	assert.Error(t, bad.Validate())
}

func TestCreateSchedule_ForbiddenHourRejected(t *testing.T) {
	f := newScheduleFixture(t)

	// 10:00 is a valid time of day but not an allowed class time.
	cmd := f.command()
	cmd.ClassTime = "10:00"

	_, err := f.handler().Handle(context.Background(), cmd)
	require.Error(t, err)

	var verr *schedule.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "allowed_class_time", verr.Rule)
	assert.Empty(t, f.scheduleRepo.created)
}
