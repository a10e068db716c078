package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/schedule"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE SCHEDULE COMMAND
// Creates or replaces the training schedule of a class subject. All
// conflict rules run inside one transaction over a consistent snapshot
// of neighboring schedules, and the instructor assignment is written
// in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CreateScheduleCommand contains the data to schedule a class subject.
type CreateScheduleCommand struct {
	// ClassSubjectID is the class subject being scheduled.
	ClassSubjectID string

	// InstructorID is the instructor assigned to teach.
	InstructorID string

	// Location and Room identify where classes take place.
	Location string
	Room     string

	// StartDate and EndDate bound the teaching period (inclusive days).
	StartDate time.Time
	EndDate   time.Time

	// Days is the set of weekdays classes run on.
	Days []time.Weekday

	// ClassTime is the daily start time, "HH:MM".
	ClassTime string

	// DurationMinutes is the lesson length in minutes.
	DurationMinutes int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateScheduleCommand) Validate() error {
	if !shared.ClassSubjectID(c.ClassSubjectID).IsValid() {
		return errors.New("create_schedule: class_subject_id must be a UUID")
	}
	if !shared.UserID(c.InstructorID).IsValid() {
		return errors.New("create_schedule: instructor_id must be a UUID")
	}
	if c.Room == "" {
		return errors.New("create_schedule: room is required")
	}
	if len(c.Days) == 0 {
		return errors.New("create_schedule: at least one weekday is required")
	}
	if _, err := shared.ParseTimeOfDay(c.ClassTime); err != nil {
		return fmt.Errorf("create_schedule: %w", err)
	}
	return nil
}

// CreateScheduleResult contains the outcome of scheduling.
type CreateScheduleResult struct {
	// ScheduleID is the id of the created schedule.
	ScheduleID shared.ScheduleID

	// Replaced indicates an existing schedule was replaced.
	Replaced bool

	// CreatedAt is when the schedule was persisted.
	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateScheduleHandler handles the CreateScheduleCommand.
type CreateScheduleHandler struct {
	uow          UnitOfWork
	courseRepo   course.Repository
	scheduleRepo schedule.Repository
	directory    UserDirectory
	publisher    shared.EventPublisher
	clock        Clock
}

// NewCreateScheduleHandler creates a new CreateScheduleHandler.
func NewCreateScheduleHandler(
	uow UnitOfWork,
	courseRepo course.Repository,
	scheduleRepo schedule.Repository,
	directory UserDirectory,
	publisher shared.EventPublisher,
	clock Clock,
) *CreateScheduleHandler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &CreateScheduleHandler{
		uow:          uow,
		courseRepo:   courseRepo,
		scheduleRepo: scheduleRepo,
		directory:    directory,
		publisher:    publisher,
		clock:        clock,
	}
}

// Handle executes the create schedule command.
func (h *CreateScheduleHandler) Handle(ctx context.Context, cmd CreateScheduleCommand) (*CreateScheduleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	classSubjectID := shared.ClassSubjectID(cmd.ClassSubjectID)
	instructorID := shared.UserID(cmd.InstructorID)

	classTime, err := shared.ParseTimeOfDay(cmd.ClassTime)
	if err != nil {
		return nil, fmt.Errorf("create_schedule: %w", err)
	}

	result := &CreateScheduleResult{CreatedAt: now}
	var event shared.ScheduleCreatedEvent

	err = h.uow.WithinTx(ctx, func(ctx context.Context) error {
		classSubject, err := h.courseRepo.GetClassSubject(ctx, classSubjectID)
		if err != nil {
			return fmt.Errorf("create_schedule: class subject: %w", err)
		}

		crs, err := h.courseRepo.GetByID(ctx, classSubject.CourseID)
		if err != nil {
			return fmt.Errorf("create_schedule: course: %w", err)
		}
		if !crs.IsApproved() {
			return shared.ErrCourseNotApproved
		}

		instructor, err := h.directory.GetByID(ctx, instructorID)
		if err != nil {
			return fmt.Errorf("create_schedule: instructor: %w", err)
		}

		// An existing schedule of the same class subject is replaced,
		// not duplicated. It is canceled and excluded from conflict
		// detection.
		existing, err := h.scheduleRepo.GetByClassSubject(ctx, classSubjectID)
		if err != nil && !errors.Is(err, shared.ErrScheduleNotFound) {
			return fmt.Errorf("create_schedule: existing schedule: %w", err)
		}

		sched, err := schedule.NewTrainingSchedule(schedule.NewScheduleParams{
			ID:              shared.ScheduleID(uuid.NewString()),
			ClassSubjectID:  classSubjectID,
			InstructorID:    instructorID,
			Days:            shared.NewWeekdaySet(cmd.Days...),
			ClassTime:       classTime,
			DurationMinutes: cmd.DurationMinutes,
			Range:           shared.DateRange{Start: cmd.StartDate, End: cmd.EndDate},
			Location:        cmd.Location,
			Room:            cmd.Room,
			Now:             now,
		})
		if err != nil {
			return err
		}

		roomNeighbors, err := h.scheduleRepo.ListByRoom(ctx, cmd.Location, cmd.Room)
		if err != nil {
			return fmt.Errorf("create_schedule: room neighbors: %w", err)
		}
		instructorNeighbors, err := h.scheduleRepo.ListByInstructor(ctx, instructorID)
		if err != nil {
			return fmt.Errorf("create_schedule: instructor neighbors: %w", err)
		}

		// The replaced schedule is excluded from conflict detection: it
		// stops occupying its slot the moment the new one commits.
		env := schedule.Environment{Now: now}
		if existing != nil {
			env.RoomNeighbors = excludeSchedule(roomNeighbors, existing.ID)
			env.InstructorNeighbors = excludeSchedule(instructorNeighbors, existing.ID)
		} else {
			env.RoomNeighbors = roomNeighbors
			env.InstructorNeighbors = instructorNeighbors
		}

		candidate := schedule.Candidate{
			Schedule:            sched,
			SubjectSpecialty:    classSubject.Specialty,
			InstructorSpecialty: instructor.Specialty,
		}
		if err := schedule.Validate(candidate, env); err != nil {
			return err
		}

		if existing != nil && existing.Status.Occupies() {
			if err := existing.Cancel(); err != nil {
				return fmt.Errorf("create_schedule: cancel previous: %w", err)
			}
			if err := h.scheduleRepo.Update(ctx, existing); err != nil {
				return fmt.Errorf("create_schedule: cancel previous: %w", err)
			}
			result.Replaced = true
		}

		if err := h.scheduleRepo.Create(ctx, sched); err != nil {
			return fmt.Errorf("create_schedule: persist: %w", err)
		}

		if err := h.courseRepo.UpsertInstructorAssignment(ctx, classSubjectID, instructorID); err != nil {
			return fmt.Errorf("create_schedule: instructor assignment: %w", err)
		}

		result.ScheduleID = sched.ID
		event = shared.NewScheduleCreatedEvent(sched.ID, classSubjectID, instructorID, cmd.Location, cmd.Room, result.Replaced)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return result, nil
}

// excludeSchedule filters the schedule with the given id out of a
// neighbor list.
func excludeSchedule(neighbors []*schedule.TrainingSchedule, id shared.ScheduleID) []*schedule.TrainingSchedule {
	out := neighbors[:0:0]
	for _, s := range neighbors {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
