package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/schedule"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleRepository implements schedule.Repository for PostgreSQL.
type ScheduleRepository struct {
	conn *Connection
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(conn *Connection) *ScheduleRepository {
	return &ScheduleRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new training schedule.
func (r *ScheduleRepository) Create(ctx context.Context, s *schedule.TrainingSchedule) error {
	query := `
		INSERT INTO training_schedules (
			id, class_subject_id, instructor_id, days, class_time_minutes,
			duration_minutes, start_day, end_day, location, room, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		string(s.ID),
		string(s.ClassSubjectID),
		string(s.InstructorID),
		int16(s.Days),
		int(s.ClassTime),
		s.DurationMinutes,
		s.Range.Start,
		s.Range.End,
		s.Location,
		s.Room,
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		// The partial unique index allows one live schedule per class subject.
		if IsUniqueViolation(err) {
			return shared.ErrScheduleExists
		}
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

// Update updates a training schedule.
func (r *ScheduleRepository) Update(ctx context.Context, s *schedule.TrainingSchedule) error {
	query := `
		UPDATE training_schedules SET
			instructor_id = $1,
			days = $2,
			class_time_minutes = $3,
			duration_minutes = $4,
			start_day = $5,
			end_day = $6,
			location = $7,
			room = $8,
			status = $9,
			updated_at = $10
		WHERE id = $11
	`

	result, err := r.conn.Exec(ctx, query,
		string(s.InstructorID),
		int16(s.Days),
		int(s.ClassTime),
		s.DurationMinutes,
		s.Range.Start,
		s.Range.End,
		s.Location,
		s.Room,
		string(s.Status),
		time.Now().UTC(),
		string(s.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrScheduleNotFound
	}

	return nil
}

// GetByID returns a schedule by ID.
func (r *ScheduleRepository) GetByID(ctx context.Context, id shared.ScheduleID) (*schedule.TrainingSchedule, error) {
	query := scheduleSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	return scanSchedule(row)
}

// GetByClassSubject returns the schedule owned by a class subject.
func (r *ScheduleRepository) GetByClassSubject(ctx context.Context, id shared.ClassSubjectID) (*schedule.TrainingSchedule, error) {
	query := scheduleSelectColumns + `
		WHERE class_subject_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.conn.QueryRow(ctx, query, string(id))
	return scanSchedule(row)
}

// ─────────────────────────────────────────────────────────────────────────────
// Conflict Neighborhood Queries
// ─────────────────────────────────────────────────────────────────────────────

// ListByRoom returns live schedules held in the same room.
func (r *ScheduleRepository) ListByRoom(ctx context.Context, location, room string) ([]*schedule.TrainingSchedule, error) {
	query := scheduleSelectColumns + `
		WHERE location = $1 AND room = $2 AND status IN ('pending', 'incoming')
		ORDER BY start_day ASC
	`

	rows, err := r.conn.Query(ctx, query, location, room)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules by room: %w", err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

// ListByInstructor returns live schedules taught by the instructor.
func (r *ScheduleRepository) ListByInstructor(ctx context.Context, instructorID shared.UserID) ([]*schedule.TrainingSchedule, error) {
	query := scheduleSelectColumns + `
		WHERE instructor_id = $1 AND status IN ('pending', 'incoming')
		ORDER BY start_day ASC
	`

	rows, err := r.conn.Query(ctx, query, string(instructorID))
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules by instructor: %w", err)
	}
	defer rows.Close()

	return scanSchedules(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

const scheduleSelectColumns = `
	SELECT id, class_subject_id, instructor_id, days, class_time_minutes,
		   duration_minutes, start_day, end_day, location, room, status,
		   created_at, updated_at
	FROM training_schedules
`

// scanSchedule scans a single schedule from a row.
func scanSchedule(row pgx.Row) (*schedule.TrainingSchedule, error) {
	var s schedule.TrainingSchedule
	var id, classSubjectID, instructorID, status string
	var days int16
	var classTime int
	var startDay, endDay time.Time

	err := row.Scan(
		&id,
		&classSubjectID,
		&instructorID,
		&days,
		&classTime,
		&s.DurationMinutes,
		&startDay,
		&endDay,
		&s.Location,
		&s.Room,
		&status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	s.ID = shared.ScheduleID(id)
	s.ClassSubjectID = shared.ClassSubjectID(classSubjectID)
	s.InstructorID = shared.UserID(instructorID)
	s.Days = shared.WeekdaySet(days)
	s.ClassTime = shared.TimeOfDay(classTime)
	s.Range = shared.DateRange{Start: startDay, End: endDay}
	s.Status = schedule.Status(status)

	return &s, nil
}

// scanSchedules scans multiple schedules from rows.
func scanSchedules(rows pgx.Rows) ([]*schedule.TrainingSchedule, error) {
	var schedules []*schedule.TrainingSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return schedules, nil
}
