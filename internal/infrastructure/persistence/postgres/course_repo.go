package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	conn *Connection
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	query := `
		INSERT INTO courses (
			id, code, name, level, specialty, status, progress,
			start_at, end_at, related_course_id, approved_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		string(c.ID),
		c.Code,
		c.Name,
		string(c.Level),
		string(c.Specialty),
		string(c.Status),
		string(c.Progress),
		c.StartAt,
		c.EndAt,
		nullUUID(string(c.RelatedCourseID)),
		nullUUID(string(c.ApprovedBy)),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByID returns a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id shared.CourseID) (*course.Course, error) {
	query := courseSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	return scanCourse(row)
}

// Update updates a course.
func (r *CourseRepository) Update(ctx context.Context, c *course.Course) error {
	query := `
		UPDATE courses SET
			code = $1,
			name = $2,
			level = $3,
			specialty = $4,
			status = $5,
			progress = $6,
			start_at = $7,
			end_at = $8,
			related_course_id = $9,
			approved_by = $10,
			updated_at = $11
		WHERE id = $12
	`

	result, err := r.conn.Exec(ctx, query,
		c.Code,
		c.Name,
		string(c.Level),
		string(c.Specialty),
		string(c.Status),
		string(c.Progress),
		c.StartAt,
		c.EndAt,
		nullUUID(string(c.RelatedCourseID)),
		nullUUID(string(c.ApprovedBy)),
		time.Now().UTC(),
		string(c.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrCourseNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress Sweep Queries
// ─────────────────────────────────────────────────────────────────────────────

// ListSweepable returns approved courses that have not reached the terminal
// progress stage yet.
func (r *CourseRepository) ListSweepable(ctx context.Context) ([]*course.Course, error) {
	query := courseSelectColumns + `
		WHERE status = 'approved' AND progress <> 'completed'
		ORDER BY start_at ASC
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sweepable courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// ListRecurrentOf returns recurrent courses referencing the given original course.
func (r *CourseRepository) ListRecurrentOf(ctx context.Context, originalID shared.CourseID) ([]*course.Course, error) {
	query := courseSelectColumns + `
		WHERE related_course_id = $1 AND level = $2
		ORDER BY start_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(originalID), string(shared.LevelRecurrent))
	if err != nil {
		return nil, fmt.Errorf("failed to list recurrent courses: %w", err)
	}
	defer rows.Close()

	return scanCourses(rows)
}

// CompletionEvidence collects per-class-subject schedule and grading counters
// used by the progress state machine.
func (r *CourseRepository) CompletionEvidence(ctx context.Context, courseID shared.CourseID) (course.CompletionEvidence, error) {
	query := `
		SELECT cs.class_id,
			   cs.id,
			   COUNT(ts.id),
			   COUNT(ts.id) FILTER (WHERE ts.status IN ('completed', 'canceled')),
			   COUNT(DISTINCT ta.id),
			   COUNT(DISTINCT g.trainee_assign_id)
		FROM class_subjects cs
		LEFT JOIN training_schedules ts ON ts.class_subject_id = cs.id
		LEFT JOIN trainee_assigns ta ON ta.class_subject_id = cs.id AND ta.status = 'approved'
		LEFT JOIN grades g ON g.trainee_assign_id = ta.id
		WHERE cs.course_id = $1
		GROUP BY cs.class_id, cs.id
		ORDER BY cs.class_id, cs.id
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return course.CompletionEvidence{}, fmt.Errorf("failed to collect completion evidence: %w", err)
	}
	defer rows.Close()

	evidence := course.CompletionEvidence{CourseID: courseID}
	classIndex := map[shared.ClassID]int{}

	for rows.Next() {
		var classID, classSubjectID string
		var subj course.SubjectEvidence

		err := rows.Scan(
			&classID,
			&classSubjectID,
			&subj.TotalSchedules,
			&subj.ClosedSchedules,
			&subj.Trainees,
			&subj.GradedTrainees,
		)
		if err != nil {
			return course.CompletionEvidence{}, fmt.Errorf("failed to scan completion evidence: %w", err)
		}

		subj.ClassSubjectID = shared.ClassSubjectID(classSubjectID)

		cid := shared.ClassID(classID)
		idx, ok := classIndex[cid]
		if !ok {
			evidence.Classes = append(evidence.Classes, course.ClassEvidence{ClassID: cid})
			idx = len(evidence.Classes) - 1
			classIndex[cid] = idx
		}
		evidence.Classes[idx].Subjects = append(evidence.Classes[idx].Subjects, subj)
	}

	return evidence, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Structure Queries
// ─────────────────────────────────────────────────────────────────────────────

// ListClasses returns the classes of a course.
func (r *CourseRepository) ListClasses(ctx context.Context, courseID shared.CourseID) ([]*course.Class, error) {
	query := `
		SELECT id, course_id, name
		FROM classes
		WHERE course_id = $1
		ORDER BY name ASC
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	var classes []*course.Class
	for rows.Next() {
		var c course.Class
		var id, cid string
		if err := rows.Scan(&id, &cid, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		c.ID = shared.ClassID(id)
		c.CourseID = shared.CourseID(cid)
		classes = append(classes, &c)
	}

	return classes, rows.Err()
}

// GetClassSubject returns a class subject with its specialty binding.
func (r *CourseRepository) GetClassSubject(ctx context.Context, id shared.ClassSubjectID) (*course.ClassSubject, error) {
	query := `
		SELECT id, class_id, course_id, subject_id, specialty, COALESCE(instructor_id::text, '')
		FROM class_subjects
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, string(id))
	cs, err := scanClassSubject(row)
	if IsNoRows(err) {
		return nil, shared.ErrClassSubjectNotFound
	}
	return cs, err
}

// ListClassSubjects returns all class subjects of a course.
func (r *CourseRepository) ListClassSubjects(ctx context.Context, courseID shared.CourseID) ([]*course.ClassSubject, error) {
	query := `
		SELECT id, class_id, course_id, subject_id, specialty, COALESCE(instructor_id::text, '')
		FROM class_subjects
		WHERE course_id = $1
		ORDER BY class_id, subject_id
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to list class subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*course.ClassSubject
	for rows.Next() {
		cs, err := scanClassSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, cs)
	}

	return subjects, rows.Err()
}

// ListSubjectSpecialties returns the subject-specialty pairs of a course.
func (r *CourseRepository) ListSubjectSpecialties(ctx context.Context, courseID shared.CourseID) ([]course.SubjectSpecialty, error) {
	query := `
		SELECT subject_id, specialty
		FROM subject_specialties
		WHERE course_id = $1
		ORDER BY specialty, subject_id
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to list subject specialties: %w", err)
	}
	defer rows.Close()

	var pairs []course.SubjectSpecialty
	for rows.Next() {
		var subjectID, specialty string
		if err := rows.Scan(&subjectID, &specialty); err != nil {
			return nil, fmt.Errorf("failed to scan subject specialty: %w", err)
		}
		pairs = append(pairs, course.SubjectSpecialty{
			SubjectID: shared.SubjectID(subjectID),
			Specialty: shared.Specialty(specialty),
		})
	}

	return pairs, rows.Err()
}

// GetSubject returns a subject with its passing score.
func (r *CourseRepository) GetSubject(ctx context.Context, id shared.SubjectID) (*course.Subject, error) {
	query := `
		SELECT id, code, name, passing_score
		FROM subjects
		WHERE id = $1
	`

	var s course.Subject
	var sid string
	err := r.conn.QueryRow(ctx, query, string(id)).Scan(&sid, &s.Code, &s.Name, &s.PassingScore)
	if IsNoRows(err) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	s.ID = shared.SubjectID(sid)
	return &s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Assignments
// ─────────────────────────────────────────────────────────────────────────────

// UpsertInstructorAssignment creates an instructor assignment for a class
// subject or repoints an existing one. Runs inside the schedule transaction.
func (r *CourseRepository) UpsertInstructorAssignment(ctx context.Context, classSubjectID shared.ClassSubjectID, instructorID shared.UserID) error {
	query := `
		INSERT INTO instructor_assignments (id, class_subject_id, instructor_id, status, assigned_at)
		VALUES (gen_random_uuid(), $1, $2, 'approved', NOW())
		ON CONFLICT (class_subject_id) DO UPDATE SET
			instructor_id = EXCLUDED.instructor_id,
			status = 'approved',
			assigned_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, string(classSubjectID), string(instructorID)); err != nil {
		return fmt.Errorf("failed to upsert instructor assignment: %w", err)
	}

	// Keep the denormalized instructor on the class subject in step.
	updateQuery := `UPDATE class_subjects SET instructor_id = $1 WHERE id = $2`
	if _, err := r.conn.Exec(ctx, updateQuery, string(instructorID), string(classSubjectID)); err != nil {
		return fmt.Errorf("failed to update class subject instructor: %w", err)
	}

	return nil
}

// CreateTraineeAssign inserts a trainee assignment. The unique
// constraint on (class_subject_id, trainee_id) backs the
// one-assignment-per-class-subject rule.
func (r *CourseRepository) CreateTraineeAssign(ctx context.Context, ta *course.TraineeAssign) error {
	query := `
		INSERT INTO trainee_assigns (id, class_subject_id, trainee_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		string(ta.ID),
		string(ta.ClassSubjectID),
		string(ta.TraineeID),
		string(ta.Status),
		ta.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return course.ErrDuplicateTraineeAssign
		}
		return fmt.Errorf("failed to create trainee assign: %w", err)
	}

	return nil
}

// ListTraineeAssigns returns approved trainee assignments across all class
// subjects of a course.
func (r *CourseRepository) ListTraineeAssigns(ctx context.Context, courseID shared.CourseID) ([]*course.TraineeAssign, error) {
	query := `
		SELECT ta.id, ta.class_subject_id, ta.trainee_id, ta.status, ta.created_at
		FROM trainee_assigns ta
		JOIN class_subjects cs ON cs.id = ta.class_subject_id
		WHERE cs.course_id = $1 AND ta.status = 'approved'
		ORDER BY ta.created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to list trainee assigns: %w", err)
	}
	defer rows.Close()

	var assigns []*course.TraineeAssign
	for rows.Next() {
		var ta course.TraineeAssign
		var id, classSubjectID, traineeID, status string

		err := rows.Scan(&id, &classSubjectID, &traineeID, &status, &ta.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trainee assign: %w", err)
		}

		ta.ID = shared.TraineeAssignID(id)
		ta.ClassSubjectID = shared.ClassSubjectID(classSubjectID)
		ta.TraineeID = shared.UserID(traineeID)
		ta.Status = shared.RequestStatus(status)
		assigns = append(assigns, &ta)
	}

	return assigns, rows.Err()
}

// GetCourseByTraineeAssign resolves a trainee assignment to its course
// through the class subject.
func (r *CourseRepository) GetCourseByTraineeAssign(ctx context.Context, assignID shared.TraineeAssignID) (*course.Course, error) {
	query := `
		SELECT c.id, c.code, c.name, c.level, c.specialty, c.status, c.progress,
			   c.start_at, c.end_at, COALESCE(c.related_course_id::text, ''),
			   COALESCE(c.approved_by::text, ''), c.created_at, c.updated_at
		FROM courses c
		JOIN class_subjects cs ON cs.course_id = c.id
		JOIN trainee_assigns ta ON ta.class_subject_id = cs.id
		WHERE ta.id = $1
	`

	row := r.conn.QueryRow(ctx, query, string(assignID))
	return scanCourse(row)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

const courseSelectColumns = `
	SELECT id, code, name, level, specialty, status, progress,
		   start_at, end_at, COALESCE(related_course_id::text, ''),
		   COALESCE(approved_by::text, ''), created_at, updated_at
	FROM courses
`

// scanCourse scans a single course from a row.
func scanCourse(row pgx.Row) (*course.Course, error) {
	var c course.Course
	var id, level, specialty, status, progress, relatedID, approvedBy string

	err := row.Scan(
		&id,
		&c.Code,
		&c.Name,
		&level,
		&specialty,
		&status,
		&progress,
		&c.StartAt,
		&c.EndAt,
		&relatedID,
		&approvedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	c.ID = shared.CourseID(id)
	c.Level = shared.CourseLevel(level)
	c.Specialty = shared.Specialty(specialty)
	c.Status = course.Status(status)
	c.Progress = course.Progress(progress)
	c.RelatedCourseID = shared.CourseID(relatedID)
	c.ApprovedBy = shared.UserID(approvedBy)

	return &c, nil
}

// scanCourses scans multiple courses from rows.
func scanCourses(rows pgx.Rows) ([]*course.Course, error) {
	var courses []*course.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return courses, nil
}

// scanClassSubject scans a class subject from a row.
func scanClassSubject(row pgx.Row) (*course.ClassSubject, error) {
	var cs course.ClassSubject
	var id, classID, courseID, subjectID, specialty, instructorID string

	err := row.Scan(&id, &classID, &courseID, &subjectID, &specialty, &instructorID)
	if err != nil {
		return nil, err
	}

	cs.ID = shared.ClassSubjectID(id)
	cs.ClassID = shared.ClassID(classID)
	cs.CourseID = shared.CourseID(courseID)
	cs.SubjectID = shared.SubjectID(subjectID)
	cs.Specialty = shared.Specialty(specialty)
	cs.InstructorID = shared.UserID(instructorID)

	return &cs, nil
}

// nullUUID converts an empty string to a NULL value for UUID columns.
func nullUUID(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// inClause builds a list of placeholders starting at the given index.
func inClause(start, count int) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(placeholders, ", ")
}
