package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/grade"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// GradeRepository implements grade.Repository for PostgreSQL.
type GradeRepository struct {
	conn *Connection
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(conn *Connection) *GradeRepository {
	return &GradeRepository{conn: conn}
}

// Upsert saves a grade. One grade per (trainee assignment, subject) pair;
// a repeated write replaces the components.
func (r *GradeRepository) Upsert(ctx context.Context, g *grade.Grade) error {
	query := `
		INSERT INTO grades (
			id, trainee_assign_id, trainee_id, subject_id,
			participation, assignment, final_exam, resit,
			total_score, status, graded_by, graded_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (trainee_assign_id, subject_id) DO UPDATE SET
			participation = EXCLUDED.participation,
			assignment = EXCLUDED.assignment,
			final_exam = EXCLUDED.final_exam,
			resit = EXCLUDED.resit,
			total_score = EXCLUDED.total_score,
			status = EXCLUDED.status,
			graded_by = EXCLUDED.graded_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		g.ID,
		string(g.TraineeAssignID),
		string(g.TraineeID),
		string(g.SubjectID),
		g.Components.Participation,
		g.Components.Assignment,
		g.Components.FinalExam,
		g.Components.Resit,
		g.TotalScore,
		string(g.Status),
		string(g.GradedBy),
		g.GradedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert grade: %w", err)
	}

	return nil
}

// GetByAssignAndSubject returns a grade by its pair.
func (r *GradeRepository) GetByAssignAndSubject(ctx context.Context, assignID shared.TraineeAssignID, subjectID shared.SubjectID) (*grade.Grade, error) {
	query := gradeSelectColumns + ` WHERE trainee_assign_id = $1 AND subject_id = $2`

	row := r.conn.QueryRow(ctx, query, string(assignID), string(subjectID))
	return scanGrade(row)
}

// ListByCourse returns all grades recorded against approved trainee
// assignments of a course.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*grade.Grade, error) {
	query := `
		SELECT g.id, g.trainee_assign_id, g.trainee_id, g.subject_id,
			   g.participation, g.assignment, g.final_exam, g.resit,
			   g.total_score, g.status, g.graded_by, g.graded_at, g.updated_at
		FROM grades g
		JOIN trainee_assigns ta ON ta.id = g.trainee_assign_id
		JOIN class_subjects cs ON cs.id = ta.class_subject_id
		WHERE cs.course_id = $1 AND ta.status = 'approved'
		ORDER BY g.graded_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(courseID))
	if err != nil {
		return nil, fmt.Errorf("failed to list grades by course: %w", err)
	}
	defer rows.Close()

	return scanGrades(rows)
}

// ListByTrainee returns the grades of a trainee within a course.
func (r *GradeRepository) ListByTrainee(ctx context.Context, courseID shared.CourseID, traineeID shared.UserID) ([]*grade.Grade, error) {
	query := `
		SELECT g.id, g.trainee_assign_id, g.trainee_id, g.subject_id,
			   g.participation, g.assignment, g.final_exam, g.resit,
			   g.total_score, g.status, g.graded_by, g.graded_at, g.updated_at
		FROM grades g
		JOIN trainee_assigns ta ON ta.id = g.trainee_assign_id
		JOIN class_subjects cs ON cs.id = ta.class_subject_id
		WHERE cs.course_id = $1 AND g.trainee_id = $2
		ORDER BY g.graded_at ASC
	`

	rows, err := r.conn.Query(ctx, query, string(courseID), string(traineeID))
	if err != nil {
		return nil, fmt.Errorf("failed to list grades by trainee: %w", err)
	}
	defer rows.Close()

	return scanGrades(rows)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

const gradeSelectColumns = `
	SELECT id, trainee_assign_id, trainee_id, subject_id,
		   participation, assignment, final_exam, resit,
		   total_score, status, graded_by, graded_at, updated_at
	FROM grades
`

// scanGrade scans a single grade from a row.
func scanGrade(row pgx.Row) (*grade.Grade, error) {
	var g grade.Grade
	var assignID, traineeID, subjectID, status, gradedBy string

	err := row.Scan(
		&g.ID,
		&assignID,
		&traineeID,
		&subjectID,
		&g.Components.Participation,
		&g.Components.Assignment,
		&g.Components.FinalExam,
		&g.Components.Resit,
		&g.TotalScore,
		&status,
		&gradedBy,
		&g.GradedAt,
		&g.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrGradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan grade: %w", err)
	}

	g.TraineeAssignID = shared.TraineeAssignID(assignID)
	g.TraineeID = shared.UserID(traineeID)
	g.SubjectID = shared.SubjectID(subjectID)
	g.Status = grade.GradeStatus(status)
	g.GradedBy = shared.UserID(gradedBy)

	return &g, nil
}

// scanGrades scans multiple grades from rows.
func scanGrades(rows pgx.Rows) ([]*grade.Grade, error) {
	var grades []*grade.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return grades, nil
}
