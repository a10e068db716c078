package postgres

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := m.conn.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := m.conn.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}
	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var lastVersion int
	for v := range applied {
		if v > lastVersion {
			lastVersion = v
		}
	}
	if lastVersion == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == lastVersion {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, lastVersion)
	}

	return m.conn.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := m.conn.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", lastVersion, err)
		}
		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName)
		_, err := m.conn.Exec(ctx, deleteQuery, lastVersion)
		return err
	})
}

// Status returns the migration status.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if appliedAt, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = appliedAt
		}
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_catalog", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_scheduling", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_certification", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_requests", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	full_name TEXT NOT NULL,
	specialty TEXT NOT NULL DEFAULT '',
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS courses (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	level TEXT NOT NULL,
	specialty TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	progress TEXT NOT NULL DEFAULT 'not_yet',
	start_at TIMESTAMPTZ NOT NULL,
	end_at TIMESTAMPTZ NOT NULL,
	related_course_id UUID REFERENCES courses(id),
	approved_by UUID,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_courses_status_progress ON courses(status, progress);
CREATE INDEX IF NOT EXISTS idx_courses_related ON courses(related_course_id) WHERE related_course_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS classes (
	id UUID PRIMARY KEY,
	course_id UUID NOT NULL REFERENCES courses(id),
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subjects (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	passing_score DOUBLE PRECISION NOT NULL DEFAULT 5.0
);

CREATE TABLE IF NOT EXISTS class_subjects (
	id UUID PRIMARY KEY,
	class_id UUID NOT NULL REFERENCES classes(id),
	course_id UUID NOT NULL REFERENCES courses(id),
	subject_id UUID NOT NULL REFERENCES subjects(id),
	specialty TEXT NOT NULL,
	instructor_id UUID,
	UNIQUE (class_id, subject_id, specialty)
);

CREATE INDEX IF NOT EXISTS idx_class_subjects_course ON class_subjects(course_id);

CREATE TABLE IF NOT EXISTS subject_specialties (
	course_id UUID NOT NULL REFERENCES courses(id),
	subject_id UUID NOT NULL REFERENCES subjects(id),
	specialty TEXT NOT NULL,
	PRIMARY KEY (course_id, subject_id, specialty)
);
`

const migration001Down = `
DROP TABLE IF EXISTS subject_specialties;
DROP TABLE IF EXISTS class_subjects;
DROP TABLE IF EXISTS subjects;
DROP TABLE IF EXISTS classes;
DROP TABLE IF EXISTS courses;
DROP TABLE IF EXISTS users;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS training_schedules (
	id UUID PRIMARY KEY,
	class_subject_id UUID NOT NULL REFERENCES class_subjects(id),
	instructor_id UUID NOT NULL,
	days SMALLINT NOT NULL,
	class_time_minutes INTEGER NOT NULL,
	duration_minutes INTEGER NOT NULL,
	start_day DATE NOT NULL,
	end_day DATE NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	room TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Exactly one live schedule per class subject.
CREATE UNIQUE INDEX IF NOT EXISTS uq_schedule_owner
	ON training_schedules(class_subject_id)
	WHERE status IN ('pending', 'incoming');

CREATE INDEX IF NOT EXISTS idx_schedules_room
	ON training_schedules(location, room)
	WHERE status IN ('pending', 'incoming');
CREATE INDEX IF NOT EXISTS idx_schedules_instructor
	ON training_schedules(instructor_id)
	WHERE status IN ('pending', 'incoming');

CREATE TABLE IF NOT EXISTS instructor_assignments (
	id UUID PRIMARY KEY,
	class_subject_id UUID NOT NULL REFERENCES class_subjects(id) UNIQUE,
	instructor_id UUID NOT NULL,
	status TEXT NOT NULL DEFAULT 'approved',
	assigned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS trainee_assigns (
	id UUID PRIMARY KEY,
	class_subject_id UUID NOT NULL REFERENCES class_subjects(id),
	trainee_id UUID NOT NULL REFERENCES users(id),
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (class_subject_id, trainee_id)
);

CREATE INDEX IF NOT EXISTS idx_trainee_assigns_trainee ON trainee_assigns(trainee_id);
`

const migration002Down = `
DROP TABLE IF EXISTS trainee_assigns;
DROP TABLE IF EXISTS instructor_assignments;
DROP TABLE IF EXISTS training_schedules;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS grades (
	id UUID PRIMARY KEY,
	trainee_assign_id UUID NOT NULL REFERENCES trainee_assigns(id),
	trainee_id UUID NOT NULL REFERENCES users(id),
	subject_id UUID NOT NULL REFERENCES subjects(id),
	participation DOUBLE PRECISION NOT NULL,
	assignment DOUBLE PRECISION NOT NULL,
	final_exam DOUBLE PRECISION NOT NULL,
	resit DOUBLE PRECISION NOT NULL DEFAULT -1,
	total_score DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL,
	graded_by UUID NOT NULL,
	graded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (trainee_assign_id, subject_id)
);

CREATE INDEX IF NOT EXISTS idx_grades_trainee ON grades(trainee_id);

CREATE TABLE IF NOT EXISTS certificate_templates (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	sequence INTEGER NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS certificates (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	trainee_id UUID NOT NULL REFERENCES users(id),
	course_id UUID NOT NULL REFERENCES courses(id),
	template_id UUID,
	specialty TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	issued_by UUID NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	artifact_url TEXT NOT NULL DEFAULT '',
	artifact_digest TEXT NOT NULL DEFAULT '',
	revoked_at TIMESTAMPTZ,
	revoked_by UUID,
	revoke_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_certificates_trainee_course ON certificates(trainee_id, course_id);
CREATE INDEX IF NOT EXISTS idx_certificates_expiry ON certificates(expires_at) WHERE status = 'active';

-- Append-only renewal log; the certificates row stays the mutable
-- current projection.
CREATE TABLE IF NOT EXISTS certificate_renewals (
	id UUID PRIMARY KEY,
	certificate_id UUID NOT NULL REFERENCES certificates(id),
	course_id UUID NOT NULL REFERENCES courses(id),
	previous_course_id UUID NOT NULL,
	previous_expiry TIMESTAMPTZ NOT NULL,
	new_expiry TIMESTAMPTZ NOT NULL,
	issued_by UUID NOT NULL,
	renewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_renewals_certificate ON certificate_renewals(certificate_id);

CREATE TABLE IF NOT EXISTS decisions (
	id UUID PRIMARY KEY,
	course_id UUID NOT NULL REFERENCES courses(id) UNIQUE,
	number TEXT NOT NULL,
	issued_by UUID NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL,
	trainee_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migration003Down = `
DROP TABLE IF EXISTS decisions;
DROP TABLE IF EXISTS certificate_renewals;
DROP TABLE IF EXISTS certificates;
DROP TABLE IF EXISTS certificate_templates;
DROP TABLE IF EXISTS grades;
`

const migration004Up = `
CREATE TABLE IF NOT EXISTS requests (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	target TEXT NOT NULL,
	target_id TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'pending',
	review_note TEXT NOT NULL DEFAULT '',
	requested_by UUID NOT NULL,
	requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolved_by UUID,
	resolved_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_requests_pending ON requests(requested_at) WHERE status = 'pending';
`

const migration004Down = `
DROP TABLE IF EXISTS requests;
`
