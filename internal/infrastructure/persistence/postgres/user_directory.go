package postgres

import (
	"context"
	"fmt"

	"github.com/vta-hub/vta-training-hub/internal/application/command"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER DIRECTORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserDirectory implements command.UserDirectory over the users table.
type UserDirectory struct {
	conn *Connection
}

// NewUserDirectory creates a new UserDirectory.
func NewUserDirectory(conn *Connection) *UserDirectory {
	return &UserDirectory{conn: conn}
}

// GetByID returns a directory user by ID.
func (d *UserDirectory) GetByID(ctx context.Context, id shared.UserID) (command.DirectoryUser, error) {
	query := `
		SELECT id, full_name, specialty, active
		FROM users
		WHERE id = $1
	`

	var user command.DirectoryUser
	var uid, specialty string

	err := d.conn.QueryRow(ctx, query, string(id)).Scan(&uid, &user.FullName, &specialty, &user.Active)
	if IsNoRows(err) {
		return command.DirectoryUser{}, shared.ErrNotFound
	}
	if err != nil {
		return command.DirectoryUser{}, fmt.Errorf("failed to get user: %w", err)
	}

	user.ID = shared.UserID(uid)
	user.Specialty = shared.Specialty(specialty)

	return user, nil
}

// ListByIDs returns directory users keyed by ID. Missing IDs are absent
// from the result, not an error.
func (d *UserDirectory) ListByIDs(ctx context.Context, ids []shared.UserID) (map[shared.UserID]command.DirectoryUser, error) {
	users := make(map[shared.UserID]command.DirectoryUser, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	query := fmt.Sprintf(`
		SELECT id, full_name, specialty, active
		FROM users
		WHERE id IN (%s)
	`, inClause(1, len(ids)))

	rows, err := d.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var user command.DirectoryUser
		var uid, specialty string

		if err := rows.Scan(&uid, &user.FullName, &specialty, &user.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		user.ID = shared.UserID(uid)
		user.Specialty = shared.Specialty(specialty)
		users[user.ID] = user
	}

	return users, rows.Err()
}
