// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OUTBOUND PORTS
// Interfaces the command handlers depend on, implemented by the
// infrastructure layer. Declared here so the application layer owns
// its contracts.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork runs fn inside a single database transaction. The
// context passed to fn carries the transaction; repositories resolve
// it transparently.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TemplateRenderer renders certificate document text from template
// content and a substitution map. Unresolved placeholders are left
// verbatim.
type TemplateRenderer interface {
	Render(templateText string, substitutions map[string]string) (string, error)
}

// DocumentStore uploads rendered certificate artifacts to external
// storage and returns their address.
type DocumentStore interface {
	Upload(ctx context.Context, containerTag, name string, content []byte, contentType string) (url string, err error)
	GetReadURL(ctx context.Context, url string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, url string) error
}

// NotificationSink delivers notifications to users. Delivery happens
// after the owning transaction commits and never fails the command.
type NotificationSink interface {
	Notify(ctx context.Context, userID shared.UserID, title, body, category string) error
}

// DirectoryUser is the subset of user data the handlers need.
type DirectoryUser struct {
	ID        shared.UserID
	FullName  string
	Specialty shared.Specialty
	Active    bool
}

// UserDirectory resolves users referenced by commands.
type UserDirectory interface {
	GetByID(ctx context.Context, id shared.UserID) (DirectoryUser, error)
	ListByIDs(ctx context.Context, ids []shared.UserID) (map[shared.UserID]DirectoryUser, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
