// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
//
// The four error families drive handling policy everywhere in the engine:
//   - validation errors are surfaced to the caller and never retried
//   - not-found errors are surfaced to the caller
//   - transient infrastructure errors are retried by the execution strategy
//   - invariant violations exclude the affected row from a batch with a warning
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrNotApproved     = errors.New("entity is not approved")
	ErrExpired         = errors.New("expired")

	// Invariant violations (batch items are excluded, never fatal to a batch)
	ErrInvariantViolation = errors.New("invariant violation")

	// Infrastructure errors (retried by the execution strategy wrapper)
	ErrTransientInfrastructure = errors.New("transient infrastructure error")
	ErrExternalService         = errors.New("external service error")
	ErrTimeout                 = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "course", "schedule", "certificate"
	Op      string // Operation that failed, e.g., "Validate", "Renew"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// IsTransient reports whether the error should be handled by a retry
// strategy rather than surfaced immediately.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientInfrastructure) ||
		errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrTimeout)
}

// Course domain errors
var (
	ErrCourseNotFound       = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrCourseNotApproved    = NewDomainError("course", "CheckStatus", ErrNotApproved, "course is not approved")
	ErrCourseNoSubjects     = NewDomainError("course", "CheckSubjects", ErrValidation, "course has no subject specialties")
	ErrRelatedCourseMissing = NewDomainError("course", "Validate", ErrInvariantViolation, "recurrent course has no related initial course")
	ErrRelatedCourseMustNotBeSet = NewDomainError("course", "Validate", ErrValidation, "initial course must not reference a related course")
	ErrProgressRegression   = NewDomainError("course", "AdvanceProgress", ErrStateTransition, "course progress cannot regress")
	ErrClassSubjectNotFound = NewDomainError("course", "FindClassSubject", ErrNotFound, "class subject not found")
)

// Schedule domain errors
var (
	ErrScheduleNotFound = NewDomainError("schedule", "Find", ErrNotFound, "training schedule not found")
	ErrScheduleExists   = NewDomainError("schedule", "Create", ErrAlreadyExists, "class subject already owns a schedule")
)

// Grade domain errors
var (
	ErrGradeNotFound   = NewDomainError("grade", "Find", ErrNotFound, "grade not found")
	ErrScoreOutOfRange = NewDomainError("grade", "Validate", ErrValueOutOfRange, "component score must be within [0,10]")
)

// Certificate domain errors
var (
	ErrCertificateNotFound   = NewDomainError("certificate", "Find", ErrNotFound, "certificate not found")
	ErrTemplateNotFound      = NewDomainError("certificate", "ResolveTemplate", ErrNotFound, "no active certificate template for course level")
	ErrNoPriorCertificate    = NewDomainError("certificate", "Renew", ErrInvariantViolation, "no active certificate found for the related initial course")
	ErrCertificateRevoked    = NewDomainError("certificate", "CheckStatus", ErrInvalidState, "certificate is revoked")
	ErrCertificateDuplicate  = NewDomainError("certificate", "Issue", ErrAlreadyExists, "trainee already holds a certificate for this course")
	ErrDecisionAlreadyIssued = NewDomainError("certificate", "IssueDecision", ErrAlreadyExists, "decision already issued for this course")
)

// Request domain errors
var (
	ErrRequestNotFound  = NewDomainError("request", "Find", ErrNotFound, "request not found")
	ErrRequestNotPending = NewDomainError("request", "Resolve", ErrStateTransition, "request is not pending")
)
