// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Course events
	EventCourseApproved        EventType = "course.approved"
	EventCourseRejected        EventType = "course.rejected"
	EventCourseProgressChanged EventType = "course.progress_changed"
	EventCourseCompleted       EventType = "course.completed"

	// Schedule events
	EventScheduleCreated  EventType = "schedule.created"
	EventScheduleUpdated  EventType = "schedule.updated"
	EventScheduleCanceled EventType = "schedule.canceled"

	// Grade events
	EventGradeRecorded EventType = "grade.recorded"

	// Certificate events
	EventCertificateIssued   EventType = "certificate.issued"
	EventCertificateRenewed  EventType = "certificate.renewed"
	EventCertificateExpiring EventType = "certificate.expiring"
	EventCertificateExpired  EventType = "certificate.expired"
	EventCertificateRevoked  EventType = "certificate.revoked"

	// Decision events
	EventDecisionIssued EventType = "decision.issued"

	// System events
	EventSweepCompleted EventType = "system.sweep_completed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events. Notification fan-out goes
// through this interface instead of process-wide listener lists.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus is a publisher that also accepts subscriptions.
type EventBus interface {
	EventPublisher
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseApprovedEvent is emitted when a course approval request is granted.
type CourseApprovedEvent struct {
	BaseEvent
	CourseID   string `json:"course_id"`
	ApprovedBy string `json:"approved_by"`
}

// Payload implements Event interface.
func (e CourseApprovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":   e.CourseID,
		"approved_by": e.ApprovedBy,
	}
}

// NewCourseApprovedEvent creates a CourseApprovedEvent.
func NewCourseApprovedEvent(courseID CourseID, approvedBy UserID) CourseApprovedEvent {
	return CourseApprovedEvent{
		BaseEvent:  NewBaseEvent(EventCourseApproved, courseID.String()),
		CourseID:   courseID.String(),
		ApprovedBy: approvedBy.String(),
	}
}

// CourseProgressChangedEvent is emitted when the progress state machine
// advances a course.
type CourseProgressChangedEvent struct {
	BaseEvent
	CourseID     string `json:"course_id"`
	FromProgress string `json:"from_progress"`
	ToProgress   string `json:"to_progress"`
}

// Payload implements Event interface.
func (e CourseProgressChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":     e.CourseID,
		"from_progress": e.FromProgress,
		"to_progress":   e.ToProgress,
	}
}

// NewCourseProgressChangedEvent creates a CourseProgressChangedEvent.
func NewCourseProgressChangedEvent(courseID CourseID, from, to string) CourseProgressChangedEvent {
	eventType := EventCourseProgressChanged
	if to == "completed" {
		eventType = EventCourseCompleted
	}
	return CourseProgressChangedEvent{
		BaseEvent:    NewBaseEvent(eventType, courseID.String()),
		CourseID:     courseID.String(),
		FromProgress: from,
		ToProgress:   to,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Schedule Events
// ═══════════════════════════════════════════════════════════════════════════

// ScheduleCreatedEvent is emitted when a schedule passes conflict
// validation and is persisted.
type ScheduleCreatedEvent struct {
	BaseEvent
	ScheduleID     string `json:"schedule_id"`
	ClassSubjectID string `json:"class_subject_id"`
	InstructorID   string `json:"instructor_id"`
	Location       string `json:"location"`
	Room           string `json:"room"`
	IsUpdate       bool   `json:"is_update"`
}

// Payload implements Event interface.
func (e ScheduleCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"schedule_id":      e.ScheduleID,
		"class_subject_id": e.ClassSubjectID,
		"instructor_id":    e.InstructorID,
		"location":         e.Location,
		"room":             e.Room,
		"is_update":        e.IsUpdate,
	}
}

// NewScheduleCreatedEvent creates a ScheduleCreatedEvent.
func NewScheduleCreatedEvent(scheduleID ScheduleID, classSubjectID ClassSubjectID, instructorID UserID, location, room string, isUpdate bool) ScheduleCreatedEvent {
	eventType := EventScheduleCreated
	if isUpdate {
		eventType = EventScheduleUpdated
	}
	return ScheduleCreatedEvent{
		BaseEvent:      NewBaseEvent(eventType, scheduleID.String()),
		ScheduleID:     scheduleID.String(),
		ClassSubjectID: classSubjectID.String(),
		InstructorID:   instructorID.String(),
		Location:       location,
		Room:           room,
		IsUpdate:       isUpdate,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grade Events
// ═══════════════════════════════════════════════════════════════════════════

// GradeRecordedEvent is emitted whenever a grade is recorded or updated.
// The certificate eligibility engine listens for it.
type GradeRecordedEvent struct {
	BaseEvent
	GradeID         string  `json:"grade_id"`
	TraineeAssignID string  `json:"trainee_assign_id"`
	TraineeID       string  `json:"trainee_id"`
	SubjectID       string  `json:"subject_id"`
	TotalScore      float64 `json:"total_score"`
	Status          string  `json:"status"`
}

// Payload implements Event interface.
func (e GradeRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"grade_id":          e.GradeID,
		"trainee_assign_id": e.TraineeAssignID,
		"trainee_id":        e.TraineeID,
		"subject_id":        e.SubjectID,
		"total_score":       e.TotalScore,
		"status":            e.Status,
	}
}

// NewGradeRecordedEvent creates a GradeRecordedEvent.
func NewGradeRecordedEvent(gradeID string, assignID TraineeAssignID, traineeID UserID, subjectID SubjectID, total float64, status string) GradeRecordedEvent {
	return GradeRecordedEvent{
		BaseEvent:       NewBaseEvent(EventGradeRecorded, gradeID),
		GradeID:         gradeID,
		TraineeAssignID: assignID.String(),
		TraineeID:       traineeID.String(),
		SubjectID:       subjectID.String(),
		TotalScore:      total,
		Status:          status,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateIssuedEvent is emitted when a fresh certificate row is created.
type CertificateIssuedEvent struct {
	BaseEvent
	CertificateID string `json:"certificate_id"`
	Code          string `json:"code"`
	TraineeID     string `json:"trainee_id"`
	CourseID      string `json:"course_id"`
	IssuedBy      string `json:"issued_by"`
}

// Payload implements Event interface.
func (e CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certificate_id": e.CertificateID,
		"code":           e.Code,
		"trainee_id":     e.TraineeID,
		"course_id":      e.CourseID,
		"issued_by":      e.IssuedBy,
	}
}

// NewCertificateIssuedEvent creates a CertificateIssuedEvent.
func NewCertificateIssuedEvent(certID CertificateID, code string, traineeID UserID, courseID CourseID, issuedBy UserID) CertificateIssuedEvent {
	return CertificateIssuedEvent{
		BaseEvent:     NewBaseEvent(EventCertificateIssued, certID.String()),
		CertificateID: certID.String(),
		Code:          code,
		TraineeID:     traineeID.String(),
		CourseID:      courseID.String(),
		IssuedBy:      issuedBy.String(),
	}
}

// CertificateRenewedEvent is emitted when an existing certificate is
// renewed in place by a recurrent course.
type CertificateRenewedEvent struct {
	BaseEvent
	CertificateID  string    `json:"certificate_id"`
	TraineeID      string    `json:"trainee_id"`
	CourseID       string    `json:"course_id"`
	PreviousExpiry time.Time `json:"previous_expiry"`
	NewExpiry      time.Time `json:"new_expiry"`
	IssuedBy       string    `json:"issued_by"`
}

// Payload implements Event interface.
func (e CertificateRenewedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certificate_id":  e.CertificateID,
		"trainee_id":      e.TraineeID,
		"course_id":       e.CourseID,
		"previous_expiry": e.PreviousExpiry,
		"new_expiry":      e.NewExpiry,
		"issued_by":       e.IssuedBy,
	}
}

// NewCertificateRenewedEvent creates a CertificateRenewedEvent.
func NewCertificateRenewedEvent(certID CertificateID, traineeID UserID, courseID CourseID, prevExpiry, newExpiry time.Time, issuedBy UserID) CertificateRenewedEvent {
	return CertificateRenewedEvent{
		BaseEvent:      NewBaseEvent(EventCertificateRenewed, certID.String()),
		CertificateID:  certID.String(),
		TraineeID:      traineeID.String(),
		CourseID:       courseID.String(),
		PreviousExpiry: prevExpiry,
		NewExpiry:      newExpiry,
		IssuedBy:       issuedBy.String(),
	}
}

// CertificateExpiringEvent is emitted by the expiry sweep for
// certificates entering the renewal window.
type CertificateExpiringEvent struct {
	BaseEvent
	CertificateID string    `json:"certificate_id"`
	TraineeID     string    `json:"trainee_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	DaysLeft      int       `json:"days_left"`
}

// Payload implements Event interface.
func (e CertificateExpiringEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certificate_id": e.CertificateID,
		"trainee_id":     e.TraineeID,
		"expires_at":     e.ExpiresAt,
		"days_left":      e.DaysLeft,
	}
}

// NewCertificateExpiringEvent creates a CertificateExpiringEvent.
func NewCertificateExpiringEvent(certID CertificateID, traineeID UserID, expiresAt time.Time, daysLeft int) CertificateExpiringEvent {
	return CertificateExpiringEvent{
		BaseEvent:     NewBaseEvent(EventCertificateExpiring, certID.String()),
		CertificateID: certID.String(),
		TraineeID:     traineeID.String(),
		ExpiresAt:     expiresAt,
		DaysLeft:      daysLeft,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Decision Events
// ═══════════════════════════════════════════════════════════════════════════

// DecisionIssuedEvent is emitted when an administrative sign-off
// decision document is produced for a qualifying course.
type DecisionIssuedEvent struct {
	BaseEvent
	DecisionID string `json:"decision_id"`
	CourseID   string `json:"course_id"`
	IssuedBy   string `json:"issued_by"`
}

// Payload implements Event interface.
func (e DecisionIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"decision_id": e.DecisionID,
		"course_id":   e.CourseID,
		"issued_by":   e.IssuedBy,
	}
}

// NewDecisionIssuedEvent creates a DecisionIssuedEvent.
func NewDecisionIssuedEvent(decisionID string, courseID CourseID, issuedBy UserID) DecisionIssuedEvent {
	return DecisionIssuedEvent{
		BaseEvent:  NewBaseEvent(EventDecisionIssued, decisionID),
		DecisionID: decisionID,
		CourseID:   courseID.String(),
		IssuedBy:   issuedBy.String(),
	}
}
