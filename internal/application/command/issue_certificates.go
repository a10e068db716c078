package command

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/semaphore"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/grade"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
	"github.com/vta-hub/vta-training-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATES COMMAND
// Determines which trainees of a course qualify for a certificate and
// issues or renews them as one batch. Rendering and uploading run in
// parallel under a bounded semaphore; all row mutations commit in a
// single transaction; per-trainee failures are itemized, never fatal
// to the batch. Sign-off notifications go out after commit.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificatesCommand contains the data to run a certificate batch.
type IssueCertificatesCommand struct {
	// CourseID is the course whose trainees are evaluated.
	CourseID string

	// IssuedBy is the instructor or approver issuing the batch.
	IssuedBy string

	// SignOffUserIDs are the users notified for signing after commit.
	SignOffUserIDs []string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IssueCertificatesCommand) Validate() error {
	if !shared.CourseID(c.CourseID).IsValid() {
		return errors.New("issue_certificates: course_id must be a UUID")
	}
	if !shared.UserID(c.IssuedBy).IsValid() {
		return errors.New("issue_certificates: issued_by must be a UUID")
	}
	return nil
}

// Skip reasons for trainees excluded from a batch.
const (
	SkipMixedSpecialties    = "assignments span more than one specialty"
	SkipSubjectsNotPassed   = "not all required subjects are passed"
	SkipAlreadyCertified    = "certificate for this course already exists"
	SkipNoPriorCertificate  = "no active certificate to renew"
	SkipRenderFailed        = "document rendering failed"
	SkipUploadFailed        = "document upload failed"
)

// SkippedTrainee describes one trainee excluded from the batch.
type SkippedTrainee struct {
	TraineeID shared.UserID
	Reason    string
	Err       error
}

// IssuedCertificate describes one certificate created or renewed.
type IssuedCertificate struct {
	CertificateID shared.CertificateID
	Code          string
	TraineeID     shared.UserID
	Renewed       bool
}

// IssueCertificatesResult contains the itemized outcome of a batch.
type IssueCertificatesResult struct {
	CourseID shared.CourseID

	// Issued lists certificates created or renewed in this batch.
	Issued []IssuedCertificate

	// Skipped lists trainees excluded with their reasons.
	Skipped []SkippedTrainee

	// TotalTrainees is the number of trainees evaluated.
	TotalTrainees int

	// CompletedAt is when the batch committed.
	CompletedAt time.Time
}

// IssuedCount returns the number of fresh certificates.
func (r *IssueCertificatesResult) IssuedCount() int {
	n := 0
	for _, ic := range r.Issued {
		if !ic.Renewed {
			n++
		}
	}
	return n
}

// RenewedCount returns the number of renewals.
func (r *IssueCertificatesResult) RenewedCount() int {
	return len(r.Issued) - r.IssuedCount()
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificatesConfig contains configuration for the handler.
type IssueCertificatesConfig struct {
	// Concurrency bounds parallel rendering/uploading and notification
	// dispatch.
	Concurrency int

	// ContainerTag is the document store container for artifacts.
	ContainerTag string

	// StrictRecurrentRenewal turns a missing prior active certificate
	// into a per-trainee failure instead of a warning skip.
	StrictRecurrentRenewal bool
}

// DefaultIssueCertificatesConfig returns default configuration.
func DefaultIssueCertificatesConfig() IssueCertificatesConfig {
	return IssueCertificatesConfig{
		Concurrency:  10,
		ContainerTag: "certificates",
	}
}

// IssueCertificatesHandler handles the IssueCertificatesCommand.
type IssueCertificatesHandler struct {
	uow        UnitOfWork
	courseRepo course.Repository
	gradeRepo  grade.Repository
	certRepo   certificate.Repository
	directory  UserDirectory
	renderer   TemplateRenderer
	documents  DocumentStore
	sink       NotificationSink
	publisher  shared.EventPublisher
	clock      Clock
	config     IssueCertificatesConfig
}

// NewIssueCertificatesHandler creates a new IssueCertificatesHandler.
func NewIssueCertificatesHandler(
	uow UnitOfWork,
	courseRepo course.Repository,
	gradeRepo grade.Repository,
	certRepo certificate.Repository,
	directory UserDirectory,
	renderer TemplateRenderer,
	documents DocumentStore,
	sink NotificationSink,
	publisher shared.EventPublisher,
	clock Clock,
	config IssueCertificatesConfig,
) *IssueCertificatesHandler {
	if config.Concurrency <= 0 {
		config = DefaultIssueCertificatesConfig()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &IssueCertificatesHandler{
		uow:        uow,
		courseRepo: courseRepo,
		gradeRepo:  gradeRepo,
		certRepo:   certRepo,
		directory:  directory,
		renderer:   renderer,
		documents:  documents,
		sink:       sink,
		publisher:  publisher,
		clock:      clock,
		config:     config,
	}
}

// candidate is a trainee who passed all eligibility checks.
type candidate struct {
	traineeID shared.UserID
	user      DirectoryUser
	specialty shared.Specialty
	avgScore  float64
}

// stagedIssue is a rendered and uploaded fresh certificate awaiting
// commit.
type stagedIssue struct {
	cand candidate
	cert *certificate.Certificate
}

// stagedRenewal is a renewal-in-place awaiting commit.
type stagedRenewal struct {
	cand  candidate
	cert  *certificate.Certificate
	event certificate.RenewalEvent
}

// Handle executes the certificate batch.
func (h *IssueCertificatesHandler) Handle(ctx context.Context, cmd IssueCertificatesCommand) (*IssueCertificatesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	courseID := shared.CourseID(cmd.CourseID)
	issuedBy := shared.UserID(cmd.IssuedBy)

	// ── Batch preconditions: fail fast before any row is touched ─────────────

	crs, err := h.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: course: %w", err)
	}
	if !crs.IsApproved() {
		return nil, shared.ErrCourseNotApproved
	}

	specialties, err := h.courseRepo.ListSubjectSpecialties(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: subject specialties: %w", err)
	}
	if len(specialties) == 0 {
		return nil, shared.ErrCourseNoSubjects
	}

	templates, err := h.certRepo.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: templates: %w", err)
	}
	tmpl, err := certificate.ResolveTemplate(templates, crs.Level)
	if err != nil {
		return nil, err
	}

	result := &IssueCertificatesResult{CourseID: courseID}

	candidates, err := h.collectCandidates(ctx, crs, specialties, result)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 && len(result.Skipped) == 0 {
		return nil, shared.NewDomainError("certificate", "IssueBatch", shared.ErrValidation,
			"course has no approved trainee assignments")
	}

	// ── Stage mutations: renewals in-place, fresh issues rendered in
	// parallel under the semaphore ───────────────────────────────────────────

	var issues []stagedIssue
	var renewals []stagedRenewal

	if crs.Level.RenewsInPlace() {
		renewals = h.stageRenewals(ctx, crs, candidates, issuedBy, now, result)
	} else {
		issues = h.stageFreshIssues(ctx, crs, candidates, tmpl, issuedBy, now, result)
	}

	// ── Single transaction for all row mutations ─────────────────────────────

	err = h.uow.WithinTx(ctx, func(ctx context.Context) error {
		for _, st := range issues {
			if err := h.certRepo.Create(ctx, st.cert); err != nil {
				result.Skipped = append(result.Skipped, SkippedTrainee{
					TraineeID: st.cand.traineeID, Reason: "persist failed", Err: err,
				})
				continue
			}
			result.Issued = append(result.Issued, IssuedCertificate{
				CertificateID: st.cert.ID, Code: st.cert.Code, TraineeID: st.cand.traineeID,
			})
		}
		for _, st := range renewals {
			if err := h.certRepo.Update(ctx, st.cert); err != nil {
				result.Skipped = append(result.Skipped, SkippedTrainee{
					TraineeID: st.cand.traineeID, Reason: "persist failed", Err: err,
				})
				continue
			}
			if err := h.certRepo.AppendRenewal(ctx, st.event); err != nil {
				return fmt.Errorf("issue_certificates: renewal log: %w", err)
			}
			result.Issued = append(result.Issued, IssuedCertificate{
				CertificateID: st.cert.ID, Code: st.cert.Code, TraineeID: st.cand.traineeID, Renewed: true,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.CompletedAt = h.clock.Now()
	result.TotalTrainees = len(result.Issued) + len(result.Skipped)

	// ── Post-commit side effects ─────────────────────────────────────────────

	for _, st := range issues {
		ev := shared.NewCertificateIssuedEvent(st.cert.ID, st.cert.Code, st.cand.traineeID, courseID, issuedBy)
		if cmd.CorrelationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(ev)
	}
	for _, st := range renewals {
		ev := shared.NewCertificateRenewedEvent(st.cert.ID, st.cand.traineeID, courseID, st.event.PreviousExpiry, st.event.NewExpiry, issuedBy)
		if cmd.CorrelationID != "" {
			ev.BaseEvent = ev.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.publisher.Publish(ev)
	}

	h.notifySignOff(ctx, cmd, result)

	return result, nil
}

// collectCandidates applies the eligibility checks to every trainee
// with approved assignments in the course. Ineligible trainees are
// itemized into result.Skipped.
func (h *IssueCertificatesHandler) collectCandidates(
	ctx context.Context,
	crs *course.Course,
	specialties []course.SubjectSpecialty,
	result *IssueCertificatesResult,
) ([]candidate, error) {
	assigns, err := h.courseRepo.ListTraineeAssigns(ctx, crs.ID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: trainee assigns: %w", err)
	}
	classSubjects, err := h.courseRepo.ListClassSubjects(ctx, crs.ID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: class subjects: %w", err)
	}
	grades, err := h.gradeRepo.ListByCourse(ctx, crs.ID)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: grades: %w", err)
	}

	subjectByClassSubject := make(map[shared.ClassSubjectID]*course.ClassSubject, len(classSubjects))
	for _, cs := range classSubjects {
		subjectByClassSubject[cs.ID] = cs
	}

	// Grades keyed by (trainee, subject). A rescored grade overwrites.
	type gradeKey struct {
		trainee shared.UserID
		subject shared.SubjectID
	}
	gradeBy := make(map[gradeKey]*grade.Grade, len(grades))
	for _, g := range grades {
		gradeBy[gradeKey{g.TraineeID, g.SubjectID}] = g
	}

	requiredBySpecialty := make(map[shared.Specialty][]shared.SubjectID)
	for _, ss := range specialties {
		requiredBySpecialty[ss.Specialty] = append(requiredBySpecialty[ss.Specialty], ss.SubjectID)
	}

	byTrainee := make(map[shared.UserID][]*course.TraineeAssign)
	order := make([]shared.UserID, 0)
	for _, a := range assigns {
		if _, seen := byTrainee[a.TraineeID]; !seen {
			order = append(order, a.TraineeID)
		}
		byTrainee[a.TraineeID] = append(byTrainee[a.TraineeID], a)
	}

	users, err := h.directory.ListByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("issue_certificates: user directory: %w", err)
	}

	var candidates []candidate
	for _, traineeID := range order {
		traineeAssigns := byTrainee[traineeID]

		// (a) All assignments must share one specialty.
		var specialty shared.Specialty
		mixed := false
		for _, a := range traineeAssigns {
			cs, ok := subjectByClassSubject[a.ClassSubjectID]
			if !ok {
				continue
			}
			if specialty.IsEmpty() {
				specialty = cs.Specialty
			} else if !specialty.Matches(cs.Specialty) {
				mixed = true
				break
			}
		}
		if mixed || specialty.IsEmpty() {
			result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: traineeID, Reason: SkipMixedSpecialties})
			continue
		}

		// (b) Every required subject of the specialty must be passed.
		required := requiredBySpecialty[specialty]
		passed := true
		var sum float64
		for _, subjectID := range required {
			g, ok := gradeBy[gradeKey{traineeID, subjectID}]
			if !ok || g.Status != grade.StatusPass {
				passed = false
				break
			}
			sum += g.TotalScore
		}
		if !passed || len(required) == 0 {
			result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: traineeID, Reason: SkipSubjectsNotPassed})
			continue
		}

		// (c) No certificate for this exact course yet.
		existing, err := h.certRepo.ListByTraineeAndCourses(ctx, traineeID, []shared.CourseID{crs.ID})
		if err != nil {
			return nil, fmt.Errorf("issue_certificates: existing certificates: %w", err)
		}
		if len(existing) > 0 {
			result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: traineeID, Reason: SkipAlreadyCertified})
			continue
		}

		candidates = append(candidates, candidate{
			traineeID: traineeID,
			user:      users[traineeID],
			specialty: specialty,
			avgScore:  sum / float64(len(required)),
		})
	}
	return candidates, nil
}

// stageRenewals locates each candidate's active certificate in the
// course lineage and applies the renewal-in-place mutation in memory.
func (h *IssueCertificatesHandler) stageRenewals(
	ctx context.Context,
	crs *course.Course,
	candidates []candidate,
	issuedBy shared.UserID,
	now time.Time,
	result *IssueCertificatesResult,
) []stagedRenewal {
	lineage := h.lineageCourseIDs(ctx, crs)

	var renewals []stagedRenewal
	for _, cand := range candidates {
		cert, err := h.certRepo.GetActiveByTraineeAndCourse(ctx, cand.traineeID, lineage)
		if err != nil {
			if errors.Is(err, shared.ErrCertificateNotFound) {
				skip := SkippedTrainee{TraineeID: cand.traineeID, Reason: SkipNoPriorCertificate}
				if h.config.StrictRecurrentRenewal {
					skip.Err = shared.ErrNoPriorCertificate
				}
				result.Skipped = append(result.Skipped, skip)
				continue
			}
			result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: cand.traineeID, Reason: "certificate lookup failed", Err: err})
			continue
		}

		event, err := cert.RenewInPlace(crs.ID, issuedBy, cand.specialty, now)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: cand.traineeID, Reason: "renewal rejected", Err: err})
			continue
		}
		event.ID = uuid.NewString()
		renewals = append(renewals, stagedRenewal{cand: cand, cert: cert, event: event})
	}
	return renewals
}

// stageFreshIssues renders and uploads one document per candidate in
// parallel, bounded by the configured semaphore, then builds the new
// certificate rows. Individual failures are itemized.
func (h *IssueCertificatesHandler) stageFreshIssues(
	ctx context.Context,
	crs *course.Course,
	candidates []candidate,
	tmpl certificate.Template,
	issuedBy shared.UserID,
	now time.Time,
	result *IssueCertificatesResult,
) []stagedIssue {
	sem := semaphore.NewWeighted(int64(h.config.Concurrency))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var issues []stagedIssue

	for _, cand := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: cand.traineeID, Reason: "canceled", Err: err})
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(cand candidate) {
			defer wg.Done()
			defer sem.Release(1)

			certID := shared.CertificateID(uuid.NewString())
			code := newCertificateCode(now)

			text, err := h.renderer.Render(tmpl.Content, map[string]string{
				"TraineeName":     cand.user.FullName,
				"CourseName":      crs.Name,
				"CourseCode":      crs.Code,
				"Specialty":       cand.specialty.String(),
				"CertificateCode": code,
				"GradeTier":       certificate.GradeTier(cand.avgScore),
				"IssueDate":       timeutil.FormatDateStr(now),
			})
			if err != nil {
				mu.Lock()
				result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: cand.traineeID, Reason: SkipRenderFailed, Err: err})
				mu.Unlock()
				return
			}

			content := []byte(text)
			url, err := h.documents.Upload(ctx, h.config.ContainerTag, code+".html", content, "text/html")
			if err != nil {
				mu.Lock()
				result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: cand.traineeID, Reason: SkipUploadFailed, Err: err})
				mu.Unlock()
				return
			}

			digest := sha3.Sum256(content)
			cert, err := certificate.NewCertificate(certificate.NewCertificateParams{
				ID:             certID,
				Code:           code,
				TraineeID:      cand.traineeID,
				CourseID:       crs.ID,
				TemplateID:     tmpl.ID,
				Specialty:      cand.specialty,
				IssuedBy:       issuedBy,
				IssuedAt:       now,
				ArtifactURL:    url,
				ArtifactDigest: hex.EncodeToString(digest[:]),
			})
			if err != nil {
				mu.Lock()
				result.Skipped = append(result.Skipped, SkippedTrainee{TraineeID: cand.traineeID, Reason: "certificate build failed", Err: err})
				mu.Unlock()
				return
			}

			mu.Lock()
			issues = append(issues, stagedIssue{cand: cand, cert: cert})
			mu.Unlock()
		}(cand)
	}

	// Join barrier: every render/upload completes or fails before the
	// batch transaction starts.
	wg.Wait()
	return issues
}

// lineageCourseIDs returns the course ids of the certification lineage
// the given recurrent course belongs to.
func (h *IssueCertificatesHandler) lineageCourseIDs(ctx context.Context, crs *course.Course) []shared.CourseID {
	original := crs.OriginalCourseID()
	ids := []shared.CourseID{original}
	if siblings, err := h.courseRepo.ListRecurrentOf(ctx, original); err == nil {
		for _, s := range siblings {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// notifySignOff dispatches sign-off notifications after commit,
// bounded by the configured semaphore. Failures never affect the
// committed batch.
func (h *IssueCertificatesHandler) notifySignOff(ctx context.Context, cmd IssueCertificatesCommand, result *IssueCertificatesResult) {
	if len(cmd.SignOffUserIDs) == 0 || len(result.Issued) == 0 {
		return
	}

	body := fmt.Sprintf("Course %s: %d certificate(s) issued, %d renewed, awaiting sign-off.",
		cmd.CourseID, result.IssuedCount(), result.RenewedCount())

	sem := semaphore.NewWeighted(int64(h.config.Concurrency))
	var wg sync.WaitGroup
	for _, raw := range cmd.SignOffUserIDs {
		userID := shared.UserID(raw)
		if !userID.IsValid() {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(userID shared.UserID) {
			defer wg.Done()
			defer sem.Release(1)
			_ = h.sink.Notify(ctx, userID, "Certificates awaiting sign-off", body, "certificate")
		}(userID)
	}
	wg.Wait()
}

// newCertificateCode generates a human-readable certificate code.
func newCertificateCode(now time.Time) string {
	return fmt.Sprintf("VTA-%d-%s", now.Year(), strings.ToUpper(uuid.NewString()[:8]))
}
