package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/grade"
	"github.com/vta-hub/vta-training-hub/internal/domain/request"
	"github.com/vta-hub/vta-training-hub/internal/domain/schedule"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

// In-memory fakes for the outbound ports and repositories. Transaction
// semantics are not simulated: WithinTx runs the callback directly.

type fakeUnitOfWork struct {
	txCalls int
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.txCalls++
	return fn(ctx)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(ev shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, ev := range p.events {
		if ev.EventType() == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeDirectory struct {
	users map[shared.UserID]DirectoryUser
}

func (d *fakeDirectory) GetByID(_ context.Context, id shared.UserID) (DirectoryUser, error) {
	u, ok := d.users[id]
	if !ok {
		return DirectoryUser{}, errors.New("user not found")
	}
	return u, nil
}

func (d *fakeDirectory) ListByIDs(_ context.Context, ids []shared.UserID) (map[shared.UserID]DirectoryUser, error) {
	out := make(map[shared.UserID]DirectoryUser, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// ── course.Repository ────────────────────────────────────────────────────────

type fakeCourseRepo struct {
	courses            map[shared.CourseID]*course.Course
	classSubjects      map[shared.ClassSubjectID]*course.ClassSubject
	subjectSpecialties map[shared.CourseID][]course.SubjectSpecialty
	traineeAssigns     map[shared.CourseID][]*course.TraineeAssign
	recurrentOf        map[shared.CourseID][]*course.Course
	assignments        map[shared.ClassSubjectID]shared.UserID
	updated            []*course.Course
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{
		courses:            make(map[shared.CourseID]*course.Course),
		classSubjects:      make(map[shared.ClassSubjectID]*course.ClassSubject),
		subjectSpecialties: make(map[shared.CourseID][]course.SubjectSpecialty),
		traineeAssigns:     make(map[shared.CourseID][]*course.TraineeAssign),
		recurrentOf:        make(map[shared.CourseID][]*course.Course),
		assignments:        make(map[shared.ClassSubjectID]shared.UserID),
	}
}

func (r *fakeCourseRepo) Create(_ context.Context, c *course.Course) error {
	r.courses[c.ID] = c
	return nil
}

func (r *fakeCourseRepo) GetByID(_ context.Context, id shared.CourseID) (*course.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, shared.ErrCourseNotFound
	}
	return c, nil
}

func (r *fakeCourseRepo) Update(_ context.Context, c *course.Course) error {
	r.courses[c.ID] = c
	r.updated = append(r.updated, c)
	return nil
}

func (r *fakeCourseRepo) ListSweepable(_ context.Context) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range r.courses {
		if c.IsApproved() && c.Progress != course.ProgressCompleted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCourseRepo) ListRecurrentOf(_ context.Context, originalID shared.CourseID) ([]*course.Course, error) {
	return r.recurrentOf[originalID], nil
}

func (r *fakeCourseRepo) CompletionEvidence(_ context.Context, courseID shared.CourseID) (course.CompletionEvidence, error) {
	return course.CompletionEvidence{CourseID: courseID}, nil
}

func (r *fakeCourseRepo) ListClasses(_ context.Context, _ shared.CourseID) ([]*course.Class, error) {
	return nil, nil
}

func (r *fakeCourseRepo) GetClassSubject(_ context.Context, id shared.ClassSubjectID) (*course.ClassSubject, error) {
	cs, ok := r.classSubjects[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cs, nil
}

func (r *fakeCourseRepo) ListClassSubjects(_ context.Context, courseID shared.CourseID) ([]*course.ClassSubject, error) {
	var out []*course.ClassSubject
	for _, cs := range r.classSubjects {
		if cs.CourseID == courseID {
			out = append(out, cs)
		}
	}
	return out, nil
}

func (r *fakeCourseRepo) ListSubjectSpecialties(_ context.Context, courseID shared.CourseID) ([]course.SubjectSpecialty, error) {
	return r.subjectSpecialties[courseID], nil
}

func (r *fakeCourseRepo) GetSubject(_ context.Context, id shared.SubjectID) (*course.Subject, error) {
	return &course.Subject{ID: id, PassingScore: 5.0}, nil
}

func (r *fakeCourseRepo) UpsertInstructorAssignment(_ context.Context, classSubjectID shared.ClassSubjectID, instructorID shared.UserID) error {
	r.assignments[classSubjectID] = instructorID
	return nil
}

func (r *fakeCourseRepo) CreateTraineeAssign(_ context.Context, ta *course.TraineeAssign) error {
	cs, ok := r.classSubjects[ta.ClassSubjectID]
	if !ok {
		return shared.ErrNotFound
	}
	for _, existing := range r.traineeAssigns[cs.CourseID] {
		if existing.ClassSubjectID == ta.ClassSubjectID && existing.TraineeID == ta.TraineeID {
			return course.ErrDuplicateTraineeAssign
		}
	}
	r.traineeAssigns[cs.CourseID] = append(r.traineeAssigns[cs.CourseID], ta)
	return nil
}

func (r *fakeCourseRepo) ListTraineeAssigns(_ context.Context, courseID shared.CourseID) ([]*course.TraineeAssign, error) {
	return r.traineeAssigns[courseID], nil
}

func (r *fakeCourseRepo) GetCourseByTraineeAssign(_ context.Context, assignID shared.TraineeAssignID) (*course.Course, error) {
	for courseID, assigns := range r.traineeAssigns {
		for _, a := range assigns {
			if a.ID == assignID {
				return r.GetByID(context.Background(), courseID)
			}
		}
	}
	return nil, shared.ErrCourseNotFound
}

// ── grade.Repository ─────────────────────────────────────────────────────────

type fakeGradeRepo struct {
	byCourse map[shared.CourseID][]*grade.Grade
}

func (r *fakeGradeRepo) Upsert(_ context.Context, _ *grade.Grade) error { return nil }

func (r *fakeGradeRepo) GetByAssignAndSubject(_ context.Context, _ shared.TraineeAssignID, _ shared.SubjectID) (*grade.Grade, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeGradeRepo) ListByCourse(_ context.Context, courseID shared.CourseID) ([]*grade.Grade, error) {
	return r.byCourse[courseID], nil
}

func (r *fakeGradeRepo) ListByTrainee(_ context.Context, courseID shared.CourseID, traineeID shared.UserID) ([]*grade.Grade, error) {
	var out []*grade.Grade
	for _, g := range r.byCourse[courseID] {
		if g.TraineeID == traineeID {
			out = append(out, g)
		}
	}
	return out, nil
}

// ── certificate.Repository ───────────────────────────────────────────────────

type fakeCertRepo struct {
	mu                sync.Mutex
	created           []*certificate.Certificate
	updated           []*certificate.Certificate
	renewals          []certificate.RenewalEvent
	templates         []certificate.Template
	activeByTrainee   map[shared.UserID]*certificate.Certificate
	existingByTrainee map[shared.UserID][]certificate.Certificate
	createErrFor      map[shared.UserID]error
}

func newFakeCertRepo(templates ...certificate.Template) *fakeCertRepo {
	return &fakeCertRepo{
		templates:         templates,
		activeByTrainee:   make(map[shared.UserID]*certificate.Certificate),
		existingByTrainee: make(map[shared.UserID][]certificate.Certificate),
		createErrFor:      make(map[shared.UserID]error),
	}
}

func (r *fakeCertRepo) Create(_ context.Context, cert *certificate.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.createErrFor[cert.TraineeID]; ok {
		return err
	}
	r.created = append(r.created, cert)
	return nil
}

func (r *fakeCertRepo) Update(_ context.Context, cert *certificate.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, cert)
	return nil
}

func (r *fakeCertRepo) GetByID(_ context.Context, _ shared.CertificateID) (*certificate.Certificate, error) {
	return nil, shared.ErrCertificateNotFound
}

func (r *fakeCertRepo) GetActiveByTraineeAndCourse(_ context.Context, traineeID shared.UserID, _ []shared.CourseID) (*certificate.Certificate, error) {
	cert, ok := r.activeByTrainee[traineeID]
	if !ok {
		return nil, shared.ErrCertificateNotFound
	}
	return cert, nil
}

func (r *fakeCertRepo) ListByTraineeAndCourses(_ context.Context, traineeID shared.UserID, _ []shared.CourseID) ([]certificate.Certificate, error) {
	return r.existingByTrainee[traineeID], nil
}

func (r *fakeCertRepo) ListActiveExpiringBefore(_ context.Context, _ time.Time, _ int) ([]certificate.Certificate, error) {
	return nil, nil
}

func (r *fakeCertRepo) MarkExpired(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func (r *fakeCertRepo) AppendRenewal(_ context.Context, event certificate.RenewalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renewals = append(r.renewals, event)
	return nil
}

func (r *fakeCertRepo) ListRenewals(_ context.Context, _ []shared.CertificateID) ([]certificate.RenewalEvent, error) {
	return r.renewals, nil
}

func (r *fakeCertRepo) ListTemplates(_ context.Context) ([]certificate.Template, error) {
	return r.templates, nil
}

func (r *fakeCertRepo) CreateDecision(_ context.Context, _ *certificate.Decision) error { return nil }

func (r *fakeCertRepo) GetDecisionByCourse(_ context.Context, _ shared.CourseID) (*certificate.Decision, error) {
	return nil, shared.ErrNotFound
}

// ── schedule.Repository ──────────────────────────────────────────────────────

type fakeScheduleRepo struct {
	byClassSubject map[shared.ClassSubjectID]*schedule.TrainingSchedule
	byRoom         map[string][]*schedule.TrainingSchedule
	byInstructor   map[shared.UserID][]*schedule.TrainingSchedule
	created        []*schedule.TrainingSchedule
	updated        []*schedule.TrainingSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		byClassSubject: make(map[shared.ClassSubjectID]*schedule.TrainingSchedule),
		byRoom:         make(map[string][]*schedule.TrainingSchedule),
		byInstructor:   make(map[shared.UserID][]*schedule.TrainingSchedule),
	}
}

func (r *fakeScheduleRepo) addNeighbor(s *schedule.TrainingSchedule) {
	r.byClassSubject[s.ClassSubjectID] = s
	key := s.Location + "/" + s.Room
	r.byRoom[key] = append(r.byRoom[key], s)
	r.byInstructor[s.InstructorID] = append(r.byInstructor[s.InstructorID], s)
}

func (r *fakeScheduleRepo) Create(_ context.Context, s *schedule.TrainingSchedule) error {
	r.created = append(r.created, s)
	return nil
}

func (r *fakeScheduleRepo) Update(_ context.Context, s *schedule.TrainingSchedule) error {
	r.updated = append(r.updated, s)
	return nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id shared.ScheduleID) (*schedule.TrainingSchedule, error) {
	for _, s := range r.byClassSubject {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrScheduleNotFound
}

func (r *fakeScheduleRepo) GetByClassSubject(_ context.Context, id shared.ClassSubjectID) (*schedule.TrainingSchedule, error) {
	s, ok := r.byClassSubject[id]
	if !ok {
		return nil, shared.ErrScheduleNotFound
	}
	return s, nil
}

func (r *fakeScheduleRepo) ListByRoom(_ context.Context, location, room string) ([]*schedule.TrainingSchedule, error) {
	return r.byRoom[location+"/"+room], nil
}

func (r *fakeScheduleRepo) ListByInstructor(_ context.Context, instructorID shared.UserID) ([]*schedule.TrainingSchedule, error) {
	return r.byInstructor[instructorID], nil
}

// ── request.Repository ───────────────────────────────────────────────────────

type fakeRequestRepo struct {
	requests map[shared.RequestID]*request.Request
	updated  []*request.Request
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[shared.RequestID]*request.Request)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *request.Request) error {
	r.requests[req.ID] = req
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id shared.RequestID) (*request.Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, shared.ErrRequestNotFound
	}
	return req, nil
}

func (r *fakeRequestRepo) Update(_ context.Context, req *request.Request) error {
	r.requests[req.ID] = req
	r.updated = append(r.updated, req)
	return nil
}

func (r *fakeRequestRepo) ListPending(_ context.Context, limit int) ([]request.Request, error) {
	var out []request.Request
	for _, req := range r.requests {
		if req.Status == shared.RequestPending {
			out = append(out, *req)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ── rendering, storage, notifications ────────────────────────────────────────

type fakeRenderer struct {
	err error
}

func (r *fakeRenderer) Render(templateText string, _ map[string]string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return templateText, nil
}

type fakeDocumentStore struct {
	mu        sync.Mutex
	uploadErr error
	uploads   []string
}

func (s *fakeDocumentStore) Upload(_ context.Context, containerTag, name string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	url := "https://archive.test/" + containerTag + "/" + name
	s.uploads = append(s.uploads, url)
	return url, nil
}

func (s *fakeDocumentStore) GetReadURL(_ context.Context, url string, _ time.Duration) (string, error) {
	return url + "?signed", nil
}

func (s *fakeDocumentStore) Delete(_ context.Context, _ string) error { return nil }

type sentNote struct {
	userID   shared.UserID
	title    string
	category string
}

type fakeSink struct {
	mu    sync.Mutex
	notes []sentNote
}

func (s *fakeSink) Notify(_ context.Context, userID shared.UserID, title, _ string, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, sentNote{userID: userID, title: title, category: category})
	return nil
}
