package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/certificate"
	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/grade"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

var batchNow = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

// batchFixture wires an approved course with two required subjects for
// the AV-MNT specialty and the fakes a certificate batch needs.
type batchFixture struct {
	uow        *fakeUnitOfWork
	courseRepo *fakeCourseRepo
	gradeRepo  *fakeGradeRepo
	certRepo   *fakeCertRepo
	directory  *fakeDirectory
	renderer   *fakeRenderer
	documents  *fakeDocumentStore
	sink       *fakeSink
	publisher  *capturingPublisher

	crs      *course.Course
	subject1 shared.SubjectID
	subject2 shared.SubjectID
	class1   shared.ClassSubjectID
	class2   shared.ClassSubjectID
	issuedBy shared.UserID
}

func newBatchFixture(t *testing.T, level shared.CourseLevel) *batchFixture {
	t.Helper()

	params := course.NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-07",
		Name:      "Avionics Maintenance",
		Level:     level,
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   batchNow.AddDate(0, -4, 0),
		EndAt:     batchNow.AddDate(0, 0, -1),
	}
	if level.RequiresRelatedCourse() {
		params.RelatedCourseID = shared.CourseID(uuid.NewString())
	}
	crs, err := course.NewCourse(params)
	require.NoError(t, err)
	require.NoError(t, crs.Approve(shared.UserID(uuid.NewString())))

	f := &batchFixture{
		uow:        &fakeUnitOfWork{},
		courseRepo: newFakeCourseRepo(),
		gradeRepo:  &fakeGradeRepo{byCourse: make(map[shared.CourseID][]*grade.Grade)},
		certRepo: newFakeCertRepo(certificate.Template{
			ID: "tpl-initial", Name: "Initial Certificate", Sequence: 1, Active: true,
			Content: "This certifies {TraineeName}.",
		}),
		directory: &fakeDirectory{users: make(map[shared.UserID]DirectoryUser)},
		renderer:  &fakeRenderer{},
		documents: &fakeDocumentStore{},
		sink:      &fakeSink{},
		publisher: &capturingPublisher{},
		crs:       crs,
		subject1:  shared.SubjectID(uuid.NewString()),
		subject2:  shared.SubjectID(uuid.NewString()),
		class1:    shared.ClassSubjectID(uuid.NewString()),
		class2:    shared.ClassSubjectID(uuid.NewString()),
		issuedBy:  shared.UserID(uuid.NewString()),
	}

	f.courseRepo.courses[crs.ID] = crs
	f.courseRepo.subjectSpecialties[crs.ID] = []course.SubjectSpecialty{
		{SubjectID: f.subject1, Specialty: shared.Specialty("AV-MNT")},
		{SubjectID: f.subject2, Specialty: shared.Specialty("AV-MNT")},
	}
	f.courseRepo.classSubjects[f.class1] = &course.ClassSubject{
		ID: f.class1, CourseID: crs.ID, SubjectID: f.subject1, Specialty: shared.Specialty("AV-MNT"),
	}
	f.courseRepo.classSubjects[f.class2] = &course.ClassSubject{
		ID: f.class2, CourseID: crs.ID, SubjectID: f.subject2, Specialty: shared.Specialty("AV-MNT"),
	}
	return f
}

// addTrainee assigns a trainee to both class subjects and records the
// given grade status per subject.
func (f *batchFixture) addTrainee(name string, status1, status2 grade.GradeStatus) shared.UserID {
	traineeID := shared.UserID(uuid.NewString())
	f.directory.users[traineeID] = DirectoryUser{ID: traineeID, FullName: name, Active: true}

	f.courseRepo.traineeAssigns[f.crs.ID] = append(f.courseRepo.traineeAssigns[f.crs.ID],
		&course.TraineeAssign{ID: shared.TraineeAssignID(uuid.NewString()), ClassSubjectID: f.class1, TraineeID: traineeID},
		&course.TraineeAssign{ID: shared.TraineeAssignID(uuid.NewString()), ClassSubjectID: f.class2, TraineeID: traineeID},
	)
	f.gradeRepo.byCourse[f.crs.ID] = append(f.gradeRepo.byCourse[f.crs.ID],
		&grade.Grade{ID: uuid.NewString(), TraineeID: traineeID, SubjectID: f.subject1, Status: status1, TotalScore: 8.0},
		&grade.Grade{ID: uuid.NewString(), TraineeID: traineeID, SubjectID: f.subject2, Status: status2, TotalScore: 9.0},
	)
	return traineeID
}

func (f *batchFixture) handler(cfg IssueCertificatesConfig) *IssueCertificatesHandler {
	return NewIssueCertificatesHandler(
		f.uow, f.courseRepo, f.gradeRepo, f.certRepo, f.directory,
		f.renderer, f.documents, f.sink, f.publisher,
		fixedClock{now: batchNow}, cfg,
	)
}

func findSkip(t *testing.T, skipped []SkippedTrainee, traineeID shared.UserID) SkippedTrainee {
	t.Helper()
	for _, s := range skipped {
		if s.TraineeID == traineeID {
			return s
		}
	}
	t.Fatalf("trainee %s not in skipped list", traineeID)
	return SkippedTrainee{}
}

func TestIssueCertificates_FreshBatch(t *testing.T) {
	f := newBatchFixture(t, shared.LevelInitial)

	qualified := f.addTrainee("Aidana Bekova", grade.StatusPass, grade.StatusPass)
	failed := f.addTrainee("Daniyar Serikov", grade.StatusPass, grade.StatusFail)
	certified := f.addTrainee("Madina Aitova", grade.StatusPass, grade.StatusPass)
	f.certRepo.existingByTrainee[certified] = []certificate.Certificate{{Code: "VTA-2025-OLD"}}

	signOff := uuid.NewString()
	h := f.handler(DefaultIssueCertificatesConfig())
	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID:       f.crs.ID.String(),
		IssuedBy:       f.issuedBy.String(),
		SignOffUserIDs: []string{signOff},
	})
	require.NoError(t, err)

	require.Len(t, result.Issued, 1)
	assert.Equal(t, qualified, result.Issued[0].TraineeID)
	assert.False(t, result.Issued[0].Renewed)
	assert.Equal(t, 3, result.TotalTrainees)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, SkipSubjectsNotPassed, findSkip(t, result.Skipped, failed).Reason)
	assert.Equal(t, SkipAlreadyCertified, findSkip(t, result.Skipped, certified).Reason)

	// All row mutations ran in one transaction.
	assert.Equal(t, 1, f.uow.txCalls)

	require.Len(t, f.certRepo.created, 1)
	cert := f.certRepo.created[0]
	assert.Equal(t, f.crs.ID, cert.CourseID)
	assert.Equal(t, certificate.StatusPending, cert.Status)
	assert.Equal(t, batchNow.AddDate(certificate.InitialValidityYears, 0, 0), cert.ExpiresAt)
	assert.True(t, strings.HasPrefix(cert.ArtifactURL, "https://archive.test/certificates/"))
	assert.NotEmpty(t, cert.ArtifactDigest)

	assert.Len(t, f.publisher.ofType(shared.EventCertificateIssued), 1)

	require.Len(t, f.sink.notes, 1)
	assert.Equal(t, shared.UserID(signOff), f.sink.notes[0].userID)
	assert.Equal(t, "certificate", f.sink.notes[0].category)
}

func TestIssueCertificates_MixedSpecialtiesSkipped(t *testing.T) {
	f := newBatchFixture(t, shared.LevelInitial)

	otherClass := shared.ClassSubjectID(uuid.NewString())
	f.courseRepo.classSubjects[otherClass] = &course.ClassSubject{
		ID: otherClass, CourseID: f.crs.ID,
		SubjectID: shared.SubjectID(uuid.NewString()), Specialty: shared.Specialty("EL-SYS"),
	}

	mixed := f.addTrainee("Arman Toleubaev", grade.StatusPass, grade.StatusPass)
	f.courseRepo.traineeAssigns[f.crs.ID] = append(f.courseRepo.traineeAssigns[f.crs.ID],
		&course.TraineeAssign{ID: shared.TraineeAssignID(uuid.NewString()), ClassSubjectID: otherClass, TraineeID: mixed})

	h := f.handler(DefaultIssueCertificatesConfig())
	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: f.crs.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Issued)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, SkipMixedSpecialties, result.Skipped[0].Reason)
}

func TestIssueCertificates_RenderFailureItemized(t *testing.T) {
	f := newBatchFixture(t, shared.LevelInitial)
	trainee := f.addTrainee("Aidana Bekova", grade.StatusPass, grade.StatusPass)
	f.renderer.err = errors.New("template engine down")

	h := f.handler(DefaultIssueCertificatesConfig())
	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: f.crs.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Issued)
	skip := findSkip(t, result.Skipped, trainee)
	assert.Equal(t, SkipRenderFailed, skip.Reason)
	assert.Error(t, skip.Err)
	assert.Empty(t, f.certRepo.created)
	assert.Empty(t, f.publisher.events)
}

func TestIssueCertificates_UploadFailureItemized(t *testing.T) {
	f := newBatchFixture(t, shared.LevelInitial)
	trainee := f.addTrainee("Aidana Bekova", grade.StatusPass, grade.StatusPass)
	f.documents.uploadErr = errors.New("archive unavailable")

	h := f.handler(DefaultIssueCertificatesConfig())
	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: f.crs.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	require.NoError(t, err)

	assert.Empty(t, result.Issued)
	assert.Equal(t, SkipUploadFailed, findSkip(t, result.Skipped, trainee).Reason)
	assert.Empty(t, f.certRepo.created)
}

func TestIssueCertificates_PersistFailureSkipsTrainee(t *testing.T) {
	f := newBatchFixture(t, shared.LevelInitial)
	first := f.addTrainee("Aidana Bekova", grade.StatusPass, grade.StatusPass)
	second := f.addTrainee("Daniyar Serikov", grade.StatusPass, grade.StatusPass)
	f.certRepo.createErrFor[first] = errors.New("unique violation")

	h := f.handler(DefaultIssueCertificatesConfig())
	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: f.crs.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	require.NoError(t, err)

	// One row failed to persist, the other still committed.
	require.Len(t, result.Issued, 1)
	assert.Equal(t, second, result.Issued[0].TraineeID)
	assert.Equal(t, "persist failed", findSkip(t, result.Skipped, first).Reason)
}

func TestIssueCertificates_RecurrentRenewsInPlace(t *testing.T) {
	f := newBatchFixture(t, shared.LevelRecurrent)
	withCert := f.addTrainee("Aidana Bekova", grade.StatusPass, grade.StatusPass)
	withoutCert := f.addTrainee("Daniyar Serikov", grade.StatusPass, grade.StatusPass)

	prior, err := certificate.NewCertificate(certificate.NewCertificateParams{
		ID:        shared.CertificateID(uuid.NewString()),
		Code:      "VTA-2023-AAAA1111",
		TraineeID: withCert,
		CourseID:  f.crs.RelatedCourseID,
		Specialty: shared.Specialty("AV-MNT"),
		IssuedBy:  shared.UserID(uuid.NewString()),
		IssuedAt:  batchNow.AddDate(-3, 1, 0),
	})
	require.NoError(t, err)
	require.NoError(t, prior.Activate())
	priorExpiry := prior.ExpiresAt
	f.certRepo.activeByTrainee[withCert] = prior

	h := f.handler(DefaultIssueCertificatesConfig())
	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: f.crs.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	require.NoError(t, err)

	require.Len(t, result.Issued, 1)
	assert.True(t, result.Issued[0].Renewed)
	assert.Equal(t, "VTA-2023-AAAA1111", result.Issued[0].Code)
	assert.Equal(t, 1, result.RenewedCount())
	assert.Equal(t, 0, result.IssuedCount())

	// Renewal mutates the existing row instead of creating one.
	assert.Empty(t, f.certRepo.created)
	require.Len(t, f.certRepo.updated, 1)
	assert.Equal(t, batchNow.AddDate(certificate.RenewalExtensionYears, 0, 0), f.certRepo.updated[0].ExpiresAt)
	assert.Equal(t, f.crs.ID, f.certRepo.updated[0].CourseID)
	require.Len(t, f.certRepo.renewals, 1)
	assert.NotEmpty(t, f.certRepo.renewals[0].ID)
	assert.Equal(t, priorExpiry, f.certRepo.renewals[0].PreviousExpiry)

	skip := findSkip(t, result.Skipped, withoutCert)
	assert.Equal(t, SkipNoPriorCertificate, skip.Reason)
	assert.NoError(t, skip.Err)

	assert.Len(t, f.publisher.ofType(shared.EventCertificateRenewed), 1)
}

func TestIssueCertificates_StrictRecurrentRenewal(t *testing.T) {
	f := newBatchFixture(t, shared.LevelRecurrent)
	trainee := f.addTrainee("Daniyar Serikov", grade.StatusPass, grade.StatusPass)

	cfg := DefaultIssueCertificatesConfig()
	cfg.StrictRecurrentRenewal = true
	h := f.handler(cfg)

	result, err := h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: f.crs.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	require.NoError(t, err)

	skip := findSkip(t, result.Skipped, trainee)
	assert.Equal(t, SkipNoPriorCertificate, skip.Reason)
	assert.ErrorIs(t, skip.Err, shared.ErrNoPriorCertificate)
}

func TestIssueCertificates_UnapprovedCourseRejected(t *testing.T) {
	f := newBatchFixture(t, shared.LevelInitial)
	f.addTrainee("Aidana Bekova", grade.StatusPass, grade.StatusPass)

	pending, err := course.NewCourse(course.NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-08",
		Name:      "Avionics Maintenance",
		Level:     shared.LevelInitial,
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   batchNow,
		EndAt:     batchNow.AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	f.courseRepo.courses[pending.ID] = pending
	f.courseRepo.subjectSpecialties[pending.ID] = f.courseRepo.subjectSpecialties[f.crs.ID]

	h := f.handler(DefaultIssueCertificatesConfig())
	_, err = h.Handle(context.Background(), IssueCertificatesCommand{
		CourseID: pending.ID.String(),
		IssuedBy: f.issuedBy.String(),
	})
	assert.ErrorIs(t, err, shared.ErrCourseNotApproved)
}

func TestIssueCertificatesCommand_Validate(t *testing.T) {
	cmd := IssueCertificatesCommand{CourseID: "nope", IssuedBy: uuid.NewString()}
	assert.Error(t, cmd.Validate())

	cmd = IssueCertificatesCommand{CourseID: uuid.NewString(), IssuedBy: ""}
	assert.Error(t, cmd.Validate())

	cmd = IssueCertificatesCommand{CourseID: uuid.NewString(), IssuedBy: uuid.NewString()}
	assert.NoError(t, cmd.Validate())
}
