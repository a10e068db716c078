package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/request"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

var reviewNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func pendingCourseRequest(t *testing.T, courseRepo *fakeCourseRepo, requestRepo *fakeRequestRepo) *request.Request {
	t.Helper()

	crs, err := course.NewCourse(course.NewCourseParams{
		ID:        shared.CourseID(uuid.NewString()),
		Code:      "AVI-2026-09",
		Name:      "Avionics Maintenance",
		Level:     shared.LevelInitial,
		Specialty: shared.Specialty("AV-MNT"),
		StartAt:   reviewNow.AddDate(0, 1, 0),
		EndAt:     reviewNow.AddDate(0, 4, 0),
	})
	require.NoError(t, err)
	courseRepo.courses[crs.ID] = crs

	req, err := request.NewRequest(
		shared.RequestID(uuid.NewString()),
		request.KindUpdate,
		request.TargetCourse,
		crs.ID.String(),
		json.RawMessage(`{"action":"approve"}`),
		shared.UserID(uuid.NewString()),
		reviewNow.Add(-time.Hour),
	)
	require.NoError(t, err)
	requestRepo.requests[req.ID] = req
	return req
}

func TestReviewRequest_ApproveCourseRequest(t *testing.T) {
	courseRepo := newFakeCourseRepo()
	requestRepo := newFakeRequestRepo()
	publisher := &capturingPublisher{}
	uow := &fakeUnitOfWork{}

	req := pendingCourseRequest(t, courseRepo, requestRepo)
	reviewer := uuid.NewString()

	h := NewReviewRequestHandler(uow, requestRepo, courseRepo, publisher, fixedClock{now: reviewNow})
	result, err := h.Handle(context.Background(), ReviewRequestCommand{
		RequestID:  req.ID.String(),
		Verdict:    VerdictApprove,
		ReviewedBy: reviewer,
	})
	require.NoError(t, err)

	assert.Equal(t, shared.RequestApproved, result.Request.Status)
	assert.Equal(t, shared.UserID(reviewer), result.Request.ResolvedBy)
	assert.Equal(t, reviewNow, result.Request.ResolvedAt)

	// Approving the request approves the course itself.
	crs := courseRepo.courses[shared.CourseID(req.TargetID)]
	assert.True(t, crs.IsApproved())
	assert.Equal(t, shared.UserID(reviewer), crs.ApprovedBy)

	events := publisher.ofType(shared.EventCourseApproved)
	require.Len(t, events, 1)
	assert.Equal(t, req.TargetID, events[0].AggregateID())
	assert.Equal(t, 1, uow.txCalls)
}

func TestReviewRequest_Reject(t *testing.T) {
	courseRepo := newFakeCourseRepo()
	requestRepo := newFakeRequestRepo()
	publisher := &capturingPublisher{}

	req := pendingCourseRequest(t, courseRepo, requestRepo)

	h := NewReviewRequestHandler(&fakeUnitOfWork{}, requestRepo, courseRepo, publisher, fixedClock{now: reviewNow})
	result, err := h.Handle(context.Background(), ReviewRequestCommand{
		RequestID:  req.ID.String(),
		Verdict:    VerdictReject,
		Note:       "start date collides with the summer recess",
		ReviewedBy: uuid.NewString(),
	})
	require.NoError(t, err)

	assert.Equal(t, shared.RequestRejected, result.Request.Status)
	assert.Equal(t, "start date collides with the summer recess", result.Request.ReviewNote)

	// The course stays pending and nothing is published.
	crs := courseRepo.courses[shared.CourseID(req.TargetID)]
	assert.False(t, crs.IsApproved())
	assert.Empty(t, publisher.events)
}

func TestReviewRequest_AlreadyResolved(t *testing.T) {
	courseRepo := newFakeCourseRepo()
	requestRepo := newFakeRequestRepo()

	req := pendingCourseRequest(t, courseRepo, requestRepo)
	require.NoError(t, req.Approve(shared.UserID(uuid.NewString()), reviewNow.Add(-time.Minute)))

	h := NewReviewRequestHandler(&fakeUnitOfWork{}, requestRepo, courseRepo, &capturingPublisher{}, fixedClock{now: reviewNow})
	_, err := h.Handle(context.Background(), ReviewRequestCommand{
		RequestID:  req.ID.String(),
		Verdict:    VerdictApprove,
		ReviewedBy: uuid.NewString(),
	})
	assert.ErrorIs(t, err, shared.ErrRequestNotPending)
}

func TestReviewRequest_NotFound(t *testing.T) {
	h := NewReviewRequestHandler(&fakeUnitOfWork{}, newFakeRequestRepo(), newFakeCourseRepo(), &capturingPublisher{}, fixedClock{now: reviewNow})
	_, err := h.Handle(context.Background(), ReviewRequestCommand{
		RequestID:  uuid.NewString(),
		Verdict:    VerdictApprove,
		ReviewedBy: uuid.NewString(),
	})
	assert.ErrorIs(t, err, shared.ErrRequestNotFound)
}

func TestReviewRequestCommand_Validate(t *testing.T) {
	valid := ReviewRequestCommand{
		RequestID:  uuid.NewString(),
		Verdict:    VerdictApprove,
		ReviewedBy: uuid.NewString(),
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Verdict = "maybe"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.RequestID = "nope"
	assert.Error(t, bad.Validate())
}
