package command

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/course"
	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

func TestEnrollTrainee(t *testing.T) {
	repo := newFakeCourseRepo()
	courseID := shared.CourseID(uuid.NewString())
	csID := shared.ClassSubjectID(uuid.NewString())
	repo.classSubjects[csID] = &course.ClassSubject{ID: csID, CourseID: courseID}

	h := NewEnrollTraineeHandler(repo, fixedClock{now: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)})
	cmd := EnrollTraineeCommand{
		ClassSubjectID: string(csID),
		TraineeID:      uuid.NewString(),
	}

	result, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, result.TraineeAssignID.IsValid())

	assigns, err := repo.ListTraineeAssigns(context.Background(), courseID)
	require.NoError(t, err)
	require.Len(t, assigns, 1)
	assert.Equal(t, shared.RequestApproved, assigns[0].Status)

	// The same trainee cannot join the same class subject twice.
	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, course.ErrDuplicateTraineeAssign)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestEnrollTrainee_UnknownClassSubject(t *testing.T) {
	h := NewEnrollTraineeHandler(newFakeCourseRepo(), nil)

	_, err := h.Handle(context.Background(), EnrollTraineeCommand{
		ClassSubjectID: uuid.NewString(),
		TraineeID:      uuid.NewString(),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEnrollTraineeCommand_Validate(t *testing.T) {
	valid := EnrollTraineeCommand{
		ClassSubjectID: uuid.NewString(),
		TraineeID:      uuid.NewString(),
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.ClassSubjectID = "not-a-uuid"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.TraineeID = ""
	assert.Error(t, bad.Validate())
}
