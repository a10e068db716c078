package certificate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

func chainCert(code string, courseID shared.CourseID, issuedAt time.Time, validYears int, status Status) Certificate {
	return Certificate{
		ID:        shared.CertificateID(uuid.NewString()),
		Code:      code,
		CourseID:  courseID,
		Status:    status,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.AddDate(validYears, 0, 0),
	}
}

func TestResolveHistory_SingleCertificate(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	courseID := shared.CourseID(uuid.NewString())
	issued := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	cert := chainCert("CERT-1", courseID, issued, 3, StatusActive)

	lineage := ResolveHistory(trainee, []Certificate{cert}, nil, nil)
	require.False(t, lineage.Empty())
	require.Len(t, lineage.Entries, 1)
	assert.Equal(t, KindOriginal, lineage.Entries[0].Kind)
	assert.Equal(t, courseID, lineage.OriginalCourseID)

	current, ok := lineage.Current()
	require.True(t, ok)
	assert.Equal(t, cert.ID, current.CertificateID)
}

func TestResolveHistory_RecurrentCourseChangeIsRenewal(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	initialCourse := shared.CourseID(uuid.NewString())
	recurrentCourse := shared.CourseID(uuid.NewString())

	courses := map[shared.CourseID]CourseRef{
		initialCourse:   {ID: initialCourse, Level: shared.LevelInitial},
		recurrentCourse: {ID: recurrentCourse, Level: shared.LevelRecurrent, RelatedID: initialCourse},
	}

	first := chainCert("CERT-1", initialCourse, time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC), 3, StatusExpired)
	second := chainCert("CERT-1", recurrentCourse, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC), 2, StatusActive)

	lineage := ResolveHistory(trainee, []Certificate{second, first}, nil, courses)
	require.Len(t, lineage.Entries, 2)

	// Descending order: newest entry first.
	assert.Equal(t, KindRenewal, lineage.Entries[0].Kind)
	assert.True(t, lineage.Entries[0].Inferred)
	assert.Equal(t, KindOriginal, lineage.Entries[1].Kind)

	// The lineage is keyed by the initial course, not the recurrent one.
	assert.Equal(t, initialCourse, lineage.OriginalCourseID)
}

func TestResolveHistory_LongGapSameCourseIsRenewal(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	courseID := shared.CourseID(uuid.NewString())

	first := chainCert("CERT-1", courseID, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 3, StatusExpired)
	second := chainCert("CERT-1", courseID, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC), 3, StatusActive)

	lineage := ResolveHistory(trainee, []Certificate{first, second}, nil, nil)
	require.Len(t, lineage.Entries, 2)
	assert.Equal(t, KindRenewal, lineage.Entries[0].Kind)
	assert.True(t, lineage.Entries[0].Inferred)
}

func TestResolveHistory_ExpiryWindowIsRenewal(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	firstCourse := shared.CourseID(uuid.NewString())
	secondCourse := shared.CourseID(uuid.NewString())

	// Different non-recurrent courses, but the second issue lands within
	// the renewal window around the first expiry.
	first := chainCert("CERT-1", firstCourse, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 3, StatusExpired)
	second := chainCert("CERT-1", secondCourse, time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC), 3, StatusActive)

	lineage := ResolveHistory(trainee, []Certificate{first, second}, nil, nil)
	require.Len(t, lineage.Entries, 2)
	assert.Equal(t, KindRenewal, lineage.Entries[0].Kind)
}

func TestResolveHistory_UnrelatedIssueIsReissue(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	firstCourse := shared.CourseID(uuid.NewString())
	secondCourse := shared.CourseID(uuid.NewString())

	// Second issue comes long before the first expiry window opens.
	first := chainCert("CERT-1", firstCourse, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 3, StatusActive)
	second := chainCert("CERT-2", secondCourse, time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), 3, StatusActive)

	lineage := ResolveHistory(trainee, []Certificate{first, second}, nil, nil)
	require.Len(t, lineage.Entries, 2)
	assert.Equal(t, KindReissue, lineage.Entries[0].Kind)
}

func TestResolveHistory_LoggedRenewalsBecomeEntries(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	initialCourse := shared.CourseID(uuid.NewString())
	recurrentCourse := shared.CourseID(uuid.NewString())

	cert := chainCert("CERT-1", recurrentCourse, time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC), 3, StatusActive)

	renewal := RenewalEvent{
		ID:               uuid.NewString(),
		CertificateID:    cert.ID,
		CourseID:         recurrentCourse,
		PreviousCourseID: initialCourse,
		PreviousExpiry:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		NewExpiry:        time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC),
		RenewedAt:        time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}

	lineage := ResolveHistory(trainee, []Certificate{cert}, []RenewalEvent{renewal}, nil)
	require.Len(t, lineage.Entries, 2)

	// The logged renewal is the newest entry, under the same id and code.
	assert.Equal(t, KindRenewal, lineage.Entries[0].Kind)
	assert.False(t, lineage.Entries[0].Inferred)
	assert.Equal(t, cert.ID, lineage.Entries[0].CertificateID)
	assert.Equal(t, "CERT-1", lineage.Entries[0].Code)
	assert.Equal(t, renewal.NewExpiry, lineage.Entries[0].ExpiresAt)

	assert.Equal(t, KindOriginal, lineage.Entries[1].Kind)
}

func TestResolveHistory_RevokedExcluded(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	courseID := shared.CourseID(uuid.NewString())

	revoked := chainCert("CERT-1", courseID, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 3, StatusRevoked)
	active := chainCert("CERT-2", courseID, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 3, StatusActive)

	lineage := ResolveHistory(trainee, []Certificate{revoked, active}, nil, nil)
	require.Len(t, lineage.Entries, 1)
	assert.Equal(t, KindOriginal, lineage.Entries[0].Kind)
	assert.Equal(t, active.ID, lineage.Entries[0].CertificateID)
}

func TestResolveHistory_AllRevokedIsEmpty(t *testing.T) {
	trainee := shared.UserID(uuid.NewString())
	courseID := shared.CourseID(uuid.NewString())

	revoked := chainCert("CERT-1", courseID, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), 3, StatusRevoked)

	lineage := ResolveHistory(trainee, []Certificate{revoked}, nil, nil)
	assert.True(t, lineage.Empty())
	_, ok := lineage.Current()
	assert.False(t, ok)
}
