package certificate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

func newTestCertificate(t *testing.T, issuedAt time.Time) *Certificate {
	t.Helper()

	cert, err := NewCertificate(NewCertificateParams{
		ID:        shared.CertificateID(uuid.NewString()),
		Code:      "CERT-2026-0001",
		TraineeID: shared.UserID(uuid.NewString()),
		CourseID:  shared.CourseID(uuid.NewString()),
		Specialty: shared.Specialty("AV-MNT"),
		IssuedBy:  shared.UserID(uuid.NewString()),
		IssuedAt:  issuedAt,
	})
	require.NoError(t, err)
	return cert
}

func TestNewCertificate(t *testing.T) {
	issuedAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	cert := newTestCertificate(t, issuedAt)

	assert.Equal(t, StatusPending, cert.Status)
	assert.Equal(t, issuedAt.AddDate(InitialValidityYears, 0, 0), cert.ExpiresAt)
}

func TestNewCertificate_Invalid(t *testing.T) {
	_, err := NewCertificate(NewCertificateParams{
		ID:   shared.CertificateID("nope"),
		Code: "CERT-2026-0001",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = NewCertificate(NewCertificateParams{
		ID:   shared.CertificateID(uuid.NewString()),
		Code: "   ",
	})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestCertificate_ActivateAndExpire(t *testing.T) {
	issuedAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	cert := newTestCertificate(t, issuedAt)

	assert.False(t, cert.IsActive(issuedAt))
	require.NoError(t, cert.Activate())
	assert.True(t, cert.IsActive(issuedAt))
	assert.Error(t, cert.Activate())

	// Not yet expired.
	assert.False(t, cert.MarkExpired(cert.ExpiresAt.Add(-time.Hour)))
	assert.Equal(t, StatusActive, cert.Status)

	assert.True(t, cert.MarkExpired(cert.ExpiresAt))
	assert.Equal(t, StatusExpired, cert.Status)
	assert.False(t, cert.MarkExpired(cert.ExpiresAt))
}

func TestCertificate_ExpiresWithin(t *testing.T) {
	issuedAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	cert := newTestCertificate(t, issuedAt)
	require.NoError(t, cert.Activate())

	expiry := cert.ExpiresAt
	assert.True(t, cert.ExpiresWithin(expiry.AddDate(0, 0, -90), RenewalWindowDays))
	assert.False(t, cert.ExpiresWithin(expiry.AddDate(0, 0, -200), RenewalWindowDays))
	// Already past expiry.
	assert.False(t, cert.ExpiresWithin(expiry.Add(time.Hour), RenewalWindowDays))
}

func TestCertificate_RenewInPlace(t *testing.T) {
	issuedAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	cert := newTestCertificate(t, issuedAt)
	require.NoError(t, cert.Activate())

	origID := cert.ID
	origCode := cert.Code
	origCourse := cert.CourseID
	origExpiry := cert.ExpiresAt

	recurrentCourse := shared.CourseID(uuid.NewString())
	renewer := shared.UserID(uuid.NewString())
	renewedAt := time.Date(2029, 1, 10, 9, 0, 0, 0, time.UTC)

	event, err := cert.RenewInPlace(recurrentCourse, renewer, cert.Specialty, renewedAt)
	require.NoError(t, err)

	// Same row: identity survives the renewal.
	assert.Equal(t, origID, cert.ID)
	assert.Equal(t, origCode, cert.Code)

	// The new expiry counts from the renewal date, not the prior expiry.
	assert.Equal(t, renewedAt.AddDate(RenewalExtensionYears, 0, 0), cert.ExpiresAt)
	assert.Equal(t, recurrentCourse, cert.CourseID)
	assert.Equal(t, StatusPending, cert.Status)
	assert.Equal(t, renewedAt, cert.IssuedAt)

	assert.Equal(t, origID, event.CertificateID)
	assert.Equal(t, origCourse, event.PreviousCourseID)
	assert.Equal(t, origExpiry, event.PreviousExpiry)
	assert.Equal(t, cert.ExpiresAt, event.NewExpiry)
	assert.Equal(t, renewer, event.IssuedBy)
}

func TestCertificate_RenewInPlace_EarlyRenewalExpiry(t *testing.T) {
	// A holder renewing a month before expiration keeps exactly two
	// years from the renewal date, not two years plus the leftover.
	issuedAt := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	cert := newTestCertificate(t, issuedAt)
	require.NoError(t, cert.Activate())
	require.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), cert.ExpiresAt)

	renewedAt := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	event, err := cert.RenewInPlace(shared.CourseID(uuid.NewString()), shared.UserID(uuid.NewString()), cert.Specialty, renewedAt)
	require.NoError(t, err)

	want := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, cert.ExpiresAt)
	assert.Equal(t, want, event.NewExpiry)
}

func TestCertificate_Revoke(t *testing.T) {
	issuedAt := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	cert := newTestCertificate(t, issuedAt)
	require.NoError(t, cert.Activate())

	revoker := shared.UserID(uuid.NewString())
	now := issuedAt.AddDate(1, 0, 0)
	require.NoError(t, cert.Revoke(revoker, "forged attendance records", now))
	assert.Equal(t, StatusRevoked, cert.Status)
	assert.Equal(t, revoker, cert.RevokedBy)

	// Revocation is a dead end.
	assert.ErrorIs(t, cert.Revoke(revoker, "again", now), shared.ErrCertificateRevoked)
	_, err := cert.RenewInPlace(shared.CourseID(uuid.NewString()), revoker, cert.Specialty, now)
	assert.ErrorIs(t, err, shared.ErrCertificateRevoked)
}
