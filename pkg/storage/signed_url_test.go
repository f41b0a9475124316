package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "SCH-1001/result_sheet.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "SCH-1001/result_sheet.pdf", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLExpiry(t *testing.T) {
	signer := NewSignedURLSigner("secret", 10*time.Millisecond)

	token, _, err := signer.Generate("job-1", "SCH-1001/attendance.csv")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "SCH-1001/attendance.csv", path)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)

	token, _, err := signer.Generate("job-1", "SCH-1001/id_card.pdf")
	require.NoError(t, err)

	body, sig, _ := strings.Cut(token, ".")
	otherBody, _, err := signer.Generate("job-2", "SCH-9999/id_card.pdf")
	require.NoError(t, err)
	forgedBody, _, _ := strings.Cut(otherBody, ".")

	_, _, _, err = signer.Parse(forgedBody+"."+sig, false)
	require.ErrorIs(t, err, ErrBadToken)

	_, _, _, err = signer.Parse(body, false)
	require.ErrorIs(t, err, ErrBadToken)

	other := NewSignedURLSigner("another-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrBadToken)
}
