package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	secret := []byte("test-secret")

	token, err := Issue(secret, "user-1", "organizer", time.Hour)
	require.NoError(t, err)

	claims, err := Verify(secret, token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "organizer", claims.Role)
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := Issue([]byte("secret-a"), "user-1", "attendee", time.Hour)
	require.NoError(t, err)

	_, err = Verify([]byte("secret-b"), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := Issue(secret, "user-1", "attendee", -time.Minute)
	require.NoError(t, err)

	_, err = Verify(secret, token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := Verify([]byte("test-secret"), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
