package downloads

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := NewSigner("secret", time.Hour)
	s.WithNow(func() time.Time { return now })

	token, expires, err := s.Issue("0b6f2f64-6f35-4c55-a7a4-3f1b0b8f2a11")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	id, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "0b6f2f64-6f35-4c55-a7a4-3f1b0b8f2a11", id)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := NewSigner("secret", time.Minute)
	s.WithNow(func() time.Time { return now })
	token, _, err := s.Issue("abc")
	require.NoError(t, err)

	s.WithNow(func() time.Time { return now.Add(2 * time.Minute) })
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	token, _, err := NewSigner("other", time.Hour).Issue("abc")
	require.NoError(t, err)

	_, err = NewSigner("secret", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSigner("secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSigner("secret", time.Hour).Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMissingSecret(t *testing.T) {
	s := NewSigner("", 0)
	_, _, err := s.Issue("abc")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = s.Verify("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}
