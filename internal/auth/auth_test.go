package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc, err := NewTokenService("secret", "HS256", time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := svc.Issue(42, "specialist")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Decode(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.UserID)
	require.Equal(t, "specialist", claims.Role)
	require.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc, err := NewTokenService("secret", "HS256", time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }
	token, _, err := svc.Issue(7, "patient")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Decode(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenServiceRejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenService("other-secret", "HS256", time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.Issue(7, "patient")
	require.NoError(t, err)

	verifier, err := NewTokenService("secret", "HS256", time.Hour)
	require.NoError(t, err)

	_, err = verifier.Decode(token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = verifier.Decode("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = verifier.Decode("")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceRejectsUnexpectedAlgorithm(t *testing.T) {
	verifier, err := NewTokenService("secret", "HS256", time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Decode(signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceRequiresExpiry(t *testing.T) {
	verifier, err := NewTokenService("secret", "HS256", time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = verifier.Decode(signed)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenServiceValidatesInput(t *testing.T) {
	_, err := NewTokenService("", "HS256", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService("secret", "RS256", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService("secret", "none", time.Hour)
	require.Error(t, err)
}

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(4)

	digest, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", digest)

	require.True(t, hasher.Verify("correct horse", digest))
	require.False(t, hasher.Verify("battery staple", digest))
	require.False(t, hasher.Verify("correct horse", ""))

	again, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, digest, again, "salted digests should differ")
}
