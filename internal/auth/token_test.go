package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "memorial-service", 24*time.Hour)
	issuedAt := time.Date(2024, 4, 4, 8, 0, 0, 0, time.UTC)
	issuer.now = fixedClock(issuedAt)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AdminID)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "memorial-service", claims.Issuer)
	assert.True(t, claims.IssuedAt.Time.Equal(issuedAt))
	assert.True(t, claims.ExpiresAt.Time.Equal(issuedAt.Add(24*time.Hour)))
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuedAt := time.Date(2024, 4, 4, 8, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("secret", "memorial-service", 24*time.Hour)
	issuer.now = fixedClock(issuedAt)
	token, err := issuer.Issue(7)
	require.NoError(t, err)

	t.Run("Expired", func(t *testing.T) {
		later := NewTokenIssuer("secret", "memorial-service", 24*time.Hour)
		later.now = fixedClock(issuedAt.Add(24*time.Hour + time.Second))

		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("StillValidBeforeExpiry", func(t *testing.T) {
		later := NewTokenIssuer("secret", "memorial-service", 24*time.Hour)
		later.now = fixedClock(issuedAt.Add(23 * time.Hour))

		_, err := later.Parse(token)
		assert.NoError(t, err)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", "memorial-service", 24*time.Hour)
		other.now = issuer.now

		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewTokenIssuer("secret", "someone-else", 24*time.Hour)
		other.now = issuer.now

		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

		_, err := issuer.Parse(tampered)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("UnsignedAlgorithm", func(t *testing.T) {
		claims := Claims{
			AdminID: 7,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "7",
				Issuer:    "memorial-service",
				IssuedAt:  jwt.NewNumericDate(issuedAt),
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.Parse(unsigned)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("SubjectMismatch", func(t *testing.T) {
		claims := Claims{
			AdminID: 7,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "8",
				Issuer:    "memorial-service",
				IssuedAt:  jwt.NewNumericDate(issuedAt),
				ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = issuer.Parse(forged)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
