package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func studentClaims(exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "4021",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:    RoleStudent,
		Faculty: 7,
	}
}

func TestDecodeValidStudentToken(t *testing.T) {
	d := NewDecoder(testSecret)
	raw := signToken(t, studentClaims(time.Now().Add(time.Hour)))

	claims, err := d.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "4021", claims.Subject)
	assert.Equal(t, 7, claims.Faculty)
	assert.True(t, claims.IsStudent())
	assert.False(t, claims.IsAdmin())
}

func TestDecodeExpiredToken(t *testing.T) {
	d := NewDecoder(testSecret)
	raw := signToken(t, studentClaims(time.Now().Add(-time.Minute)))

	_, err := d.Decode(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDecodeRejectsWrongSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, studentClaims(time.Now().Add(time.Hour)))
	raw, err := tok.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)

	_, decodeErr := NewDecoder(testSecret).Decode(raw)
	assert.Error(t, decodeErr)
}

func TestDecodeStudentWithoutFaculty(t *testing.T) {
	claims := studentClaims(time.Now().Add(time.Hour))
	claims.Faculty = 0
	raw := signToken(t, claims)

	_, err := NewDecoder(testSecret).Decode(raw)
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestDecodeUnknownRole(t *testing.T) {
	claims := studentClaims(time.Now().Add(time.Hour))
	claims.Role = 9
	raw := signToken(t, claims)

	_, err := NewDecoder(testSecret).Decode(raw)
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestDecodeUnverifiedStillChecksExpiry(t *testing.T) {
	// A decoder without a secret accepts any signature but not stale tokens.
	d := NewDecoder("")
	raw := signToken(t, studentClaims(time.Now().Add(-time.Minute)))

	_, err := d.Decode(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)

	raw = signToken(t, studentClaims(time.Now().Add(time.Hour)))
	claims, err := d.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, claims.Role)
}

func TestDecodeAdminWithoutFaculty(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	raw := signToken(t, claims)

	got, err := NewDecoder(testSecret).Decode(raw)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())
}
