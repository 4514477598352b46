package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func TestAccessToken_RoundTrip(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := m.GenerateAccessToken("u-1", "lan@example.com", "admin")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "lan@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TypeAccess, claims.Type)
}

func TestRefreshToken_RoundTripAndUnique(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	a, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)
	b, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	claims, err := m.ValidateRefreshToken(a)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	access, err := m.GenerateAccessToken("u-1", "a@b.c", "customer")
	require.NoError(t, err)
	refresh, err := m.GenerateRefreshToken("u-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = m.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute, time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := m.GenerateAccessToken("u-1", "a@b.c", "customer")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	issuerSide := NewJWTManager(testSecret, time.Minute, time.Hour)
	other := NewJWTManager("another-secret-another-secret-123", time.Minute, time.Hour)

	token, err := issuerSide.GenerateAccessToken("u-1", "a@b.c", "customer")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateAccessToken_RejectsNoneAlg(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute, time.Hour)
	claims := &Claims{UserID: "u-1", Type: TypeAccess, RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidator_AdaptsClaims(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute, time.Hour)
	token, err := m.GenerateAccessToken("u-9", "x@y.z", "customer")
	require.NoError(t, err)

	c, err := m.Validator()(token)
	require.NoError(t, err)
	assert.Equal(t, "u-9", c.UserID)
	assert.Equal(t, "customer", c.Role)

	_, err = m.Validator()("garbage")
	assert.Error(t, err)
}
