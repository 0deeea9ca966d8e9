package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	in := Principal{UserID: "64b7f0c2a1b2c3d4e5f60718", Email: "a@b.com", Role: "seller"}
	token, exp, err := svc.Generate(in)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	out, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.False(t, out.IsAdmin())
	assert.True(t, out.HasRole("admin", "seller"))
}

func TestTokenService_Expired(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.Generate(Principal{UserID: "u1", Role: "user"})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.Error(t, err)
}

func TestTokenService_WrongSecret(t *testing.T) {
	a, _ := NewTokenService("secret-a", time.Hour)
	b, _ := NewTokenService("secret-b", time.Hour)

	token, _, _ := a.Generate(Principal{UserID: "u1", Role: "user"})
	_, err := b.Validate(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsRefreshType(t *testing.T) {
	svc, _ := NewTokenService("test-secret", time.Hour)
	claims := jwt.MapClaims{"sub": "u1", "typ": "refresh", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Validate(token)
	assert.EqualError(t, err, "invalid token type")
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.Error(t, err)
}
