package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	err    error
	asked  string
}

func (f *fakeSecrets) GetSecretMap(_ context.Context, name string) (map[string]string, error) {
	f.asked = name
	return f.values, f.err
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AWS_USE_SECRETS", "")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "marketplace", cfg.MongoDB)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "@daily", cfg.SellerStatsSchedule)
	assert.Equal(t, 8, cfg.UploadWorkers)
	assert.False(t, cfg.MongoTransactions)
	assert.False(t, cfg.Postgres.Enabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("REQUEST_TIMEOUT", "45")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("UPLOAD_WORKERS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com,")
	t.Setenv("POSTGRES_USER", "market")
	t.Setenv("POSTGRES_DB", "notifications")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.MongoTransactions)
	assert.Equal(t, 3, cfg.UploadWorkers)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Postgres.Enabled())
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("Missing JWT secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		_, err := LoadConfig()

		assert.EqualError(t, err, "JWT_SECRET is required")
	})

	t.Run("Bad worker count", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("UPLOAD_WORKERS", "0")

		_, err := LoadConfig()

		assert.Error(t, err)
	})

	t.Run("Bad bcrypt cost", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("BCRYPT_COST", "99")

		_, err := LoadConfig()

		assert.Error(t, err)
	})
}

func TestApplySecrets(t *testing.T) {
	t.Run("Overrides non-empty values", func(t *testing.T) {
		cfg := &Config{JWTSecret: "env-secret", MongoURI: "mongodb://env", StripeSecretKey: "sk_env"}
		source := &fakeSecrets{values: map[string]string{
			"JWT_SECRET":        "vault-secret",
			"POSTGRES_PASSWORD": "pw",
			"STRIPE_SECRET_KEY": "",
			"UNRELATED":         "x",
		}}

		require.NoError(t, applySecrets(context.Background(), cfg, source))

		assert.Equal(t, appSecretsName, source.asked)
		assert.Equal(t, "vault-secret", cfg.JWTSecret)
		assert.Equal(t, "pw", cfg.Postgres.Password)
		assert.Equal(t, "mongodb://env", cfg.MongoURI)
		assert.Equal(t, "sk_env", cfg.StripeSecretKey)
	})

	t.Run("Lookup failure leaves config untouched", func(t *testing.T) {
		cfg := &Config{JWTSecret: "env-secret"}
		err := applySecrets(context.Background(), cfg, &fakeSecrets{err: errors.New("access denied")})

		assert.Error(t, err)
		assert.Equal(t, "env-secret", cfg.JWTSecret)
	})
}

func TestGetDuration(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "not-a-duration")
	assert.Equal(t, time.Second, getDuration("SOME_TIMEOUT", time.Second))

	t.Setenv("SOME_TIMEOUT", "-5s")
	assert.Equal(t, time.Second, getDuration("SOME_TIMEOUT", time.Second))

	t.Setenv("SOME_TIMEOUT", "1500ms")
	assert.Equal(t, 1500*time.Millisecond, getDuration("SOME_TIMEOUT", time.Second))
}
