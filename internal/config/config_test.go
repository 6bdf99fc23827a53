package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "REDIS_URL", "WALLET_EVENTS_CHANNEL",
		initialBalanceEnvVar, shutdownSecondsEnvVar, shutdownDurationEnvVar,
		idemTTLSecondsEnvVar, idemTTLDurEnvVar, "IDEMPOTENCY_REQUIRED", "MUTATION_RATE_LIMIT",
		writeSecondsEnvVar, writeDurationEnvVar, keepAliveSecondsEnvVar, keepAliveDurEnvVar,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, defaultAppName, cfg.AppName)
	assert.Equal(t, 5.0, cfg.InitialBalance)
	assert.Equal(t, "wallet:events", cfg.EventsChannel)
	assert.Equal(t, defaultShutdownDelay, cfg.ShutdownPeriod)
	assert.Equal(t, defaultIdempotencyTTL, cfg.IdempotencyTTL)
	assert.Equal(t, defaultMutationLimit, cfg.MutationRateLimit)
	assert.Equal(t, defaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, defaultEventsKeepAlive, cfg.EventsKeepAlive)
	assert.False(t, cfg.IdempotencyRequired)
	assert.Equal(t, ":8080", cfg.Address())
	assert.True(t, cfg.IsDev())
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv(initialBalanceEnvVar, "-2.5")
	t.Setenv(shutdownDurationEnvVar, "3s")
	t.Setenv(idemTTLSecondsEnvVar, "60")
	t.Setenv("IDEMPOTENCY_REQUIRED", "true")
	t.Setenv("MUTATION_RATE_LIMIT", "10")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, -2.5, cfg.InitialBalance)
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, time.Minute, cfg.IdempotencyTTL)
	assert.True(t, cfg.IdempotencyRequired)
	assert.Equal(t, 10, cfg.MutationRateLimit)
	assert.False(t, cfg.IsDev())
}

func TestFromEnvRequiresRedisOutsideDev(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	for key, value := range map[string]string{
		initialBalanceEnvVar:   "five",
		shutdownSecondsEnvVar:  "soon",
		idemTTLDurEnvVar:       "forever",
		"IDEMPOTENCY_REQUIRED": "maybe",
		"MUTATION_RATE_LIMIT":  "many",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestFromEnvKeepAliveMustBeatWriteTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv(writeDurationEnvVar, "10s")
	t.Setenv(keepAliveSecondsEnvVar, "10")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), keepAliveDurEnvVar)

	t.Setenv(writeDurationEnvVar, "0s")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	assert.Equal(t, 10*time.Second, cfg.EventsKeepAlive)
}
