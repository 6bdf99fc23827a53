package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/congo-pay/walletstate/internal/wallet"
)

const (
	defaultAppName         = "WalletState"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultEventsChannel   = "wallet:events"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultMutationLimit   = 60
	defaultWriteTimeout    = 30 * time.Second
	defaultEventsKeepAlive = 15 * time.Second
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	initialBalanceEnvVar   = "WALLET_INITIAL_BALANCE"
	writeSecondsEnvVar     = "HTTP_WRITE_TIMEOUT_SECONDS"
	writeDurationEnvVar    = "HTTP_WRITE_TIMEOUT"
	keepAliveSecondsEnvVar = "EVENTS_KEEPALIVE_SECONDS"
	keepAliveDurEnvVar     = "EVENTS_KEEPALIVE"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	RedisURL            string
	EventsChannel       string
	InitialBalance      float64
	ShutdownPeriod      time.Duration
	WriteTimeout        time.Duration
	EventsKeepAlive     time.Duration
	IdempotencyTTL      time.Duration
	IdempotencyRequired bool
	MutationRateLimit   int
}

// Load reads an optional .env file, then the environment, and populates a Config instance.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            getEnv("APP_ENV", defaultAppEnv),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		RedisURL:          os.Getenv("REDIS_URL"),
		EventsChannel:     getEnv("WALLET_EVENTS_CHANNEL", defaultEventsChannel),
		InitialBalance:    wallet.DefaultBalance,
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
		MutationRateLimit: defaultMutationLimit,
	}

	if v := os.Getenv(initialBalanceEnvVar); v != "" {
		balance, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", initialBalanceEnvVar, err)
		}
		cfg.InitialBalance = balance
	}

	period, err := durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownPeriod = period

	writeTimeout, err := durationFromEnv(writeSecondsEnvVar, writeDurationEnvVar, defaultWriteTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WriteTimeout = writeTimeout

	keepAlive, err := durationFromEnv(keepAliveSecondsEnvVar, keepAliveDurEnvVar, defaultEventsKeepAlive)
	if err != nil {
		return Config{}, err
	}
	if keepAlive <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", keepAliveDurEnvVar)
	}
	// The first keep-alive has to land before the server's own write deadline.
	if writeTimeout > 0 && keepAlive >= writeTimeout {
		return Config{}, fmt.Errorf("%s (%s) must be shorter than %s (%s)", keepAliveDurEnvVar, keepAlive, writeDurationEnvVar, writeTimeout)
	}
	cfg.EventsKeepAlive = keepAlive

	ttl, err := durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = ttl

	if v := os.Getenv("IDEMPOTENCY_REQUIRED"); v != "" {
		required, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_REQUIRED: %w", err)
		}
		cfg.IdempotencyRequired = required
	}

	if v := os.Getenv("MUTATION_RATE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MUTATION_RATE_LIMIT: %w", err)
		}
		cfg.MutationRateLimit = limit
	}

	if cfg.RedisURL == "" && !cfg.IsDev() {
		return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local/development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// durationFromEnv prefers a whole-seconds variable over a Go duration string.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
