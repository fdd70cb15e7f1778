package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Port           string
	JWTSecret      []byte
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	AuthLatency    time.Duration
	SessionIdleTTL time.Duration
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	SeedFile       string
	LogLevel       string
}

var ErrMissingSecret = errors.New("JWT_SECRET is required")

func Load() (Config, error) {
	cfg, err := LoadLocal()
	if err != nil {
		return Config{}, err
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, ErrMissingSecret
	}
	cfg.JWTSecret = []byte(secret)
	return cfg, nil
}

// LoadLocal reads everything except the signing secret, for commands that
// never issue tokens.
func LoadLocal() (Config, error) {
	aDur, err := getenvDuration("ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	rDur, err := getenvDuration("REFRESH_TTL", 168*time.Hour) // 7 days
	if err != nil {
		return Config{}, err
	}
	latency, err := getenvDuration("AUTH_LATENCY", time.Second)
	if err != nil {
		return Config{}, err
	}
	idle, err := getenvDuration("SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Port:           ":" + getenv("APP_PORT", "8080"),
		AccessTTL:      aDur,
		RefreshTTL:     rDur,
		AuthLatency:    latency,
		SessionIdleTTL: idle,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		SeedFile:       os.Getenv("DIRECTORY_SEED_FILE"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
	}, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("bad %s: %w", key, err)
	}
	return d, nil
}
