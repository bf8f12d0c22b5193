package config

import (
	"os"
	"strconv"
	"time"
)

// Config -> seluruh konfigurasi runtime dari environment, dengan default eksplisit
type Config struct {
	Port          string
	GinMode       string
	PublicBaseURL string

	DBDSN     string
	RedisAddr string
	AMQPURL   string

	VerifyCodeTTL     time.Duration
	VerifyMaxAttempts int
	VerifyCooldown    time.Duration

	SessionWindow time.Duration

	GeofenceEnabled        bool
	DefaultGeofenceRadiusM float64
}

// Load membaca konfigurasi dari environment (panggil godotenv.Load dulu di main).
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		DBDSN:     getEnv("DB_DSN", ""),
		RedisAddr: getEnv("REDIS_ADDR", ""),
		AMQPURL:   getEnv("AMQP_URL", ""),

		VerifyCodeTTL:     time.Duration(getEnvInt("VERIFY_CODE_TTL_SECONDS", 300)) * time.Second,
		VerifyMaxAttempts: getEnvInt("VERIFY_MAX_ATTEMPTS", 3),
		VerifyCooldown:    time.Duration(getEnvInt("VERIFY_COOLDOWN_SECONDS", 60)) * time.Second,

		SessionWindow: time.Duration(getEnvInt("SESSION_WINDOW_MINUTES", 240)) * time.Minute,

		GeofenceEnabled:        getEnvBool("GEOFENCE_ENABLED", false),
		DefaultGeofenceRadiusM: float64(getEnvInt("GEOFENCE_RADIUS_METERS", 200)),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
