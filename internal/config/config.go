// Package config provides configuration management for the application
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/roomninja/roomninja/internal/models"
)

// Load reads an optional .env file into the process environment. Missing
// files are fine; real environments set variables directly.
func Load() {
	_ = godotenv.Load()
}

// CalendarConfig holds calendar-service and room-engine configuration
type CalendarConfig struct {
	// Default application credentials, used when an organization has none of
	// its own on record
	Credentials models.CalendarCredentials
	// WebhookURL is where the calendar service delivers push notifications
	WebhookURL string
	// IgnoreFree drops events marked "free" from status computations
	IgnoreFree bool
	// UseChangeNotification enables tracking rooms for push-driven cache
	// freshness
	UseChangeNotification bool
	// CacheTTL bounds how long upcoming-event fetches are memoized for
	// untracked rooms
	CacheTTL time.Duration
	// SignatureSecret signs start-meeting links handed to organizers
	SignatureSecret string
}

// RedisConfig holds Redis/Valkey configuration
type RedisConfig struct {
	Enabled bool
	// URI is prioritized if provided, otherwise individual connection
	// parameters are used
	URI       string
	Host      string
	Port      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// NLUConfig holds the natural-language-understanding service configuration
type NLUConfig struct {
	Endpoint string
	AppID    string
	Key      string
}

// Configured reports whether enough is present to query the NLU service
func (c NLUConfig) Configured() bool {
	return c.Endpoint != "" && c.AppID != "" && c.Key != ""
}

// GetNLUConfig loads NLU configuration from environment variables
func GetNLUConfig() NLUConfig {
	return NLUConfig{
		Endpoint: getEnv("NLU_ENDPOINT", ""),
		AppID:    getEnv("NLU_APP_ID", ""),
		Key:      getEnv("NLU_KEY", ""),
	}
}

// GetCalendarConfig loads calendar configuration from environment variables
func GetCalendarConfig() CalendarConfig {
	return CalendarConfig{
		Credentials: models.CalendarCredentials{
			TenantID:     getEnv("CALENDAR_TENANT_ID", ""),
			ClientID:     getEnv("CALENDAR_CLIENT_ID", ""),
			ClientSecret: getEnv("CALENDAR_CLIENT_SECRET", ""),
		},
		WebhookURL:            getEnv("CALENDAR_WEBHOOK_URL", ""),
		IgnoreFree:            getEnvBool("IGNORE_FREE_EVENTS", false),
		UseChangeNotification: getEnvBool("USE_CHANGE_NOTIFICATION", true),
		CacheTTL:              getEnvDuration("MEETING_CACHE_TTL", 30*time.Second),
		SignatureSecret:       getEnv("SIGNATURE_SECRET", ""),
	}
}

// GetRedisConfig loads Redis/Valkey configuration from environment variables
func GetRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:   getEnvBool("REDIS_ENABLED", false),
		URI:       getEnv("REDIS_URI", ""),
		Host:      getEnv("REDIS_HOST", "localhost"),
		Port:      getEnv("REDIS_PORT", "6379"),
		Username:  getEnv("REDIS_USERNAME", ""),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        db,
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "roomninja:"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration retrieves a duration environment variable ("30s", "5m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
