// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"connectr/internal/domain/events"
)

const (
	defaultTokenSecret   = "your-secret-key"
	defaultEncryptionKey = "your-encryption-key"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Geo         GeoConfig
	Mood        MoodConfig
	Identity    IdentityConfig
	Encryption  EncryptionConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	MaxBodyBytes    int64
	CorsOrigins     []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// StorageConfig selects the storage backend
type StorageConfig struct {
	Driver string // postgres or memory
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration. An empty URL disables the event bus.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// GeoConfig holds location and proximity configuration
type GeoConfig struct {
	DefaultRadius float64
	MinRadius     float64
	MaxRadius     float64
	LocationTTL   time.Duration
	PruneSchedule string
}

// MoodConfig holds mood journal configuration
type MoodConfig struct {
	DefaultWindowDays int
	MaxWindowDays     int
	MaxNotesLength    int
	MaxActivities     int
	EventsTopic       string
}

// IdentityConfig holds identity service configuration
type IdentityConfig struct {
	TokenSecret            string
	TokenIssuer            string
	TokenExpiry            time.Duration
	ResetTokenExpiry       time.Duration
	DefaultLocationSharing string
	EventsTopic            string
}

// EncryptionConfig holds the at-rest encryption secret
type EncryptionConfig struct {
	Key  string
	Salt string
}

// Load loads configuration from environment variables, reading .env first when present
func Load() (Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			MaxBodyBytes:    int64(getEnvAsInt("SERVER_MAX_BODY_BYTES", 10*1024)),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"http://localhost:3000", "https://connectr.app"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvAsBool("LOG_PRETTY", false),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "connectr"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Geo: GeoConfig{
			DefaultRadius: getEnvAsFloat("GEO_DEFAULT_RADIUS", 5.0),
			MinRadius:     getEnvAsFloat("GEO_MIN_RADIUS", 1.0),
			MaxRadius:     getEnvAsFloat("GEO_MAX_RADIUS", 50.0),
			LocationTTL:   getEnvAsDuration("GEO_LOCATION_TTL", 24*time.Hour),
			PruneSchedule: getEnv("GEO_PRUNE_SCHEDULE", "@every 1h"),
		},
		Mood: MoodConfig{
			DefaultWindowDays: getEnvAsInt("MOOD_DEFAULT_WINDOW_DAYS", 7),
			MaxWindowDays:     getEnvAsInt("MOOD_MAX_WINDOW_DAYS", 365),
			MaxNotesLength:    getEnvAsInt("MOOD_MAX_NOTES_LENGTH", 2000),
			MaxActivities:     getEnvAsInt("MOOD_MAX_ACTIVITIES", 20),
			EventsTopic:       getEnv("MOOD_EVENTS_TOPIC", "mood"),
		},
		Identity: IdentityConfig{
			TokenSecret:            getEnv("JWT_SECRET", defaultTokenSecret),
			TokenIssuer:            getEnv("JWT_ISSUER", "connectr"),
			TokenExpiry:            getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
			ResetTokenExpiry:       getEnvAsDuration("PASSWORD_RESET_EXPIRY", 1*time.Hour),
			DefaultLocationSharing: getEnv("IDENTITY_DEFAULT_LOCATION_SHARING", "neighborhood"),
			EventsTopic:            getEnv("IDENTITY_EVENTS_TOPIC", "identity"),
		},
		Encryption: EncryptionConfig{
			Key:  getEnv("ENCRYPTION_KEY", defaultEncryptionKey),
			Salt: getEnv("ENCRYPTION_SALT", "connectr"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Environment != "development" {
		if config.Identity.TokenSecret == defaultTokenSecret {
			return fmt.Errorf("JWT_SECRET must be set in non-development environments")
		}
		if config.Encryption.Key == defaultEncryptionKey {
			return fmt.Errorf("ENCRYPTION_KEY must be set in non-development environments")
		}
	}

	switch config.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	geo := config.Geo
	if geo.MinRadius <= 0 || geo.MinRadius > geo.MaxRadius {
		return fmt.Errorf("geo radius bounds invalid: min %.2f max %.2f", geo.MinRadius, geo.MaxRadius)
	}
	if geo.DefaultRadius < geo.MinRadius || geo.DefaultRadius > geo.MaxRadius {
		return fmt.Errorf("geo default radius %.2f outside [%.2f, %.2f]", geo.DefaultRadius, geo.MinRadius, geo.MaxRadius)
	}

	if config.Mood.DefaultWindowDays <= 0 || config.Mood.DefaultWindowDays > config.Mood.MaxWindowDays {
		return fmt.Errorf("mood default window %d days outside [1, %d]", config.Mood.DefaultWindowDays, config.Mood.MaxWindowDays)
	}

	return validateTopics(config.Mood.EventsTopic, config.Identity.EventsTopic)
}

// validateTopics keeps identity subjects, which carry reset tokens, apart from the streamed topics
func validateTopics(moodTopic, identityTopic string) error {
	for name, topic := range map[string]string{"MOOD_EVENTS_TOPIC": moodTopic, "IDENTITY_EVENTS_TOPIC": identityTopic} {
		if topic == "" || strings.ContainsAny(topic, ".*> \t") {
			return fmt.Errorf("%s must be a single subject token, got %q", name, topic)
		}
	}

	if moodTopic == identityTopic {
		return fmt.Errorf("MOOD_EVENTS_TOPIC and IDENTITY_EVENTS_TOPIC must differ, both are %q", moodTopic)
	}
	if moodTopic == events.LocationTopic || identityTopic == events.LocationTopic {
		return fmt.Errorf("event topic %q is reserved for location events", events.LocationTopic)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
