package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/KhamariThompson/100rebuild/internal/auth"
)

var validate = validator.New()

// Config encapsulates the runtime configuration for the progress service.
type Config struct {
	Port         string        `validate:"required,numeric"`
	GCPProjectID string        `validate:"required_if=DataStore firestore"`
	DataStore    DataStore     `validate:"oneof=memory firestore"`
	LogLevel     string        `validate:"omitempty,oneof=debug info warn warning error"`
	LoadTimeout  time.Duration `validate:"gt=0"`
	Timezone     string        `validate:"required"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Refresh      RefreshConfig
}

// DataStore enumerates supported persistence backends.
type DataStore string

const (
	// DataStoreMemory keeps challenges in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore reads challenges from Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     auth.Mode `validate:"oneof=noop clerk"`
	JWKSURL  string    `validate:"required_if=Mode clerk"`
	Audience string
	Issuer   string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	Database     string `validate:"required"`
	EmulatorHost string
}

// RefreshConfig schedules forced refreshes of active engines.
type RefreshConfig struct {
	Schedule string
	IdleTTL  time.Duration `validate:"gte=0"`
}

// Get returns the value of the requested environment variable or the supplied fallback when empty.
func Get(name string, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && value != "" {
		return value
	}
	return fallback
}

// Load reads environment variables into Config with validation.
func Load() (Config, error) {
	timeout, err := time.ParseDuration(Get("LOAD_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("LOAD_TIMEOUT: %w", err)
	}
	idleTTL, err := time.ParseDuration(Get("ENGINE_IDLE_TTL", "168h"))
	if err != nil {
		return Config{}, fmt.Errorf("ENGINE_IDLE_TTL: %w", err)
	}

	cfg := Config{
		Port:         Get("PORT", "8080"),
		GCPProjectID: Get("GCP_PROJECT_ID", ""),
		DataStore:    DataStore(strings.ToLower(Get("DATASTORE", string(DataStoreMemory)))),
		LogLevel:     strings.ToLower(Get("LOG_LEVEL", "info")),
		LoadTimeout:  timeout,
		Timezone:     Get("TIMEZONE", "UTC"),
		Auth: AuthConfig{
			Mode:     auth.Mode(strings.ToLower(Get("AUTH_MODE", string(auth.ModeNoop)))),
			JWKSURL:  Get("CLERK_JWKS_URL", ""),
			Audience: Get("CLERK_AUDIENCE", ""),
			Issuer:   Get("CLERK_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			Database:     Get("FIRESTORE_DATABASE", "(default)"),
			EmulatorHost: Get("FIRESTORE_EMULATOR_HOST", ""),
		},
		Refresh: RefreshConfig{
			Schedule: Get("REFRESH_SCHEDULE", "0 0 * * *"),
			IdleTTL:  idleTTL,
		},
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks struct tags and the settings tags cannot express.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("unsupported timezone %q: %w", cfg.Timezone, err)
	}

	if cfg.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Refresh.Schedule); err != nil {
			return fmt.Errorf("REFRESH_SCHEDULE: %w", err)
		}
	}

	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
