package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate.
type Config struct {
	AdminUser     string
	AdminPassword string

	DatabaseURL string

	// UploadDir is where raw MapTrack CSV uploads are kept. Stored
	// files are the source of truth for re-parsing event listings.
	UploadDir string

	// RetentionDays is how long parsed sessions (and their uploaded
	// files) are kept before the retention worker removes them.
	// Zero disables expiry.
	RetentionDays int

	ListenAddr string

	// IngestAPIKey, when set, is bootstrapped as a Bearer token for
	// programmatic uploads (e.g. the MapTrack logger posting exports
	// directly instead of a researcher using the dashboard).
	IngestAPIKey string
}

// Load reads configuration from environment variables and applies
// defaults for anything unset.
func Load() *Config {
	cfg := &Config{
		AdminUser:     getenv("APP_ADMIN_USER", "admin"),
		AdminPassword: getenv("APP_ADMIN_PASSWORD", "changeme"),
		DatabaseURL:   os.Getenv("APP_DATABASE_URL"),
		UploadDir:     getenv("APP_UPLOAD_DIR", "data/uploads"),
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),
		RetentionDays: 0,
		IngestAPIKey:  getenv("APP_INGEST_API_KEY", ""),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.RetentionDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
