package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// DefaultWeatherURL is the KNMI hourly history endpoint.
const DefaultWeatherURL = "https://projects.knmi.nl/klimatologie/uurgegevens/getdata_uur.cgi"

type AppConfig struct {
	AppEnv   string `validate:"required"`
	LogLevel string
	Port     string `validate:"required,numeric"`

	// WeatherURL is where hourly weather history is requested.
	WeatherURL  string        `validate:"required,url"`
	HTTPTimeout time.Duration `validate:"gt=0"`

	// ImportTimeout bounds one whole ingest-enrich-build pipeline.
	ImportTimeout time.Duration `validate:"gt=0"`

	UploadDir      string `validate:"required"`
	UploadMaxBytes int    `validate:"gt=0"`

	// SessionTTL is the idle expiration of client sessions.
	SessionTTL time.Duration `validate:"gt=0"`

	ReconcileInterval   time.Duration `validate:"gt=0"`
	CacheReportInterval time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "development")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.WeatherURL = getenvDefault("KNMI_HOURLY_URL", DefaultWeatherURL)
	cfg.UploadDir = getenvDefault("UPLOAD_DIR", filepath.Join(os.TempDir(), "site-analytics-uploads"))
	cfg.UploadMaxBytes = getenvInt("UPLOAD_MAX_BYTES", 10<<20)

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "30s", &cfg.HTTPTimeout},
		{"IMPORT_TIMEOUT", "2m", &cfg.ImportTimeout},
		{"SESSION_TTL", "30m", &cfg.SessionTTL},
		{"RECONCILE_INTERVAL", "3m", &cfg.ReconcileInterval},
		{"CACHE_REPORT_INTERVAL", "1m", &cfg.CacheReportInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *AppConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
