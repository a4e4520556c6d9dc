package core

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/carevoice/companion-go/pkg/escalation"
)

// Config contains the complete configuration for a Companion client.
//
// It includes settings for:
//   - Record store backend (where per-person bundles live)
//   - Incident log backend (where escalation events live)
//   - Staff notifier (how alerts reach humans)
//   - Triage vocabularies (optional overrides of the built-in keyword sets)
//
// Example:
//
//	config := &core.Config{
//	    RecordStore: core.RecordStoreConfig{
//	        Provider: "file",
//	        Config:   map[string]interface{}{"data_dir": "./data/bundles"},
//	    },
//	    IncidentLog: core.IncidentLogConfig{
//	        Provider: "file",
//	        Config:   map[string]interface{}{"path": "./data/incidents.jsonl"},
//	    },
//	    Notifier: core.NotifierConfig{
//	        Provider: "webhook",
//	        URL:      "https://nursestation.example/alerts",
//	    },
//	}
type Config struct {
	// RecordStore contains record store backend configuration.
	RecordStore RecordStoreConfig `json:"record_store"`

	// IncidentLog contains incident log backend configuration.
	IncidentLog IncidentLogConfig `json:"incident_log"`

	// Notifier contains staff notifier configuration.
	Notifier NotifierConfig `json:"notifier"`

	// Triage contains optional keyword vocabulary overrides.
	Triage *TriageConfig `json:"triage,omitempty"`
}

// RecordStoreConfig contains configuration for the record store backend.
//
// Supported providers: file, sqlite, memory
type RecordStoreConfig struct {
	// Provider is the backend name (file, sqlite, memory).
	Provider string `json:"provider"`

	// Config contains provider-specific settings.
	Config map[string]interface{} `json:"config,omitempty"`
}

// IncidentLogConfig contains configuration for the incident log backend.
//
// Supported providers: file, sqlite, postgres, memory
type IncidentLogConfig struct {
	// Provider is the backend name (file, sqlite, postgres, memory).
	Provider string `json:"provider"`

	// Config contains provider-specific settings.
	Config map[string]interface{} `json:"config,omitempty"`
}

// NotifierConfig contains configuration for the staff notification collaborator.
//
// Supported providers: webhook, console
type NotifierConfig struct {
	// Provider is the notifier name (webhook, console).
	Provider string `json:"provider"`

	// URL is the staff alerting endpoint (webhook provider only).
	URL string `json:"url,omitempty"`

	// Timeout bounds each delivery attempt. Zero means the default (5s).
	Timeout time.Duration `json:"timeout,omitempty"`

	// Retries is the number of automatic retries after a failed attempt.
	// Capped at one; the core never loops indefinitely.
	Retries int `json:"retries,omitempty"`

	// Cooldown suppresses repeat alerts for the same user inside the
	// window. Zero disables suppression (the default); suppressed events
	// are still logged and reported.
	Cooldown time.Duration `json:"cooldown,omitempty"`
}

// TriageConfig overrides the built-in triage vocabularies.
type TriageConfig struct {
	// EmergencyKeywords replaces the emergency vocabulary when non-nil.
	EmergencyKeywords []escalation.Keyword `json:"emergency_keywords,omitempty"`

	// StaffRequestKeywords replaces the staff-request vocabulary when non-nil.
	StaffRequestKeywords []escalation.Keyword `json:"staff_request_keywords,omitempty"`
}

// Validate checks the configuration for basic consistency.
func (c *Config) Validate() error {
	switch c.RecordStore.Provider {
	case "file", "sqlite", "memory":
	default:
		return NewError("Validate", ErrInvalidConfig)
	}
	switch c.IncidentLog.Provider {
	case "file", "sqlite", "postgres", "memory":
	default:
		return NewError("Validate", ErrInvalidConfig)
	}
	switch c.Notifier.Provider {
	case "webhook", "console", "":
	default:
		return NewError("Validate", ErrInvalidConfig)
	}
	if c.Notifier.Provider == "webhook" && c.Notifier.URL == "" {
		return NewError("Validate", ErrInvalidConfig)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - RECORD_STORE_PROVIDER (file, sqlite, memory; default file)
//   - DATA_DIR (file provider bundle directory)
//   - SQLITE_PATH, SQLITE_TABLE (sqlite record store)
//   - INCIDENT_LOG_PROVIDER (file, sqlite, postgres, memory; default file)
//   - INCIDENT_LOG_PATH (file provider JSONL path)
//   - INCIDENT_SQLITE_PATH, INCIDENT_SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_SSLMODE
//   - NOTIFY_PROVIDER (webhook, console; default console)
//   - NOTIFY_URL, NOTIFY_TIMEOUT_MS, NOTIFY_RETRIES, NOTIFY_COOLDOWN_S
//   - EMERGENCY_KEYWORDS, STAFF_REQUEST_KEYWORDS (comma-separated overrides)
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{}

	storeProvider := getEnvOrDefault("RECORD_STORE_PROVIDER", "file")
	cfg.RecordStore.Provider = storeProvider
	switch storeProvider {
	case "file":
		cfg.RecordStore.Config = map[string]interface{}{
			"data_dir": getEnvOrDefault("DATA_DIR", "./data/bundles"),
		}
	case "sqlite":
		cfg.RecordStore.Config = map[string]interface{}{
			"db_path":    getEnvOrDefault("SQLITE_PATH", "./data/companion.db"),
			"table_name": getEnvOrDefault("SQLITE_TABLE", "memory_records"),
		}
	}

	logProvider := getEnvOrDefault("INCIDENT_LOG_PROVIDER", "file")
	cfg.IncidentLog.Provider = logProvider
	switch logProvider {
	case "file":
		cfg.IncidentLog.Config = map[string]interface{}{
			"path": getEnvOrDefault("INCIDENT_LOG_PATH", "./data/incidents.jsonl"),
		}
	case "sqlite":
		cfg.IncidentLog.Config = map[string]interface{}{
			"db_path":    getEnvOrDefault("INCIDENT_SQLITE_PATH", "./data/companion.db"),
			"table_name": getEnvOrDefault("INCIDENT_SQLITE_TABLE", "escalation_events"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		cfg.IncidentLog.Config = map[string]interface{}{
			"host":       getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":       port,
			"user":       getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":   os.Getenv("POSTGRES_PASSWORD"),
			"db_name":    getEnvOrDefault("POSTGRES_DATABASE", "companion"),
			"table_name": getEnvOrDefault("POSTGRES_TABLE", "escalation_events"),
			"ssl_mode":   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	}

	cfg.Notifier.Provider = getEnvOrDefault("NOTIFY_PROVIDER", "console")
	cfg.Notifier.URL = os.Getenv("NOTIFY_URL")
	if ms, err := strconv.Atoi(getEnvOrDefault("NOTIFY_TIMEOUT_MS", "5000")); err == nil && ms > 0 {
		cfg.Notifier.Timeout = time.Duration(ms) * time.Millisecond
	}
	if retries, err := strconv.Atoi(getEnvOrDefault("NOTIFY_RETRIES", "1")); err == nil {
		cfg.Notifier.Retries = retries
	}
	if seconds, err := strconv.Atoi(getEnvOrDefault("NOTIFY_COOLDOWN_S", "0")); err == nil && seconds > 0 {
		cfg.Notifier.Cooldown = time.Duration(seconds) * time.Second
	}

	if raw := os.Getenv("EMERGENCY_KEYWORDS"); raw != "" {
		if cfg.Triage == nil {
			cfg.Triage = &TriageConfig{}
		}
		cfg.Triage.EmergencyKeywords = escalation.ParseKeywords(raw)
	}
	if raw := os.Getenv("STAFF_REQUEST_KEYWORDS"); raw != "" {
		if cfg.Triage == nil {
			cfg.Triage = &TriageConfig{}
		}
		cfg.Triage.StaffRequestKeywords = escalation.ParseKeywords(raw)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
