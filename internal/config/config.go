// Package config contains everything related to configuration
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// DataDir is where the daemon keeps its summary, raw poll log,
	// and daemon log.
	DataDir string

	// ClaudeDir is the root of the conversation log tree.
	ClaudeDir string

	// CredentialsPath is the OAuth credentials file.
	CredentialsPath string

	PollInterval  time.Duration
	HTTPTimeout   time.Duration
	CostPerToken  float64
	Notifications bool
}

// Default values
const (
	defaultPollInterval = 30 * time.Second
	defaultHTTPTimeout  = 10 * time.Second
	defaultCostPerToken = 0.000003
)

// File names inside DataDir.
const (
	SummaryFileName = "daily_summary.json"
	RawLogFileName  = "raw_usage_log.jsonl"
	DaemonLogName   = "daemon.log"
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		DataDir:         getEnvString("SENTINEL_DATA_DIR", getDefaultDataDir()),
		ClaudeDir:       getEnvString("SENTINEL_CLAUDE_DIR", getDefaultClaudeDir()),
		CredentialsPath: getEnvString("SENTINEL_CREDENTIALS_PATH", getDefaultCredentialsPath()),
		PollInterval:    getEnvDuration("SENTINEL_POLL_INTERVAL", defaultPollInterval),
		HTTPTimeout:     getEnvDuration("SENTINEL_HTTP_TIMEOUT", defaultHTTPTimeout),
		CostPerToken:    getEnvFloat("SENTINEL_COST_PER_TOKEN", defaultCostPerToken),
		Notifications:   getEnvBool("SENTINEL_NOTIFICATIONS", true),
	}

	// Ensure data directory exists
	if err := ensureDir(cfg.DataDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SummaryPath returns the absolute path of the daily summary file.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.DataDir, SummaryFileName)
}

// RawLogPath returns the absolute path of the raw poll log.
func (c *Config) RawLogPath() string {
	return filepath.Join(c.DataDir, RawLogFileName)
}

// DaemonLogPath returns the absolute path of the daemon log file.
func (c *Config) DaemonLogPath() string {
	return filepath.Join(c.DataDir, DaemonLogName)
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".usage-sentinel", ".env"),
			filepath.Join(home, ".config", "usage-sentinel", ".env"),
		)
	}

	return paths
}

// getDefaultDataDir returns the default daemon data directory.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".usage-sentinel"
	}
	return filepath.Join(home, ".usage-sentinel")
}

// getDefaultClaudeDir returns the default conversation log root.
func getDefaultClaudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// getDefaultCredentialsPath returns the default OAuth credentials file.
func getDefaultCredentialsPath() string {
	return filepath.Join(getDefaultClaudeDir(), ".credentials.json")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
