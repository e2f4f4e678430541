package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	Scraper  ScraperConfig  `toml:"scraper"`
	Storage  StorageConfig  `toml:"storage"`
	Schedule ScheduleConfig `toml:"schedule"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScraperConfig controls the request driver and pagination behavior.
type ScraperConfig struct {
	Strategy     string        `toml:"strategy"`      // "direct" (form replay) or "browser" (chromedp)
	ReportURL    string        `toml:"report_url"`    // Report page URL template, %s = scrip code
	UserAgent    string        `toml:"user_agent"`    // User agent sent on every request
	Headless     bool          `toml:"headless"`      // Browser strategy only
	PageTimeout  time.Duration `toml:"page_timeout"`  // Budget for one window fetch
	TableRetries int           `toml:"table_retries"` // Poll attempts waiting for the result table
	RetryDelay   time.Duration `toml:"retry_delay"`   // Fixed sleep between poll attempts
	PageInterval time.Duration `toml:"page_interval"` // Fixed wait between consecutive window fetches
	MaxPages     int           `toml:"max_pages"`     // Hard cap on windows fetched per run
	MinYear      int           `toml:"min_year"`      // Earliest accepted start year
	DebugDir     string        `toml:"debug_dir"`     // Where diagnostic markup/screenshots land
}

type StorageConfig struct {
	Path        string        `toml:"path"`          // BadgerDB directory, empty disables caching
	SnapshotTTL time.Duration `toml:"snapshot_ttl"`  // How long a cached snapshot stays fresh
	InMemory    bool          `toml:"in_memory"`     // Run Badger without a disk backing (tests)
	ResetOnInit bool          `toml:"reset_on_init"` // Drop existing data on startup
}

// ScheduleConfig drives the optional cron refresh of tracked scrip codes.
type ScheduleConfig struct {
	Spec       string   `toml:"spec"`        // Cron expression, empty disables the scheduler
	Scrips     []string `toml:"scrips"`      // Scrip codes refreshed on each tick
	StartMonth int      `toml:"start_month"` // Window the refresh collection starts from
	StartYear  int      `toml:"start_year"`
}

// NewDefaultConfig returns the baseline configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8085,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Scraper: ScraperConfig{
			Strategy: "direct",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
				"(KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			Headless:     true,
			PageTimeout:  90 * time.Second,
			TableRetries: 8,
			RetryDelay:   2 * time.Second,
			PageInterval: 1 * time.Second,
			MaxPages:     600,
			MinYear:      2000,
			DebugDir:     "debug",
		},
		Storage: StorageConfig{
			Path:        "data/snapshots",
			SnapshotTTL: 24 * time.Hour,
		},
		Schedule: ScheduleConfig{
			StartMonth: 1,
			StartYear:  2020,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("BSEQ_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("BSEQ_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("BSEQ_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if strategy := os.Getenv("BSEQ_SCRAPER_STRATEGY"); strategy != "" {
		config.Scraper.Strategy = strategy
	}
	if dir := os.Getenv("BSEQ_DEBUG_DIR"); dir != "" {
		config.Scraper.DebugDir = dir
	}
	if path := os.Getenv("BSEQ_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}
}
