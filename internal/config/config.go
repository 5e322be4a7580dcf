// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the application configuration.
type Config struct {
	Schedule  ScheduleConfig   `toml:"schedule"`
	LLM       LLMConfig        `toml:"llm"`
	Storage   StorageConfig    `toml:"storage"`
	Pipeline  PipelineConfig   `toml:"pipeline"`
	Bridge    BridgeConfig     `toml:"bridge"`
	Blackouts []BlackoutConfig `toml:"blackouts"`
}

// PipelineConfig holds the NL-to-calendar pipeline's scheduling window
// and placement constraints (spec.md §4.7).
type PipelineConfig struct {
	Timezone       string `toml:"timezone"`         // e.g., "America/New_York"
	WorkStartHour  int    `toml:"work_start_hour"`  // default 6
	WorkEndHour    int    `toml:"work_end_hour"`    // default 23
	MaxTasksPerDay int    `toml:"max_tasks_per_day"` // 0 = unlimited
	MinGapMinutes  int    `toml:"min_gap_minutes"`
}

// BridgeConfig holds the external calendar bridge's address.
type BridgeConfig struct {
	BaseURL string `toml:"base_url"`
}

// BlackoutConfig is one recurring or date-specific blackout window.
// Exactly one of Weekday or Date should be set; both Start and End are
// required in HH:MM format.
type BlackoutConfig struct {
	Weekday string `toml:"weekday"` // e.g., "saturday"; empty if Date is set
	Date    string `toml:"date"`    // "YYYY-MM-DD"; empty if Weekday is set
	Start   string `toml:"start"`
	End     string `toml:"end"`
}

// ScheduleConfig names the weekdays TA is allowed to place events on.
// Any weekday not listed here becomes an all-day blackout (see
// internal/cli/blackout.go's workdayBlackouts).
type ScheduleConfig struct {
	Workdays []string `toml:"workdays"` // e.g., ["monday", "tuesday", ...]
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider string `toml:"provider"` // "ollama" or "openai-compatible"
	Model    string `toml:"model"`    // e.g., "gpt-4o"
	BaseURL  string `toml:"base_url"` // e.g., "http://localhost:11434"
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Workdays: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "gpt-4o",
			BaseURL:  "http://localhost:11434",
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Pipeline: PipelineConfig{
			Timezone:      "America/New_York",
			WorkStartHour: 6,
			WorkEndHour:   23,
			MinGapMinutes: 5,
		},
		Bridge: BridgeConfig{
			BaseURL: "http://localhost:8787",
		},
	}
}

// defaultDBPath returns the default database path.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "calpipe.db"
	}
	return filepath.Join(home, ".local", "share", "calpipe", "calpipe.db")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "calpipe", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	// Try to load from file (not an error if it doesn't exist)
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Expand paths
	cfg.Storage.DBPath = expandPath(cfg.Storage.DBPath)

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) {
	// Schedule overrides
	if v := os.Getenv("DEEPWORK_WORKDAYS"); v != "" {
		cfg.Schedule.Workdays = strings.Split(v, ",")
	}

	// LLM overrides
	if v := os.Getenv("DEEPWORK_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("DEEPWORK_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DEEPWORK_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	// Storage overrides
	if v := os.Getenv("DEEPWORK_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}

	// Pipeline overrides
	if v := os.Getenv("CALPIPE_TIMEZONE"); v != "" {
		cfg.Pipeline.Timezone = v
	}

	// Bridge overrides
	if v := os.Getenv("CALPIPE_BRIDGE_BASE_URL"); v != "" {
		cfg.Bridge.BaseURL = v
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Schedule.Workdays) == 0 {
		return errors.New("at least one workday must be configured")
	}
	for _, day := range c.Schedule.Workdays {
		if !isValidWeekday(day) {
			return fmt.Errorf("invalid workday: %s", day)
		}
	}
	if c.Storage.DBPath == "" {
		return errors.New("db_path must be set")
	}

	if c.Pipeline.WorkStartHour < 0 || c.Pipeline.WorkStartHour > 23 {
		return fmt.Errorf("pipeline.work_start_hour must be 0-23, got %d", c.Pipeline.WorkStartHour)
	}
	if c.Pipeline.WorkEndHour < 1 || c.Pipeline.WorkEndHour > 24 {
		return fmt.Errorf("pipeline.work_end_hour must be 1-24, got %d", c.Pipeline.WorkEndHour)
	}
	if c.Pipeline.WorkStartHour >= c.Pipeline.WorkEndHour {
		return errors.New("pipeline.work_start_hour must be before pipeline.work_end_hour")
	}
	if c.Pipeline.MaxTasksPerDay < 0 {
		return errors.New("pipeline.max_tasks_per_day must not be negative")
	}
	if c.Pipeline.MinGapMinutes < 0 {
		return errors.New("pipeline.min_gap_minutes must not be negative")
	}

	for i, b := range c.Blackouts {
		hasWeekday := b.Weekday != ""
		hasDate := b.Date != ""
		if hasWeekday == hasDate {
			return fmt.Errorf("blackouts[%d]: exactly one of weekday or date must be set", i)
		}
		if hasWeekday && !isValidWeekday(b.Weekday) {
			return fmt.Errorf("blackouts[%d]: invalid weekday: %s", i, b.Weekday)
		}
		if hasDate {
			if _, err := time.Parse("2006-01-02", b.Date); err != nil {
				return fmt.Errorf("blackouts[%d]: invalid date %q: %w", i, b.Date, err)
			}
		}
		if err := validateTime(b.Start, fmt.Sprintf("blackouts[%d].start", i)); err != nil {
			return err
		}
		if err := validateTime(b.End, fmt.Sprintf("blackouts[%d].end", i)); err != nil {
			return err
		}
		if b.Start >= b.End {
			return fmt.Errorf("blackouts[%d]: start must be before end", i)
		}
	}

	return nil
}

// validateTime checks if a time string is in HH:MM format.
func validateTime(t, field string) error {
	if len(t) != 5 || t[2] != ':' {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	hour := t[0:2]
	min := t[3:5]
	if !isDigits(hour) || !isDigits(min) {
		return fmt.Errorf("%s must be in HH:MM format, got %q", field, t)
	}
	return nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

var validWeekdays = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

func isValidWeekday(day string) bool {
	return validWeekdays[strings.ToLower(day)]
}

// IsWorkday returns true if the given weekday name is a configured workday.
func (c *Config) IsWorkday(weekday string) bool {
	weekday = strings.ToLower(weekday)
	for _, d := range c.Schedule.Workdays {
		if strings.ToLower(d) == weekday {
			return true
		}
	}
	return false
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
