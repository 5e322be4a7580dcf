package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Schedule.Workdays) != 5 {
		t.Errorf("expected 5 workdays, got %d", len(cfg.Schedule.Workdays))
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected provider ollama, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("expected base_url http://localhost:11434, got %s", cfg.LLM.BaseURL)
	}
	if cfg.Pipeline.WorkStartHour != 6 || cfg.Pipeline.WorkEndHour != 23 {
		t.Errorf("expected default work hours 6-23, got %d-%d", cfg.Pipeline.WorkStartHour, cfg.Pipeline.WorkEndHour)
	}
}

func TestLoadFrom_FileNotExists(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should return defaults
	if len(cfg.Schedule.Workdays) != 5 {
		t.Errorf("expected default workdays, got %d", len(cfg.Schedule.Workdays))
	}
}

func TestLoadFrom_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[schedule]
workdays = ["monday", "tuesday", "wednesday"]

[llm]
provider = "openai"
model = "gpt-4o-mini"
base_url = "http://localhost:11435"

[storage]
db_path = "/tmp/test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Schedule.Workdays) != 3 {
		t.Errorf("expected 3 workdays, got %d", len(cfg.Schedule.Workdays))
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://localhost:11435" {
		t.Errorf("expected base_url http://localhost:11435, got %s", cfg.LLM.BaseURL)
	}
	if cfg.Storage.DBPath != "/tmp/test.db" {
		t.Errorf("expected db_path /tmp/test.db, got %s", cfg.Storage.DBPath)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[schedule]
workdays = ["monday", "tuesday"]

[storage]
db_path = "/tmp/test.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("DEEPWORK_WORKDAYS", "monday,tuesday,wednesday,thursday")
	t.Setenv("DEEPWORK_LLM_MODEL", "gpt-3.5-turbo")
	t.Setenv("DEEPWORK_LLM_BASE_URL", "http://localhost:11436")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Env should override file
	if len(cfg.Schedule.Workdays) != 4 {
		t.Errorf("expected 4 workdays from env, got %d", len(cfg.Schedule.Workdays))
	}
	// Env should override default
	if cfg.LLM.Model != "gpt-3.5-turbo" {
		t.Errorf("expected model gpt-3.5-turbo from env, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://localhost:11436" {
		t.Errorf("expected base_url http://localhost:11436 from env, got %s", cfg.LLM.BaseURL)
	}
}

func TestValidate_InvalidWorkday(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Workdays = []string{"monday", "funday"}

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for invalid workday")
	}
}

func TestValidate_EmptyWorkdays(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Workdays = []string{}

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for empty workdays")
	}
}

func TestValidate_WorkHoursOrdering(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.WorkStartHour = 18
	cfg.Pipeline.WorkEndHour = 9

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error when work_start_hour >= work_end_hour")
	}
}

func TestValidate_BlackoutBadTimeFormat(t *testing.T) {
	cfg := Default()
	cfg.Blackouts = []BlackoutConfig{{Weekday: "saturday", Start: "9:00", End: "12:00"}}

	err := cfg.Validate()
	if err == nil {
		t.Error("expected validation error for invalid blackout start format")
	}
}

func TestIsWorkday(t *testing.T) {
	cfg := Default()

	tests := []struct {
		day  string
		want bool
	}{
		{"monday", true},
		{"Monday", true},
		{"FRIDAY", true},
		{"saturday", false},
		{"sunday", false},
	}

	for _, tc := range tests {
		t.Run(tc.day, func(t *testing.T) {
			got := cfg.IsWorkday(tc.day)
			if got != tc.want {
				t.Errorf("IsWorkday(%q) = %v, want %v", tc.day, got, tc.want)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test.db", filepath.Join(home, "test.db")},
		{"/absolute/path.db", "/absolute/path.db"},
		{"relative/path.db", "relative/path.db"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := expandPath(tc.input)
			if got != tc.want {
				t.Errorf("expandPath(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.Schedule.Workdays = []string{"monday", "tuesday", "wednesday", "thursday"}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(loaded.Schedule.Workdays) != 4 {
		t.Errorf("expected 4 workdays, got %d", len(loaded.Schedule.Workdays))
	}
}
