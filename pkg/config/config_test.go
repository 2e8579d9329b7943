package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.MaxConcurrentGen != 4 {
		t.Errorf("MaxConcurrentGen = %v, want 4", cfg.MaxConcurrentGen)
	}
	if !cfg.HistoryEnabled {
		t.Error("Expected history to be enabled by default")
	}
	if len(cfg.ExportFormats) != 1 || cfg.ExportFormats[0] != "html" {
		t.Errorf("ExportFormats = %v, want [html]", cfg.ExportFormats)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty reports dir",
			modify:  func(c *Config) { c.ReportsDir = "" },
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			modify:  func(c *Config) { c.MaxConcurrentGen = 0 },
			wantErr: true,
		},
		{
			name:    "threshold out of range",
			modify:  func(c *Config) { c.FlakyThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "unknown export format",
			modify:  func(c *Config) { c.ExportFormats = []string{"html", "pdf"} },
			wantErr: true,
		},
		{
			name:    "json export",
			modify:  func(c *Config) { c.ExportFormats = []string{"html", "json"} },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junit-report.yml")
	content := `reports_dir: out/reports
max_concurrent_gen: 2
attachment_dirs:
  - build/screenshots
export_formats:
  - html
  - json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := NewConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.ReportsDir != "out/reports" {
		t.Errorf("ReportsDir = %v, want out/reports", cfg.ReportsDir)
	}
	if cfg.MaxConcurrentGen != 2 {
		t.Errorf("MaxConcurrentGen = %v, want 2", cfg.MaxConcurrentGen)
	}
	if len(cfg.AttachmentDirs) != 1 || cfg.AttachmentDirs[0] != "build/screenshots" {
		t.Errorf("AttachmentDirs = %v, want [build/screenshots]", cfg.AttachmentDirs)
	}
	if len(cfg.ExportFormats) != 2 {
		t.Errorf("ExportFormats = %v, want [html json]", cfg.ExportFormats)
	}
	// untouched keys keep their defaults
	if !cfg.HistoryEnabled {
		t.Error("Expected HistoryEnabled default to survive file load")
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("JUNIT_REPORT_DIR", "/tmp/reports")
	t.Setenv("JUNIT_REPORT_HISTORY", "false")
	t.Setenv("JUNIT_REPORT_ATTACHMENTS", "a, b,,c")

	cfg := NewConfig()
	cfg.LoadFromEnv()

	if cfg.ReportsDir != "/tmp/reports" {
		t.Errorf("ReportsDir = %v, want /tmp/reports", cfg.ReportsDir)
	}
	if cfg.HistoryEnabled {
		t.Error("Expected history to be disabled")
	}
	want := []string{"a", "b", "c"}
	if len(cfg.AttachmentDirs) != len(want) {
		t.Fatalf("AttachmentDirs = %v, want %v", cfg.AttachmentDirs, want)
	}
	for i := range want {
		if cfg.AttachmentDirs[i] != want[i] {
			t.Errorf("AttachmentDirs[%d] = %v, want %v", i, cfg.AttachmentDirs[i], want[i])
		}
	}
}

func TestConfig_HistoryPath(t *testing.T) {
	cfg := NewConfig()
	cfg.ReportsDir = "reports"
	if got := cfg.HistoryPath(); got != filepath.Join("reports", ".history") {
		t.Errorf("HistoryPath() = %v, want %v", got, filepath.Join("reports", ".history"))
	}

	cfg.HistoryDir = "/var/history"
	if got := cfg.HistoryPath(); got != "/var/history" {
		t.Errorf("HistoryPath() = %v, want /var/history", got)
	}
}
