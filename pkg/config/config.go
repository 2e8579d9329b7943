package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration for report generation
type Config struct {
	// General settings
	ProjectName string `mapstructure:"project_name"`
	ResultsDir  string `mapstructure:"results_dir"`
	ReportsDir  string `mapstructure:"reports_dir"`
	ThemePath   string `mapstructure:"theme_path"`
	LogLevel    string `mapstructure:"log_level"`

	// Attachments linked from class pages
	AttachmentDirs     []string `mapstructure:"attachment_dirs"`
	AttachmentPatterns []string `mapstructure:"attachment_patterns"`

	// History settings
	HistoryEnabled     bool    `mapstructure:"history_enabled"`
	HistoryDir         string  `mapstructure:"history_dir"`
	RetentionDays      int     `mapstructure:"retention_days"`
	TrendWindowDays    int     `mapstructure:"trend_window_days"`
	FlakyTestDetection bool    `mapstructure:"flaky_test_detection"`
	FlakyThreshold     float64 `mapstructure:"flaky_threshold"`

	// Export settings
	ExportFormats []string `mapstructure:"export_formats"`

	// Performance settings
	MaxConcurrentGen int `mapstructure:"max_concurrent_gen"`
}

var supportedFormats = map[string]bool{
	"html": true,
	"json": true,
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		ProjectName:        getProjectName(),
		ResultsDir:         filepath.Join("build", "test-results"),
		ReportsDir:         filepath.Join("build", "reports", "tests"),
		LogLevel:           "info",
		AttachmentDirs:     []string{},
		AttachmentPatterns: []string{},
		HistoryEnabled:     true,
		RetentionDays:      90,
		TrendWindowDays:    30,
		FlakyTestDetection: true,
		FlakyThreshold:     0.3,
		ExportFormats:      []string{"html"},
		MaxConcurrentGen:   4,
	}
}

// LoadConfig loads configuration from the first config file found, then the environment
func LoadConfig() (*Config, error) {
	cfg := NewConfig()

	configPaths := []string{
		"junit-report.yml",
		"junit-report.yaml",
		"junit-report.json",
		".junit-report/config.yml",
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.LoadFromFile(path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			break
		}
	}

	cfg.LoadFromEnv()
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML, JSON, or TOML)
func (c *Config) LoadFromFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if dir := os.Getenv("JUNIT_RESULTS_DIR"); dir != "" {
		c.ResultsDir = dir
	}

	if dir := os.Getenv("JUNIT_REPORT_DIR"); dir != "" {
		c.ReportsDir = dir
	}

	if theme := os.Getenv("JUNIT_REPORT_THEME"); theme != "" {
		c.ThemePath = theme
	}

	if level := os.Getenv("JUNIT_REPORT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if history := os.Getenv("JUNIT_REPORT_HISTORY"); history == "false" {
		c.HistoryEnabled = false
	}

	if dirs := os.Getenv("JUNIT_REPORT_ATTACHMENTS"); dirs != "" {
		for _, dir := range strings.Split(dirs, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				c.AttachmentDirs = append(c.AttachmentDirs, dir)
			}
		}
	}
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigFile(path)

	v.Set("project_name", c.ProjectName)
	v.Set("results_dir", c.ResultsDir)
	v.Set("reports_dir", c.ReportsDir)
	v.Set("theme_path", c.ThemePath)
	v.Set("log_level", c.LogLevel)
	v.Set("attachment_dirs", c.AttachmentDirs)
	v.Set("attachment_patterns", c.AttachmentPatterns)
	v.Set("history_enabled", c.HistoryEnabled)
	v.Set("history_dir", c.HistoryDir)
	v.Set("retention_days", c.RetentionDays)
	v.Set("trend_window_days", c.TrendWindowDays)
	v.Set("flaky_test_detection", c.FlakyTestDetection)
	v.Set("flaky_threshold", c.FlakyThreshold)
	v.Set("export_formats", c.ExportFormats)
	v.Set("max_concurrent_gen", c.MaxConcurrentGen)

	return v.WriteConfig()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ReportsDir == "" {
		return fmt.Errorf("reports directory must be set")
	}
	if c.MaxConcurrentGen < 1 {
		return fmt.Errorf("max_concurrent_gen must be at least 1, got %d", c.MaxConcurrentGen)
	}
	if c.FlakyThreshold < 0 || c.FlakyThreshold > 1 {
		return fmt.Errorf("flaky_threshold must be between 0 and 1, got %v", c.FlakyThreshold)
	}
	for _, format := range c.ExportFormats {
		if !supportedFormats[format] {
			return fmt.Errorf("unsupported export format %q", format)
		}
	}
	return nil
}

// HistoryPath returns the directory holding the history database
func (c *Config) HistoryPath() string {
	if c.HistoryDir != "" {
		return c.HistoryDir
	}
	return filepath.Join(c.ReportsDir, ".history")
}

// getProjectName tries to get project name from current directory
func getProjectName() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "Test Project"
	}
	return filepath.Base(cwd)
}
