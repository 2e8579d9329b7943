package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/generator"
	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/plugin"
	"github.com/lirany1/junit-html-report/pkg/server"
	"github.com/lirany1/junit-html-report/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Gauge launches reporters with <plugin id>_action=execution
	if os.Getenv("junit-html-report_action") == "execution" {
		runAsGaugePlugin()
		return
	}

	rootCmd := &cobra.Command{
		Use:   "junit-html-report",
		Short: "HTML report generator for JUnit XML test results",
		Long: `JUnit HTML Report

Renders JUnit XML (or Gauge) test results as a browsable HTML report with
per-package and per-class pages, captured output, attachments and run history.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an HTML report from test results",
		Long:  "Generate an HTML report from a directory of JUnit XML files, or from a saved Gauge suite result.",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringP("results", "r", "", "Directory containing JUnit XML result files")
	generateCmd.Flags().StringP("gauge-file", "g", "", "Saved Gauge suite result (protobuf) to read instead of JUnit XML")
	generateCmd.Flags().StringP("output", "o", "", "Output directory for the generated report")
	generateCmd.Flags().StringP("theme", "t", "", "Custom theme directory")
	generateCmd.Flags().StringSliceP("formats", "f", nil, "Export formats (html, json)")
	generateCmd.Flags().StringSlice("attachments", nil, "Attachment glob patterns relative to the results directory, e.g. {class}/{test}*.png")
	generateCmd.Flags().StringSlice("attachment-dir", nil, "Directories laid out as <dir>/<class>/<test>/ holding attachments")
	generateCmd.Flags().Bool("no-history", false, "Do not record or read execution history")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a generated report",
		Long:  "Start a local server for a generated report and its execution history API.",
		RunE:  runServe,
	}
	serveCmd.Flags().IntP("port", "p", 8080, "Port to run server on")
	serveCmd.Flags().StringP("host", "H", "localhost", "Host to bind server to")
	serveCmd.Flags().StringP("dir", "d", "", "Directory containing the report to serve")

	pluginCmd := &cobra.Command{
		Use:   "plugin",
		Short: "Run as Gauge plugin",
		Long:  "Start the plugin in Gauge plugin mode (used internally by Gauge).",
		Run:   func(cmd *cobra.Command, args []string) { runAsGaugePlugin() },
	}

	rootCmd.AddCommand(generateCmd, serveCmd, pluginCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error(err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the configuration file (explicit or discovered) and applies the log level
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")

	var cfg *config.Config
	if configFile != "" {
		cfg = config.NewConfig()
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.LoadFromEnv()
	} else {
		var err error
		if cfg, err = config.LoadConfig(); err != nil {
			return nil, err
		}
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("results") {
		cfg.ResultsDir, _ = flags.GetString("results")
	}
	if flags.Changed("output") {
		cfg.ReportsDir, _ = flags.GetString("output")
	}
	if flags.Changed("theme") {
		cfg.ThemePath, _ = flags.GetString("theme")
	}
	if flags.Changed("formats") {
		cfg.ExportFormats, _ = flags.GetStringSlice("formats")
	}
	if flags.Changed("attachments") {
		patterns, _ := flags.GetStringSlice("attachments")
		cfg.AttachmentPatterns = append(cfg.AttachmentPatterns, patterns...)
	}
	if flags.Changed("attachment-dir") {
		dirs, _ := flags.GetStringSlice("attachment-dir")
		cfg.AttachmentDirs = append(cfg.AttachmentDirs, dirs...)
	}
	if noHistory, _ := flags.GetBool("no-history"); noHistory {
		cfg.HistoryEnabled = false
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gen := generator.NewGenerator(cfg)
	gaugeFile, _ := flags.GetString("gauge-file")

	logger.Infof("Output: %s", cfg.ReportsDir)
	if gaugeFile != "" {
		_, err = gen.GenerateFromGaugeFile(cmd.Context(), gaugeFile, cfg.ReportsDir)
	} else {
		_, err = gen.GenerateFromDir(cmd.Context(), cfg.ResultsDir, cfg.ReportsDir)
	}
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		cfg.ReportsDir = dir
	}

	var db *storage.Database
	if cfg.HistoryEnabled {
		if db, err = storage.NewDatabase(cfg.HistoryPath()); err != nil {
			logger.Warnf("History API disabled: %v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	logger.Infof("Serving report from: %s", cfg.ReportsDir)
	srv := server.NewServer(&server.Config{
		Host:            host,
		Port:            port,
		ReportsDir:      cfg.ReportsDir,
		TrendWindowDays: cfg.TrendWindowDays,
	}, db)

	return srv.Start(cmd.Context())
}

func runAsGaugePlugin() {
	logger.Info("Starting JUnit HTML Report plugin")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if os.Getenv("JUNIT_REPORT_DIR") == "" {
		cfg.ReportsDir = plugin.ReportsDir()
	}

	if err := plugin.NewPlugin(cfg).Start(); err != nil {
		logger.Fatalf("Failed to start plugin: %v", err)
	}
}
