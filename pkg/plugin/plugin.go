package plugin

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/getgauge/gauge-proto/go/gauge_messages"
	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/generator"
	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/results"
	"google.golang.org/grpc"
)

// Plugin is a Gauge reporter that renders the suite result as an HTML report
type Plugin struct {
	gauge_messages.UnimplementedReporterServer
	config    *config.Config
	generator *generator.Generator
	server    *grpc.Server
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewPlugin creates a new plugin instance
func NewPlugin(cfg *config.Config) *Plugin {
	return &Plugin{
		config:    cfg,
		generator: generator.NewGenerator(cfg),
		stopChan:  make(chan struct{}),
	}
}

// Start starts the plugin as a gRPC server and blocks until it is killed
func (p *Plugin) Start() error {
	address, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to resolve TCP address: %w", err)
	}

	listener, err := net.ListenTCP("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	p.server = grpc.NewServer(grpc.MaxRecvMsgSize(1024 * 1024 * 1024))
	gauge_messages.RegisterReporterServer(p.server, p)

	port := listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := p.server.Serve(listener); err != nil {
			logger.Errorf("gRPC server error: %v", err)
		}
		p.stop()
	}()

	// Gauge reads the port from this exact line on stdout
	if _, err := fmt.Fprintf(os.Stdout, "Listening on port:%d\n", port); err != nil {
		return fmt.Errorf("failed to announce port: %w", err)
	}
	_ = os.Stdout.Sync()

	logger.Infof("gRPC server ready on port %d", port)

	<-p.stopChan
	logger.Info("Plugin shutdown complete")
	return nil
}

func (p *Plugin) stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

// ReportsDir resolves the report location from the environment Gauge provides
func ReportsDir() string {
	projectRoot := os.Getenv("GAUGE_PROJECT_ROOT")
	if projectRoot == "" {
		projectRoot = "."
	}

	reportsDir := os.Getenv("gauge_reports_dir")
	if reportsDir == "" {
		reportsDir = "reports"
	}
	if !filepath.IsAbs(reportsDir) {
		reportsDir = filepath.Join(projectRoot, reportsDir)
	}
	return filepath.Join(reportsDir, "junit-html-report")
}

// NotifyExecutionStarting is called when execution starts
func (p *Plugin) NotifyExecutionStarting(ctx context.Context, info *gauge_messages.ExecutionStartingRequest) (*gauge_messages.Empty, error) {
	logger.Info("Execution starting...")
	return &gauge_messages.Empty{}, nil
}

// NotifyExecutionEnding is called when execution ends
func (p *Plugin) NotifyExecutionEnding(ctx context.Context, result *gauge_messages.ExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

// NotifySuiteResult renders the report for the finished suite
func (p *Plugin) NotifySuiteResult(ctx context.Context, result *gauge_messages.SuiteExecutionResult) (*gauge_messages.Empty, error) {
	suite := result.GetSuiteResult()
	if suite == nil {
		logger.Warn("Suite result is empty, no report generated")
		return &gauge_messages.Empty{}, nil
	}

	logger.Info("Suite execution complete, generating report...")
	if _, err := p.generator.Generate(ctx, results.NewGaugeProvider(suite), p.config.ReportsDir); err != nil {
		logger.Errorf("Failed to generate report: %v", err)
		return &gauge_messages.Empty{}, err
	}

	return &gauge_messages.Empty{}, nil
}

// Kill stops the plugin
func (p *Plugin) Kill(ctx context.Context, request *gauge_messages.KillProcessRequest) (*gauge_messages.Empty, error) {
	logger.Info("Shutting down plugin...")
	if p.server != nil {
		go p.server.GracefulStop()
	}
	p.stop()
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifySpecExecutionStarting(ctx context.Context, info *gauge_messages.SpecExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifySpecExecutionEnding(ctx context.Context, result *gauge_messages.SpecExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyScenarioExecutionStarting(ctx context.Context, info *gauge_messages.ScenarioExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyScenarioExecutionEnding(ctx context.Context, result *gauge_messages.ScenarioExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyStepExecutionStarting(ctx context.Context, info *gauge_messages.StepExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyStepExecutionEnding(ctx context.Context, result *gauge_messages.StepExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyConceptExecutionStarting(ctx context.Context, info *gauge_messages.ConceptExecutionStartingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}

func (p *Plugin) NotifyConceptExecutionEnding(ctx context.Context, result *gauge_messages.ConceptExecutionEndingRequest) (*gauge_messages.Empty, error) {
	return &gauge_messages.Empty{}, nil
}
