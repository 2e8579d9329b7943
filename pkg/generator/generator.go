package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lirany1/junit-html-report/pkg/analytics"
	"github.com/lirany1/junit-html-report/pkg/builder"
	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/export"
	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/models"
	"github.com/lirany1/junit-html-report/pkg/renderer"
	"github.com/lirany1/junit-html-report/pkg/resources"
	"github.com/lirany1/junit-html-report/pkg/results"
	"github.com/lirany1/junit-html-report/pkg/storage"
	"github.com/lirany1/junit-html-report/pkg/themes"
	"golang.org/x/sync/errgroup"
)

// Generator handles HTML report generation
type Generator struct {
	config   *config.Config
	builder  *builder.ResultsTreeBuilder
	exporter *export.Exporter
	themes   *themes.Manager
	now      func() time.Time
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		config:   cfg,
		builder:  builder.NewResultsTreeBuilder(),
		exporter: export.NewExporter(cfg),
		themes:   themes.NewManager(cfg),
		now:      time.Now,
	}
}

// GenerateFromDir generates a report from the JUnit XML files in resultsDir
func (g *Generator) GenerateFromDir(ctx context.Context, resultsDir, outputDir string) (*models.AllTestResults, error) {
	logger.Infof("Reading test results from %s", resultsDir)

	provider, err := results.NewXMLProvider(resultsDir)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, provider, resultsDir, outputDir)
}

// GenerateFromGaugeFile generates a report from a saved Gauge protobuf file
func (g *Generator) GenerateFromGaugeFile(ctx context.Context, inputFile, outputDir string) (*models.AllTestResults, error) {
	logger.Infof("Reading test results from %s", inputFile)

	provider, err := results.LoadGaugeFile(inputFile)
	if err != nil {
		return nil, err
	}
	return g.generate(ctx, provider, filepath.Dir(inputFile), outputDir)
}

// Generate creates the HTML report for the results of provider. Attachment
// patterns are resolved against the configured results directory.
func (g *Generator) Generate(ctx context.Context, provider results.Provider, outputDir string) (*models.AllTestResults, error) {
	return g.generate(ctx, provider, g.config.ResultsDir, outputDir)
}

func (g *Generator) generate(ctx context.Context, provider results.Provider, resultsDir, outputDir string) (*models.AllTestResults, error) {
	startTime := g.now()
	logger.Info("Starting report generation...")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	all, err := g.builder.Build(provider)
	if err != nil {
		return nil, err
	}

	var flaky []*models.FlakyTest
	if g.config.HistoryEnabled {
		flaky = g.recordHistory(all, startTime)
	}

	logger.Info("Copying theme assets...")
	if err := g.themes.CopyAssets(outputDir); err != nil {
		return nil, fmt.Errorf("failed to copy theme assets: %w", err)
	}

	logger.Info("Rendering HTML report...")
	if err := g.renderPages(ctx, all, flaky, provider, resultsDir, outputDir); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	for _, format := range g.config.ExportFormats {
		if err := g.exporter.Export(all, outputDir, format); err != nil {
			logger.Warnf("Failed to export to %s: %v", format, err)
		}
	}

	logger.WithFields(logger.Fields{
		"tests":    all.TestCount(),
		"failures": all.FailureCount(),
		"ignored":  all.IgnoredCount(),
		"took":     time.Since(startTime).Round(time.Millisecond),
	}).Info("Report generated successfully")
	logger.Infof("Open: file://%s", filepath.Join(outputDir, "index.html"))

	return all, nil
}

// recordHistory stores the run and returns the flaky tests it reveals. History
// problems never fail the report.
func (g *Generator) recordHistory(all *models.AllTestResults, timestamp time.Time) []*models.FlakyTest {
	db, err := storage.NewDatabase(g.config.HistoryPath())
	if err != nil {
		logger.Warnf("History disabled: %v", err)
		return nil
	}
	defer db.Close()

	engine := analytics.NewEngine(g.config, db)
	if err := engine.SaveExecutionData(all, uuid.New().String(), timestamp); err != nil {
		logger.Warnf("Failed to save execution history: %v", err)
	}

	if g.config.RetentionDays > 0 {
		if err := db.CleanupOldData(g.config.RetentionDays); err != nil {
			logger.Warnf("Failed to cleanup history: %v", err)
		}
	}

	if !g.config.FlakyTestDetection {
		return nil
	}
	logger.Info("Detecting flaky tests...")
	return engine.DetectFlakyTests(all)
}

// renderPages writes the overview, package and class pages. Pages render
// concurrently, at most MaxConcurrentGen at a time; the first error cancels
// the rest.
func (g *Generator) renderPages(ctx context.Context, all *models.AllTestResults, flaky []*models.FlakyTest, provider results.OutputProvider, resultsDir, outputDir string) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.config.MaxConcurrentGen, 1))

	page := func(render func() error) {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return render()
		})
	}

	page(func() error {
		overview := renderer.NewOverviewPageRenderer()
		overview.SetFlakyTests(flaky)
		return overview.RenderToFile(all, filepath.Join(outputDir, all.BaseURL()))
	})

	for _, pkg := range all.Packages() {
		pkg := pkg // per-iteration copy; go.mod targets go 1.21 loop semantics
		page(func() error {
			return renderer.NewPackagePageRenderer().RenderToFile(pkg, filepath.Join(outputDir, pkg.BaseURL()))
		})
	}

	attachments := g.attachmentResources(resultsDir)
	for _, class := range all.Classes() {
		class := class // per-iteration copy; go.mod targets go 1.21 loop semantics
		page(func() error {
			path := filepath.Join(outputDir, class.BaseURL())
			r := renderer.NewClassPageRenderer(provider, filepath.Dir(path))
			r.AddAdditionalResources(attachments...)
			if err := r.RenderToFile(class, path); err != nil {
				return fmt.Errorf("class %s: %w", class.Name(), err)
			}
			return nil
		})
	}

	return eg.Wait()
}

func (g *Generator) attachmentResources(resultsDir string) []resources.AdditionalResource {
	var found []resources.AdditionalResource
	for _, dir := range g.config.AttachmentDirs {
		found = append(found, resources.NewDirectoryResource(dir))
	}
	for _, pattern := range g.config.AttachmentPatterns {
		found = append(found, resources.NewGlobResource(resultsDir, pattern))
	}
	return found
}
