package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/models"
)

// JSONFileName is the name of the json export inside the reports directory
const JSONFileName = "results.json"

// Exporter handles exporting reports to various formats
type Exporter struct {
	config *config.Config
	now    func() time.Time
}

// NewExporter creates a new exporter
func NewExporter(cfg *config.Config) *Exporter {
	return &Exporter{config: cfg, now: time.Now}
}

// Report is the json form of a results tree
type Report struct {
	Project     string          `json:"project"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Summary     Summary         `json:"summary"`
	Packages    []PackageReport `json:"packages"`
}

// Summary holds the counters of a results node
type Summary struct {
	Tests       int    `json:"tests"`
	Failures    int    `json:"failures"`
	Ignored     int    `json:"ignored"`
	DurationMs  int64  `json:"durationMs"`
	SuccessRate string `json:"successRate"`
}

// PackageReport is the json form of a package
type PackageReport struct {
	Name    string        `json:"name"`
	Summary Summary       `json:"summary"`
	Classes []ClassReport `json:"classes"`
}

// ClassReport is the json form of a class
type ClassReport struct {
	Name        string       `json:"name"`
	DisplayName string       `json:"displayName"`
	Summary     Summary      `json:"summary"`
	Tests       []TestReport `json:"tests"`
}

// TestReport is the json form of a single test
type TestReport struct {
	Name        string               `json:"name"`
	DisplayName string               `json:"displayName"`
	DurationMs  int64                `json:"durationMs"`
	Result      string               `json:"result"`
	Failures    []models.TestFailure `json:"failures,omitempty"`
}

// Export exports the report to the given format. HTML pages are written
// by the generator, so "html" is a no-op here.
func (e *Exporter) Export(all *models.AllTestResults, outputDir, format string) error {
	switch format {
	case "html":
		return nil
	case "json":
		return e.exportJSON(all, outputDir)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func (e *Exporter) exportJSON(all *models.AllTestResults, outputDir string) error {
	report := e.BuildReport(all)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(outputDir, JSONFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write json export: %w", err)
	}

	logger.Infof("JSON export written to %s", path)
	return nil
}

// BuildReport converts a results tree into its json form
func (e *Exporter) BuildReport(all *models.AllTestResults) *Report {
	report := &Report{
		Project:     e.config.ProjectName,
		GeneratedAt: e.now().UTC(),
		Summary:     summarize(&all.CompositeTestResults),
		Packages:    []PackageReport{},
	}

	for _, pkg := range all.Packages() {
		pr := PackageReport{
			Name:    pkg.Name(),
			Summary: summarize(&pkg.CompositeTestResults),
		}
		for _, class := range pkg.Classes() {
			cr := ClassReport{
				Name:        class.Name(),
				DisplayName: class.DisplayName(),
				Summary:     summarize(&class.CompositeTestResults),
			}
			for _, test := range class.TestResults() {
				cr.Tests = append(cr.Tests, TestReport{
					Name:        test.Name(),
					DisplayName: test.DisplayName(),
					DurationMs:  test.Duration().Milliseconds(),
					Result:      test.FormattedResultType(),
					Failures:    test.Failures(),
				})
			}
			pr.Classes = append(pr.Classes, cr)
		}
		report.Packages = append(report.Packages, pr)
	}

	return report
}

func summarize(node *models.CompositeTestResults) Summary {
	return Summary{
		Tests:       node.TestCount(),
		Failures:    node.FailureCount(),
		Ignored:     node.IgnoredCount(),
		DurationMs:  node.Duration().Milliseconds(),
		SuccessRate: node.FormattedSuccessRate(),
	}
}
