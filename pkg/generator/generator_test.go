package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/export"
	"github.com/stretchr/testify/require"
)

const fooSuite = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="org.example.FooTest" tests="2" failures="1">
  <testcase name="foo" classname="org.example.FooTest" time="0.1"/>
  <testcase name="bar" classname="org.example.FooTest" time="0">
    <failure message="expected 1 got 2">at Foo.bar(Foo.java:10)</failure>
  </testcase>
  <system-out>hello</system-out>
</testsuite>`

const barSuiteTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="org.example.api.ApiTest" tests="1">
  <testcase name="ping" classname="org.example.api.ApiTest" time="0.25">%s</testcase>
</testsuite>`

func writeResults(t *testing.T, dir string, pingFails bool) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TEST-org.example.FooTest.xml"), []byte(fooSuite), 0644))

	body := ""
	if pingFails {
		body = `<failure message="timeout">at Api.ping(Api.java:3)</failure>`
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TEST-org.example.api.ApiTest.xml"), []byte(fmt.Sprintf(barSuiteTemplate, body)), 0644))
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.ProjectName = "demo"
	cfg.ReportsDir = filepath.Join(t.TempDir(), "reports")
	cfg.ExportFormats = []string{"html", "json"}
	cfg.MaxConcurrentGen = 2
	return cfg
}

func TestGenerateFromDir(t *testing.T) {
	resultsDir := filepath.Join(t.TempDir(), "test-results")
	writeResults(t, resultsDir, false)
	require.NoError(t, os.MkdirAll(filepath.Join(resultsDir, "screenshots"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "screenshots", "FooTest-foo.png"), []byte("png"), 0644))

	cfg := testConfig(t)
	cfg.AttachmentPatterns = []string{"screenshots/{simpleClass}-{test}.png"}

	all, err := NewGenerator(cfg).GenerateFromDir(context.Background(), resultsDir, cfg.ReportsDir)
	require.NoError(t, err)
	require.Equal(t, 3, all.TestCount())
	require.Equal(t, 1, all.FailureCount())

	for _, page := range []string{
		"index.html",
		"packages/org.example.html",
		"packages/org.example.api.html",
		"classes/org.example.FooTest.html",
		"classes/org.example.api.ApiTest.html",
		"css/style.css",
		"js/report.js",
		export.JSONFileName,
		"classes/FooTest-foo.png",
	} {
		require.FileExists(t, filepath.Join(cfg.ReportsDir, filepath.FromSlash(page)))
	}
	require.FileExists(t, filepath.Join(cfg.HistoryPath(), "test-history.db"))

	class, err := os.ReadFile(filepath.Join(cfg.ReportsDir, "classes", "org.example.FooTest.html"))
	require.NoError(t, err)
	require.Contains(t, string(class), `<a href="FooTest-foo.png" style="font-size:small">FooTest-foo.png</a>`)
	require.Contains(t, string(class), "Standard output")
	require.Contains(t, string(class), "expected 1 got 2\n\nat Foo.bar(Foo.java:10)")
}

func TestGenerate_DetectsFlakyTestsAcrossRuns(t *testing.T) {
	resultsDir := t.TempDir()
	cfg := testConfig(t)
	gen := NewGenerator(cfg)

	for i := 0; i < 4; i++ {
		writeResults(t, resultsDir, i%2 == 0)
		_, err := gen.GenerateFromDir(context.Background(), resultsDir, cfg.ReportsDir)
		require.NoError(t, err)
	}

	index, err := os.ReadFile(filepath.Join(cfg.ReportsDir, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "Flaky tests")
	require.Contains(t, string(index), "org.example.api.ApiTest.ping")
	require.NotContains(t, string(index), "org.example.FooTest.bar</td>")
}

func TestGenerate_HistoryDisabled(t *testing.T) {
	resultsDir := t.TempDir()
	writeResults(t, resultsDir, false)

	cfg := testConfig(t)
	cfg.HistoryEnabled = false

	_, err := NewGenerator(cfg).GenerateFromDir(context.Background(), resultsDir, cfg.ReportsDir)
	require.NoError(t, err)
	require.NoDirExists(t, cfg.HistoryPath())
}

func TestGenerate_PageFailureAbortsGeneration(t *testing.T) {
	resultsDir := t.TempDir()
	writeResults(t, resultsDir, false)

	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.ReportsDir, 0755))
	// a file where the classes directory should go
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ReportsDir, "classes"), nil, 0644))

	_, err := NewGenerator(cfg).GenerateFromDir(context.Background(), resultsDir, cfg.ReportsDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to render report")
}

func TestGenerateFromDir_NoResults(t *testing.T) {
	cfg := testConfig(t)
	_, err := NewGenerator(cfg).GenerateFromDir(context.Background(), t.TempDir(), cfg.ReportsDir)
	require.Error(t, err)
}

func TestGenerate_CancelledContext(t *testing.T) {
	resultsDir := t.TempDir()
	writeResults(t, resultsDir, false)

	cfg := testConfig(t)
	cfg.HistoryEnabled = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenerator(cfg).GenerateFromDir(ctx, resultsDir, cfg.ReportsDir)
	require.ErrorIs(t, err, context.Canceled)
}
