package renderer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lirany1/junit-html-report/pkg/html"
	"github.com/lirany1/junit-html-report/pkg/models"
	"github.com/stretchr/testify/require"
)

func sampleTree() *models.AllTestResults {
	all := models.NewAllTestResults()
	all.AddTest(1, "org.example.FooTest", "", 10, "foo", "", 100*time.Millisecond)
	bar := all.AddTest(1, "org.example.FooTest", "", 11, "bar", "", 0)
	bar.AddFailure(models.TestFailure{Message: "expected 1 got 2", StackTrace: "at Foo.bar(Foo.java:10)"})
	skipped := all.AddTest(2, "org.example.api.ApiTest", "", 12, "pending", "", 0)
	skipped.SetIgnored()
	return all
}

func TestAssetPrefix(t *testing.T) {
	tests := []struct {
		baseURL  string
		expected string
	}{
		{"index.html", ""},
		{"packages/org.example.html", "../"},
		{"classes/org.example.FooTest.html", "../"},
	}

	for _, tt := range tests {
		if got := assetPrefix(tt.baseURL); got != tt.expected {
			t.Errorf("assetPrefix(%q) = %q, want %q", tt.baseURL, got, tt.expected)
		}
	}
}

func TestTabsRenderer(t *testing.T) {
	tabs := &TabsRenderer{}
	tabs.Add("First", func(w *html.Writer) error {
		w.Characters("one")
		return w.Err()
	})
	tabs.Add("Second", func(w *html.Writer) error {
		w.Characters("two")
		return w.Err()
	})

	var buf bytes.Buffer
	w := html.NewWriter(&buf)
	require.NoError(t, tabs.Render(w))
	require.NoError(t, w.Close())

	require.Equal(t, []string{"First", "Second"}, tabs.Titles())
	require.Equal(t, `<div id="tabs"><ul class="tabLinks">`+
		`<li><a href="#tab0">First</a></li><li><a href="#tab1">Second</a></li></ul>`+
		`<div id="tab0" class="tab"><h2>First</h2>one</div>`+
		`<div id="tab1" class="tab"><h2>Second</h2>two</div></div>`, buf.String())
}

func TestTabsRenderer_PropagatesTabError(t *testing.T) {
	tabs := &TabsRenderer{}
	tabs.Add("Broken", func(w *html.Writer) error {
		return errors.New("disk full")
	})

	err := tabs.Render(html.NewWriter(&bytes.Buffer{}))
	require.Error(t, err)
	require.Contains(t, err.Error(), `failed to render tab "Broken"`)
	require.Contains(t, err.Error(), "disk full")
}

func TestPageRenderer_TabsBeforeRender(t *testing.T) {
	page := NewPageRenderer(&sampleTree().Classes()[0].CompositeTestResults)
	require.Empty(t, page.TabTitles())

	page.AddFailuresTab()
	page.AddTab("Tests", func(w *html.Writer) error { return w.Err() })
	require.Equal(t, []string{"Tests"}, page.TabTitles())
}

func TestPageRenderer_Summary(t *testing.T) {
	all := sampleTree()
	class := all.Classes()[0]
	require.Equal(t, "org.example.FooTest", class.Name())

	page := NewPageRenderer(&class.CompositeTestResults)
	page.now = func() time.Time { return time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC) }

	content := NewClassPageRenderer(newStubOutput(nil), t.TempDir())
	content.results = class

	var buf bytes.Buffer
	require.NoError(t, page.Render(content, &buf))
	out := buf.String()

	require.Contains(t, out, `<div class="infoBox" id="tests"><div class="counter">2</div><p>tests</p></div>`)
	require.Contains(t, out, `<div class="infoBox" id="failures"><div class="counter">1</div><p>failures</p></div>`)
	require.Contains(t, out, `<div class="infoBox" id="ignored"><div class="counter">0</div><p>ignored</p></div>`)
	require.Contains(t, out, `<div class="infoBox" id="duration"><div class="counter">0.100s</div><p>duration</p></div>`)
	require.Contains(t, out, `<div class="infoBox failures" id="successRate"><div class="percent">50%</div><p>successful</p></div>`)
	require.Contains(t, out, "<h1>Class org.example.FooTest</h1>")
	require.Contains(t, out, "at Jan 2, 2025, 3:04:05 PM")
}

func TestPackagePageRenderer(t *testing.T) {
	all := sampleTree()
	pkg := all.Packages()[0]
	require.Equal(t, "org.example", pkg.Name())

	var buf bytes.Buffer
	require.NoError(t, NewPackagePageRenderer().Render(pkg, &buf))
	out := buf.String()

	require.Contains(t, out, `<div class="breadcrumbs"><a href="../index.html">all</a> &gt; org.example</div>`)
	require.Contains(t, out, `<a href="#tab0">Failed tests</a>`)
	require.Contains(t, out, `<a href="#tab1">Classes</a>`)
	require.NotContains(t, out, "Ignored tests")
	require.Contains(t, out, `<li><a href="../classes/org.example.FooTest.html">FooTest</a>.<a href="../classes/org.example.FooTest.html#11">bar</a></li>`)
	require.Contains(t, out, `<tr><td class="failures"><a href="../classes/org.example.FooTest.html">org.example.FooTest</a></td>`+
		`<td>2</td><td>1</td><td>0</td><td>0.100s</td><td class="failures">50%</td></tr>`)
}

func TestPackagePageRenderer_IgnoredTab(t *testing.T) {
	all := sampleTree()
	pkg := all.Packages()[1]
	require.Equal(t, "org.example.api", pkg.Name())

	var buf bytes.Buffer
	require.NoError(t, NewPackagePageRenderer().Render(pkg, &buf))
	out := buf.String()

	require.NotContains(t, out, "Failed tests")
	require.Contains(t, out, `<a href="#tab0">Ignored tests</a>`)
	require.Contains(t, out, `<a href="../classes/org.example.api.ApiTest.html#12">pending</a>`)
}

func TestOverviewPageRenderer(t *testing.T) {
	all := sampleTree()

	r := NewOverviewPageRenderer()
	r.SetFlakyTests([]*models.FlakyTest{
		{ClassName: "org.example.FooTest", TestName: "bar", FlakyScore: 0.5, FailureRate: 50, Occurrences: 4},
	})

	var buf bytes.Buffer
	require.NoError(t, r.Render(all, &buf))
	out := buf.String()

	require.NotContains(t, out, `class="breadcrumbs"`)
	require.Contains(t, out, `<link href="css/style.css" rel="stylesheet" type="text/css"/>`)
	for i, title := range []string{"Failed tests", "Ignored tests", "Packages", "Classes", "Flaky tests"} {
		require.Contains(t, out, `<a href="#tab`+string(rune('0'+i))+`">`+title+`</a>`)
	}
	require.Contains(t, out, `<a href="packages/org.example.html">org.example</a>`)
	require.Contains(t, out, `<a href="classes/org.example.api.ApiTest.html">org.example.api.ApiTest</a>`)
	require.Contains(t, out, `<td class="skipped">org.example.FooTest.bar</td><td>4</td><td>50%</td><td>0.50</td>`)
	require.Contains(t, out, `<div class="percent">50%</div>`)
}

func TestOverviewPageRenderer_EmptyRun(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOverviewPageRenderer().Render(models.NewAllTestResults(), &buf))
	out := buf.String()

	require.Equal(t, 0, strings.Count(out, `class="tab"`))
	require.Contains(t, out, `<div class="percent">-</div>`)
	require.Contains(t, out, `<div class="counter">-</div><p>duration</p>`)
}

func TestPageRenderer_RenderToFileCreatesDirectories(t *testing.T) {
	all := sampleTree()
	path := filepath.Join(t.TempDir(), "nested", "packages", "org.example.html")

	require.NoError(t, NewPackagePageRenderer().RenderToFile(all.Packages()[0], path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>\n<html><head>"))
}
