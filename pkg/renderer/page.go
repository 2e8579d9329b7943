package renderer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lirany1/junit-html-report/pkg/html"
	"github.com/lirany1/junit-html-report/pkg/models"
)

// PageContent is implemented by every page type and driven by PageRenderer
type PageContent interface {
	RenderBreadcrumbs(w *html.Writer) error
	RenderFailures(w *html.Writer) error
	RegisterTabs(page *PageRenderer) error
}

// PageRenderer writes the chrome shared by all report pages: head, title,
// summary boxes, tabs and footer.
type PageRenderer struct {
	results *models.CompositeTestResults
	content PageContent
	tabs    *TabsRenderer
	now     func() time.Time
}

// NewPageRenderer creates a page renderer for the given results node
func NewPageRenderer(results *models.CompositeTestResults) *PageRenderer {
	return &PageRenderer{
		results: results,
		tabs:    &TabsRenderer{},
		now:     time.Now,
	}
}

// Results returns the node the page is rendered for
func (p *PageRenderer) Results() *models.CompositeTestResults {
	return p.results
}

// AddTab registers a tab, rendered in registration order
func (p *PageRenderer) AddTab(title string, render TabRenderer) {
	p.tabs.Add(title, render)
}

// AddFailuresTab registers the failed tests tab when the node has failures
func (p *PageRenderer) AddFailuresTab() {
	if p.results.FailureCount() == 0 || p.content == nil {
		return
	}
	content := p.content
	p.AddTab("Failed tests", content.RenderFailures)
}

// TabTitles returns the titles of the tabs registered so far
func (p *PageRenderer) TabTitles() []string {
	return p.tabs.Titles()
}

// Render registers the content's tabs and writes the complete page to out
func (p *PageRenderer) Render(content PageContent, out io.Writer) error {
	p.content = content
	p.tabs = &TabsRenderer{}
	if err := content.RegisterTabs(p); err != nil {
		return fmt.Errorf("failed to register tabs: %w", err)
	}

	w := html.NewWriter(out)
	root := assetPrefix(p.results.BaseURL())

	w.WriteDoctype()
	w.StartElement("html")
	w.StartElement("head").
		StartElement("meta").Attribute("http-equiv", "Content-Type").Attribute("content", "text/html; charset=utf-8").EndElement().
		StartElement("meta").Attribute("http-equiv", "x-ua-compatible").Attribute("content", "IE=edge").EndElement().
		StartElement("title").Characters("Test results - " + p.results.Title()).EndElement().
		StartElement("link").Attribute("href", root+"css/style.css").Attribute("rel", "stylesheet").Attribute("type", "text/css").EndElement().
		StartElement("script").Attribute("src", root+"js/report.js").Attribute("type", "text/javascript").Characters("").EndElement().
		EndElement()

	w.StartElement("body").
		StartElement("div").Attribute("id", "content").
		StartElement("h1").Characters(p.results.Title()).EndElement()

	if err := content.RenderBreadcrumbs(w); err != nil {
		return fmt.Errorf("failed to render breadcrumbs: %w", err)
	}
	p.renderSummary(w)
	if err := p.tabs.Render(w); err != nil {
		return err
	}
	p.renderFooter(w)

	w.EndElement() // content
	w.EndElement() // body
	w.EndElement() // html

	return w.Close()
}

// RenderToFile renders the page into path, creating parent directories
func (p *PageRenderer) RenderToFile(content PageContent, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create page directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	if err := p.Render(content, buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return f.Close()
}

func (p *PageRenderer) renderSummary(w *html.Writer) {
	r := p.results

	w.StartElement("div").Attribute("id", "summary").
		StartElement("table").StartElement("tr").
		StartElement("td").
		StartElement("div").Attribute("class", "summaryGroup").
		StartElement("table").StartElement("tr")

	infoBox(w, "tests", strconv.Itoa(r.TestCount()), "tests")
	infoBox(w, "failures", strconv.Itoa(r.FailureCount()), "failures")
	infoBox(w, "ignored", strconv.Itoa(r.IgnoredCount()), "ignored")
	infoBox(w, "duration", r.FormattedDuration(), "duration")

	w.EndElement().EndElement() // tr, table
	w.EndElement()              // summaryGroup
	w.EndElement()              // td

	w.StartElement("td").
		StartElement("div").Attribute("class", "infoBox "+r.StatusClass()).Attribute("id", "successRate").
		StartElement("div").Attribute("class", "percent").Characters(r.FormattedSuccessRate()).EndElement().
		StartElement("p").Characters("successful").EndElement().
		EndElement().
		EndElement()

	w.EndElement().EndElement() // tr, table
	w.EndElement()              // summary
}

func infoBox(w *html.Writer, id, value, label string) {
	w.StartElement("td").
		StartElement("div").Attribute("class", "infoBox").Attribute("id", id).
		StartElement("div").Attribute("class", "counter").Characters(value).EndElement().
		StartElement("p").Characters(label).EndElement().
		EndElement().
		EndElement()
}

func (p *PageRenderer) renderFooter(w *html.Writer) {
	w.StartElement("div").Attribute("id", "footer").
		StartElement("p").
		Characters("Generated by ").
		StartElement("a").Attribute("href", "https://github.com/lirany1/junit-html-report").Characters("junit-html-report").EndElement().
		Characters(" at " + p.now().Format("Jan 2, 2006, 3:04:05 PM")).
		EndElement().
		EndElement()
}

// renderTestLinks lists tests as class.test links relative to the page of from
func renderTestLinks(w *html.Writer, from *models.CompositeTestResults, tests []*models.TestResult) error {
	w.StartElement("ul").Attribute("class", "linkList")
	for _, test := range tests {
		class := test.ClassResults()
		classURL := from.GetURLTo(&class.CompositeTestResults)
		w.StartElement("li").
			StartElement("a").Attribute("href", classURL).Characters(class.SimpleName()).EndElement().
			Characters(".").
			StartElement("a").Attribute("href", classURL+"#"+test.ID()).Characters(test.DisplayName()).EndElement().
			EndElement()
	}
	w.EndElement()
	return w.Err()
}

// assetPrefix returns the path from a page back to the report root
func assetPrefix(baseURL string) string {
	return strings.Repeat("../", strings.Count(baseURL, "/"))
}
