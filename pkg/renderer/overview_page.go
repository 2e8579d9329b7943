package renderer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lirany1/junit-html-report/pkg/html"
	"github.com/lirany1/junit-html-report/pkg/models"
)

// OverviewPageRenderer renders the report index
type OverviewPageRenderer struct {
	results    *models.AllTestResults
	flakyTests []*models.FlakyTest
}

// NewOverviewPageRenderer creates an overview page renderer
func NewOverviewPageRenderer() *OverviewPageRenderer {
	return &OverviewPageRenderer{}
}

// SetFlakyTests attaches flaky tests detected from history
func (r *OverviewPageRenderer) SetFlakyTests(flaky []*models.FlakyTest) {
	r.flakyTests = flaky
}

// Render writes the index page to out
func (r *OverviewPageRenderer) Render(all *models.AllTestResults, out io.Writer) error {
	r.results = all
	return NewPageRenderer(&all.CompositeTestResults).Render(r, out)
}

// RenderToFile writes the index page to path
func (r *OverviewPageRenderer) RenderToFile(all *models.AllTestResults, path string) error {
	r.results = all
	return NewPageRenderer(&all.CompositeTestResults).RenderToFile(r, path)
}

// RenderBreadcrumbs writes nothing: the overview is the root
func (r *OverviewPageRenderer) RenderBreadcrumbs(w *html.Writer) error {
	return nil
}

// RenderFailures links every failed test of the run
func (r *OverviewPageRenderer) RenderFailures(w *html.Writer) error {
	return renderTestLinks(w, &r.results.CompositeTestResults, r.results.Failures())
}

// RegisterTabs adds the failures, ignored, packages, classes and flaky tabs
func (r *OverviewPageRenderer) RegisterTabs(page *PageRenderer) error {
	root := &r.results.CompositeTestResults

	page.AddFailuresTab()
	if r.results.IgnoredCount() > 0 {
		page.AddTab("Ignored tests", func(w *html.Writer) error {
			return renderTestLinks(w, root, r.results.Ignored())
		})
	}
	if len(r.results.Packages()) > 0 {
		page.AddTab("Packages", r.renderPackages)
		page.AddTab("Classes", func(w *html.Writer) error {
			return renderClassTable(w, root, r.results.Classes())
		})
	}
	if len(r.flakyTests) > 0 {
		page.AddTab("Flaky tests", r.renderFlakyTests)
	}
	return nil
}

func (r *OverviewPageRenderer) renderPackages(w *html.Writer) error {
	root := &r.results.CompositeTestResults
	renderCounterHeader(w, "Package")
	for _, pkg := range r.results.Packages() {
		renderCounterRow(w, root, &pkg.CompositeTestResults, pkg.Name())
	}
	w.EndElement()
	return w.Err()
}

func (r *OverviewPageRenderer) renderFlakyTests(w *html.Writer) error {
	w.StartElement("table").
		StartElement("thead").
		StartElement("tr").
		StartElement("th").Characters("Test").EndElement().
		StartElement("th").Characters("Runs").EndElement().
		StartElement("th").Characters("Failure rate").EndElement().
		StartElement("th").Characters("Flaky score").EndElement().
		EndElement().
		EndElement()

	for _, flaky := range r.flakyTests {
		w.StartElement("tr").
			StartElement("td").Attribute("class", models.StatusSkipped).Characters(flaky.ClassName + "." + flaky.TestName).EndElement().
			StartElement("td").Characters(strconv.Itoa(flaky.Occurrences)).EndElement().
			StartElement("td").Characters(fmt.Sprintf("%.0f%%", flaky.FailureRate)).EndElement().
			StartElement("td").Characters(fmt.Sprintf("%.2f", flaky.FlakyScore)).EndElement().
			EndElement()
	}

	w.EndElement()
	return w.Err()
}
