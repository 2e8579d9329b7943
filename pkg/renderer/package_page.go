package renderer

import (
	"io"
	"strconv"

	"github.com/lirany1/junit-html-report/pkg/html"
	"github.com/lirany1/junit-html-report/pkg/models"
)

// PackagePageRenderer renders the page of one package
type PackagePageRenderer struct {
	results *models.PackageTestResults
}

// NewPackagePageRenderer creates a package page renderer
func NewPackagePageRenderer() *PackagePageRenderer {
	return &PackagePageRenderer{}
}

// Render writes the page for pkg to out
func (r *PackagePageRenderer) Render(pkg *models.PackageTestResults, out io.Writer) error {
	r.results = pkg
	return NewPageRenderer(&pkg.CompositeTestResults).Render(r, out)
}

// RenderToFile writes the page for pkg to path
func (r *PackagePageRenderer) RenderToFile(pkg *models.PackageTestResults, path string) error {
	r.results = pkg
	return NewPageRenderer(&pkg.CompositeTestResults).RenderToFile(r, path)
}

// RenderBreadcrumbs writes "all > package"
func (r *PackagePageRenderer) RenderBreadcrumbs(w *html.Writer) error {
	pkg := r.results
	w.StartElement("div").Attribute("class", "breadcrumbs").
		StartElement("a").Attribute("href", pkg.GetURLTo(pkg.Parent())).Characters("all").EndElement().
		Characters(" > " + pkg.Name()).
		EndElement()
	return w.Err()
}

// RenderFailures links every failed test of the package
func (r *PackagePageRenderer) RenderFailures(w *html.Writer) error {
	return renderTestLinks(w, &r.results.CompositeTestResults, r.results.Failures())
}

// RegisterTabs adds the failures, ignored and classes tabs
func (r *PackagePageRenderer) RegisterTabs(page *PageRenderer) error {
	page.AddFailuresTab()
	if r.results.IgnoredCount() > 0 {
		page.AddTab("Ignored tests", func(w *html.Writer) error {
			return renderTestLinks(w, &r.results.CompositeTestResults, r.results.Ignored())
		})
	}
	page.AddTab("Classes", func(w *html.Writer) error {
		return renderClassTable(w, &r.results.CompositeTestResults, r.results.Classes())
	})
	return nil
}

// renderClassTable writes one row of counters per class
func renderClassTable(w *html.Writer, from *models.CompositeTestResults, classes []*models.ClassTestResults) error {
	renderCounterHeader(w, "Class")
	for _, class := range classes {
		renderCounterRow(w, from, &class.CompositeTestResults, class.DisplayName())
	}
	w.EndElement()
	return w.Err()
}

// renderCounterHeader opens a table and writes its header row
func renderCounterHeader(w *html.Writer, first string) {
	w.StartElement("table").
		StartElement("thead").
		StartElement("tr")
	for _, title := range []string{first, "Tests", "Failures", "Ignored", "Duration", "Success rate"} {
		w.StartElement("th").Characters(title).EndElement()
	}
	w.EndElement().
		EndElement()
}

func renderCounterRow(w *html.Writer, from, node *models.CompositeTestResults, name string) {
	status := node.StatusClass()
	w.StartElement("tr").
		StartElement("td").Attribute("class", status).
		StartElement("a").Attribute("href", from.GetURLTo(node)).Characters(name).EndElement().
		EndElement().
		StartElement("td").Characters(strconv.Itoa(node.TestCount())).EndElement().
		StartElement("td").Characters(strconv.Itoa(node.FailureCount())).EndElement().
		StartElement("td").Characters(strconv.Itoa(node.IgnoredCount())).EndElement().
		StartElement("td").Characters(node.FormattedDuration()).EndElement().
		StartElement("td").Attribute("class", status).Characters(node.FormattedSuccessRate()).EndElement().
		EndElement()
}
