package renderer

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/lirany1/junit-html-report/pkg/html"
	"github.com/lirany1/junit-html-report/pkg/models"
	"github.com/lirany1/junit-html-report/pkg/resources"
	"github.com/lirany1/junit-html-report/pkg/results"
)

const lineSeparator = "\n"

// ClassPageRenderer renders the page of a single test class: its tests,
// failure details, captured output and per-test attachments.
//
// A ClassPageRenderer is not safe for concurrent use.
type ClassPageRenderer struct {
	provider            results.OutputProvider
	classesDir          string
	codePanel           CodePanelRenderer
	additionalResources []resources.AdditionalResource
	results             *models.ClassTestResults
}

// NewClassPageRenderer creates a class page renderer. Attachments are copied into classesDir.
func NewClassPageRenderer(provider results.OutputProvider, classesDir string) *ClassPageRenderer {
	return &ClassPageRenderer{
		provider:   provider,
		classesDir: classesDir,
	}
}

// AddAdditionalResources appends attachment finders consulted for every test row
func (r *ClassPageRenderer) AddAdditionalResources(additional ...resources.AdditionalResource) {
	r.additionalResources = append(r.additionalResources, additional...)
}

// Render writes the page for classResults to out
func (r *ClassPageRenderer) Render(classResults *models.ClassTestResults, out io.Writer) error {
	r.results = classResults
	return NewPageRenderer(&classResults.CompositeTestResults).Render(r, out)
}

// RenderToFile writes the page for classResults to path
func (r *ClassPageRenderer) RenderToFile(classResults *models.ClassTestResults, path string) error {
	r.results = classResults
	return NewPageRenderer(&classResults.CompositeTestResults).RenderToFile(r, path)
}

// RenderBreadcrumbs writes "all > package > class"
func (r *ClassPageRenderer) RenderBreadcrumbs(w *html.Writer) error {
	class := r.results
	pkg := class.PackageResults()

	w.StartElement("div").Attribute("class", "breadcrumbs").
		StartElement("a").Attribute("href", class.GetURLTo(class.Parent().Parent())).Characters("all").EndElement().
		Characters(" > ").
		StartElement("a").Attribute("href", class.GetURLTo(&pkg.CompositeTestResults)).Characters(pkg.Name()).EndElement().
		Characters(fmt.Sprintf(" > %s", class.SimpleName())).
		EndElement()
	return w.Err()
}

// RenderFailures writes the details of every failed test
func (r *ClassPageRenderer) RenderFailures(w *html.Writer) error {
	for _, test := range r.results.Failures() {
		w.StartElement("div").Attribute("class", "test").
			StartElement("a").Attribute("name", test.ID()).Characters("").EndElement().
			StartElement("h3").Attribute("class", test.StatusClass()).Characters(test.DisplayName()).EndElement()
		for _, failure := range test.Failures() {
			if err := r.codePanel.Render(failureText(failure), w); err != nil {
				return err
			}
		}
		w.EndElement()
	}
	return w.Err()
}

// RegisterTabs adds the failures, tests and captured output tabs
func (r *ClassPageRenderer) RegisterTabs(page *PageRenderer) error {
	page.AddFailuresTab()
	page.AddTab("Tests", r.renderTests)

	classID := r.results.ID()
	if r.provider.HasOutput(classID, models.StdOut) {
		page.AddTab("Standard output", func(w *html.Writer) error {
			return r.renderOutput(w, classID, models.StdOut)
		})
	}
	if r.provider.HasOutput(classID, models.StdErr) {
		page.AddTab("Standard error", func(w *html.Writer) error {
			return r.renderOutput(w, classID, models.StdErr)
		})
	}
	return nil
}

func (r *ClassPageRenderer) renderTests(w *html.Writer) error {
	w.StartElement("table").
		StartElement("thead").
		StartElement("tr").
		StartElement("th").Characters("Test").EndElement().
		StartElement("th").Characters("Duration").EndElement().
		StartElement("th").Characters("Result").EndElement().
		EndElement().
		EndElement()

	for _, test := range r.results.TestResults() {
		w.StartElement("tr").
			StartElement("td").Attribute("class", test.StatusClass()).Characters(test.DisplayName()).EndElement().
			StartElement("td").Characters(test.FormattedDuration()).EndElement().
			StartElement("td").Attribute("class", test.StatusClass()).Characters(test.FormattedResultType()).EndElement().
			EndElement()

		var files []string
		for _, additional := range r.additionalResources {
			found, err := additional.FindResources(test)
			if err != nil {
				return fmt.Errorf("failed to find attachments for %s: %w", test.Name(), err)
			}
			files = append(files, found...)
		}
		if len(files) == 0 {
			continue
		}

		w.StartElement("tr").StartElement("td").Attribute("colspan", "3").StartElement("table")
		for _, file := range files {
			name, err := copyAttachment(file, r.classesDir)
			if err != nil {
				return err
			}
			w.StartElement("tr").
				StartElement("td").
				StartElement("a").Attribute("href", url.PathEscape(name)).Attribute("style", "font-size:small").Characters(name).EndElement().
				EndElement().
				EndElement()
		}
		w.EndElement().EndElement().EndElement()
	}

	w.EndElement()
	return w.Err()
}

func (r *ClassPageRenderer) renderOutput(w *html.Writer, classID int64, dest models.Destination) error {
	w.StartElement("span").Attribute("class", "code").
		StartElement("pre").
		Characters("")
	if err := r.provider.WriteAllOutput(classID, dest, w); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	w.EndElement().
		EndElement()
	return w.Err()
}

// failureText skips the message when the stack trace already contains it
func failureText(failure models.TestFailure) string {
	if failure.Message != "" && !strings.Contains(failure.StackTrace, failure.Message) {
		return failure.Message + lineSeparator + lineSeparator + failure.StackTrace
	}
	return failure.StackTrace
}

// copyAttachment copies src into destDir under its base name, replacing any
// existing file and keeping the source mode and modification time.
func copyAttachment(src, destDir string) (string, error) {
	name := filepath.Base(src)

	info, err := os.Stat(src)
	if err != nil {
		return "", fmt.Errorf("failed to stat attachment: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open attachment: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create attachment directory: %w", err)
	}

	tmp, err := os.CreateTemp(destDir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to create attachment copy: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to copy attachment %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to copy attachment %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to copy attachment mode: %w", err)
	}
	if err := os.Chtimes(tmp.Name(), info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("failed to copy attachment times: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(destDir, name)); err != nil {
		return "", fmt.Errorf("failed to replace attachment %s: %w", name, err)
	}

	return name, nil
}
