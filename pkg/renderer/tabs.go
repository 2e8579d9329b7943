package renderer

import (
	"fmt"

	"github.com/lirany1/junit-html-report/pkg/html"
)

// TabRenderer writes the content of one tab
type TabRenderer func(w *html.Writer) error

type tab struct {
	title  string
	render TabRenderer
}

// TabsRenderer lays out a list of tabs with their link bar
type TabsRenderer struct {
	tabs []tab
}

// Add appends a tab
func (t *TabsRenderer) Add(title string, render TabRenderer) {
	t.tabs = append(t.tabs, tab{title: title, render: render})
}

// Titles returns the tab titles in order
func (t *TabsRenderer) Titles() []string {
	titles := make([]string, len(t.tabs))
	for i, tab := range t.tabs {
		titles[i] = tab.title
	}
	return titles
}

// Render writes the link bar followed by every tab body
func (t *TabsRenderer) Render(w *html.Writer) error {
	w.StartElement("div").Attribute("id", "tabs")

	w.StartElement("ul").Attribute("class", "tabLinks")
	for i, tab := range t.tabs {
		w.StartElement("li").
			StartElement("a").Attribute("href", fmt.Sprintf("#tab%d", i)).Characters(tab.title).EndElement().
			EndElement()
	}
	w.EndElement()

	for i, tab := range t.tabs {
		w.StartElement("div").Attribute("id", fmt.Sprintf("tab%d", i)).Attribute("class", "tab").
			StartElement("h2").Characters(tab.title).EndElement()
		if err := tab.render(w); err != nil {
			return fmt.Errorf("failed to render tab %q: %w", tab.title, err)
		}
		w.EndElement()
	}

	w.EndElement()
	return w.Err()
}
