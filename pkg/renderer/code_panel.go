package renderer

import "github.com/lirany1/junit-html-report/pkg/html"

// CodePanelRenderer renders preformatted text such as stack traces
type CodePanelRenderer struct{}

// Render writes text inside a code panel
func (c *CodePanelRenderer) Render(text string, w *html.Writer) error {
	w.StartElement("span").Attribute("class", "code").
		StartElement("pre").Characters(text).EndElement().
		EndElement()
	return w.Err()
}
