// Package html provides a streaming markup writer used by the report pages.
//
// Elements are written as they are opened, so pages of any size are produced
// without building a document tree. The writer records the first error it hits
// and turns every later call into a no-op; callers chain calls and check Err
// (or the error returned by Close) once.
package html

import (
	"errors"
	"fmt"
	"html"
	"io"
)

// ErrUnbalanced is returned when elements are not closed in order
var ErrUnbalanced = errors.New("unbalanced markup")

type state int

const (
	stateContent state = iota
	stateStartTag
)

// Writer writes well formed markup to an underlying io.Writer
type Writer struct {
	out   io.Writer
	stack []string
	state state
	err   error
}

// NewWriter creates a markup writer on top of w
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// WriteDoctype emits the HTML5 doctype
func (w *Writer) WriteDoctype() *Writer {
	if len(w.stack) > 0 {
		w.fail(fmt.Errorf("%w: doctype inside <%s>", ErrUnbalanced, w.stack[len(w.stack)-1]))
	}
	w.raw("<!DOCTYPE html>\n")
	return w
}

// StartElement opens a new element
func (w *Writer) StartElement(name string) *Writer {
	w.closeStartTag()
	w.raw("<" + name)
	w.stack = append(w.stack, name)
	w.state = stateStartTag
	return w
}

// Attribute adds an attribute to the element just opened
func (w *Writer) Attribute(name, value string) *Writer {
	if w.err != nil {
		return w
	}
	if w.state != stateStartTag {
		w.fail(fmt.Errorf("%w: attribute %q outside a start tag", ErrUnbalanced, name))
		return w
	}
	w.raw(" " + name + `="` + html.EscapeString(value) + `"`)
	return w
}

// Characters writes escaped character data. An empty string still closes the
// start tag, which forces an explicit end tag for the element.
func (w *Writer) Characters(text string) *Writer {
	w.closeStartTag()
	w.raw(html.EscapeString(text))
	return w
}

// EndElement closes the innermost open element
func (w *Writer) EndElement() *Writer {
	if w.err != nil {
		return w
	}
	if len(w.stack) == 0 {
		w.fail(fmt.Errorf("%w: end element with nothing open", ErrUnbalanced))
		return w
	}
	name := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	if w.state == stateStartTag {
		w.raw("/>")
		w.state = stateContent
		return w
	}
	w.raw("</" + name + ">")
	return w
}

// Write streams p as escaped character data so the writer can be used as an io.Writer sink
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.Characters(string(p))
	if w.err != nil {
		return 0, w.err
	}
	return len(p), nil
}

// Err returns the first error encountered
func (w *Writer) Err() error {
	return w.err
}

// Depth returns the number of open elements
func (w *Writer) Depth() int {
	return len(w.stack)
}

// Close verifies every element was closed and returns the first error encountered
func (w *Writer) Close() error {
	if w.err == nil && len(w.stack) > 0 {
		w.err = fmt.Errorf("%w: <%s> left open", ErrUnbalanced, w.stack[len(w.stack)-1])
	}
	return w.err
}

func (w *Writer) closeStartTag() {
	if w.state == stateStartTag {
		w.raw(">")
		w.state = stateContent
	}
}

func (w *Writer) raw(s string) {
	if w.err != nil || s == "" {
		return
	}
	if _, err := io.WriteString(w.out, s); err != nil {
		w.fail(fmt.Errorf("failed to write markup: %w", err))
	}
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}
