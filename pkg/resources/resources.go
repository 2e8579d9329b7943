// Package resources locates extra per-test artifacts (screenshots, logs, dumps)
// that class pages link next to the test they belong to.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/getgauge/common"
	"github.com/lirany1/junit-html-report/pkg/models"
)

// AdditionalResource finds artifact files belonging to a test
type AdditionalResource interface {
	FindResources(test *models.TestResult) ([]string, error)
}

// GlobResource matches files with a pattern rooted at Dir. The pattern may use
// {class}, {simpleClass} and {test} placeholders, e.g. "{class}/{test}*.png".
type GlobResource struct {
	Dir     string
	Pattern string
}

// NewGlobResource creates a glob based resource finder
func NewGlobResource(dir, pattern string) *GlobResource {
	return &GlobResource{Dir: dir, Pattern: pattern}
}

// FindResources returns the matching regular files, sorted
func (g *GlobResource) FindResources(test *models.TestResult) ([]string, error) {
	pattern := expand(g.Pattern, test)
	matches, err := filepath.Glob(filepath.Join(g.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid attachment pattern %q: %w", g.Pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, match)
	}
	sort.Strings(files)
	return files, nil
}

// DirectoryResource collects every file in <Root>/<class>/<test>/
type DirectoryResource struct {
	Root string
}

// NewDirectoryResource creates a directory based resource finder
func NewDirectoryResource(root string) *DirectoryResource {
	return &DirectoryResource{Root: root}
}

// FindResources lists the test's attachment directory, if any
func (d *DirectoryResource) FindResources(test *models.TestResult) ([]string, error) {
	class := test.ClassResults()
	if class == nil {
		return nil, nil
	}

	dir := filepath.Join(d.Root, sanitize(class.Name()), sanitize(test.Name()))
	if !common.DirExists(dir) {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments in %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

func expand(pattern string, test *models.TestResult) string {
	var className, simpleName string
	if class := test.ClassResults(); class != nil {
		className = class.Name()
		simpleName = class.SimpleName()
	}
	return strings.NewReplacer(
		"{class}", sanitize(className),
		"{simpleClass}", sanitize(simpleName),
		"{test}", sanitize(test.Name()),
	).Replace(pattern)
}

// sanitize keeps placeholder values from escaping the directory or acting as glob metacharacters
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '*', '?', '[', ']', ':':
			return '_'
		}
		return r
	}, name)
}
