package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Destination identifies a captured output stream
type Destination int

const (
	StdOut Destination = iota
	StdErr
)

// String returns the stream name
func (d Destination) String() string {
	switch d {
	case StdOut:
		return "StdOut"
	case StdErr:
		return "StdErr"
	default:
		return fmt.Sprintf("Destination(%d)", int(d))
	}
}

// Status classifiers used as CSS classes in the report
const (
	StatusSuccess  = "success"
	StatusFailures = "failures"
	StatusSkipped  = "skipped"
)

// DefaultPackage is the package name for classes declared without one
const DefaultPackage = "default-package"

// TestFailure is a single failure attached to a test
type TestFailure struct {
	Message       string `json:"message,omitempty"`
	StackTrace    string `json:"stackTrace"`
	ExceptionType string `json:"exceptionType,omitempty"`
}

// TestResult is the outcome of one test method
type TestResult struct {
	id          int64
	name        string
	displayName string
	duration    time.Duration
	ignored     bool
	failures    []TestFailure
	classResult *ClassTestResults
}

// ID returns the identifier used to anchor the test on its class page
func (t *TestResult) ID() string {
	return strconv.FormatInt(t.id, 10)
}

// Name returns the test method name
func (t *TestResult) Name() string {
	return t.name
}

// DisplayName returns the display name, falling back to the method name
func (t *TestResult) DisplayName() string {
	if t.displayName != "" {
		return t.displayName
	}
	return t.name
}

// Duration returns the test execution time
func (t *TestResult) Duration() time.Duration {
	return t.duration
}

// FormattedDuration returns the duration in report format
func (t *TestResult) FormattedDuration() string {
	if t.ignored {
		return "-"
	}
	return FormatDuration(t.duration)
}

// ClassResults returns the owning class
func (t *TestResult) ClassResults() *ClassTestResults {
	return t.classResult
}

// Failures returns the failures recorded for the test
func (t *TestResult) Failures() []TestFailure {
	return t.failures
}

// Failed reports whether the test has at least one failure
func (t *TestResult) Failed() bool {
	return len(t.failures) > 0
}

// Ignored reports whether the test was skipped
func (t *TestResult) Ignored() bool {
	return t.ignored
}

// AddFailure records a failure against the test and its ancestors
func (t *TestResult) AddFailure(failure TestFailure) {
	first := len(t.failures) == 0
	t.failures = append(t.failures, failure)
	if first && t.classResult != nil {
		t.classResult.CompositeTestResults.failed(t)
	}
}

// SetIgnored marks the test as skipped
func (t *TestResult) SetIgnored() {
	if t.ignored {
		return
	}
	t.ignored = true
	if t.classResult != nil {
		t.classResult.CompositeTestResults.skipped(t)
	}
}

// StatusClass returns the CSS classifier for the test outcome
func (t *TestResult) StatusClass() string {
	switch {
	case t.Failed():
		return StatusFailures
	case t.ignored:
		return StatusSkipped
	default:
		return StatusSuccess
	}
}

// FormattedResultType returns the human readable outcome
func (t *TestResult) FormattedResultType() string {
	switch {
	case t.Failed():
		return "failed"
	case t.ignored:
		return "ignored"
	default:
		return "passed"
	}
}

// CompositeTestResults holds the counters and URL shared by every aggregate node
type CompositeTestResults struct {
	parent   *CompositeTestResults
	title    string
	baseURL  string
	tests    int
	failures []*TestResult
	ignored  []*TestResult
	duration time.Duration
}

func newComposite(parent *CompositeTestResults, title, baseURL string) CompositeTestResults {
	return CompositeTestResults{parent: parent, title: title, baseURL: baseURL}
}

// Parent returns the enclosing node, nil for the root
func (c *CompositeTestResults) Parent() *CompositeTestResults {
	return c.parent
}

// Title returns the page title for the node
func (c *CompositeTestResults) Title() string {
	return c.title
}

// BaseURL returns the page path relative to the report root
func (c *CompositeTestResults) BaseURL() string {
	return c.baseURL
}

// TestCount returns the number of tests below the node
func (c *CompositeTestResults) TestCount() int {
	return c.tests
}

// FailureCount returns the number of failed tests below the node
func (c *CompositeTestResults) FailureCount() int {
	return len(c.failures)
}

// IgnoredCount returns the number of skipped tests below the node
func (c *CompositeTestResults) IgnoredCount() int {
	return len(c.ignored)
}

// Failures returns the failed tests in insertion order
func (c *CompositeTestResults) Failures() []*TestResult {
	return c.failures
}

// Ignored returns the skipped tests in insertion order
func (c *CompositeTestResults) Ignored() []*TestResult {
	return c.ignored
}

// Duration returns the accumulated test time
func (c *CompositeTestResults) Duration() time.Duration {
	return c.duration
}

// FormattedDuration returns the accumulated test time in report format
func (c *CompositeTestResults) FormattedDuration() string {
	if c.tests == 0 {
		return "-"
	}
	return FormatDuration(c.duration)
}

// SuccessRate returns the percentage of executed tests that passed, or false when nothing ran
func (c *CompositeTestResults) SuccessRate() (int, bool) {
	executed := c.tests - len(c.ignored)
	if executed <= 0 {
		return 0, false
	}
	passed := executed - len(c.failures)
	return passed * 100 / executed, true
}

// FormattedSuccessRate returns the success rate as "NN%" or "-"
func (c *CompositeTestResults) FormattedSuccessRate() string {
	rate, ok := c.SuccessRate()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%d%%", rate)
}

// StatusClass returns the CSS classifier for the aggregate outcome
func (c *CompositeTestResults) StatusClass() string {
	switch {
	case len(c.failures) > 0:
		return StatusFailures
	case len(c.ignored) > 0:
		return StatusSkipped
	default:
		return StatusSuccess
	}
}

// GetURLTo returns the URL of other relative to this node's page
func (c *CompositeTestResults) GetURLTo(other *CompositeTestResults) string {
	return relativeURL(c.baseURL, other.baseURL)
}

func (c *CompositeTestResults) addTest(d time.Duration) {
	for n := c; n != nil; n = n.parent {
		n.tests++
		n.duration += d
	}
}

func (c *CompositeTestResults) failed(t *TestResult) {
	for n := c; n != nil; n = n.parent {
		n.failures = append(n.failures, t)
	}
}

func (c *CompositeTestResults) skipped(t *TestResult) {
	for n := c; n != nil; n = n.parent {
		n.ignored = append(n.ignored, t)
	}
}

// ClassTestResults aggregates the tests of one class
type ClassTestResults struct {
	CompositeTestResults
	id          int64
	name        string
	displayName string
	pkg         *PackageTestResults
	results     []*TestResult
}

// ID returns the class identifier used to look up captured output
func (c *ClassTestResults) ID() int64 {
	return c.id
}

// Name returns the fully qualified class name
func (c *ClassTestResults) Name() string {
	return c.name
}

// DisplayName returns the display name, falling back to the class name
func (c *ClassTestResults) DisplayName() string {
	if c.displayName != "" {
		return c.displayName
	}
	return c.name
}

// SimpleName returns the class name without its package
func (c *ClassTestResults) SimpleName() string {
	if i := strings.LastIndex(c.name, "."); i >= 0 {
		return c.name[i+1:]
	}
	return c.name
}

// PackageResults returns the owning package
func (c *ClassTestResults) PackageResults() *PackageTestResults {
	return c.pkg
}

// TestResults returns the tests in execution order
func (c *ClassTestResults) TestResults() []*TestResult {
	return c.results
}

// Failures returns the failed tests in execution order
func (c *ClassTestResults) Failures() []*TestResult {
	var failures []*TestResult
	for _, t := range c.results {
		if t.Failed() {
			failures = append(failures, t)
		}
	}
	return failures
}

// AddTest appends a test result to the class
func (c *ClassTestResults) AddTest(id int64, name, displayName string, duration time.Duration) *TestResult {
	t := &TestResult{
		id:          id,
		name:        name,
		displayName: displayName,
		duration:    duration,
		classResult: c,
	}
	c.results = append(c.results, t)
	c.addTest(duration)
	return t
}

// PackageTestResults aggregates the classes of one package
type PackageTestResults struct {
	CompositeTestResults
	name    string
	classes map[string]*ClassTestResults
}

// Name returns the package name
func (p *PackageTestResults) Name() string {
	return p.name
}

// Classes returns the classes of the package sorted by name
func (p *PackageTestResults) Classes() []*ClassTestResults {
	classes := make([]*ClassTestResults, 0, len(p.classes))
	for _, c := range p.classes {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].name < classes[j].name
	})
	return classes
}

// AddClass returns the class with the given name, creating it when missing
func (p *PackageTestResults) AddClass(id int64, className, displayName string) *ClassTestResults {
	if c, ok := p.classes[className]; ok {
		return c
	}
	c := &ClassTestResults{
		CompositeTestResults: newComposite(&p.CompositeTestResults, "Class "+displayOr(displayName, className), "classes/"+fileSafe(className)+".html"),
		id:                   id,
		name:                 className,
		displayName:          displayName,
		pkg:                  p,
	}
	p.classes[className] = c
	return c
}

// AllTestResults is the root of the results tree
type AllTestResults struct {
	CompositeTestResults
	packages map[string]*PackageTestResults
}

// NewAllTestResults creates an empty results tree
func NewAllTestResults() *AllTestResults {
	return &AllTestResults{
		CompositeTestResults: newComposite(nil, "Test Summary", "index.html"),
		packages:             make(map[string]*PackageTestResults),
	}
}

// Packages returns the packages sorted by name
func (a *AllTestResults) Packages() []*PackageTestResults {
	packages := make([]*PackageTestResults, 0, len(a.packages))
	for _, p := range a.packages {
		packages = append(packages, p)
	}
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].name < packages[j].name
	})
	return packages
}

// Classes returns every class of every package, sorted by name
func (a *AllTestResults) Classes() []*ClassTestResults {
	var classes []*ClassTestResults
	for _, p := range a.packages {
		for _, c := range p.classes {
			classes = append(classes, c)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].name < classes[j].name
	})
	return classes
}

// AddClass returns the class for className, creating its package and class when missing
func (a *AllTestResults) AddClass(classID int64, className, classDisplayName string) *ClassTestResults {
	return a.addPackageFor(className).AddClass(classID, className, classDisplayName)
}

// AddTest records a test under its class, creating package and class as needed
func (a *AllTestResults) AddTest(classID int64, className, classDisplayName string, testID int64, testName, testDisplayName string, duration time.Duration) *TestResult {
	return a.AddClass(classID, className, classDisplayName).AddTest(testID, testName, testDisplayName, duration)
}

func (a *AllTestResults) addPackageFor(className string) *PackageTestResults {
	name := DefaultPackage
	if i := strings.LastIndex(className, "."); i > 0 {
		name = className[:i]
	}
	if p, ok := a.packages[name]; ok {
		return p
	}
	p := &PackageTestResults{
		CompositeTestResults: newComposite(&a.CompositeTestResults, "Package "+name, "packages/"+fileSafe(name)+".html"),
		name:                 name,
		classes:              make(map[string]*ClassTestResults),
	}
	a.packages[name] = p
	return p
}

// FlakyTest is a test whose outcome flips between runs
type FlakyTest struct {
	ClassName   string
	TestName    string
	FlakyScore  float64
	FailureRate float64
	Occurrences int
}

func displayOr(display, name string) string {
	if display != "" {
		return display
	}
	return name
}

// fileSafe replaces characters that are not portable in file names
func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '#', '%':
			return '_'
		}
		return r
	}, name)
}

// relativeURL resolves target against the directory of from, both relative to the report root
func relativeURL(from, target string) string {
	fromDirs := strings.Split(from, "/")
	fromDirs = fromDirs[:len(fromDirs)-1]
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(fromDirs) && common < len(targetParts)-1 && fromDirs[common] == targetParts[common] {
		common++
	}

	var b strings.Builder
	for i := common; i < len(fromDirs); i++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(targetParts[common:], "/"))
	return b.String()
}

// FormatDuration formats a duration tersely: 0s, 0.100s, 1m2.50s, 1h0m0.00s, 1d2h0m0.00s
func FormatDuration(d time.Duration) string {
	millis := d.Milliseconds()
	if millis == 0 {
		return "0s"
	}

	var b strings.Builder
	if millis < 0 {
		b.WriteString("-")
		millis = -millis
	}

	const (
		perSecond = int64(1000)
		perMinute = 60 * perSecond
		perHour   = 60 * perMinute
		perDay    = 24 * perHour
	)

	prefixed := false
	if days := millis / perDay; days > 0 {
		fmt.Fprintf(&b, "%dd", days)
		prefixed = true
	}
	millis %= perDay
	if hours := millis / perHour; hours > 0 || prefixed {
		fmt.Fprintf(&b, "%dh", hours)
		prefixed = true
	}
	millis %= perHour
	if minutes := millis / perMinute; minutes > 0 || prefixed {
		fmt.Fprintf(&b, "%dm", minutes)
		prefixed = true
	}
	millis %= perMinute

	seconds := millis / perSecond
	fraction := millis % perSecond
	if prefixed {
		// two decimals, half up
		hundredths := (fraction + 5) / 10
		if hundredths == 100 {
			seconds++
			hundredths = 0
		}
		fmt.Fprintf(&b, "%d.%02ds", seconds, hundredths)
	} else {
		fmt.Fprintf(&b, "%d.%03ds", seconds, fraction)
	}
	return b.String()
}
