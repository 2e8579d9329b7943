package results

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/models"
)

type junitTestSuites struct {
	Suites []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string           `xml:"name,attr"`
	Timestamp string           `xml:"timestamp,attr"`
	TestCases []junitTestCase  `xml:"testcase"`
	Suites    []junitTestSuite `xml:"testsuite"`
	SystemOut string           `xml:"system-out"`
	SystemErr string           `xml:"system-err"`
}

type junitTestCase struct {
	Name      string         `xml:"name,attr"`
	ClassName string         `xml:"classname,attr"`
	Time      string         `xml:"time,attr"`
	Failures  []junitFailure `xml:"failure"`
	Errors    []junitFailure `xml:"error"`
	Skipped   *struct{}      `xml:"skipped"`
	SystemOut string         `xml:"system-out"`
	SystemErr string         `xml:"system-err"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type outputKey struct {
	classID int64
	dest    models.Destination
}

// XMLProvider reads JUnit XML result files
type XMLProvider struct {
	classes []*TestClassResult
	byName  map[string]*TestClassResult
	output  map[outputKey][]string
	nextID  int64
}

// NewXMLProvider parses every *.xml file in resultsDir
func NewXMLProvider(resultsDir string) (*XMLProvider, error) {
	files, err := filepath.Glob(filepath.Join(resultsDir, "*.xml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list result files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no JUnit XML files found in %s", resultsDir)
	}

	p := newXMLProvider()
	for _, file := range files {
		if err := p.loadFile(file); err != nil {
			return nil, err
		}
	}

	logger.Infof("Loaded %d test classes from %d result files", len(p.classes), len(files))
	return p, nil
}

// ParseXML reads a single JUnit XML document
func ParseXML(r io.Reader) (*XMLProvider, error) {
	p := newXMLProvider()
	if err := p.load(r); err != nil {
		return nil, err
	}
	return p, nil
}

func newXMLProvider() *XMLProvider {
	return &XMLProvider{
		byName: make(map[string]*TestClassResult),
		output: make(map[outputKey][]string),
	}
}

// VisitClasses calls fn for every class in discovery order
func (p *XMLProvider) VisitClasses(fn func(*TestClassResult) error) error {
	for _, c := range p.classes {
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// HasOutput reports whether any non blank output was captured
func (p *XMLProvider) HasOutput(classID int64, dest models.Destination) bool {
	for _, chunk := range p.output[outputKey{classID, dest}] {
		if strings.TrimSpace(chunk) != "" {
			return true
		}
	}
	return false
}

// WriteAllOutput streams the captured output to w
func (p *XMLProvider) WriteAllOutput(classID int64, dest models.Destination, w io.Writer) error {
	for _, chunk := range p.output[outputKey{classID, dest}] {
		if _, err := io.WriteString(w, chunk); err != nil {
			return fmt.Errorf("failed to write %s of class %d: %w", dest, classID, err)
		}
	}
	return nil
}

func (p *XMLProvider) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()

	if err := p.load(f); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (p *XMLProvider) load(r io.Reader) error {
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return fmt.Errorf("no testsuite element found")
		}
		if err != nil {
			return err
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "testsuites":
			var suites junitTestSuites
			if err := decoder.DecodeElement(&suites, &start); err != nil {
				return err
			}
			for i := range suites.Suites {
				p.addSuite(&suites.Suites[i])
			}
			return nil
		case "testsuite":
			var suite junitTestSuite
			if err := decoder.DecodeElement(&suite, &start); err != nil {
				return err
			}
			p.addSuite(&suite)
			return nil
		default:
			return fmt.Errorf("unexpected root element <%s>", start.Name.Local)
		}
	}
}

func (p *XMLProvider) addSuite(suite *junitTestSuite) {
	startTime := parseTimestamp(suite.Timestamp)
	var suiteClasses []*TestClassResult

	for _, tc := range suite.TestCases {
		className := tc.ClassName
		if className == "" {
			className = suite.Name
		}
		class := p.classFor(className, startTime)
		if !containsClass(suiteClasses, class) {
			suiteClasses = append(suiteClasses, class)
		}

		p.nextID++
		method := &TestMethodResult{
			ID:       p.nextID,
			Name:     tc.Name,
			Duration: parseSeconds(tc.Time),
			Ignored:  tc.Skipped != nil,
		}
		for _, f := range append(tc.Failures, tc.Errors...) {
			method.Failures = append(method.Failures, models.TestFailure{
				Message:       f.Message,
				StackTrace:    strings.TrimSpace(f.Body),
				ExceptionType: f.Type,
			})
		}
		class.Results = append(class.Results, method)

		p.appendOutput(class.ID, models.StdOut, tc.SystemOut)
		p.appendOutput(class.ID, models.StdErr, tc.SystemErr)
	}

	for _, class := range suiteClasses {
		p.appendOutput(class.ID, models.StdOut, suite.SystemOut)
		p.appendOutput(class.ID, models.StdErr, suite.SystemErr)
	}

	for i := range suite.Suites {
		p.addSuite(&suite.Suites[i])
	}
}

func (p *XMLProvider) classFor(name string, startTime time.Time) *TestClassResult {
	if class, ok := p.byName[name]; ok {
		return class
	}
	p.nextID++
	class := &TestClassResult{
		ID:        p.nextID,
		ClassName: name,
		StartTime: startTime,
	}
	p.byName[name] = class
	p.classes = append(p.classes, class)
	return class
}

func (p *XMLProvider) appendOutput(classID int64, dest models.Destination, text string) {
	if text == "" {
		return
	}
	key := outputKey{classID, dest}
	p.output[key] = append(p.output[key], text)
}

func containsClass(classes []*TestClassResult, class *TestClassResult) bool {
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

func parseSeconds(value string) time.Duration {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Debugf("Ignoring unparsable duration %q: %v", value, err)
		return 0
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
