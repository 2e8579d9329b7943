package results

import (
	"io"
	"time"

	"github.com/lirany1/junit-html-report/pkg/models"
)

// OutputProvider gives access to the output captured while a class ran
type OutputProvider interface {
	HasOutput(classID int64, dest models.Destination) bool
	WriteAllOutput(classID int64, dest models.Destination, w io.Writer) error
}

// Provider supplies raw test results to the report generator
type Provider interface {
	OutputProvider
	VisitClasses(fn func(*TestClassResult) error) error
}

// TestClassResult is the raw result of one test class
type TestClassResult struct {
	ID               int64
	ClassName        string
	ClassDisplayName string
	StartTime        time.Time
	Results          []*TestMethodResult
}

// TestMethodResult is the raw result of one test method
type TestMethodResult struct {
	ID          int64
	Name        string
	DisplayName string
	Duration    time.Duration
	Ignored     bool
	Failures    []models.TestFailure
}

// Failed reports whether the method has failures
func (r *TestMethodResult) Failed() bool {
	return len(r.Failures) > 0
}
