package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/logger"
	"github.com/lirany1/junit-html-report/pkg/models"
	"github.com/lirany1/junit-html-report/pkg/storage"
)

// Engine handles analytics processing with database integration
type Engine struct {
	config *config.Config
	db     *storage.Database
}

// NewEngine creates a new analytics engine with database support
func NewEngine(cfg *config.Config, db *storage.Database) *Engine {
	return &Engine{
		config: cfg,
		db:     db,
	}
}

// SaveExecutionData saves the current results to the database for historical tracking
func (e *Engine) SaveExecutionData(all *models.AllTestResults, executionID string, timestamp time.Time) error {
	if e.db == nil {
		return fmt.Errorf("database not initialized")
	}

	failed := all.FailureCount()
	ignored := all.IgnoredCount()
	rate, _ := all.SuccessRate()

	execution := &storage.ExecutionRecord{
		ID:           executionID,
		Project:      e.config.ProjectName,
		Timestamp:    timestamp,
		Duration:     all.Duration().Milliseconds(),
		TotalTests:   all.TestCount(),
		PassedTests:  all.TestCount() - failed - ignored,
		FailedTests:  failed,
		IgnoredTests: ignored,
		SuccessRate:  float64(rate),
	}

	var tests []*storage.TestRecord
	for _, class := range all.Classes() {
		for _, test := range class.TestResults() {
			record := &storage.TestRecord{
				ExecutionID: executionID,
				ClassName:   class.Name(),
				TestName:    test.Name(),
				Status:      historyStatus(test),
				Duration:    test.Duration().Milliseconds(),
			}
			if failures := test.Failures(); len(failures) > 0 {
				record.ErrorMessage = failures[0].Message
				record.StackTrace = failures[0].StackTrace
			}
			tests = append(tests, record)
		}
	}

	if err := e.db.SaveExecution(execution, tests); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	logger.WithFields(logger.Fields{
		"execution": executionID,
		"tests":     len(tests),
	}).Info("Saved execution history")
	return nil
}

// DetectFlakyTests identifies tests whose outcome flips across recent executions,
// most flaky first
func (e *Engine) DetectFlakyTests(all *models.AllTestResults) []*models.FlakyTest {
	flakyTests := make([]*models.FlakyTest, 0)

	if e.db == nil {
		return flakyTests
	}

	for _, class := range all.Classes() {
		for _, test := range class.TestResults() {
			score, failureRate, runs, err := e.db.CalculateFlakyScore(class.Name(), test.Name(), e.config.TrendWindowDays)
			if err != nil {
				logger.Warnf("Failed to calculate flaky score for %s.%s: %v", class.Name(), test.Name(), err)
				continue
			}

			if score > e.config.FlakyThreshold {
				flakyTests = append(flakyTests, &models.FlakyTest{
					ClassName:   class.Name(),
					TestName:    test.Name(),
					FlakyScore:  score,
					FailureRate: failureRate,
					Occurrences: runs,
				})
			}
		}
	}

	sort.SliceStable(flakyTests, func(i, j int) bool {
		return flakyTests[i].FlakyScore > flakyTests[j].FlakyScore
	})

	return flakyTests
}

func historyStatus(test *models.TestResult) string {
	switch {
	case test.Failed():
		return storage.StatusFailed
	case test.Ignored():
		return storage.StatusIgnored
	default:
		return storage.StatusPassed
	}
}
