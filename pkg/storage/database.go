package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/lirany1/junit-html-report/pkg/logger"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when an execution does not exist
var ErrNotFound = errors.New("execution not found")

// timestamps are stored in the layout sqlite's datetime() produces so range
// queries compare correctly
const timeLayout = "2006-01-02 15:04:05"

// Database handles historical test execution data
type Database struct {
	db   *sql.DB
	path string
}

// ExecutionRecord represents a single report generation run
type ExecutionRecord struct {
	ID           string    `json:"id"`
	Project      string    `json:"project"`
	Timestamp    time.Time `json:"timestamp"`
	Duration     int64     `json:"duration"`
	TotalTests   int       `json:"totalTests"`
	PassedTests  int       `json:"passedTests"`
	FailedTests  int       `json:"failedTests"`
	IgnoredTests int       `json:"ignoredTests"`
	SuccessRate  float64   `json:"successRate"`
}

// TestRecord represents the outcome of one test in an execution
type TestRecord struct {
	ExecutionID  string `json:"executionId"`
	ClassName    string `json:"className"`
	TestName     string `json:"testName"`
	Status       string `json:"status"`
	Duration     int64  `json:"duration"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	StackTrace   string `json:"stackTrace,omitempty"`
}

// TrendPoint represents a single point in trend data
type TrendPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	SuccessRate float64   `json:"successRate"`
	Duration    int64     `json:"duration"`
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
}

// Test statuses stored in the history
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusIgnored = "ignored"
)

// NewDatabase creates or opens the historical database inside historyDir
func NewDatabase(historyDir string) (*Database, error) {
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dbPath := filepath.Join(historyDir, "test-history.db")
	logger.Debugf("Opening database at: %s", dbPath)

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:   db,
		path: dbPath,
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return database, nil
}

// Path returns the database file location
func (d *Database) Path() string {
	return d.path
}

// migrate creates or updates the database schema
func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			project TEXT,
			timestamp DATETIME NOT NULL,
			duration INTEGER NOT NULL,
			total_tests INTEGER,
			passed_tests INTEGER,
			failed_tests INTEGER,
			ignored_tests INTEGER,
			success_rate REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_execution_timestamp
		 ON executions(timestamp DESC)`,

		`CREATE TABLE IF NOT EXISTS test_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT NOT NULL,
			class_name TEXT NOT NULL,
			test_name TEXT NOT NULL,
			status TEXT NOT NULL,
			duration INTEGER,
			error_message TEXT,
			stack_trace TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (execution_id) REFERENCES executions(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_test_name
		 ON test_history(class_name, test_name)`,

		`CREATE INDEX IF NOT EXISTS idx_test_execution
		 ON test_history(execution_id)`,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	return nil
}

// SaveExecution saves an execution record together with its tests in one transaction
func (d *Database) SaveExecution(exec *ExecutionRecord, tests []*TestRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO executions (
			id, project, timestamp, duration, total_tests,
			passed_tests, failed_tests, ignored_tests, success_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exec.ID,
		exec.Project,
		exec.Timestamp.UTC().Format(timeLayout),
		exec.Duration,
		exec.TotalTests,
		exec.PassedTests,
		exec.FailedTests,
		exec.IgnoredTests,
		exec.SuccessRate,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO test_history (
			execution_id, class_name, test_name, status,
			duration, error_message, stack_trace
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare test insert: %w", err)
	}
	defer stmt.Close()

	for _, test := range tests {
		_, err := stmt.Exec(
			exec.ID,
			test.ClassName,
			test.TestName,
			test.Status,
			test.Duration,
			test.ErrorMessage,
			test.StackTrace,
		)
		if err != nil {
			return fmt.Errorf("failed to save test %s.%s: %w", test.ClassName, test.TestName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit execution: %w", err)
	}

	logger.Debugf("Saved execution record: %s (%d tests)", exec.ID, len(tests))
	return nil
}

// GetRecentExecutions retrieves the last N executions, newest first
func (d *Database) GetRecentExecutions(limit int) ([]ExecutionRecord, error) {
	rows, err := d.db.Query(`
		SELECT
			id, project, timestamp, duration, total_tests,
			passed_tests, failed_tests, ignored_tests, success_rate
		FROM executions
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	executions := []ExecutionRecord{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		executions = append(executions, *exec)
	}

	return executions, rows.Err()
}

// GetExecution retrieves one execution by id
func (d *Database) GetExecution(id string) (*ExecutionRecord, error) {
	row := d.db.QueryRow(`
		SELECT
			id, project, timestamp, duration, total_tests,
			passed_tests, failed_tests, ignored_tests, success_rate
		FROM executions
		WHERE id = ?
	`, id)

	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return exec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(s scanner) (*ExecutionRecord, error) {
	var exec ExecutionRecord
	var project sql.NullString
	var timestamp string

	err := s.Scan(
		&exec.ID,
		&project,
		&timestamp,
		&exec.Duration,
		&exec.TotalTests,
		&exec.PassedTests,
		&exec.FailedTests,
		&exec.IgnoredTests,
		&exec.SuccessRate,
	)
	if err != nil {
		return nil, err
	}

	exec.Project = project.String
	exec.Timestamp, err = parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

// GetExecutionTests retrieves the tests recorded for one execution
func (d *Database) GetExecutionTests(executionID string) ([]TestRecord, error) {
	rows, err := d.db.Query(`
		SELECT
			execution_id, class_name, test_name, status,
			duration, error_message, stack_trace
		FROM test_history
		WHERE execution_id = ?
		ORDER BY id
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tests: %w", err)
	}
	defer rows.Close()

	return scanTests(rows)
}

// GetTestHistory retrieves the outcomes of one test over the last days
func (d *Database) GetTestHistory(className, testName string, days int) ([]TestRecord, error) {
	rows, err := d.db.Query(`
		SELECT
			th.execution_id, th.class_name, th.test_name, th.status,
			th.duration, th.error_message, th.stack_trace
		FROM test_history th
		JOIN executions e ON th.execution_id = e.id
		WHERE th.class_name = ? AND th.test_name = ?
		AND e.timestamp >= datetime('now', '-' || ? || ' days')
		ORDER BY e.timestamp DESC
	`, className, testName, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query test history: %w", err)
	}
	defer rows.Close()

	return scanTests(rows)
}

func scanTests(rows *sql.Rows) ([]TestRecord, error) {
	tests := []TestRecord{}
	for rows.Next() {
		var test TestRecord
		var message, trace sql.NullString
		err := rows.Scan(
			&test.ExecutionID,
			&test.ClassName,
			&test.TestName,
			&test.Status,
			&test.Duration,
			&message,
			&trace,
		)
		if err != nil {
			return nil, err
		}
		test.ErrorMessage = message.String
		test.StackTrace = trace.String
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

// CalculateFlakyScore calculates how flaky a test is (0.0 = stable, 1.0 = very flaky)
// along with its failure rate in percent and the number of runs considered
func (d *Database) CalculateFlakyScore(className, testName string, days int) (score, failureRate float64, runs int, err error) {
	var failedRuns sql.NullInt64
	err = d.db.QueryRow(`
		SELECT
			COUNT(*) as total_runs,
			SUM(CASE WHEN th.status = 'failed' THEN 1 ELSE 0 END) as failed_runs
		FROM test_history th
		JOIN executions e ON th.execution_id = e.id
		WHERE th.class_name = ? AND th.test_name = ?
		AND th.status != 'ignored'
		AND e.timestamp >= datetime('now', '-' || ? || ' days')
	`, className, testName, days).Scan(&runs, &failedRuns)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to calculate flaky score: %w", err)
	}

	if runs == 0 {
		return 0, 0, 0, nil
	}
	rate := float64(failedRuns.Int64) / float64(runs)
	if runs < 3 {
		// Not enough data
		return 0, rate * 100, runs, nil
	}

	// 0% or 100% failure is stable, 50% is the flakiest
	return 1.0 - 2.0*math.Abs(rate-0.5), rate * 100, runs, nil
}

// GetTrendData retrieves trend data for the last N days, oldest first
func (d *Database) GetTrendData(days int) ([]TrendPoint, error) {
	rows, err := d.db.Query(`
		SELECT
			timestamp,
			success_rate,
			duration,
			total_tests,
			passed_tests,
			failed_tests
		FROM executions
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		ORDER BY timestamp ASC
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer rows.Close()

	trends := []TrendPoint{}
	for rows.Next() {
		var tp TrendPoint
		var timestamp string

		err := rows.Scan(
			&timestamp,
			&tp.SuccessRate,
			&tp.Duration,
			&tp.Total,
			&tp.Passed,
			&tp.Failed,
		)
		if err != nil {
			return nil, err
		}

		if tp.Timestamp, err = parseTimestamp(timestamp); err != nil {
			return nil, err
		}
		trends = append(trends, tp)
	}

	return trends, rows.Err()
}

// CleanupOldData removes executions older than retentionDays along with their tests
func (d *Database) CleanupOldData(retentionDays int) error {
	queries := []struct {
		table string
		query string
	}{
		{"test_history", `
			DELETE FROM test_history
			WHERE execution_id IN (
				SELECT id FROM executions
				WHERE timestamp < datetime('now', '-' || ? || ' days')
			)`},
		{"executions", `
			DELETE FROM executions
			WHERE timestamp < datetime('now', '-' || ? || ' days')`},
	}

	for _, q := range queries {
		result, err := d.db.Exec(q.query, retentionDays)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.table, err)
		}

		rows, _ := result.RowsAffected()
		if rows > 0 {
			logger.Infof("Cleaned up %d old records from %s", rows, q.table)
		}
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// parseTimestamp accepts both the stored layout and the RFC3339 form the
// sqlite driver returns for DATETIME columns
func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}
