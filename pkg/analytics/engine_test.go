package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/lirany1/junit-html-report/pkg/config"
	"github.com/lirany1/junit-html-report/pkg/models"
	"github.com/lirany1/junit-html-report/pkg/storage"
	"github.com/stretchr/testify/require"
)

func runResults(barFails bool) *models.AllTestResults {
	all := models.NewAllTestResults()
	all.AddTest(1, "org.example.FooTest", "", 10, "foo", "", 100*time.Millisecond)
	bar := all.AddTest(1, "org.example.FooTest", "", 11, "bar", "", 20*time.Millisecond)
	if barFails {
		bar.AddFailure(models.TestFailure{Message: "boom", StackTrace: "trace"})
	}
	skipped := all.AddTest(2, "org.example.BazTest", "", 12, "baz", "", 0)
	skipped.SetIgnored()
	return all
}

func newEngine(t *testing.T) (*Engine, *storage.Database) {
	t.Helper()
	db, err := storage.NewDatabase(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.NewConfig()
	cfg.ProjectName = "demo"
	return NewEngine(cfg, db), db
}

func TestSaveExecutionData(t *testing.T) {
	engine, db := newEngine(t)

	require.NoError(t, engine.SaveExecutionData(runResults(true), "exec-1", time.Now()))

	exec, err := db.GetExecution("exec-1")
	require.NoError(t, err)
	require.Equal(t, "demo", exec.Project)
	require.Equal(t, 3, exec.TotalTests)
	require.Equal(t, 1, exec.PassedTests)
	require.Equal(t, 1, exec.FailedTests)
	require.Equal(t, 1, exec.IgnoredTests)
	require.Equal(t, 50.0, exec.SuccessRate)
	require.Equal(t, int64(120), exec.Duration)

	tests, err := db.GetExecutionTests("exec-1")
	require.NoError(t, err)
	require.Len(t, tests, 3)

	byName := map[string]storage.TestRecord{}
	for _, test := range tests {
		byName[test.TestName] = test
	}
	require.Equal(t, storage.StatusFailed, byName["bar"].Status)
	require.Equal(t, "boom", byName["bar"].ErrorMessage)
	require.Equal(t, storage.StatusIgnored, byName["baz"].Status)
	require.Equal(t, storage.StatusPassed, byName["foo"].Status)
}

func TestSaveExecutionData_NoDatabase(t *testing.T) {
	engine := NewEngine(config.NewConfig(), nil)
	require.Error(t, engine.SaveExecutionData(runResults(false), "exec-1", time.Now()))
	require.Empty(t, engine.DetectFlakyTests(runResults(false)))
}

func TestDetectFlakyTests(t *testing.T) {
	engine, _ := newEngine(t)
	now := time.Now()

	for i := 0; i < 4; i++ {
		require.NoError(t, engine.SaveExecutionData(runResults(i%2 == 0), fmt.Sprintf("exec-%d", i), now.Add(-time.Duration(i)*time.Minute)))
	}

	flaky := engine.DetectFlakyTests(runResults(false))
	require.Len(t, flaky, 1)
	require.Equal(t, "org.example.FooTest", flaky[0].ClassName)
	require.Equal(t, "bar", flaky[0].TestName)
	require.InDelta(t, 1.0, flaky[0].FlakyScore, 0.001)
	require.InDelta(t, 50.0, flaky[0].FailureRate, 0.001)
	require.Equal(t, 4, flaky[0].Occurrences)
}
