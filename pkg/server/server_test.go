package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lirany1/junit-html-report/pkg/storage"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, withHistory bool) (*Server, string) {
	t.Helper()
	reportsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(reportsDir, "index.html"), []byte("<html>report</html>"), 0644))

	var db *storage.Database
	if withHistory {
		var err error
		db, err = storage.NewDatabase(filepath.Join(reportsDir, ".history"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		now := time.Now().UTC()
		for i, id := range []string{"first", "second"} {
			require.NoError(t, db.SaveExecution(&storage.ExecutionRecord{
				ID:          id,
				Timestamp:   now.Add(time.Duration(i) * time.Minute),
				TotalTests:  1,
				PassedTests: 1,
				SuccessRate: 100,
			}, []*storage.TestRecord{
				{ClassName: "org.example.FooTest", TestName: "foo", Status: storage.StatusPassed},
			}))
		}
	}

	return NewServer(&Config{ReportsDir: reportsDir, TrendWindowDays: 30}, db), reportsDir
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_StaticReport(t *testing.T) {
	s, _ := newTestServer(t, false)

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "report")

	// FileServer canonicalises index.html to its directory
	rec = get(t, s, "/index.html")
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "./", rec.Header().Get("Location"))
}

func TestServer_ListReports(t *testing.T) {
	s, _ := newTestServer(t, true)

	rec := get(t, s, "/api/reports")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Reports []storage.ExecutionRecord `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 2)
	require.Equal(t, "second", body.Reports[0].ID)

	rec = get(t, s, "/api/reports?limit=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reports, 1)
}

func TestServer_GetReport(t *testing.T) {
	s, _ := newTestServer(t, true)

	rec := get(t, s, "/api/reports/first")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Execution storage.ExecutionRecord `json:"execution"`
		Tests     []storage.TestRecord    `json:"tests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "first", body.Execution.ID)
	require.Len(t, body.Tests, 1)
	require.Equal(t, "foo", body.Tests[0].TestName)
}

func TestServer_Errors(t *testing.T) {
	withHistory, _ := newTestServer(t, true)
	withoutHistory, _ := newTestServer(t, false)

	tests := []struct {
		name   string
		server *Server
		path   string
		status int
	}{
		{"unknown report", withHistory, "/api/reports/missing", http.StatusNotFound},
		{"bad limit", withHistory, "/api/reports?limit=zero", http.StatusBadRequest},
		{"history disabled", withoutHistory, "/api/reports", http.StatusServiceUnavailable},
		{"trends without history", withoutHistory, "/api/trends", http.StatusServiceUnavailable},
		{"trends", withHistory, "/api/trends", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, tt.server, tt.path)
			if rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
			}
		})
	}
}
