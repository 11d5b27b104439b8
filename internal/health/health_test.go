package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// =============================================================================
// Mocks
// =============================================================================

type stubBacklog struct {
	count int
}

func (s *stubBacklog) CountPending(ctx context.Context) (int, error) { return s.count, nil }

func ok(ctx context.Context) error   { return nil }
func down(ctx context.Context) error { return errors.New("connection refused") }

func TestMonitorStatus(t *testing.T) {
	tests := []struct {
		name     string
		backend  Check
		redis    Check
		backlog  int
		expected SystemStatus
	}{
		{"all healthy", ok, ok, 0, StatusHealthy},
		{"optional store down", ok, down, 0, StatusDegraded},
		{"backend down", down, ok, 0, StatusCritical},
		{"small backlog", ok, ok, 3, StatusDegraded},
		{"large backlog", ok, ok, 50, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(&stubBacklog{count: tt.backlog})
			m.AddCheck("backend", tt.backend, true)
			m.AddCheck("redis", tt.redis, false)

			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, report.SystemStatus)
			}
			if report.PendingCommits != tt.backlog {
				t.Errorf("expected backlog %d, got %d", tt.backlog, report.PendingCommits)
			}
		})
	}
}

func TestMonitorCachesReport(t *testing.T) {
	calls := 0
	m := NewMonitor(nil)
	m.AddCheck("backend", func(ctx context.Context) error {
		calls++
		return nil
	}, true)

	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())
	if calls != 1 {
		t.Errorf("expected cached report, probe ran %d times", calls)
	}
}

func TestServerHealthEndpoint(t *testing.T) {
	m := NewMonitor(nil)
	m.AddCheck("backend", down, true)
	srv := NewServer(m, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Components["backend"].Error == "" {
		t.Error("expected backend error in detailed report")
	}
}
