package health

import (
	"context"
	"sync"
	"time"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// BacklogCounter reports the number of journaled partial commits.
type BacklogCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type namedCheck struct {
	name     string
	check    Check
	critical bool
}

// Monitor aggregates health status from the backend and local stores.
type Monitor struct {
	checks  []namedCheck
	backlog BacklogCounter

	// Backlog sizes that degrade and then fail the report.
	DegradedBacklog int
	CriticalBacklog int

	cacheFor   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(backlog BacklogCounter) *Monitor {
	return &Monitor{
		backlog:         backlog,
		DegradedBacklog: 1,
		CriticalBacklog: 50,
		cacheFor:        10 * time.Second,
	}
}

// AddCheck registers a dependency probe. A failing critical check makes the whole
// report critical; any other failure degrades it.
func (m *Monitor) AddCheck(name string, check Check, critical bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, namedCheck{name: name, check: check, critical: critical})
}

// CheckHealth runs every probe. Results are cached briefly so the endpoint can't be
// used to hammer the backend.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.cacheFor && m.lastReport.Components != nil {
		return m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checks)),
	}

	for _, c := range m.checks {
		start := time.Now()
		err := c.check(ctx)
		h := ComponentHealth{
			Name:    c.name,
			Status:  StatusHealthy,
			Latency: time.Since(start).Milliseconds(),
		}
		if err != nil {
			h.Error = err.Error()
			h.Status = StatusDegraded
			if c.critical {
				h.Status = StatusCritical
			}
		}
		report.Components[c.name] = h
		report.SystemStatus = worst(report.SystemStatus, h.Status)
	}

	if m.backlog != nil {
		if n, err := m.backlog.CountPending(ctx); err == nil {
			report.PendingCommits = n
			switch {
			case m.CriticalBacklog > 0 && n >= m.CriticalBacklog:
				report.SystemStatus = worst(report.SystemStatus, StatusCritical)
			case m.DegradedBacklog > 0 && n >= m.DegradedBacklog:
				report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
