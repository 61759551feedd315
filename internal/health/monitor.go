// Package health exposes engine status over HTTP for operators and
// process managers.
package health

import (
	"context"
	"time"

	"github.com/Amaayu/Social-media-automaton/internal/core/domain"
	"github.com/Amaayu/Social-media-automaton/internal/engine"
)

// Status is an aggregate health level.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusStopped  Status = "stopped"
)

// AccountHealth is the per-account status report.
type AccountHealth struct {
	AccountID     string       `json:"account_id"`
	EngineState   engine.State `json:"engine_state"`
	IsActive      bool         `json:"is_active"`
	LastCheckTime *time.Time   `json:"last_check_time,omitempty"`
	Stats         domain.Stats `json:"stats"`
	Status        Status       `json:"status"`
}

// Monitor aggregates engine snapshots for the health endpoints.
type Monitor struct {
	engines       []*engine.Engine
	pollIntervals map[string]time.Duration
}

// NewMonitor creates a monitor over the given engines.
func NewMonitor(engines []*engine.Engine, pollIntervals map[string]time.Duration) *Monitor {
	return &Monitor{engines: engines, pollIntervals: pollIntervals}
}

// CheckHealth reports status per account. An active engine whose last
// check is more than three poll intervals old is degraded (stuck cycle or
// collaborator outage); an inactive engine reports stopped, which is not
// an error state by itself.
func (m *Monitor) CheckHealth(ctx context.Context) []AccountHealth {
	now := time.Now()
	report := make([]AccountHealth, 0, len(m.engines))

	for _, eng := range m.engines {
		snap := eng.Snapshot()
		h := AccountHealth{
			AccountID:     snap.AccountID,
			EngineState:   eng.State(),
			IsActive:      snap.IsActive,
			LastCheckTime: snap.LastCheckTime,
			Stats:         snap.Stats,
			Status:        StatusHealthy,
		}

		if !snap.IsActive {
			h.Status = StatusStopped
		} else if snap.LastCheckTime != nil {
			interval := m.pollIntervals[snap.AccountID]
			if interval > 0 && now.Sub(*snap.LastCheckTime) > 3*interval {
				h.Status = StatusDegraded
			}
		}
		report = append(report, h)
	}
	return report
}
