package orchestrator

import (
	"context"
	"time"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/event"
)

// GetAgentMetrics returns a copy of one agent's metrics.
func (o *Orchestrator) GetAgentMetrics(agentID string) (agent.Metrics, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.agents[agentID]
	if !ok {
		return agent.Metrics{}, false
	}
	return e.record.Metrics.Clone(), true
}

// GetSystemMetrics aggregates metrics over all agents and emits
// agent_metrics_updated with the result.
func (o *Orchestrator) GetSystemMetrics() agent.SystemMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()

	records := make([]agent.Record, 0, len(o.agents))
	for _, e := range o.agents {
		records = append(records, e.record)
	}
	sm := agent.Aggregate(records)
	o.emit(event.NewMetricsUpdatedEvent(sm, o.now()))
	return sm
}

// RunMetricsPush calls GetSystemMetrics every interval until ctx is done,
// giving event consumers a periodic telemetry feed. A non-positive interval
// returns immediately.
func (o *Orchestrator) RunMetricsPush(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm := o.GetSystemMetrics()
			o.logger.Debug("pushed system metrics",
				"total_agents", sm.TotalAgents,
				"running_agents", sm.RunningAgents,
				"success_rate", sm.SuccessRate)
		}
	}
}
