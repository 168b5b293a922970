package agent

// SystemMetrics is the system-wide rollup over all registered agents.
type SystemMetrics struct {
	TotalAgents         int     `json:"total_agents"`
	RunningAgents       int     `json:"running_agents"`
	IdleAgents          int     `json:"idle_agents"`
	TotalTasksCompleted int     `json:"total_tasks_completed"`
	TotalTasksFailed    int     `json:"total_tasks_failed"`
	SuccessRate         float64 `json:"success_rate"`
}

// Aggregate computes SystemMetrics from a snapshot of records. It has no
// side effects and returns zero values, including a 0.0 success rate, for an
// empty snapshot.
func Aggregate(records []Record) SystemMetrics {
	var sm SystemMetrics
	sm.TotalAgents = len(records)

	for i := range records {
		r := &records[i]
		switch r.Status {
		case StatusRunning:
			sm.RunningAgents++
		case StatusIdle:
			sm.IdleAgents++
		}
		sm.TotalTasksCompleted += r.Metrics.TasksCompleted
		sm.TotalTasksFailed += r.Metrics.TasksFailed
	}

	sm.SuccessRate = SuccessRate(sm.TotalTasksCompleted, sm.TotalTasksFailed)
	return sm
}

// SuccessRate returns completed / (completed + failed), or 0 when no task
// has finished.
func SuccessRate(completed, failed int) float64 {
	total := completed + failed
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

// ToMap renders the metrics with their wire field names.
func (sm SystemMetrics) ToMap() map[string]any {
	return map[string]any{
		"total_agents":          sm.TotalAgents,
		"running_agents":        sm.RunningAgents,
		"idle_agents":           sm.IdleAgents,
		"total_tasks_completed": sm.TotalTasksCompleted,
		"total_tasks_failed":    sm.TotalTasksFailed,
		"success_rate":          sm.SuccessRate,
	}
}
