package event

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Iron-Ham/fleet/internal/agent"
)

func TestLifecyclePayloads(t *testing.T) {
	rec := agent.NewRecord("agent_a", "echo", map[string]any{"session": "s1"}, time.Now())

	tests := []struct {
		name     string
		event    Event
		wantType string
		wantKeys []string
	}{
		{"registered", NewAgentRegisteredEvent(rec), TypeAgentRegistered,
			[]string{"agent_id", "agent_type", "status", "metadata", "timestamp"}},
		{"unregistered", NewAgentUnregisteredEvent("agent_a", time.Now()), TypeAgentUnregistered,
			[]string{"agent_id", "timestamp"}},
		{"status changed", NewAgentStatusChangedEvent("agent_a", agent.StatusIdle, agent.StatusRunning, time.Now()), TypeAgentStatusChanged,
			[]string{"agent_id", "old_status", "new_status", "timestamp"}},
		{"failed", NewAgentFailedEvent("agent_a", "boom", time.Now()), TypeAgentFailed,
			[]string{"agent_id", "status", "error", "timestamp"}},
		{"cancelled", NewAgentCancelledEvent("agent_a", time.Now()), TypeAgentCancelled,
			[]string{"agent_id", "status", "timestamp"}},
		{"metrics", NewMetricsUpdatedEvent(agent.SystemMetrics{TotalAgents: 2}, time.Now()), TypeMetricsUpdated,
			[]string{"system_metrics", "timestamp"}},
		{"shutdown", NewManagerShutdownEvent(3, time.Now()), TypeManagerShutdown,
			[]string{"agents_affected", "timestamp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.event.EventType() != tt.wantType {
				t.Errorf("EventType() = %q, want %q", tt.event.EventType(), tt.wantType)
			}
			p := tt.event.Payload()
			if len(p) != len(tt.wantKeys) {
				t.Errorf("payload has %d keys, want %d: %v", len(p), len(tt.wantKeys), p)
			}
			for _, k := range tt.wantKeys {
				if _, ok := p[k]; !ok {
					t.Errorf("payload missing %q: %v", k, p)
				}
			}
			if _, err := time.Parse(time.RFC3339Nano, p["timestamp"].(string)); err != nil {
				t.Errorf("timestamp not RFC 3339: %v", err)
			}
		})
	}
}

func TestPayloadValues(t *testing.T) {
	p := NewAgentStatusChangedEvent("agent_a", agent.StatusRunning, agent.StatusCompleted, time.Now()).Payload()
	if p["old_status"] != "running" || p["new_status"] != "completed" {
		t.Errorf("unexpected statuses: %v", p)
	}

	p = NewAgentFailedEvent("agent_a", "boom", time.Now()).Payload()
	if p["error"] != "boom" || p["status"] != "failed" {
		t.Errorf("unexpected failed payload: %v", p)
	}

	p = NewAgentCancelledEvent("agent_a", time.Now()).Payload()
	if p["status"] != "cancelled" {
		t.Errorf("status = %v, want cancelled", p["status"])
	}

	sm := agent.SystemMetrics{TotalAgents: 3, IdleAgents: 1, TotalTasksCompleted: 1, TotalTasksFailed: 1, SuccessRate: 0.5}
	p = NewMetricsUpdatedEvent(sm, time.Now()).Payload()
	inner := p["system_metrics"].(map[string]any)
	if inner["total_agents"] != 3 || inner["success_rate"] != 0.5 {
		t.Errorf("unexpected system metrics: %v", inner)
	}

	if got := NewManagerShutdownEvent(4, time.Now()).Payload()["agents_affected"]; got != 4 {
		t.Errorf("agents_affected = %v, want 4", got)
	}
}

func TestRegisteredEventCopiesMetadata(t *testing.T) {
	rec := agent.NewRecord("agent_a", "echo", map[string]any{"k": "v"}, time.Now())
	e := NewAgentRegisteredEvent(rec)
	rec.Metadata["k"] = "changed"
	if e.Metadata["k"] != "v" {
		t.Errorf("event metadata aliased the record: %v", e.Metadata)
	}
}

func TestProgressPayloads(t *testing.T) {
	if got := NewAgentStartedEvent("a", map[string]any{"q": 1}).Payload()["task"]; got == nil {
		t.Error("agent_started should carry the task")
	}
	if got := NewAgentThinkingEvent("a", "pondering").Payload()["message"]; got != "pondering" {
		t.Errorf("message = %v", got)
	}
	if got := NewToolExecutingEvent("a", "search", nil).Payload()["tool"]; got != "search" {
		t.Errorf("tool = %v", got)
	}

	ok := NewToolCompletedEvent("a", "search", "hits", nil).Payload()
	if ok["success"] != true {
		t.Errorf("success = %v, want true", ok["success"])
	}
	if _, has := ok["error"]; has {
		t.Error("successful tool payload should not carry error")
	}

	failed := NewToolCompletedEvent("a", "search", nil, errors.New("timeout")).Payload()
	if failed["success"] != false || failed["error"] != "timeout" {
		t.Errorf("unexpected failed tool payload: %v", failed)
	}

	if got := NewAgentCompletedEvent("a", map[string]any{"r": 1}).Payload()["result"]; got == nil {
		t.Error("agent_completed should carry the result")
	}

	if len(ProgressTypes()) != 5 || len(LifecycleTypes()) != 7 {
		t.Error("unexpected type list lengths")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	orig := NewAgentFailedEvent("agent_z", "boom", time.Now())

	data, err := Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if raw["type"] != TypeAgentFailed {
		t.Errorf("type = %v", raw["type"])
	}
	if _, ok := raw["payload"].(map[string]any); !ok {
		t.Fatalf("payload is not an object: %v", raw["payload"])
	}

	env, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.EventType() != TypeAgentFailed || env.AgentID() != "agent_z" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if !env.Timestamp().Equal(orig.Timestamp()) {
		t.Errorf("Timestamp() = %v, want %v", env.Timestamp(), orig.Timestamp())
	}
	if ToEnvelope(env).Type != env.Type {
		t.Error("ToEnvelope should pass envelopes through")
	}
}

func TestUnmarshalErrors(t *testing.T) {
	for _, in := range []string{`not json`, `{"payload":{}}`} {
		if _, err := Unmarshal([]byte(in)); err == nil {
			t.Errorf("Unmarshal(%q) should fail", in)
		}
	}

	env, err := Unmarshal([]byte(`{"type":"agent_thinking"}`))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.Data == nil {
		t.Error("missing payload should decode to an empty map")
	}
	if !env.Timestamp().IsZero() {
		t.Error("missing timestamp should yield zero time")
	}
}
