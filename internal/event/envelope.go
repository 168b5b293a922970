package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire form of an event: {"type": "...", "payload": {...}}.
// It satisfies Event so decoded envelopes can be republished on a Bus.
type Envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"payload"`
}

// ToEnvelope converts any event to its wire form.
func ToEnvelope(e Event) Envelope {
	if env, ok := e.(Envelope); ok {
		return env
	}
	return Envelope{Type: e.EventType(), Data: e.Payload()}
}

// Marshal encodes an event as a JSON envelope.
func Marshal(e Event) ([]byte, error) {
	return json.Marshal(ToEnvelope(e))
}

// Unmarshal decodes a JSON envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode event envelope: missing type")
	}
	if env.Data == nil {
		env.Data = map[string]any{}
	}
	return env, nil
}

func (e Envelope) EventType() string { return e.Type }

// Timestamp parses the payload's timestamp. It returns the zero time when the
// field is absent or malformed.
func (e Envelope) Timestamp() time.Time {
	s, _ := e.Data["timestamp"].(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (e Envelope) Payload() map[string]any { return e.Data }

// AgentID returns the payload's agent_id, if any.
func (e Envelope) AgentID() string {
	return AgentIDOf(e)
}
