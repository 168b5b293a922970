package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Iron-Ham/fleet/internal/event"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "fleet.events"

// streamAdder is the subset of *redis.Client used by RedisStream.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends every event to a Redis stream with XADD. Each entry
// carries the event type, the agent id (when present) and the JSON payload,
// so other processes can tail the fleet's lifecycle with XREAD.
type RedisStream struct {
	client streamAdder
	stream string
	maxLen int64
}

// NewRedisClient connects to the server at a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// NewRedisStream creates a notifier writing to stream. A positive maxLen
// caps the stream length approximately (XADD MAXLEN ~).
func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	return newRedisStream(client, stream, maxLen)
}

func newRedisStream(client streamAdder, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// Notify appends e to the stream.
func (r *RedisStream) Notify(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", e.EventType(), err)
	}

	values := map[string]any{
		"type":    e.EventType(),
		"time":    e.Timestamp().Unix(),
		"payload": string(payload),
	}
	if id, ok := e.Payload()["agent_id"].(string); ok {
		values["agent_id"] = id
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}
