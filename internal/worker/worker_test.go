package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/errors"
	"github.com/Iron-Ham/fleet/internal/event"
	"github.com/Iron-Ham/fleet/internal/notify"
)

type capture struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *capture) Emit(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capture) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.EventType()
	}
	return out
}

func workCtx(c *capture) context.Context {
	return notify.WithEmitter(agent.WithID(context.Background(), "agent_w"), c)
}

func build(t *testing.T, typ string, md map[string]any) agent.Work {
	t.Helper()
	w, err := Builtin().Build(typ, md)
	require.NoError(t, err)
	return w
}

var fullProgress = []string{
	event.TypeAgentStarted,
	event.TypeAgentThinking,
	event.TypeToolExecuting,
	event.TypeToolCompleted,
	event.TypeAgentCompleted,
}

func TestCatalog(t *testing.T) {
	c := Builtin()
	assert.Equal(t, []string{"echo", "fail", "sleep"}, c.Types())
	assert.True(t, c.Has(TypeEcho))
	assert.False(t, c.Has("llm"))

	_, err := c.Build("llm", nil)
	assert.True(t, errors.IsNotFound(err))

	err = c.Register(TypeEcho, NewEcho)
	assert.True(t, errors.IsValidation(err))
	assert.True(t, errors.IsValidation(c.Register("", NewEcho)))
	assert.True(t, errors.IsValidation(c.Register("x", nil)))

	require.NoError(t, c.Register("const", func(map[string]any) (agent.Work, error) {
		return agent.WorkFunc(func(context.Context, agent.TaskData) (agent.Result, error) {
			return agent.Result{"v": 1}, nil
		}), nil
	}))
	w, err := c.Build("const", nil)
	require.NoError(t, err)
	res, err := w.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res["v"])

	assert.Panics(t, func() { c.MustRegister("const", NewEcho) })
}

func TestEcho(t *testing.T) {
	c := &capture{}
	res, err := build(t, TypeEcho, nil).Execute(workCtx(c), agent.TaskData{"msg": "hello"})
	require.NoError(t, err)

	assert.Equal(t, "ok", res["result"])
	assert.Equal(t, map[string]any{"msg": "hello"}, res["echo"])
	assert.Equal(t, fullProgress, c.types())

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		assert.Equal(t, "agent_w", e.Payload()["agent_id"])
	}
}

func TestSleep(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		c := &capture{}
		res, err := build(t, TypeSleep, nil).Execute(workCtx(c), agent.TaskData{"seconds": 0.01})
		require.NoError(t, err)
		assert.InDelta(t, 0.01, res["slept_seconds"], 1e-9)
		assert.Equal(t, fullProgress, c.types())
	})

	t.Run("metadata default", func(t *testing.T) {
		w := build(t, TypeSleep, map[string]any{"seconds": "0"})
		res, err := w.Execute(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, res["slept_seconds"])
	})

	t.Run("honours cancellation", func(t *testing.T) {
		c := &capture{}
		ctx, cancel := context.WithCancel(workCtx(c))
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		_, err := build(t, TypeSleep, nil).Execute(ctx, agent.TaskData{"seconds": 10})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.NotContains(t, c.types(), event.TypeAgentCompleted)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := build(t, TypeSleep, nil).Execute(context.Background(), agent.TaskData{"seconds": "soon"})
		assert.Error(t, err)
		_, err = build(t, TypeSleep, nil).Execute(context.Background(), agent.TaskData{"seconds": -1})
		assert.Error(t, err)

		_, err = Builtin().Build(TypeSleep, map[string]any{"seconds": []int{1}})
		assert.True(t, errors.IsValidation(err))
	})
}

func TestFail(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]any
		task agent.TaskData
		want string
	}{
		{"default", nil, nil, "boom"},
		{"metadata", map[string]any{"error": "bad config"}, nil, "bad config"},
		{"task overrides", map[string]any{"error": "bad config"}, agent.TaskData{"error": "disk full"}, "disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &capture{}
			_, err := build(t, TypeFail, tt.md).Execute(workCtx(c), tt.task)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, fullProgress[:4], c.types())
		})
	}
}
