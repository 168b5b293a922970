package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Iron-Ham/fleet/internal/agent"
	"github.com/Iron-Ham/fleet/internal/errors"
	"github.com/Iron-Ham/fleet/internal/event"
	"github.com/Iron-Ham/fleet/internal/notify"
)

// Built-in agent types.
const (
	TypeEcho  = "echo"
	TypeSleep = "sleep"
	TypeFail  = "fail"
)

// DefaultFailMessage is the error returned by the fail worker when the task
// does not name one.
const DefaultFailMessage = "boom"

// progress emits the worker's progress events for the agent in ctx.
type progress struct {
	em notify.Emitter
	id string
}

func progressFor(ctx context.Context) progress {
	return progress{em: notify.FromContext(ctx), id: agent.IDFromContext(ctx)}
}

func (p progress) started(task agent.TaskData) {
	p.em.Emit(event.NewAgentStartedEvent(p.id, task))
}

func (p progress) thinking(msg string) {
	p.em.Emit(event.NewAgentThinkingEvent(p.id, msg))
}

func (p progress) tool(name string, input map[string]any, run func() (any, error)) (any, error) {
	p.em.Emit(event.NewToolExecutingEvent(p.id, name, input))
	out, err := run()
	p.em.Emit(event.NewToolCompletedEvent(p.id, name, out, err))
	return out, err
}

func (p progress) completed(res agent.Result) {
	p.em.Emit(event.NewAgentCompletedEvent(p.id, res))
}

// NewEcho builds work that returns the task it was given.
func NewEcho(map[string]any) (agent.Work, error) {
	return agent.WorkFunc(func(ctx context.Context, task agent.TaskData) (agent.Result, error) {
		p := progressFor(ctx)
		p.started(task)
		p.thinking("echoing task input")
		out, _ := p.tool("echo", task, func() (any, error) {
			return map[string]any(task), nil
		})
		res := agent.Result{"result": "ok", "echo": out}
		p.completed(res)
		return res, nil
	}), nil
}

// NewSleep builds work that waits task["seconds"] seconds, or
// metadata["seconds"] when the task does not say, and returns early with the
// context's error when cancelled.
func NewSleep(metadata map[string]any) (agent.Work, error) {
	var fallback time.Duration
	if v, ok := metadata["seconds"]; ok {
		d, err := seconds(v)
		if err != nil {
			return nil, errors.NewValidationError("invalid sleep duration").
				WithField("seconds").WithValue(v).WithCause(err)
		}
		fallback = d
	}

	return agent.WorkFunc(func(ctx context.Context, task agent.TaskData) (agent.Result, error) {
		d := fallback
		if v, ok := task["seconds"]; ok {
			parsed, err := seconds(v)
			if err != nil {
				return nil, fmt.Errorf("invalid seconds %v: %w", v, err)
			}
			d = parsed
		}

		p := progressFor(ctx)
		p.started(task)
		p.thinking(fmt.Sprintf("sleeping for %s", d))

		_, err := p.tool("sleep", map[string]any{"seconds": d.Seconds()}, func() (any, error) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return d.Seconds(), nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
		if err != nil {
			return nil, err
		}

		res := agent.Result{"result": "ok", "slept_seconds": d.Seconds()}
		p.completed(res)
		return res, nil
	}), nil
}

// NewFail builds work that always fails with task["error"], or
// metadata["error"], or DefaultFailMessage.
func NewFail(metadata map[string]any) (agent.Work, error) {
	msg := DefaultFailMessage
	if s, ok := metadata["error"].(string); ok && s != "" {
		msg = s
	}

	return agent.WorkFunc(func(ctx context.Context, task agent.TaskData) (agent.Result, error) {
		text := msg
		if s, ok := task["error"].(string); ok && s != "" {
			text = s
		}

		p := progressFor(ctx)
		p.started(task)
		p.thinking("about to fail")
		_, err := p.tool("fail", nil, func() (any, error) {
			return nil, errors.New(text)
		})
		return nil, err
	}), nil
}

// seconds converts a JSON-ish number or numeric string to a duration.
func seconds(v any) (time.Duration, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %v", f)
	}
	return time.Duration(f * float64(time.Second)), nil
}
