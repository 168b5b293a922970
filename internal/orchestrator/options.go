package orchestrator

import (
	"time"

	"github.com/Iron-Ham/fleet/internal/logging"
	"github.com/Iron-Ham/fleet/internal/notify"
	"github.com/Iron-Ham/fleet/internal/telemetry"
)

// DefaultMaxConcurrentAgents is the admission limit used when none is set.
const DefaultMaxConcurrentAgents = 10

// Option configures an Orchestrator.
type Option func(*config)

type config struct {
	maxConcurrent int
	emitter       notify.Emitter
	logger        *logging.Logger
	instruments   *telemetry.Instruments
	clock         func() time.Time
}

func defaultConfig() config {
	return config{
		maxConcurrent: DefaultMaxConcurrentAgents,
		emitter:       notify.Discard,
		logger:        logging.NopLogger(),
		clock:         time.Now,
	}
}

// WithMaxConcurrentAgents sets how many tasks may run at once.
// Values below 1 are replaced with the default.
func WithMaxConcurrentAgents(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithEmitter sets the destination for lifecycle events. Emit is called
// while the orchestrator's lock is held, so it must not block.
func WithEmitter(e notify.Emitter) Option {
	return func(c *config) {
		if e != nil {
			c.emitter = e
		}
	}
}

// WithLogger sets the logger for the orchestrator.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInstruments enables OpenTelemetry task metrics and spans.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(c *config) {
		c.instruments = in
	}
}

// WithClock overrides the time source used for record timestamps and
// execution durations.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.clock = now
		}
	}
}
