package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "orchestrator.max_concurrent_agents")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Upper bounds that catch typos such as an extra zero.
const (
	maxConcurrentAgentsLimit = 10000
	maxQueueSize             = 1 << 20
	maxTimeoutSeconds        = 3600
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateOrchestrator()...)
	errors = append(errors, c.validateNotify()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTelemetry()...)

	return errors
}

func (c *Config) validateOrchestrator() []ValidationError {
	var errors []ValidationError
	o := c.Orchestrator

	if o.MaxConcurrentAgents < 1 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.max_concurrent_agents",
			Value:   o.MaxConcurrentAgents,
			Message: "must be at least 1",
		})
	} else if o.MaxConcurrentAgents > maxConcurrentAgentsLimit {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.max_concurrent_agents",
			Value:   o.MaxConcurrentAgents,
			Message: fmt.Sprintf("exceeds maximum of %d", maxConcurrentAgentsLimit),
		})
	}

	// 0 disables the periodic push
	if o.MetricsIntervalSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "orchestrator.metrics_interval_seconds",
			Value:   o.MetricsIntervalSeconds,
			Message: "must be non-negative",
		})
	}

	for field, v := range map[string]int{
		"orchestrator.stop_timeout_seconds":     o.StopTimeoutSeconds,
		"orchestrator.shutdown_timeout_seconds": o.ShutdownTimeoutSeconds,
	} {
		if v < 1 || v > maxTimeoutSeconds {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   v,
				Message: fmt.Sprintf("must be between 1 and %d", maxTimeoutSeconds),
			})
		}
	}
	// Map iteration order is random; keep output stable.
	slices.SortStableFunc(errors, func(a, b ValidationError) int {
		return strings.Compare(a.Field, b.Field)
	})

	return errors
}

func (c *Config) validateNotify() []ValidationError {
	var errors []ValidationError
	n := c.Notify

	if n.QueueSize < 1 || n.QueueSize > maxQueueSize {
		errors = append(errors, ValidationError{
			Field:   "notify.queue_size",
			Value:   n.QueueSize,
			Message: fmt.Sprintf("must be between 1 and %d", maxQueueSize),
		})
	}

	if n.RedisURL != "" {
		if !strings.HasPrefix(n.RedisURL, "redis://") && !strings.HasPrefix(n.RedisURL, "rediss://") {
			errors = append(errors, ValidationError{
				Field:   "notify.redis_url",
				Value:   n.RedisURL,
				Message: "must start with redis:// or rediss://",
			})
		}
		if strings.TrimSpace(n.RedisStream) == "" {
			errors = append(errors, ValidationError{
				Field:   "notify.redis_stream",
				Value:   n.RedisStream,
				Message: "must be set when redis_url is configured",
			})
		}
	}

	if n.RedisMaxLen < 0 {
		errors = append(errors, ValidationError{
			Field:   "notify.redis_max_len",
			Value:   n.RedisMaxLen,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must be host:port",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateTelemetry() []ValidationError {
	var errors []ValidationError

	if c.Telemetry.OTLPEndpoint != "" && strings.Contains(c.Telemetry.OTLPEndpoint, "://") {
		errors = append(errors, ValidationError{
			Field:   "telemetry.otlp_endpoint",
			Value:   c.Telemetry.OTLPEndpoint,
			Message: "must be host:port without a scheme",
		})
	}
	if c.Telemetry.OTLPEndpoint != "" && strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		errors = append(errors, ValidationError{
			Field:   "telemetry.service_name",
			Value:   c.Telemetry.ServiceName,
			Message: "must be set when telemetry is enabled",
		})
	}

	return errors
}
