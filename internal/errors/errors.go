// Package errors provides the error taxonomy for the fleet orchestrator.
// It defines semantic error types for orchestration preconditions, wrappers
// for failures raised inside agent work, and classification helpers.
//
// # Error Types
//
// Precondition errors are returned synchronously by orchestrator operations:
//   - NotFoundError: unknown agent identifier
//   - InvalidStateError: the agent is not in the state the operation requires
//   - CapacityError: admission denied because the concurrency limit is reached
//   - ValidationError: invalid input (empty agent type, nil work handle)
//
// Task outcome errors are only observed by callers awaiting a task:
//   - ExecutionError: the agent's work returned an error or panicked
//   - CancellationError: the task was cancelled on purpose
//
// # Usage
//
//	if errors.IsCapacity(err) {
//	    // back off and retry later
//	}
//
//	var execErr *errors.ExecutionError
//	if errors.As(err, &execErr) {
//	    log.Warn("agent work failed", "agent_id", execErr.AgentID, "error", execErr.Unwrap())
//	}
//
// # Error Classification
//
// Errors carry a severity, a retryable flag and a user-facing flag so the
// HTTP layer and the CLI can decide how to present them.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Level maps the severity onto a log level.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityCritical:
		return slog.LevelError + 4
	default:
		return slog.LevelError
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrAgentNotFound indicates that no agent is registered under an ID.
	ErrAgentNotFound = New("agent not found")
	// ErrInvalidState indicates that an agent is in the wrong state for an operation.
	ErrInvalidState = New("invalid agent state")
	// ErrCapacityExceeded indicates that admission control rejected a task.
	ErrCapacityExceeded = New("max concurrent agents reached")
	// ErrTaskFailed indicates that agent work failed during a task.
	ErrTaskFailed = New("task failed")
	// ErrTaskCancelled indicates that a task was cancelled on purpose.
	ErrTaskCancelled = New("task cancelled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// FleetError is the base interface for all orchestrator errors.
type FleetError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the operation may succeed when repeated later.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to show to clients.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Precondition Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("agent", "agent_3f9c...")
//	fmt.Println(err) // "agent 'agent_3f9c...' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// NewAgentNotFoundError is shorthand for a NotFoundError on an agent ID.
func NewAgentNotFoundError(agentID string) *NotFoundError {
	return NewNotFoundError("agent", agentID)
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrAgentNotFound && e.ResourceType == "agent" {
		return true
	}
	return e.baseError.Is(target)
}

// InvalidStateError is returned when an agent is not in the state an
// operation requires, e.g. starting a task on an agent that is not idle.
//
// Example:
//
//	err := errors.NewInvalidStateError("agent_1", "running", "idle")
//	fmt.Println(err) // "invalid state [agent=agent_1]: agent is running, requires idle"
type InvalidStateError struct {
	baseError
	AgentID  string
	Current  string
	Required string
}

// NewInvalidStateError creates a new InvalidStateError.
func NewInvalidStateError(agentID, current, required string) *InvalidStateError {
	return &InvalidStateError{
		baseError: baseError{
			message:    fmt.Sprintf("agent is %s, requires %s", current, required),
			severity:   SeverityWarning,
			userFacing: true,
		},
		AgentID:  agentID,
		Current:  current,
		Required: required,
	}
}

// Error returns the formatted error message.
func (e *InvalidStateError) Error() string {
	prefix := "invalid state"
	if e.AgentID != "" {
		prefix = fmt.Sprintf("invalid state [agent=%s]", e.AgentID)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *InvalidStateError) Is(target error) bool {
	if _, ok := target.(*InvalidStateError); ok {
		return true
	}
	if target == ErrInvalidState {
		return true
	}
	return e.baseError.Is(target)
}

// CapacityError is returned when admission control refuses a task because
// the configured number of concurrently running agents has been reached.
type CapacityError struct {
	baseError
	Limit   int
	Running int
}

// NewCapacityError creates a new CapacityError.
func NewCapacityError(limit, running int) *CapacityError {
	return &CapacityError{
		baseError: baseError{
			message:    ErrCapacityExceeded.Error(),
			severity:   SeverityWarning,
			retryable:  true, // capacity frees up as tasks finish
			userFacing: true,
		},
		Limit:   limit,
		Running: running,
	}
}

// Error returns the formatted error message.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity error: %s (running: %d, limit: %d)", e.message, e.Running, e.Limit)
}

// Is checks if this error matches the target.
func (e *CapacityError) Is(target error) bool {
	if _, ok := target.(*CapacityError); ok {
		return true
	}
	if target == ErrCapacityExceeded {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input.
//
// Example:
//
//	err := errors.NewValidationError("agent type cannot be empty").WithField("agent_type")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Task Outcome Errors
// -----------------------------------------------------------------------------

// ExecutionError wraps the error raised by an agent's work during a task.
// Unwrap returns the original error so callers can match on it.
type ExecutionError struct {
	baseError
	AgentID string
}

// NewExecutionError creates a new ExecutionError wrapping cause.
func NewExecutionError(agentID string, cause error) *ExecutionError {
	return &ExecutionError{
		baseError: baseError{
			message:    ErrTaskFailed.Error(),
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		AgentID: agentID,
	}
}

// Error returns the formatted error message.
func (e *ExecutionError) Error() string {
	prefix := "execution error"
	if e.AgentID != "" {
		prefix = fmt.Sprintf("execution error [agent=%s]", e.AgentID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ExecutionError) Is(target error) bool {
	if _, ok := target.(*ExecutionError); ok {
		return true
	}
	if target == ErrTaskFailed {
		return true
	}
	return e.baseError.Is(target)
}

// CancellationError reports that a task was cancelled on purpose by
// StopTask, Unregister or Shutdown. It is informational: cancellation is
// never counted as a task failure.
type CancellationError struct {
	baseError
	AgentID string
}

// NewCancellationError creates a new CancellationError.
func NewCancellationError(agentID string, cause error) *CancellationError {
	return &CancellationError{
		baseError: baseError{
			message:  ErrTaskCancelled.Error(),
			cause:    cause,
			severity: SeverityInfo,
		},
		AgentID: agentID,
	}
}

// Error returns the formatted error message.
func (e *CancellationError) Error() string {
	if e.AgentID != "" {
		return fmt.Sprintf("cancelled [agent=%s]: %s", e.AgentID, e.message)
	}
	return fmt.Sprintf("cancelled: %s", e.message)
}

// Is checks if this error matches the target.
func (e *CancellationError) Is(target error) bool {
	if _, ok := target.(*CancellationError); ok {
		return true
	}
	if target == ErrTaskCancelled {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return As(err, &target)
}

// IsInvalidState reports whether err is or wraps an InvalidStateError.
func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return As(err, &target)
}

// IsCapacity reports whether err is or wraps a CapacityError.
func IsCapacity(err error) bool {
	var target *CapacityError
	return As(err, &target)
}

// IsExecution reports whether err is or wraps an ExecutionError.
func IsExecution(err error) bool {
	var target *ExecutionError
	return As(err, &target)
}

// IsCancellation reports whether err is or wraps a CancellationError.
func IsCancellation(err error) bool {
	var target *CancellationError
	return As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return As(err, &target)
}

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry, such as a CapacityError.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var fleetErr FleetError
	if As(err, &fleetErr) {
		return fleetErr.IsRetryable()
	}
	return false
}

// IsUserFacing returns true if the error message is safe to return to API
// clients verbatim.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var fleetErr FleetError
	if As(err, &fleetErr) {
		return fleetErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement FleetError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var fleetErr FleetError
	if As(err, &fleetErr) {
		return fleetErr.Severity()
	}
	return SeverityError
}

// IsPrecondition returns true for errors that reject an operation before
// any state changes (not found, invalid state, capacity, validation).
func IsPrecondition(err error) bool {
	return IsNotFound(err) || IsInvalidState(err) || IsCapacity(err) || IsValidation(err)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to start task")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to stop task for %s", agentID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
