// Package logging provides structured logging for the fleet orchestrator.
//
// This package wraps Go's log/slog to produce JSON-formatted logs with
// persistent context attributes, so every line written on behalf of an agent
// carries its agent_id and the emitting component.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/fleet", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	orchLog := logger.WithComponent("orchestrator")
//	orchLog.WithAgent("agent_1f2e...").Info("task completed", "duration_s", 1.5)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"task completed","component":"orchestrator","agent_id":"agent_1f2e...","duration_s":1.5}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted lines.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Child loggers created via With*
// share the underlying handler.
package logging
