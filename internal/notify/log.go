package notify

import (
	"context"

	"github.com/Iron-Ham/fleet/internal/event"
	"github.com/Iron-Ham/fleet/internal/logging"
)

// LogNotifier writes each event to a logger at debug level. Failures and
// cancellations are logged at warn and info so they stand out.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(l *logging.Logger) *LogNotifier {
	if l == nil {
		l = logging.NopLogger()
	}
	return &LogNotifier{logger: l.WithComponent("events")}
}

// Notify logs e with its payload flattened into attributes.
func (n *LogNotifier) Notify(_ context.Context, e event.Event) error {
	payload := e.Payload()
	args := make([]any, 0, 2*len(payload)+2)
	args = append(args, "event_type", e.EventType())
	for k, v := range payload {
		args = append(args, k, v)
	}

	switch e.EventType() {
	case event.TypeAgentFailed:
		n.logger.Warn("agent event", args...)
	case event.TypeAgentCancelled, event.TypeManagerShutdown:
		n.logger.Info("agent event", args...)
	default:
		n.logger.Debug("agent event", args...)
	}
	return nil
}
