package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/core/events"
)

// BusSink publishes decisions on the event bus for asynchronous consumers.
type BusSink struct {
	bus    *events.EventBus
	logger *slog.Logger
}

func NewBusSink(bus *events.EventBus, logger *slog.Logger) *BusSink {
	return &BusSink{bus: bus, logger: logger}
}

func (s *BusSink) Record(ctx context.Context, d Decision) {
	event := events.NewAccessDecisionEvent(d.Operation, d.Resource, d.UserID, d.Role.String(),
		d.TenantID, d.ResourceID, d.Granted, d.Count)
	// handlers outlive the request
	if err := s.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to publish access decision", "error", err, "event_id", event.EventID())
	}
}

// DenialReporter is a bus handler that reports denied decisions.
func DenialReporter(logger *slog.Logger) events.Handler {
	return func(ctx context.Context, event events.Event) error {
		decision, ok := event.(*events.AccessDecisionEvent)
		if !ok || decision.Granted {
			return nil
		}
		logger.Warn("access denied",
			"event_id", decision.EventID(),
			"operation", decision.Operation,
			"resource", decision.Resource,
			"resource_id", decision.ResourceID,
			"user_id", decision.UserID,
			"tenant_id", decision.TenantID)
		return nil
	}
}
