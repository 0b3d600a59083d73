package events

import (
	"context"

	"go.uber.org/zap"
)

// AllEventTypes lists every event the auth flow emits.
var AllEventTypes = []EventType{
	EventStaffRegistered,
	EventLoginSucceeded,
	EventLoginFailed,
	EventPasswordChanged,
	EventLoggedOut,
}

// RegisterAuditLog subscribes a structured audit logger to every auth event.
func RegisterAuditLog(d Dispatcher, logger *zap.Logger) {
	audit := logger.Named("audit")
	handler := func(_ context.Context, e Event) error {
		fields := []zap.Field{
			zap.String("event_id", e.ID),
			zap.String("event", string(e.Type)),
			zap.Time("at", e.Timestamp),
		}
		if e.StaffID != 0 {
			fields = append(fields, zap.Int64("staff_id", e.StaffID))
		}
		if e.Email != "" {
			fields = append(fields, zap.String("email", e.Email))
		}
		if e.Payload != nil {
			fields = append(fields, zap.Any("payload", e.Payload))
		}
		audit.Info("auth event", fields...)
		return nil
	}
	for _, t := range AllEventTypes {
		d.Subscribe(t, handler)
	}
}
