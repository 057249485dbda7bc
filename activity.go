package authclient

import (
	"context"
	"time"
)

// ActivityEventType enumerates the session lifecycle events the client emits.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventRefreshSuccess    ActivityEventType = "auth.refresh.success"
	ActivityEventRefreshFailure    ActivityEventType = "auth.refresh.failure"
	ActivityEventForcedLogout      ActivityEventType = "auth.logout.forced"
	ActivityEventRegistration      ActivityEventType = "auth.registration"
	ActivityEventEmailConfirmation ActivityEventType = "auth.email.confirmed"
)

// ActivityEvent captures audit-friendly information about a session action.
// Metadata never contains token values.
type ActivityEvent struct {
	EventType  ActivityEventType
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged and never block the session flow.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
