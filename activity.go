package accounts

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountRegistered     ActivityEventType = "account.registered"
	ActivityEventVerificationConfirmed ActivityEventType = "account.verification.confirmed"
	ActivityEventVerificationFailed    ActivityEventType = "account.verification.failed"
	ActivityEventVerificationResent    ActivityEventType = "account.verification.resent"
	ActivityEventRegistrationCancelled ActivityEventType = "account.registration.cancelled"
	ActivityEventRegistrationRejected  ActivityEventType = "account.registration.rejected"
	ActivityEventNotificationFailed    ActivityEventType = "account.notification.failed"
)

// ActivityKind classifies events so sinks can drop whole groups
type ActivityKind string

const (
	ActivityKindSuccess     ActivityKind = "success"
	ActivityKindFailure     ActivityKind = "failure"
	ActivityKindInformation ActivityKind = "information"
	ActivityKindError       ActivityKind = "error"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Kind       ActivityKind
	UserID     string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
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

// EventOptions toggles which activity kinds reach a sink
type EventOptions struct {
	RaiseSuccessEvents     bool
	RaiseFailureEvents     bool
	RaiseInformationEvents bool
	RaiseErrorEvents       bool
}

// AllEvents enables every activity kind
func AllEvents() EventOptions {
	return EventOptions{
		RaiseSuccessEvents:     true,
		RaiseFailureEvents:     true,
		RaiseInformationEvents: true,
		RaiseErrorEvents:       true,
	}
}

// Allows reports whether events of kind should be raised
func (o EventOptions) Allows(kind ActivityKind) bool {
	switch kind {
	case ActivityKindSuccess:
		return o.RaiseSuccessEvents
	case ActivityKindFailure:
		return o.RaiseFailureEvents
	case ActivityKindInformation:
		return o.RaiseInformationEvents
	case ActivityKindError:
		return o.RaiseErrorEvents
	}
	return false
}

// NewFilteredActivitySink forwards only the event kinds enabled in opts
func NewFilteredActivitySink(sink ActivitySink, opts EventOptions) ActivitySink {
	sink = normalizeActivitySink(sink)
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		if !opts.Allows(event.Kind) {
			return nil
		}
		return sink.Record(ctx, event)
	})
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
