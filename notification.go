package accounts

import "context"

const (
	// TemplateAccountCreated is sent after registration with the confirmation key
	TemplateAccountCreated = "account_created"
)

// NotificationDispatcher delivers a templated message to an address.
// Delivery is at-least-once: callers must tolerate duplicates.
type NotificationDispatcher interface {
	Send(ctx context.Context, templateName, recipient string, data map[string]any) error
}

// NotificationDispatcherFunc adapts a function to NotificationDispatcher
type NotificationDispatcherFunc func(ctx context.Context, templateName, recipient string, data map[string]any) error

// Send implements NotificationDispatcher.
func (f NotificationDispatcherFunc) Send(ctx context.Context, templateName, recipient string, data map[string]any) error {
	if f == nil {
		return nil
	}
	return f(ctx, templateName, recipient, data)
}

type noopDispatcher struct{}

func (noopDispatcher) Send(context.Context, string, string, map[string]any) error {
	return nil
}
