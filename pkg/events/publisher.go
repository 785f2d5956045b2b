package events

import "context"

// EventPublisher is the interface for publishing session change events.
type EventPublisher interface {
	PublishChanged(ctx context.Context, event *SessionChangedEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage
// without events).
type NoOpPublisher struct{}

// PublishChanged is a no-op.
func (p *NoOpPublisher) PublishChanged(_ context.Context, _ *SessionChangedEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for
// testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *SessionChangedEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *SessionChangedEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishChanged calls the callback.
func (p *CallbackPublisher) PublishChanged(ctx context.Context, event *SessionChangedEvent) error {
	return p.callback(ctx, event)
}
