package cmis

import "context"

// EventSink receives notifications about committed repository changes.
// Errors returned by a sink are logged and never fail the operation.
type EventSink interface {
	// ObjectCreated is fired when an object is created
	ObjectCreated(ctx context.Context, event ChangeEvent) error

	// ObjectUpdated is fired when properties, content or filing change
	ObjectUpdated(ctx context.Context, event ChangeEvent) error

	// ObjectDeleted is fired when an object is deleted
	ObjectDeleted(ctx context.Context, event ChangeEvent) error

	// SecurityChanged is fired when an object's ACL or policies change
	SecurityChanged(ctx context.Context, event ChangeEvent) error
}

// ChangeLog stores change events in token order.
type ChangeLog interface {
	// Append stores event and returns it with its token assigned.
	Append(ctx context.Context, event ChangeEvent) (ChangeEvent, error)

	// Changes returns up to maxItems events with a token greater than
	// since, and whether more events follow.
	Changes(ctx context.Context, since int64, maxItems int) ([]ChangeEvent, bool, error)

	// LatestToken returns the token of the most recent event, 0 if none.
	LatestToken(ctx context.Context) (int64, error)

	Close() error
}

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ObjectCreated does nothing and returns nil
func (n *NoopEventSink) ObjectCreated(ctx context.Context, event ChangeEvent) error {
	return nil
}

// ObjectUpdated does nothing and returns nil
func (n *NoopEventSink) ObjectUpdated(ctx context.Context, event ChangeEvent) error {
	return nil
}

// ObjectDeleted does nothing and returns nil
func (n *NoopEventSink) ObjectDeleted(ctx context.Context, event ChangeEvent) error {
	return nil
}

// SecurityChanged does nothing and returns nil
func (n *NoopEventSink) SecurityChanged(ctx context.Context, event ChangeEvent) error {
	return nil
}
