package event

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

// Keyer is implemented by events that carry a partitioning key, typically
// the order id, so that transports preserve per-order ordering.
type Keyer interface {
	EventKey() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher publishes events to interested subscribers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
