// Package eventbus is the in-process publish/subscribe bus connecting the
// runner to metrics collectors and publishers.
package eventbus

// Event is any value passed on the bus. The runner publishes the types of
// package events.
type Event = any

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the untyped bus shared by the runner and its subscribers.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }

var _ EventBus = (*Bus)(nil)
