// Package eventbus provides event-driven communication between the engine and
// the rest of the platform.
package eventbus

import (
	"context"
	"errors"

	"github.com/dukex/siteflow/pkg/events"
)

// ErrUnknownEventType is returned when a handler is registered for an event
// type the bus cannot decode.
var ErrUnknownEventType = errors.New("unknown event type")

type Event interface {
	GetType() events.EventType
}

// EventPublisher sends an event. Events published with the same key are
// delivered in publish order by partitioned transports.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber routes incoming events to one handler per event type.
// Handlers must be registered before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g.
// *events.WorkflowTriggered. A returned error nacks the message.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
