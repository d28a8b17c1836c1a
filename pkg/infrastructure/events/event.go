// Package events records planning and matching facts on named streams and fans
// them out to subscribers.
package events

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Event is a fact appended to a stream. Version is the 1-based position within the
// stream and Position the 1-based position in the store-wide log; both are zero
// until the event has been appended.
type Event interface {
	ID() string
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
	Position() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// record is the only Event implementation; stores restamp it on append
type record struct {
	id        string
	eventType string
	stream    string
	data      any
	at        time.Time
	version   int
	position  int
}

func (r record) ID() string           { return r.id }
func (r record) Type() string         { return r.eventType }
func (r record) StreamID() string     { return r.stream }
func (r record) Data() any            { return r.data }
func (r record) Timestamp() time.Time { return r.at }
func (r record) Version() int         { return r.version }
func (r record) Position() int        { return r.position }

// NewEvent creates an unappended event with a fresh ID
func NewEvent(eventType, streamID string, data any) Event {
	return record{
		id:        uuid.NewString(),
		eventType: eventType,
		stream:    streamID,
		data:      data,
		at:        time.Now().UTC(),
	}
}

// HandlerFunc adapts a function subscribed to a fixed set of event types
type HandlerFunc struct {
	Types []string
	Fn    func(Event) error
}

func (h *HandlerFunc) Handle(event Event) error {
	return h.Fn(event)
}

func (h *HandlerFunc) CanHandle(eventType string) bool {
	return slices.Contains(h.Types, eventType)
}
