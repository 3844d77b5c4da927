// Package events keeps an append-only log of solve runs, one stream per run.
package events

import (
	"time"
)

// Event is one immutable entry of a stream
type Event interface {
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

// EventHandler reacts to appended events
type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// EventStore appends and replays events
type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// BaseEvent is the stored form of every event. Version is assigned by the
// store and starts at 1 within a stream.
type BaseEvent struct {
	Kind    string
	Stream  string
	Payload any
	At      time.Time
	Seq     int
}

func (e BaseEvent) Type() string         { return e.Kind }
func (e BaseEvent) StreamID() string     { return e.Stream }
func (e BaseEvent) Data() any            { return e.Payload }
func (e BaseEvent) Timestamp() time.Time { return e.At }
func (e BaseEvent) Version() int         { return e.Seq }

// NewEvent stamps a payload with the current time
func NewEvent(eventType, streamID string, data any) Event {
	return BaseEvent{
		Kind:    eventType,
		Stream:  streamID,
		Payload: data,
		At:      time.Now(),
		Seq:     1,
	}
}
