package models

import "fmt"

// EventKind identifies the payload carried by an Event.
type EventKind int

const (
	EventConnectionAdded EventKind = iota
	EventConnectionRemoved
	EventWakeUp
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionAdded:
		return "connection_added"
	case EventConnectionRemoved:
		return "connection_removed"
	case EventWakeUp:
		return "wake_up"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a lifecycle notification consumed by the inspection worker.
// Connection is set for EventConnectionAdded, URI for EventConnectionRemoved.
type Event struct {
	Kind       EventKind
	Connection Connection
	URI        string
}

func NewConnectionAddedEvent(c Connection) Event {
	return Event{Kind: EventConnectionAdded, Connection: c}
}

func NewConnectionRemovedEvent(uri string) Event {
	return Event{Kind: EventConnectionRemoved, URI: uri}
}

func NewWakeUpEvent() Event {
	return Event{Kind: EventWakeUp}
}
