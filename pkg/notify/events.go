// Package notify defines the master-event vocabulary the reconciliation
// core emits. An Event is posted to the master over HTTP rather than
// broadcast to in-process subscribers: there is exactly one consumer,
// the master, and no in-agent fan-out.
package notify

// EventType is one of the Halti event constants the master understands.
type EventType string

const (
	PullStart            EventType = "PULL_START"
	PullFailed           EventType = "PULL_FAILED"
	StartContainer       EventType = "START_CONTAINER"
	StartContainerFailed EventType = "START_CONTAINER_FAILED"
	StopContainer        EventType = "STOP_CONTAINER"
)

// Severity classifies an EventType for the wire payload's event_type
// field. PullFailed is the only error; every other event, including
// StartContainerFailed, is informational.
func (e EventType) Severity() string {
	switch e {
	case PullFailed:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Event is the {event, event_type, event_meta} body posted to
// POST /api/v1/instances/{id}/notify.
type Event struct {
	Event     EventType `json:"event"`
	EventType string    `json:"event_type"`
	EventMeta string    `json:"event_meta"`
}

// New builds an Event with its severity derived from the event type.
func New(event EventType, meta string) Event {
	return Event{
		Event:     event,
		EventType: event.Severity(),
		EventMeta: meta,
	}
}
