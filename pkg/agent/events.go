package agent

import "time"

type EventType string

const (
	EventAdded        EventType = "added"
	EventRemoved      EventType = "removed"
	EventReset        EventType = "reset"
	EventStarted      EventType = "started"
	EventStopped      EventType = "stopped"
	EventStuck        EventType = "stuck"
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// Event reports a lifecycle change of an agent. State is the state of the
// agent right after the change.
type Event struct {
	ID    string    `json:"id"`
	Type  EventType `json:"type"`
	Agent string    `json:"agent"`
	Kind  Kind      `json:"kind"`
	State State     `json:"state"`
	Time  time.Time `json:"time"`
	Error string    `json:"error,omitempty"`
}
