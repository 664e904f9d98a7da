package graph

import "time"

// EventType names a progress event.
type EventType string

const (
	EventNodeStarted      EventType = "node.started"
	EventNodeCompleted    EventType = "node.completed"
	EventNodeFailed       EventType = "node.failed"
	EventRouteSelected    EventType = "route.selected"
	EventFanOutStarted    EventType = "fanout.started"
	EventFanOutSendFailed EventType = "fanout.send.failed"
	EventFanOutCompleted  EventType = "fanout.completed"
)

// Event reports run progress. Fields not relevant to Type are zero.
type Event struct {
	Type   EventType
	NodeID string

	// SendIndex is the fan-out slot of the invocation, or -1.
	SendIndex int

	// Route is the key a conditional route returned and Target the node it
	// resolved to.
	Route  string
	Target string

	// Sends and Failed count fan-out dispatches and failures.
	Sends  int
	Failed int

	Duration time.Duration
	Err      error
	Time     time.Time
}

// EventHandler consumes progress events.
type EventHandler func(Event)

func (config *graphConfig) emit(event Event) {
	if config.eventHandler == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	config.eventHandler(event)
}
