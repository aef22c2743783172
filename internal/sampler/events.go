package sampler

// Event represents a run lifecycle event.
// Minimal and stable: name + run ID and optional fields via key/values.
type Event struct {
	Name   string
	RunID  string
	Fields map[string]any
}

// Event names published by Runner.
const (
	EventRunStart  = "run_start"
	EventRunUpdate = "run_update"
	EventRunDone   = "run_done"
	EventRunError  = "run_error"
)

// EventPublisher receives events from the runner. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
