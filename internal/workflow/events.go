package workflow

import "time"

// TransitionEvent is emitted after a plan commits. Delivery is the
// notification collaborator's concern; the core only publishes.
type TransitionEvent struct {
	Kind     string    `json:"kind"`
	EntityID string    `json:"entity_id"`
	From     Status    `json:"from"`
	To       Status    `json:"to"`
	Actor    string    `json:"actor,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher receives committed transition events. Implementations must not
// block; the propagator calls Publish synchronously after commit.
type Publisher interface {
	Publish(event TransitionEvent)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(TransitionEvent) {}
