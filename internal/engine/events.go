package engine

import (
	"maps"
	"slices"

	"github.com/JLTC3111/Quyenhair/internal/domain"
)

// EventKind names a state change.
type EventKind string

const (
	EventLoaded    EventKind = "loaded"
	EventSubmitted EventKind = "submitted"
	EventHelpful   EventKind = "helpful"
	EventReplied   EventKind = "replied"
)

// Event describes one state change. Review is nil for EventLoaded.
type Event struct {
	Kind   EventKind
	Review *domain.Review
	Stats  domain.RatingStatistics
}

// clone gives a listener its own copy, so one listener writing to the
// breakdown or the replies cannot affect another or the engine.
func (ev Event) clone() Event {
	ev.Stats.RatingBreakdown = maps.Clone(ev.Stats.RatingBreakdown)
	if ev.Review != nil {
		r := *ev.Review
		r.Replies = slices.Clone(r.Replies)
		ev.Review = &r
	}
	return ev
}

// Listener receives events. It is called synchronously once the change is
// persisted, outside the engine's locks.
type Listener func(Event)

// Subscribe registers l and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) (cancel func()) {
	e.listenersMu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = l
	e.listenersMu.Unlock()

	return func() {
		e.listenersMu.Lock()
		delete(e.listeners, id)
		e.listenersMu.Unlock()
	}
}

func (e *Engine) notify(ev Event) {
	e.listenersMu.Lock()
	listeners := make([]Listener, 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.listenersMu.Unlock()

	for _, l := range listeners {
		l(ev.clone())
	}
}
