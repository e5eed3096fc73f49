// Package events defines the unified event vocabulary emitted by the
// facade and its collaborators, and a small emitter that fans events out
// to handlers and channel subscribers.
//
// Events are a tagged variant: one Event struct covers lifecycle events
// (ready, retrieving, retrieved, success, logout, error), bridge events
// (qr, payload, destination) and auth-flow events. Handler registration
// is synchronous and is never gated on readiness.
package events

import "sync"

// Type identifies the kind of an Event.
type Type string

const (
	// Lifecycle events emitted by the facade itself.
	TypeReady      Type = "ready"
	TypeRetrieving Type = "retrieving"
	TypeRetrieved  Type = "retrieved"
	TypeSuccess    Type = "success"
	TypeLogout     Type = "logout"
	TypeError      Type = "error"

	// Bridge events originating from the embedded-WebView bridge.
	TypeQR          Type = "qr"
	TypePayload     Type = "payload"
	TypeDestination Type = "destination"

	// TypeLoggedOut is emitted by a PKCE handler when its stored session
	// is cleared out-of-band. It is consumed internally to unblock the
	// ready aggregate and is not re-emitted by the facade.
	TypeLoggedOut Type = "loggedout"
)

// Event is the single variant delivered to all subscribers.
type Event struct {
	Type Type

	// Data carries the event payload, if any. Bridge events carry the
	// collaborator's event data verbatim.
	Data any

	// Instance is the ordinal of the facade instance that forwarded the
	// event. Zero when the event did not pass through a facade instance.
	Instance int

	// Err is set for TypeError events.
	Err error
}

// Handler receives emitted events. Handlers run synchronously on the
// emitting goroutine and must not block.
type Handler func(Event)

// Emitter fans events out to registered handlers and channel
// subscribers. The zero value is not usable; use NewEmitter.
type Emitter struct {
	mu       sync.Mutex
	seq      int
	handlers map[Type]map[int]Handler
	subs     map[int]*subscription
}

type subscription struct {
	ch    chan Event
	types map[Type]bool // empty means all types
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[Type]map[int]Handler),
		subs:     make(map[int]*subscription),
	}
}

// On registers a handler for a single event type and returns a function
// that removes it. Registration is synchronous.
func (e *Emitter) On(t Type, h Handler) (off func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	id := e.seq
	if e.handlers[t] == nil {
		e.handlers[t] = make(map[int]Handler)
	}
	e.handlers[t][id] = h

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[t], id)
	}
}

// Subscribe returns a buffered channel receiving matching events and a
// cancel function. With no types given, every event matches. Slow
// consumers that let the buffer fill up lose events rather than block
// the emitter.
func (e *Emitter) Subscribe(types ...Type) (<-chan Event, func()) {
	sub := &subscription{
		ch:    make(chan Event, 64),
		types: make(map[Type]bool, len(types)),
	}
	for _, t := range types {
		sub.types[t] = true
	}

	e.mu.Lock()
	e.seq++
	id := e.seq
	e.subs[id] = sub
	e.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Emit delivers ev to all matching handlers and subscribers.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	handlers := make([]Handler, 0, len(e.handlers[ev.Type]))
	for _, h := range e.handlers[ev.Type] {
		handlers = append(handlers, h)
	}
	subs := make([]*subscription, 0, len(e.subs))
	for _, s := range e.subs {
		if len(s.types) == 0 || s.types[ev.Type] {
			subs = append(subs, s)
		}
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
		}
	}
}
