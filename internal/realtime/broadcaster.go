package realtime

import "sync"

// Broadcaster accepts events for delivery. Publish must not block on slow
// consumers.
type Broadcaster interface {
	Publish(evt Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}

// Recorder keeps published events in memory for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the event names in publish order.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, evt := range events {
		names[i] = evt.Name
	}
	return names
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// EntityEmitter publishes change events for one entity from the data access
// layer after a successful write.
type EntityEmitter struct {
	entity Entity
	out    Broadcaster
}

// NewEntityEmitter returns an emitter for entity. A nil broadcaster yields a no-op emitter.
func NewEntityEmitter(entity Entity, out Broadcaster) *EntityEmitter {
	if out == nil {
		out = Nop{}
	}
	return &EntityEmitter{entity: entity, out: out}
}

func (e *EntityEmitter) Created(id string, version int64, doc interface{}) {
	e.out.Publish(Created(e.entity, id, version, doc, SourceHooks))
}

func (e *EntityEmitter) Updated(id string, version int64, doc interface{}) {
	e.out.Publish(Updated(e.entity, id, version, doc, nil, nil, SourceHooks))
}

func (e *EntityEmitter) Deleted(id string) {
	e.out.Publish(Deleted(e.entity, id, SourceHooks))
}
