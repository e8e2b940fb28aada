package queue

import "sync"

// EventKind identifies a job lifecycle event.
type EventKind string

const (
	EventEnqueued  EventKind = "job-enqueued"
	EventStarted   EventKind = "job-started"
	EventProgress  EventKind = "job-progress"
	EventCompleted EventKind = "job-completed"
	EventFailed    EventKind = "job-failed"
	EventCancelled EventKind = "job-cancelled"
	EventRetry     EventKind = "job-retry"
)

// Event carries a lifecycle change and a snapshot of the affected job.
// The snapshot is taken after the corresponding persistence write has
// completed, so a subscriber that reloads from the store on receipt never
// observes older data than the event describes.
type Event struct {
	Kind EventKind
	Job  Job
}

// EventHandler receives lifecycle events. Handlers run synchronously on the
// goroutine performing the mutation; long-running work should be handed off.
type EventHandler func(Event)

// Subscription represents one attached handler. Close detaches it without
// affecting other subscribers and is safe to call more than once.
type Subscription struct {
	emitter *emitter
	id      int
	once    sync.Once
}

// Close detaches the subscription's handler.
func (s *Subscription) Close() {
	if s == nil || s.emitter == nil {
		return
	}
	s.once.Do(func() {
		s.emitter.remove(s.id)
	})
}

type subscriber struct {
	id      int
	kinds   map[EventKind]struct{} // nil means all kinds
	handler EventHandler
}

type emitter struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscriber
}

func newEmitter() *emitter {
	return &emitter{}
}

func (e *emitter) subscribe(handler EventHandler, kinds ...EventKind) *Subscription {
	var kindSet map[EventKind]struct{}
	if len(kinds) > 0 {
		kindSet = make(map[EventKind]struct{}, len(kinds))
		for _, kind := range kinds {
			kindSet[kind] = struct{}{}
		}
	}

	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscriber{id: id, kinds: kindSet, handler: handler})
	e.mu.Unlock()

	return &Subscription{emitter: e, id: id}
}

func (e *emitter) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, sub := range e.subs {
		if sub.id == id {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			return
		}
	}
}

func (e *emitter) emit(event Event) {
	e.mu.RLock()
	subs := make([]subscriber, len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, sub := range subs {
		if sub.kinds != nil {
			if _, ok := sub.kinds[event.Kind]; !ok {
				continue
			}
		}
		sub.handler(event)
	}
}
