package events

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// InMemoryEventStore keeps every stream in memory. Each subscription receives its
// events in append order on its own goroutine, so a slow handler never blocks
// appends or other subscribers.
type InMemoryEventStore struct {
	mu            sync.RWMutex
	streams       map[string][]Event
	log           []Event
	subscriptions []*subscription

	inflight sync.WaitGroup
	logger   zerolog.Logger
}

var _ EventStore = (*InMemoryEventStore)(nil)

type subscription struct {
	handler EventHandler
	types   map[string]bool

	mu       sync.Mutex
	pending  []Event
	draining bool
}

func NewInMemoryEventStore(logger zerolog.Logger) *InMemoryEventStore {
	return &InMemoryEventStore{
		streams: make(map[string][]Event),
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// AppendEvent stamps the event with its stream version and log position, then queues it for subscribers
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	if streamID == "" {
		return fmt.Errorf("event %s: stream id cannot be empty", event.Type())
	}

	s.mu.Lock()
	stored := record{
		id:        event.ID(),
		eventType: event.Type(),
		stream:    streamID,
		data:      event.Data(),
		at:        event.Timestamp(),
		version:   len(s.streams[streamID]) + 1,
		position:  len(s.log) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], stored)
	s.log = append(s.log, stored)
	for _, sub := range s.subscriptions {
		if sub.types[stored.eventType] && sub.handler.CanHandle(stored.eventType) {
			s.enqueue(sub, stored)
		}
	}
	s.mu.Unlock()
	return nil
}

// enqueue must be called with s.mu held so queue order matches log order
func (s *InMemoryEventStore) enqueue(sub *subscription, e Event) {
	s.inflight.Add(1)
	sub.mu.Lock()
	sub.pending = append(sub.pending, e)
	start := !sub.draining
	sub.draining = true
	sub.mu.Unlock()
	if start {
		go s.drain(sub)
	}
}

func (s *InMemoryEventStore) drain(sub *subscription) {
	for {
		sub.mu.Lock()
		if len(sub.pending) == 0 {
			sub.draining = false
			sub.mu.Unlock()
			return
		}
		e := sub.pending[0]
		sub.pending = sub.pending[1:]
		sub.mu.Unlock()

		if err := sub.handler.Handle(e); err != nil {
			s.logger.Error().Err(err).
				Str("event", e.Type()).
				Str("stream", e.StreamID()).
				Int("version", e.Version()).
				Msg("event handler failed")
		}
		s.inflight.Done()
	}
}

// ReadEvents returns a copy of the stream from the given version on
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.streams[streamID], max(fromVersion, 1)-1), nil
}

// ReadAllEvents returns a copy of the log starting at the 0-based offset fromPosition
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.log, max(fromPosition, 0)), nil
}

func tail(events []Event, from int) []Event {
	if from >= len(events) {
		return []Event{}
	}
	return slices.Clone(events[from:])
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	if len(eventTypes) == 0 {
		return fmt.Errorf("subscription needs at least one event type")
	}
	sub := &subscription{handler: handler, types: make(map[string]bool, len(eventTypes))}
	for _, t := range eventTypes {
		sub.types[t] = true
	}

	s.mu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.mu.Unlock()
	return nil
}

// Unsubscribe stops future deliveries to handler; already queued events are still delivered
func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = slices.DeleteFunc(s.subscriptions, func(sub *subscription) bool {
		return sub.handler == handler
	})
	return nil
}

// Flush blocks until every event appended so far has been handled
func (s *InMemoryEventStore) Flush() {
	s.inflight.Wait()
}
