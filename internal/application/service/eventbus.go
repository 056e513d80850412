package service

import (
	"fmt"
	"sync"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.EventBus = (*EventBus)(nil)

type subscription struct {
	id      uint64
	handler entity.EventHandler
	types   map[entity.EventType]struct{}
}

func (s *subscription) wants(t entity.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// EventBus delivers events synchronously to the handlers subscribed at publish
// time. One bus is owned by one run; Close drops every handler.
type EventBus struct {
	mu     sync.RWMutex
	subs   []*subscription
	nextID uint64
	closed bool
	logger output.LoggerPort
}

func NewEventBus(logger output.LoggerPort) *EventBus {
	return &EventBus{logger: logger}
}

// Subscribe registers handler for the given types, or for every type when none
// are given. The returned func removes the subscription and is safe to call twice.
func (b *EventBus) Subscribe(handler entity.EventHandler, types ...entity.EventType) func() {
	if handler == nil {
		return func() {}
	}

	sub := &subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[entity.EventType]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *EventBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

func (b *EventBus) Publish(event entity.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	snapshot := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(event.Type) {
			snapshot = append(snapshot, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range snapshot {
		b.deliver(s, event)
	}
}

func (b *EventBus) deliver(s *subscription, event entity.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("Event handler panicked",
				"event", event.Type,
				"run_id", event.RunID,
				"subscription", s.id,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	s.handler(event)
}

func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}
