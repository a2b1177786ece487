package mocks

import (
	"context"
	"sync"

	"github.com/samber/lo"
)

// EventPublisher records published events for assertions.
type EventPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *EventPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	return nil
}

func (p *EventPublisher) Events() []any {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]any(nil), p.events...)
}

// EventsOfType returns the recorded events of type T.
func EventsOfType[T any](p *EventPublisher) []T {
	return lo.FilterMap(p.Events(), func(e any, _ int) (T, bool) {
		typed, ok := e.(T)
		return typed, ok
	})
}
