package mocks

import (
	"context"
	"sync"
)

type CommandBus struct {
	mu       sync.Mutex
	commands []any
}

func (b *CommandBus) Send(_ context.Context, command any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.commands = append(b.commands, command)
	return nil
}

func (b *CommandBus) Commands() []any {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]any(nil), b.commands...)
}
