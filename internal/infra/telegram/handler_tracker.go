package telegram

import (
	"context"
	"sync"

	"gopkg.in/telebot.v3"
)

// HandlerTracker counts handlers that are still running. telebot runs each
// update in its own goroutine and Bot.Stop does not wait for them.
type HandlerTracker struct {
	mu      sync.Mutex
	running int
	idle    chan struct{} // Closed when running drops to zero, nil while nobody waits
}

func NewHandlerTracker() *HandlerTracker {
	return &HandlerTracker{}
}

// Middleware must be installed with Bot.Use before any handler is registered.
func (t *HandlerTracker) Middleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		t.begin()
		defer t.end()
		return next(c)
	}
}

// Running returns the number of handlers currently executing.
func (t *HandlerTracker) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Wait blocks until no handler is running or ctx ends.
func (t *HandlerTracker) Wait(ctx context.Context) error {
	t.mu.Lock()
	if t.running == 0 {
		t.mu.Unlock()
		return nil
	}
	if t.idle == nil {
		t.idle = make(chan struct{})
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *HandlerTracker) begin() {
	t.mu.Lock()
	t.running++
	t.mu.Unlock()
}

func (t *HandlerTracker) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running--
	if t.running == 0 && t.idle != nil {
		close(t.idle)
		t.idle = nil
	}
}
