package memory

import (
	"context"
	"sync"
)

// Handler receives one engine signal.
type Handler func(signal string, payload any)

// Publisher is the in-process signal fanout used by surfaces living in
// the same process (the HTTP layer, tests). Delivery is at most once and
// best effort; a slow subscriber never blocks the engine.
type Publisher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewPublisher() *Publisher {
	return &Publisher{handlers: map[string][]Handler{}}
}

// Subscribe registers a handler for a signal name, or for every signal
// when name is empty.
func (p *Publisher) Subscribe(name string, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = append(p.handlers[name], h)
}

func (p *Publisher) Publish(_ context.Context, signal string, payload any) error {
	p.mu.RLock()
	targets := append([]Handler{}, p.handlers[signal]...)
	targets = append(targets, p.handlers[""]...)
	p.mu.RUnlock()

	for _, h := range targets {
		h(signal, payload)
	}
	return nil
}
