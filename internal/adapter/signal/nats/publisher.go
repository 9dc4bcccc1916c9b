package nats

import (
	"context"
	"encoding/json"
	"fmt"

	natspkg "github.com/nats-io/nats.go"
)

const subjectPrefix = "unread."

// Publisher forwards engine signals onto NATS so other surfaces of the
// application (menus, pop-ups, native shells) can refresh without
// polling. Signals are fire-and-forget; nothing is persisted.
type Publisher struct {
	nc *natspkg.Conn
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := natspkg.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) Publish(_ context.Context, signal string, payload any) error {
	data, err := json.Marshal(map[string]any{
		"signal":  signal,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("marshal signal %s: %w", signal, err)
	}
	return p.nc.Publish(subjectPrefix+signal, data)
}

func (p *Publisher) IsConnected() bool {
	return p.nc != nil && p.nc.Status() == natspkg.CONNECTED
}

func (p *Publisher) Close() {
	p.nc.Close()
}
