package port

import (
	"context"

	"github.com/strogmv/unread/internal/domain"
)

// TransportMode selects how the push channel reaches the backend.
type TransportMode string

const (
	// ModeWebSocket is the primary transport.
	ModeWebSocket TransportMode = "websocket"
	// ModeLongPoll is the degraded fallback used when a websocket
	// dial fails mid-attempt.
	ModeLongPoll TransportMode = "longpoll"
)

// PushConn is one live push-channel connection.
type PushConn interface {
	// Events delivers raw events in arrival order. The channel closes
	// when the connection dies.
	Events() <-chan domain.RawEvent
	// Err yields the terminal error of a dead connection, if any.
	Err() <-chan error
	Close() error
}

// PushTransport dials the push channel for one user.
type PushTransport interface {
	Dial(ctx context.Context, userID string, mode TransportMode) (PushConn, error)
}
