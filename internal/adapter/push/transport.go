// Package push implements the push-channel transport: a websocket as the
// primary mode and long-polling over the opaque request function as the
// degraded fallback.
package push

import (
	"context"
	"fmt"
	"time"

	"github.com/strogmv/unread/internal/port"
)

// Transport dials the push channel in either mode.
type Transport struct {
	wsURL        string
	request      port.RequestFunc
	longPollPath string
	pollInterval time.Duration
}

func NewTransport(wsURL string, request port.RequestFunc, longPollPath string) *Transport {
	return &Transport{
		wsURL:        wsURL,
		request:      request,
		longPollPath: longPollPath,
		pollInterval: 2 * time.Second,
	}
}

func (t *Transport) Dial(ctx context.Context, userID string, mode port.TransportMode) (port.PushConn, error) {
	switch mode {
	case port.ModeWebSocket:
		return t.dialWebSocket(ctx, userID)
	case port.ModeLongPoll:
		return t.openLongPoll(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown transport mode %q", mode)
	}
}
