package push

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/port"
)

type wsConn struct {
	conn      *websocket.Conn
	events    chan domain.RawEvent
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

func (t *Transport) dialWebSocket(ctx context.Context, userID string) (port.PushConn, error) {
	u, err := url.Parse(t.wsURL)
	if err != nil {
		return nil, fmt.Errorf("push url: %w", err)
	}
	q := u.Query()
	q.Set("userId", userID)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", u.Host, err)
	}

	c := &wsConn{
		conn:   conn,
		events: make(chan domain.RawEvent, 64),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *wsConn) readLoop() {
	defer close(c.events)
	for {
		var raw domain.RawEvent
		if err := c.conn.ReadJSON(&raw); err != nil {
			select {
			case c.errs <- err:
			case <-c.done:
			}
			return
		}
		select {
		case c.events <- raw:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) Events() <-chan domain.RawEvent { return c.events }
func (c *wsConn) Err() <-chan error              { return c.errs }

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}
