package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/port"
)

type longPollConn struct {
	events    chan domain.RawEvent
	errs      chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// openLongPoll verifies the poll endpoint answers once, then keeps
// polling it with a cursor so events arrive in order without repeats.
func (t *Transport) openLongPoll(ctx context.Context, userID string) (port.PushConn, error) {
	params := map[string]string{"userId": userID}
	body, err := t.request(ctx, t.longPollPath, params)
	if err != nil {
		return nil, fmt.Errorf("long-poll probe: %w", err)
	}

	batch, err := decodeBatch(body)
	if err != nil {
		return nil, fmt.Errorf("long-poll decode: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c := &longPollConn{
		events: make(chan domain.RawEvent, 64),
		errs:   make(chan error, 1),
		cancel: cancel,
	}
	go c.loop(pollCtx, t, userID, batch)
	return c, nil
}

func (c *longPollConn) loop(ctx context.Context, t *Transport, userID string, first pollBatch) {
	defer close(c.events)

	cursor := first.Cursor
	c.deliver(ctx, first.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.pollInterval):
		}

		params := map[string]string{"userId": userID}
		if cursor != "" {
			params["cursor"] = cursor
		}
		body, err := t.request(ctx, t.longPollPath, params)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case c.errs <- err:
			case <-ctx.Done():
			}
			return
		}

		batch, err := decodeBatch(body)
		if err != nil {
			select {
			case c.errs <- err:
			case <-ctx.Done():
			}
			return
		}
		if batch.Cursor != "" {
			cursor = batch.Cursor
		}
		c.deliver(ctx, batch.Events)
	}
}

func (c *longPollConn) deliver(ctx context.Context, events []domain.RawEvent) {
	for _, ev := range events {
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *longPollConn) Events() <-chan domain.RawEvent { return c.events }
func (c *longPollConn) Err() <-chan error              { return c.errs }

func (c *longPollConn) Close() error {
	c.closeOnce.Do(c.cancel)
	return nil
}

type pollBatch struct {
	Events []domain.RawEvent `json:"events"`
	Cursor string            `json:"cursor,omitempty"`
}

func decodeBatch(body []byte) (pollBatch, error) {
	var list []domain.RawEvent
	if err := json.Unmarshal(body, &list); err == nil {
		return pollBatch{Events: list}, nil
	}

	var batch pollBatch
	if err := json.Unmarshal(body, &batch); err != nil {
		return pollBatch{}, err
	}
	return batch, nil
}
