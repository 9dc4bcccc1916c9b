package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/strogmv/unread/internal/port"
)

func TestLongPollProbeFailureFailsDial(t *testing.T) {
	tr := NewTransport("ws://unused", func(context.Context, string, map[string]string) ([]byte, error) {
		return nil, errors.New("backend down")
	}, "/poll")

	if _, err := tr.Dial(context.Background(), "u1", port.ModeLongPoll); err == nil {
		t.Error("Dial succeeded against a dead poll endpoint")
	}
}

func TestLongPollDeliversBatchesWithCursor(t *testing.T) {
	var mu sync.Mutex
	var cursors []string
	responses := []string{
		`{"events":[{"id":"e1","type":"info","recipientId":"u1"}],"cursor":"c1"}`,
		`{"events":[{"id":"e2","type":"info","recipientId":"u1"}],"cursor":"c2"}`,
		`{"events":[]}`,
	}
	call := 0

	tr := NewTransport("ws://unused", func(_ context.Context, _ string, params map[string]string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		cursors = append(cursors, params["cursor"])
		body := responses[len(responses)-1]
		if call < len(responses) {
			body = responses[call]
		}
		call++
		return []byte(body), nil
	}, "/poll")
	tr.pollInterval = time.Millisecond

	conn, err := tr.Dial(context.Background(), "u1", port.ModeLongPoll)
	if err != nil {
		t.Fatalf("Dial error = %v", err)
	}
	defer conn.Close()

	var got []string
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case ev := <-conn.Events():
			got = append(got, ev.ID)
		case err := <-conn.Err():
			t.Fatalf("connection error: %v", err)
		case <-timeout:
			t.Fatalf("timed out with events %v", got)
		}
	}

	if got[0] != "e1" || got[1] != "e2" {
		t.Errorf("events = %v, want [e1 e2]", got)
	}

	mu.Lock()
	defer mu.Unlock()
	// Probe has no cursor; the second request carries the first batch's.
	if cursors[0] != "" || cursors[1] != "c1" {
		t.Errorf("cursors = %v, want probe without cursor then c1", cursors[:2])
	}
}

func TestLongPollCloseStopsPolling(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	tr := NewTransport("ws://unused", func(context.Context, string, map[string]string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return []byte(`[]`), nil
	}, "/poll")
	tr.pollInterval = time.Millisecond

	conn, err := tr.Dial(context.Background(), "u1", port.ModeLongPoll)
	if err != nil {
		t.Fatalf("Dial error = %v", err)
	}
	_ = conn.Close()

	mu.Lock()
	settled := calls
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	after := calls
	mu.Unlock()

	// One in-flight poll may still land; the loop must stop after it.
	if after > settled+1 {
		t.Errorf("polling continued after Close: %d -> %d calls", settled, after)
	}
}
