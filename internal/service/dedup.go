package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/pkg/metrics"
	"github.com/strogmv/unread/internal/port"
)

// Dedup suppresses repeated events across the push and pull paths using a
// TTL-bounded fingerprint store. One instance per session; the ingestion
// path is its only writer.
type Dedup struct {
	store port.FingerprintStore
}

func NewDedup(store port.FingerprintStore) *Dedup {
	return &Dedup{store: store}
}

// Accept returns true exactly once per fingerprint within the store TTL.
// Accepted events are remembered immediately.
func (d *Dedup) Accept(ctx context.Context, ev domain.NotificationEvent) (bool, error) {
	fp := Fingerprint(ev)

	seen, err := d.store.Seen(ctx, fp)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		metrics.EventsDeduplicated.WithLabelValues(string(ev.Source)).Inc()
		return false, nil
	}
	if err := d.store.Remember(ctx, fp, ev.CreatedAt); err != nil {
		return false, fmt.Errorf("dedup remember: %w", err)
	}
	return true, nil
}

// Fingerprint derives the duplicate-recognition key for an event.
// Persisted ids are fingerprints by themselves. Push-only events fall back
// to category + conversation key (or sender) + a content hash + a 1-second
// createdAt bucket, so a retransmitted push collapses while distinct rapid
// messages stay distinct.
func Fingerprint(ev domain.NotificationEvent) string {
	if ev.ID != "" && !ev.Synthesized() {
		return "id:" + ev.ID
	}

	scope := ev.ConversationKey.String()
	if ev.ConversationKey.Zero() {
		scope = ev.SenderID
	}

	h := sha256.New()
	h.Write([]byte(ev.Title))
	h.Write([]byte{0})
	h.Write([]byte(ev.Message))

	return fmt.Sprintf("fp:%s:%s:%s:%d",
		ev.Category, scope, hex.EncodeToString(h.Sum(nil))[:16], ev.CreatedAt.Unix())
}
