package service

import (
	"context"
	"testing"
	"time"

	"github.com/strogmv/unread/internal/adapter/cache/memory"
	"github.com/strogmv/unread/internal/domain"
)

func TestAcceptOncePerStableID(t *testing.T) {
	d := NewDedup(memory.NewStore(time.Minute))
	ctx := context.Background()

	ev := domain.NotificationEvent{ID: "n1", Category: domain.CategoryGeneral, CreatedAt: time.Unix(100, 0)}

	ok, err := d.Accept(ctx, ev)
	if err != nil || !ok {
		t.Fatalf("first Accept = %v, %v; want true, nil", ok, err)
	}

	// Same persisted id from the other source must collapse.
	ev.Source = domain.SourcePull
	ok, _ = d.Accept(ctx, ev)
	if ok {
		t.Error("second Accept with same id = true")
	}
}

func TestFingerprintBucketsNearSimultaneousPushes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := domain.ConversationKey{ChatID: "c1", Counterparty: "Alice"}

	mk := func(at time.Time) domain.NotificationEvent {
		return domain.NotificationEvent{
			ID:              "push-0001",
			Category:        domain.CategoryChatMessage,
			Message:         "hi",
			ConversationKey: key,
			CreatedAt:       at,
		}
	}

	// 200ms apart: same 1s bucket, same fingerprint.
	if Fingerprint(mk(base)) != Fingerprint(mk(base.Add(200*time.Millisecond))) {
		t.Error("retransmission 200ms apart produced distinct fingerprints")
	}
	// Next second: distinct.
	if Fingerprint(mk(base)) == Fingerprint(mk(base.Add(1200*time.Millisecond))) {
		t.Error("distinct rapid messages collapsed across buckets")
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	at := time.Unix(500, 0)
	a := domain.NotificationEvent{Category: domain.CategoryChatMessage, Message: "hello", SenderID: "s1", CreatedAt: at}
	b := domain.NotificationEvent{Category: domain.CategoryChatMessage, Message: "hello there", SenderID: "s1", CreatedAt: at}

	if Fingerprint(a) == Fingerprint(b) {
		t.Error("different content, same fingerprint")
	}
}

func TestSynthesizedIDNeverUsedAsFingerprint(t *testing.T) {
	at := time.Unix(500, 0)
	a := domain.NotificationEvent{ID: "push-aaa", Category: domain.CategoryGeneral, Title: "t", CreatedAt: at}
	b := domain.NotificationEvent{ID: "push-bbb", Category: domain.CategoryGeneral, Title: "t", CreatedAt: at}

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("synthesized ids leaked into the fingerprint")
	}
}
