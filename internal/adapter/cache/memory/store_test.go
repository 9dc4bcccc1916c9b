package memory

import (
	"context"
	"testing"
	"time"
)

func TestSeenAfterRemember(t *testing.T) {
	s := NewStore(time.Minute)
	ctx := context.Background()

	seen, err := s.Seen(ctx, "fp1")
	if err != nil || seen {
		t.Fatalf("Seen(new) = %v, %v; want false, nil", seen, err)
	}

	if err := s.Remember(ctx, "fp1", time.Now()); err != nil {
		t.Fatalf("Remember error = %v", err)
	}
	seen, _ = s.Seen(ctx, "fp1")
	if !seen {
		t.Error("Seen(remembered) = false")
	}
}

func TestTTLExpiryOnLookup(t *testing.T) {
	now := time.Unix(1000, 0)
	s := NewStore(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_ = s.Remember(ctx, "fp1", now)
	_ = s.Remember(ctx, "fp2", now)

	now = now.Add(61 * time.Second)
	_ = s.Remember(ctx, "fp3", now)

	if seen, _ := s.Seen(ctx, "fp1"); seen {
		t.Error("expired fingerprint still seen")
	}
	if seen, _ := s.Seen(ctx, "fp3"); !seen {
		t.Error("fresh fingerprint lost in sweep")
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d after sweep, want 1", got)
	}
}
