package port

import (
	"context"
	"time"
)

// FingerprintStore records event fingerprints for duplicate suppression.
// Entries expire after the TTL passed at construction; Seen never returns
// true for an expired entry.
type FingerprintStore interface {
	Seen(ctx context.Context, fingerprint string) (bool, error)
	Remember(ctx context.Context, fingerprint string, at time.Time) error
}
