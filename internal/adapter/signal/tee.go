// Package signal composes the engine's outbound signal publishers.
package signal

import (
	"context"
	"errors"

	"github.com/strogmv/unread/internal/port"
)

// Tee publishes to every target. Failures are collected, not short-circuited,
// since signals are best effort and one dead sink must not silence the rest.
type Tee []port.SignalPublisher

func (t Tee) Publish(ctx context.Context, signal string, payload any) error {
	var errs []error
	for _, p := range t {
		if err := p.Publish(ctx, signal, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
