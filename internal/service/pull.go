package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/pkg/circuitbreaker"
	"github.com/strogmv/unread/internal/pkg/metrics"
	"github.com/strogmv/unread/internal/port"
)

// ErrBreakerOpen is returned when the pull breaker is open and the call
// was answered from the last known result without touching the network.
var ErrBreakerOpen = errors.New("pull circuit open, serving last known result")

// PullClient wraps the opaque request function with a refresh-storm
// cooldown and a circuit breaker. It always keeps the last successful
// result so sustained backend failure degrades to stale data, never to
// an error reaching the presentation layer.
type PullClient struct {
	request    port.RequestFunc
	path       string
	classifier *Classifier
	cooldown   time.Duration
	breaker    *circuitbreaker.Breaker
	now        func() time.Time

	mu       sync.Mutex
	lastCall time.Time
	last     []domain.NotificationEvent
}

// PullOptions bundles the PullClient knobs.
type PullOptions struct {
	Path             string
	Cooldown         time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	BreakerProbes    int
	Now              func() time.Time
}

func NewPullClient(request port.RequestFunc, classifier *Classifier, opts PullOptions) *PullClient {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PullClient{
		request:    request,
		path:       opts.Path,
		classifier: classifier,
		cooldown:   opts.Cooldown,
		breaker:    circuitbreaker.New(opts.BreakerThreshold, opts.BreakerCooldown, opts.BreakerProbes).WithClock(opts.Now),
		now:        opts.Now,
	}
}

// Fetch returns the persisted notification list normalized to
// NotificationEvents with source PULL. Without force, a call inside the
// cooldown window is a no-op returning the last known result. While the
// breaker is open the call fails fast; the last known result is still
// returned alongside ErrBreakerOpen.
func (p *PullClient) Fetch(ctx context.Context, force bool) ([]domain.NotificationEvent, error) {
	p.mu.Lock()
	if !force && !p.lastCall.IsZero() && p.now().Sub(p.lastCall) < p.cooldown {
		last := p.last
		p.mu.Unlock()
		metrics.Pulls.WithLabelValues("cooldown").Inc()
		return last, nil
	}
	p.mu.Unlock()

	if !p.breaker.Allow() {
		metrics.Pulls.WithLabelValues("breaker_open").Inc()
		metrics.BreakerState.Set(float64(p.breaker.State()))
		return p.lastKnown(), ErrBreakerOpen
	}

	body, err := p.request(ctx, p.path, nil)
	if err != nil {
		p.breaker.RecordFailure()
		metrics.Pulls.WithLabelValues("error").Inc()
		metrics.BreakerState.Set(float64(p.breaker.State()))
		return p.lastKnown(), fmt.Errorf("pull %s: %w", p.path, err)
	}

	raws, err := decodeNotificationList(body)
	if err != nil {
		p.breaker.RecordFailure()
		metrics.Pulls.WithLabelValues("decode_error").Inc()
		metrics.BreakerState.Set(float64(p.breaker.State()))
		return p.lastKnown(), fmt.Errorf("decode pull response: %w", err)
	}

	events := make([]domain.NotificationEvent, 0, len(raws))
	for _, raw := range raws {
		if ev, ok := p.classifier.Classify(raw, domain.SourcePull); ok {
			events = append(events, ev)
		}
	}

	p.breaker.RecordSuccess()
	metrics.Pulls.WithLabelValues("ok").Inc()
	metrics.BreakerState.Set(float64(p.breaker.State()))

	p.mu.Lock()
	p.lastCall = p.now()
	p.last = events
	p.mu.Unlock()

	return events, nil
}

// BreakerState exposes the breaker state for diagnostics.
func (p *PullClient) BreakerState() circuitbreaker.State {
	return p.breaker.State()
}

func (p *PullClient) lastKnown() []domain.NotificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// decodeNotificationList accepts both a bare JSON array and the wrapped
// {"notifications": [...]} shape the backend has used over time.
func decodeNotificationList(body []byte) ([]domain.RawEvent, error) {
	var list []domain.RawEvent
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Notifications []domain.RawEvent `json:"notifications"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Notifications, nil
}
