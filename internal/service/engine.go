package service

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/pkg/metrics"
	"github.com/strogmv/unread/internal/port"
)

// ErrEngineClosed is returned by operations on a stopped engine.
var ErrEngineClosed = errors.New("reconciliation engine closed")

// EngineOptions bundles the per-session engine knobs.
type EngineOptions struct {
	UserID            string
	RecomputeInterval time.Duration
	GeneralRules      domain.RuleSet
	ChatRules         domain.RuleSet
}

// Engine is the per-user reconciliation engine. It owns its dedup cache
// and aggregator as injected instances, is the only writer of both, and
// reconciles the push and pull sets into one idempotent unread view.
type Engine struct {
	opts       EngineOptions
	classifier *Classifier
	dedup      *Dedup
	aggregator *Aggregator
	reconciler *Reconciler
	session    *Session
	pull       *PullClient
	signals    port.SignalPublisher
	sched      port.Scheduler
	log        *slog.Logger

	mu            sync.Mutex
	closed        bool
	degraded      bool
	pushGeneral   []domain.NotificationEvent
	pulledGeneral []domain.NotificationEvent
	view          domain.UnreadView
	cancelTick    port.CancelFunc
}

// NewEngine wires a session-scoped engine. transport and request come from
// the surrounding system; everything else is built here so two sessions
// never share mutable state.
func NewEngine(
	opts EngineOptions,
	transport port.PushTransport,
	request port.RequestFunc,
	store port.FingerprintStore,
	signals port.SignalPublisher,
	sched port.Scheduler,
	sessionOpts SessionOptions,
	pullOpts PullOptions,
	log *slog.Logger,
) *Engine {
	e := &Engine{
		opts:       opts,
		dedup:      NewDedup(store),
		aggregator: NewAggregator(),
		reconciler: NewReconciler(opts.UserID, opts.GeneralRules),
		signals:    signals,
		sched:      sched,
		log:        log.With(slog.String("user_id", opts.UserID)),
	}
	e.classifier = NewClassifier(opts.UserID, opts.ChatRules, sched.Now)
	if pullOpts.Now == nil {
		pullOpts.Now = sched.Now
	}
	e.pull = NewPullClient(request, e.classifier, pullOpts)
	e.session = NewSession(transport, sched, SessionHooks{
		OnEvent: e.ingestPush,
		OnState: e.onSessionState,
		OnDown:  e.onSessionDown,
	}, sessionOpts, e.log)
	return e
}

// Start opens the push channel, performs an initial forced pull and arms
// the fallback recompute interval that self-heals from missed changes.
func (e *Engine) Start(ctx context.Context) {
	e.session.Open(ctx, e.opts.UserID)
	e.Refresh(ctx, true)
	e.armFallback(ctx)
}

// Stop tears the engine down: the push session closes, the fallback timer
// is cancelled and any in-flight pull result will be discarded on arrival.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.closed = true
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
	e.mu.Unlock()

	e.session.Close()
}

// View returns the last reconciled output.
func (e *Engine) View() domain.UnreadView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Degraded reports whether the push channel has given up; in that mode the
// view runs entirely off pulled data.
func (e *Engine) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.degraded
}

// SessionState exposes the push session state for diagnostics.
func (e *Engine) SessionState() SessionState {
	return e.session.State()
}

// Refresh pulls the persisted list and reconciles. Pull failures degrade
// to the last known data and are logged, never propagated to consumers.
func (e *Engine) Refresh(ctx context.Context, force bool) {
	events, err := e.pull.Fetch(ctx, force)
	if err != nil {
		e.log.Warn("pull failed, keeping last known data", slog.Any("error", err))
	}

	e.mu.Lock()
	if e.closed {
		// Late result after teardown: discard, never apply.
		e.mu.Unlock()
		return
	}
	for _, ev := range events {
		e.ingestLocked(ctx, ev)
	}
	e.recomputeLocked(ctx)
	e.mu.Unlock()
}

// MarkGeneralRead acknowledges one general notification by id.
func (e *Engine) MarkGeneralRead(ctx context.Context, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	found := false
	for _, set := range [][]domain.NotificationEvent{e.pushGeneral, e.pulledGeneral} {
		for i := range set {
			if set[i].ID == id {
				set[i].Read = true
				found = true
			}
		}
	}
	if found {
		e.recomputeLocked(ctx)
	}
	return found
}

// MarkAllGeneralRead acknowledges every surfaced general notification.
func (e *Engine) MarkAllGeneralRead(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, set := range [][]domain.NotificationEvent{e.pushGeneral, e.pulledGeneral} {
		for i := range set {
			set[i].Read = true
		}
	}
	e.recomputeLocked(ctx)
}

// MarkConversationRead acknowledges a whole conversation.
func (e *Engine) MarkConversationRead(ctx context.Context, key domain.ConversationKey) bool {
	found := e.aggregator.MarkConversationRead(key)
	if !found {
		return false
	}

	e.mu.Lock()
	e.recomputeLocked(ctx)
	e.mu.Unlock()

	e.publish(ctx, port.SignalConversationRead, key)
	return true
}

// MarkChatRead acknowledges every conversation of a chat id.
func (e *Engine) MarkChatRead(ctx context.Context, chatID string) bool {
	found := e.aggregator.MarkChatRead(chatID)
	if !found {
		return false
	}

	e.mu.Lock()
	e.recomputeLocked(ctx)
	e.mu.Unlock()

	e.publish(ctx, port.SignalConversationRead, chatID)
	return true
}

// ingestPush is the session's event hook: classify, deduplicate, route.
func (e *Engine) ingestPush(raw domain.RawEvent) {
	ctx := context.Background()

	ev, ok := e.classifier.Classify(raw, domain.SourcePush)
	if !ok {
		metrics.EventsDropped.WithLabelValues("classifier").Inc()
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.ingestLocked(ctx, ev)
	e.recomputeLocked(ctx)
	e.mu.Unlock()
}

// ingestLocked routes one classified event past the dedup cache into the
// chat or general set. Caller holds e.mu.
func (e *Engine) ingestLocked(ctx context.Context, ev domain.NotificationEvent) {
	accepted, err := e.dedup.Accept(ctx, ev)
	if err != nil {
		e.log.Warn("dedup store unavailable, accepting event", slog.Any("error", err))
		accepted = true
	}

	if !accepted {
		// Suppressed as a duplicate, but a persisted twin still carries
		// the authoritative read flag.
		if ev.Read && !ev.Synthesized() {
			if ev.Category.IsChat() {
				e.aggregator.Ingest(ev)
			} else {
				e.markReadByIDLocked(ev.ID)
			}
		}
		return
	}

	metrics.EventsIngested.WithLabelValues(string(ev.Source), string(ev.Category)).Inc()

	if ev.Category.IsChat() {
		e.aggregator.Ingest(ev)
		return
	}
	if ev.Source == domain.SourcePull {
		e.pulledGeneral = append(e.pulledGeneral, ev)
	} else {
		e.pushGeneral = append(e.pushGeneral, ev)
	}
}

func (e *Engine) markReadByIDLocked(id string) {
	for _, set := range [][]domain.NotificationEvent{e.pushGeneral, e.pulledGeneral} {
		for i := range set {
			if set[i].ID == id {
				set[i].Read = true
			}
		}
	}
}

// recomputeLocked reruns the merge and emits at most one change signal.
// Caller holds e.mu.
func (e *Engine) recomputeLocked(ctx context.Context) {
	next := e.reconciler.Recompute(e.pushGeneral, e.pulledGeneral, e.aggregator.Snapshot())
	metrics.Recomputes.Inc()

	if reflect.DeepEqual(next, e.view) {
		return
	}
	e.view = next

	go e.publish(ctx, port.SignalUnreadChanged, map[string]int{
		"generalUnreadCount": next.GeneralUnreadCount,
		"chatUnreadCount":    next.ChatUnreadCount,
	})
}

func (e *Engine) onSessionState(state SessionState) {
	if state != StateConnected {
		return
	}
	e.mu.Lock()
	e.degraded = false
	e.mu.Unlock()
}

func (e *Engine) onSessionDown(err error) {
	e.mu.Lock()
	e.degraded = true
	e.mu.Unlock()

	e.log.Warn("push channel down, running on pulled data only", slog.Any("error", err))
	e.publish(context.Background(), port.SignalSessionDegraded, err.Error())
}

func (e *Engine) publish(ctx context.Context, signal string, payload any) {
	if e.signals == nil {
		return
	}
	if err := e.signals.Publish(ctx, signal, payload); err != nil {
		e.log.Debug("signal publish failed", slog.String("signal", signal), slog.Any("error", err))
	}
}

// armFallback schedules the coarse self-heal recompute.
func (e *Engine) armFallback(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.cancelTick = e.sched.Schedule(func() {
		e.Refresh(ctx, false)
		e.armFallback(ctx)
	}, e.opts.RecomputeInterval)
	e.mu.Unlock()
}
