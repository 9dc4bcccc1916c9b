package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/strogmv/unread/internal/domain"
	"github.com/strogmv/unread/internal/pkg/metrics"
	"github.com/strogmv/unread/internal/port"
)

// SessionState is the push-channel connection state.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ErrReconnectExhausted is surfaced through OnDown when the bounded
// reconnect attempts run out. The engine then degrades to pull-only mode.
var ErrReconnectExhausted = errors.New("push channel reconnect attempts exhausted")

// SessionHooks are the consumer callbacks. All of them are optional.
type SessionHooks struct {
	OnEvent func(domain.RawEvent)
	OnState func(SessionState)
	// OnDown fires once per terminal failure.
	OnDown func(error)
}

// SessionOptions bundles the Session knobs.
type SessionOptions struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Session owns exactly one logical push-channel connection per user. It
// holds no business logic; every raw event is handed to the hooks as-is.
type Session struct {
	transport port.PushTransport
	sched     port.Scheduler
	hooks     SessionHooks
	opts      SessionOptions
	log       *slog.Logger

	mu              sync.Mutex
	state           SessionState
	attempt         int
	userID          string
	conn            port.PushConn
	attached        bool
	gen             int
	cancelReconnect port.CancelFunc
	backoff         *backoff.ExponentialBackOff
}

func NewSession(transport port.PushTransport, sched port.Scheduler, hooks SessionHooks, opts SessionOptions, log *slog.Logger) *Session {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.BaseDelay
	bo.MaxInterval = opts.MaxDelay
	bo.Multiplier = 2
	// Zero jitter keeps the delay sequence monotonic and testable.
	bo.RandomizationFactor = 0
	bo.Reset()

	return &Session{
		transport: transport,
		sched:     sched,
		hooks:     hooks,
		opts:      opts,
		log:       log,
		state:     StateDisconnected,
		backoff:   bo,
	}
}

// Open connects the push channel for the user. It is idempotent: when a
// connection for the same user is already live or in flight, Open is a
// no-op, so concurrent mount cycles never produce duplicate sockets.
func (s *Session) Open(ctx context.Context, userID string) {
	s.mu.Lock()
	if (s.state == StateConnected || s.state == StateConnecting) && s.userID == userID {
		s.mu.Unlock()
		return
	}
	if s.state != StateDisconnected {
		// Different user, or a reconnect cycle the caller wants to
		// supersede: tear down before starting fresh.
		s.mu.Unlock()
		s.Close()
		s.mu.Lock()
	}
	s.userID = userID
	changed := s.setStateLocked(StateConnecting)
	gen := s.gen
	s.mu.Unlock()

	s.notifyState(changed, StateConnecting)
	s.connect(ctx, gen)
}

// State returns the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempt returns the current reconnect attempt counter.
func (s *Session) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Close is a hard cancel: it clears any pending reconnect timer, drops
// the connection and returns to Disconnected no matter the current
// state. A later Open starts with a fresh attempt counter.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	if s.cancelReconnect != nil {
		s.cancelReconnect()
		s.cancelReconnect = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.attached = false
	s.attempt = 0
	s.backoff.Reset()
	changed := s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	s.notifyState(changed, StateDisconnected)
}

// connect performs one dial attempt: websocket first, long-poll as the
// degraded fallback before the attempt counts as failed.
func (s *Session) connect(ctx context.Context, gen int) {
	conn, err := s.transport.Dial(ctx, s.userID, port.ModeWebSocket)
	if err != nil {
		s.log.Warn("websocket dial failed, falling back to long-poll",
			slog.String("user_id", s.userID), slog.Any("error", err))
		conn, err = s.transport.Dial(ctx, s.userID, port.ModeLongPoll)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	if err != nil {
		s.mu.Unlock()
		s.scheduleReconnect(ctx, gen, err)
		return
	}

	s.conn = conn
	s.attempt = 0
	s.backoff.Reset()
	changed := s.setStateLocked(StateConnected)
	attach := !s.attached
	s.attached = true
	s.mu.Unlock()

	s.notifyState(changed, StateConnected)

	// One-shot listener registration per live connection instance.
	if attach {
		go s.pump(ctx, conn, gen)
	}
}

// pump forwards raw events in arrival order until the connection dies,
// then hands control to the reconnect path.
func (s *Session) pump(ctx context.Context, conn port.PushConn, gen int) {
	for {
		select {
		case raw, ok := <-conn.Events():
			if !ok {
				s.handleDisconnect(ctx, gen, errors.New("push channel closed"))
				return
			}
			s.mu.Lock()
			stale := gen != s.gen
			s.mu.Unlock()
			if stale {
				return
			}
			if s.hooks.OnEvent != nil {
				s.hooks.OnEvent(raw)
			}
		case err := <-conn.Err():
			s.handleDisconnect(ctx, gen, err)
			return
		}
	}
}

func (s *Session) handleDisconnect(ctx context.Context, gen int, cause error) {
	s.mu.Lock()
	if gen != s.gen {
		// User-initiated close already tore everything down.
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.attached = false
	s.mu.Unlock()

	s.log.Info("push channel disconnected",
		slog.String("user_id", s.userID), slog.Any("error", cause))
	s.scheduleReconnect(ctx, gen, cause)
}

func (s *Session) scheduleReconnect(ctx context.Context, gen int, cause error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	if s.attempt >= s.opts.MaxAttempts {
		changed := s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		s.notifyState(changed, StateDisconnected)
		s.log.Error("push channel down, giving up",
			slog.String("user_id", s.userID),
			slog.Int("attempts", s.opts.MaxAttempts),
			slog.Any("error", cause))
		if s.hooks.OnDown != nil {
			s.hooks.OnDown(ErrReconnectExhausted)
		}
		return
	}

	s.attempt++
	attempt := s.attempt
	delay := s.backoff.NextBackOff()
	changed := s.setStateLocked(StateReconnecting)
	metrics.Reconnects.Inc()

	s.cancelReconnect = s.sched.Schedule(func() {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.cancelReconnect = nil
		connecting := s.setStateLocked(StateConnecting)
		s.mu.Unlock()
		s.notifyState(connecting, StateConnecting)
		s.connect(ctx, gen)
	}, delay)
	s.mu.Unlock()

	s.notifyState(changed, StateReconnecting)
	s.log.Info("push channel reconnect scheduled",
		slog.String("user_id", s.userID),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))
}

// setStateLocked transitions the state machine. Caller holds s.mu and is
// responsible for calling notifyState(next) after releasing it.
func (s *Session) setStateLocked(next SessionState) bool {
	if s.state == next {
		return false
	}
	s.state = next
	for _, st := range []SessionState{StateDisconnected, StateConnecting, StateConnected, StateReconnecting} {
		v := 0.0
		if st == next {
			v = 1.0
		}
		metrics.SessionState.WithLabelValues(st.String()).Set(v)
	}
	return true
}

func (s *Session) notifyState(changed bool, next SessionState) {
	if changed && s.hooks.OnState != nil {
		s.hooks.OnState(next)
	}
}
