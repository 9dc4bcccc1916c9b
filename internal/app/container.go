package app

import (
	"context"
	"fmt"

	"github.com/strogmv/unread/internal/adapter/cache/memory"
	redisstore "github.com/strogmv/unread/internal/adapter/cache/redis"
	"github.com/strogmv/unread/internal/adapter/push"
	"github.com/strogmv/unread/internal/adapter/signal"
	signalmem "github.com/strogmv/unread/internal/adapter/signal/memory"
	signalnats "github.com/strogmv/unread/internal/adapter/signal/nats"
	"github.com/strogmv/unread/internal/config"
	"github.com/strogmv/unread/internal/pkg/logger"
	"github.com/strogmv/unread/internal/pkg/scheduler"
	"github.com/strogmv/unread/internal/port"
	"github.com/strogmv/unread/internal/service"
)

// Container wires one engine session with its adapters.
type Container struct {
	Config  *config.Config
	Engine  *service.Engine
	Signals *signalmem.Publisher

	closers []func()
}

// NewContainer builds the engine for one user. The request function comes
// from the surrounding transport layer; everything inside the container is
// session-scoped so parallel sessions never share mutable state.
func NewContainer(ctx context.Context, cfg *config.Config, userID string, request port.RequestFunc) (*Container, error) {
	_ = ctx
	c := &Container{Config: cfg}

	var store port.FingerprintStore
	if cfg.RedisAddr != "" {
		rs := redisstore.NewStore(cfg.RedisAddr, cfg.DedupTTL)
		c.closers = append(c.closers, func() { _ = rs.Close() })
		store = rs
	} else {
		store = memory.NewStore(cfg.DedupTTL)
	}

	c.Signals = signalmem.NewPublisher()
	publishers := signal.Tee{c.Signals}
	if cfg.NATSURL != "" {
		np, err := signalnats.NewPublisher(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("signal publisher: %w", err)
		}
		c.closers = append(c.closers, np.Close)
		publishers = append(publishers, np)
	}

	transport := push.NewTransport(cfg.PushURL, request, cfg.LongPollPath)

	c.Engine = service.NewEngine(
		service.EngineOptions{
			UserID:            userID,
			RecomputeInterval: cfg.RecomputeInterval,
			GeneralRules:      cfg.GeneralExclusions,
			ChatRules:         cfg.ChatExclusions,
		},
		transport,
		request,
		store,
		publishers,
		scheduler.New(),
		service.SessionOptions{
			BaseDelay:   cfg.ReconnectBaseDelay,
			MaxDelay:    cfg.ReconnectMaxDelay,
			MaxAttempts: cfg.ReconnectMaxAttempts,
		},
		service.PullOptions{
			Path:             cfg.PullPath,
			Cooldown:         cfg.PullCooldown,
			BreakerThreshold: cfg.BreakerThreshold,
			BreakerCooldown:  cfg.BreakerCooldown,
			BreakerProbes:    cfg.BreakerProbes,
		},
		logger.Component("engine"),
	)

	return c, nil
}

// Close stops the engine and releases adapter resources.
func (c *Container) Close() {
	c.Engine.Stop()
	for _, fn := range c.closers {
		fn()
	}
}
