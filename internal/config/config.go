package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/strogmv/unread/internal/domain"
)

// Config is the full environment surface of the unread engine.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8087"`

	UserID string `env:"USER_ID" validate:"required"`

	BackendURL   string `env:"BACKEND_URL" env-default:"http://localhost:8080" validate:"required,uri"`
	BackendToken string `env:"BACKEND_TOKEN" env-default:""`

	PushURL      string `env:"PUSH_URL" env-default:"ws://localhost:8080/ws" validate:"required,uri"`
	LongPollPath string `env:"LONGPOLL_PATH" env-default:"/api/v1/events/poll"`
	PullPath     string `env:"PULL_PATH" env-default:"/api/v1/notifications"`

	ReconnectBaseDelay   time.Duration `env:"RECONNECT_BASE_DELAY" env-default:"1s" validate:"gt=0"`
	ReconnectMaxDelay    time.Duration `env:"RECONNECT_MAX_DELAY" env-default:"30s" validate:"gt=0"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS" env-default:"8" validate:"gt=0"`

	DedupTTL time.Duration `env:"DEDUP_TTL" env-default:"5m" validate:"gt=0"`

	PullCooldown     time.Duration `env:"PULL_COOLDOWN" env-default:"5s" validate:"gt=0"`
	BreakerThreshold int           `env:"BREAKER_THRESHOLD" env-default:"3" validate:"gt=0"`
	BreakerCooldown  time.Duration `env:"BREAKER_COOLDOWN" env-default:"60s" validate:"gt=0"`
	BreakerProbes    int           `env:"BREAKER_PROBES" env-default:"1" validate:"gt=0"`

	RecomputeInterval time.Duration `env:"RECOMPUTE_INTERVAL" env-default:"30s" validate:"gt=0"`

	// RedisAddr switches the fingerprint store to redis when set.
	RedisAddr string `env:"REDIS_ADDR" env-default:""`
	// NATSURL enables cross-surface signal publishing when set.
	NATSURL string `env:"NATS_URL" env-default:""`

	// GeneralExclusionsJSON and ChatExclusionsJSON hold the two
	// independently configured exclusion rule sets. They look alike in
	// every deployment seen so far but are deliberately not shared.
	GeneralExclusionsJSON string `env:"GENERAL_EXCLUSIONS" env-default:"[{\"senderRole\":\"admin\"},{\"senderRole\":\"operator\"}]"`
	ChatExclusionsJSON    string `env:"CHAT_EXCLUSIONS" env-default:"[{\"senderRole\":\"admin\"},{\"senderRole\":\"operator\"}]"`

	GeneralExclusions domain.RuleSet `env:"-"`
	ChatExclusions    domain.RuleSet `env:"-"`
}

// Load reads the configuration from environment variables, validates it
// and decodes the rule sets.
func Load() (*Config, error) {
	var cfg Config

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	if err := json.Unmarshal([]byte(cfg.GeneralExclusionsJSON), &cfg.GeneralExclusions); err != nil {
		return nil, fmt.Errorf("parse GENERAL_EXCLUSIONS: %w", err)
	}
	if err := json.Unmarshal([]byte(cfg.ChatExclusionsJSON), &cfg.ChatExclusions); err != nil {
		return nil, fmt.Errorf("parse CHAT_EXCLUSIONS: %w", err)
	}

	if cfg.ReconnectMaxDelay < cfg.ReconnectBaseDelay {
		return nil, fmt.Errorf("RECONNECT_MAX_DELAY %s is below RECONNECT_BASE_DELAY %s",
			cfg.ReconnectMaxDelay, cfg.ReconnectBaseDelay)
	}

	return &cfg, nil
}
