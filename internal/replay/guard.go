package replay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/logger"
)

const (
	DefaultKeyPrefix = "verifly:replay:"
	DefaultTTL       = 10 * time.Minute

	// timestamps above this are taken as milliseconds
	millisecondThreshold = 1_000_000_000_000
)

var (
	// ErrReplayed is returned when a signature and timestamp pair was already claimed
	ErrReplayed = errors.New("webhook already received")
	// ErrStale is returned when the timestamp is further from now than MaxSkew
	ErrStale = errors.New("webhook timestamp outside allowed window")
	// ErrInvalidTimestamp is returned when MaxSkew is set and the timestamp is not a unix time
	ErrInvalidTimestamp = errors.New("invalid webhook timestamp")
)

// Config holds the settings of a Guard
type Config struct {
	TTL       time.Duration
	MaxSkew   time.Duration
	KeyPrefix string
}

// Guard rejects webhooks whose signature and timestamp were seen within the TTL
//
//go:generate mockgen -source=guard.go -destination=../mocks/replay.go -package=mocks -mock_names=Guard=MockReplayGuard
type Guard interface {
	// Claim records the pair, returning ErrReplayed if it is already recorded
	Claim(ctx context.Context, signature, timestamp string) error
	// Release forgets a claimed pair so a redelivery is accepted
	Release(ctx context.Context, signature, timestamp string) error
}

type guard struct {
	config Config
	redis  adapter.RedisClient
	clock  adapter.Clock
}

// NewGuard creates a Redis backed replay guard
func NewGuard(cfg Config, rc adapter.RedisClient, clock adapter.Clock) Guard {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return &guard{config: cfg, redis: rc, clock: clock}
}

// Claim checks the timestamp window and records the pair
func (g *guard) Claim(ctx context.Context, signature, timestamp string) error {
	if g.config.MaxSkew > 0 {
		if err := g.checkSkew(timestamp); err != nil {
			return err
		}
	}

	ok, err := g.redis.SetNX(ctx, g.key(signature, timestamp), g.clock.Now().Unix(), g.config.TTL).Result()
	if err != nil {
		return fmt.Errorf("failed to claim webhook: %w", err)
	}
	if !ok {
		logger.WarnCtx(ctx, "Replayed webhook rejected", zap.String("timestamp", timestamp))
		return ErrReplayed
	}
	return nil
}

// Release deletes the claim
func (g *guard) Release(ctx context.Context, signature, timestamp string) error {
	if err := g.redis.Del(ctx, g.key(signature, timestamp)).Err(); err != nil {
		return fmt.Errorf("failed to release webhook claim: %w", err)
	}
	return nil
}

func (g *guard) key(signature, timestamp string) string {
	return g.config.KeyPrefix + signature + ":" + timestamp
}

func (g *guard) checkSkew(timestamp string) error {
	n, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidTimestamp, timestamp)
	}

	var sent time.Time
	if n >= millisecondThreshold {
		sent = g.clock.Unix(0, n*int64(time.Millisecond))
	} else {
		sent = g.clock.Unix(n, 0)
	}

	skew := g.clock.Since(sent)
	if skew < 0 {
		skew = -skew
	}
	if skew > g.config.MaxSkew {
		return fmt.Errorf("%w: %s", ErrStale, skew)
	}
	return nil
}
