package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/transport"
)

const healthCheckInterval = 10 * time.Second

// Config holds the settings of a Limiter
type Config struct {
	// Key identifies the budget shared by every replica, usually the API key
	Key                     string
	RequestsPerSecond       int
	Burst                   int
	RedisKeyPrefix          string
	EnableLocalFallback     bool
	LocalFallbackMultiplier float64
	// MaxQueueTime bounds how long Wait blocks for a token
	MaxQueueTime time.Duration
}

// Limiter hands out request tokens shared across processes through Redis.
// When Redis is unreachable it falls back to a per-process limiter.
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Wait blocks until a token is available, the context is done or MaxQueueTime passes
	Wait(ctx context.Context) error
	// Close stops the health check and closes the Redis connection
	Close() error
}

type limiter struct {
	config             Config
	redis              adapter.RedisClient
	clock              adapter.Clock
	distributedLimiter adapter.RedisRateLimiter
	localLimiter       *rate.Limiter
	preFilterLimiter   *rate.Limiter
	redisAvailable     atomic.Bool
	done               chan struct{}
	closeOnce          sync.Once
}

// NewLimiter creates a distributed limiter backed by rc
func NewLimiter(cfg Config, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx).Err(); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
	}

	// Minimum local rate of 1.0
	localRate := max(float64(cfg.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)

	l := &limiter{
		config:             cfg,
		redis:              rc,
		clock:              clock,
		distributedLimiter: rc.NewRateLimiter(),
		localLimiter:       rate.NewLimiter(rate.Limit(localRate), cfg.Burst),
		// pre-filter at the full rate to reduce Redis round trips
		preFilterLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		done:             make(chan struct{}),
	}
	l.redisAvailable.Store(redisAvailable)

	go l.monitorRedisHealth(clock.NewTicker(healthCheckInterval))

	logger.Info("Rate limiter initialized",
		zap.String("key", cfg.Key),
		zap.Int("requests_per_second", cfg.RequestsPerSecond),
		zap.Bool("redis_available", redisAvailable),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return l, nil
}

// Wait blocks until a token is available
func (l *limiter) Wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.config.MaxQueueTime)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if l.redisAvailable.Load() {
			allowed, retryAfter, err := l.tryDistributedLimit(ctx)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}

				l.redisAvailable.Store(false)
				if !l.config.EnableLocalFallback {
					return fmt.Errorf("redis rate limiter unavailable: %w", err)
				}
				logger.Warn("Redis rate limiter error, falling back to local", zap.Error(err))
			case allowed:
				return nil
			case retryAfter > 0:
				// 50-150% of retryAfter spreads out retries from all replicas
				jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-l.clock.After(jitter):
					continue
				}
			}
		}

		if !l.redisAvailable.Load() && l.config.EnableLocalFallback {
			return l.localLimiter.Wait(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(100 * time.Millisecond):
		}
	}
}

// tryDistributedLimit attempts to acquire a token from Redis
func (l *limiter) tryDistributedLimit(ctx context.Context) (bool, time.Duration, error) {
	if err := l.preFilterLimiter.Wait(ctx); err != nil {
		return false, 0, err
	}

	limit := redis_rate.Limit{
		Rate:   l.config.RequestsPerSecond,
		Burst:  l.config.Burst,
		Period: time.Second,
	}
	res, err := l.distributedLimiter.Allow(ctx, l.config.RedisKeyPrefix+l.config.Key, limit)
	if err != nil {
		return false, 0, err
	}

	if res.Allowed == 0 {
		logger.Debug("Rate limit token unavailable, waiting",
			zap.Duration("retry_after", res.RetryAfter),
			zap.Int("remaining", res.Remaining),
		)
		return false, res.RetryAfter, nil
	}

	return true, 0, nil
}

// monitorRedisHealth periodically checks Redis and restores the distributed limiter
func (l *limiter) monitorRedisHealth(ticker *time.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := l.redis.Ping(ctx).Err()
		cancel()

		available := err == nil
		if !l.redisAvailable.Swap(available) && available {
			logger.Info("Redis connection restored")
		}
	}
}

// Close stops the health check and closes the Redis connection
func (l *limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.redis.Close()
	})
	return err
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *Config) error {
	if cfg.Key == "" {
		return fmt.Errorf("key is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
	if cfg.MaxQueueTime <= 0 {
		cfg.MaxQueueTime = time.Minute
	}
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "verifly:limiter:"
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 0.5
	}
	return nil
}

// Transport waits for a token from a Limiter before each request
type Transport struct {
	next    transport.Transport
	limiter Limiter
}

// NewTransport wraps next so every request first waits on limiter
func NewTransport(next transport.Transport, limiter Limiter) *Transport {
	return &Transport{next: next, limiter: limiter}
}

// Do waits for a token and forwards the request
func (t *Transport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.Do(ctx, req)
}
