package ratelimit_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/mocks"
	"github.com/verifly/verifly-go/internal/ratelimit"
	"github.com/verifly/verifly-go/transport"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

type testLimiterMocks struct {
	ctrl             *gomock.Controller
	redisClient      *mocks.MockRedisClient
	redisRateLimiter *mocks.MockRedisRateLimiter
	clock            *mocks.MockClock
}

func setupTestLimiter(t *testing.T) *testLimiterMocks {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	return &testLimiterMocks{
		ctrl:             ctrl,
		redisClient:      mocks.NewMockRedisClient(ctrl),
		redisRateLimiter: mocks.NewMockRedisRateLimiter(ctrl),
		clock:            mocks.NewMockClock(ctrl),
	}
}

func pingResult(available bool) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(context.Background())
	if available {
		cmd.SetVal("PONG")
	} else {
		cmd.SetErr(errors.New("connection refused"))
	}
	return cmd
}

// newLimiterWithMocks creates a limiter whose health check never fires during the test
func newLimiterWithMocks(t *testing.T, m *testLimiterMocks, cfg ratelimit.Config, redisAvailable bool) ratelimit.Limiter {
	m.redisClient.EXPECT().Ping(gomock.Any()).Return(pingResult(redisAvailable))
	m.redisClient.EXPECT().NewRateLimiter().Return(m.redisRateLimiter)
	m.clock.EXPECT().NewTicker(10 * time.Second).Return(time.NewTicker(time.Hour))

	l, err := ratelimit.NewLimiter(cfg, m.redisClient, m.clock)
	require.NoError(t, err)

	t.Cleanup(func() {
		m.redisClient.EXPECT().Close().Return(nil).AnyTimes()
		_ = l.Close()
	})
	return l
}

func testConfig() ratelimit.Config {
	return ratelimit.Config{
		Key:                 "pk_test",
		RequestsPerSecond:   100,
		Burst:               100,
		RedisKeyPrefix:      "test:limiter:",
		EnableLocalFallback: true,
	}
}

func TestNewLimiter_InvalidConfig(t *testing.T) {
	m := setupTestLimiter(t)

	_, err := ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: 1}, m.redisClient, m.clock)
	assert.ErrorContains(t, err, "key is required")

	_, err = ratelimit.NewLimiter(ratelimit.Config{Key: "k"}, m.redisClient, m.clock)
	assert.ErrorContains(t, err, "requests_per_second must be positive")
}

func TestNewLimiter_RedisUnavailable_FallbackDisabled(t *testing.T) {
	m := setupTestLimiter(t)
	cfg := testConfig()
	cfg.EnableLocalFallback = false

	m.redisClient.EXPECT().Ping(gomock.Any()).Return(pingResult(false))

	l, err := ratelimit.NewLimiter(cfg, m.redisClient, m.clock)
	assert.Nil(t, l)
	assert.ErrorContains(t, err, "redis unavailable and fallback disabled")
}

func TestLimiter_Wait_Distributed(t *testing.T) {
	m := setupTestLimiter(t)
	l := newLimiterWithMocks(t, m, testConfig(), true)

	m.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), "test:limiter:pk_test", redis_rate.Limit{Rate: 100, Burst: 100, Period: time.Second}).
		Return(&redis_rate.Result{Allowed: 1, Remaining: 99}, nil)

	assert.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_Wait_RetriesAfterDenied(t *testing.T) {
	m := setupTestLimiter(t)
	l := newLimiterWithMocks(t, m, testConfig(), true)

	gomock.InOrder(
		m.redisRateLimiter.EXPECT().
			Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 0, RetryAfter: 20 * time.Millisecond}, nil),
		m.clock.EXPECT().
			After(gomock.Any()).
			DoAndReturn(func(d time.Duration) <-chan time.Time {
				assert.GreaterOrEqual(t, d, 10*time.Millisecond)
				assert.LessOrEqual(t, d, 30*time.Millisecond)
				ch := make(chan time.Time, 1)
				ch <- time.Now()
				return ch
			}),
		m.redisRateLimiter.EXPECT().
			Allow(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&redis_rate.Result{Allowed: 1}, nil),
	)

	assert.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_Wait_FallsBackOnRedisError(t *testing.T) {
	m := setupTestLimiter(t)
	l := newLimiterWithMocks(t, m, testConfig(), true)

	// one failure switches to the local limiter until the health check restores Redis
	m.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down")).
		Times(1)

	assert.NoError(t, l.Wait(context.Background()))
	assert.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_Wait_RedisErrorWithoutFallback(t *testing.T) {
	m := setupTestLimiter(t)
	cfg := testConfig()
	cfg.EnableLocalFallback = false
	l := newLimiterWithMocks(t, m, cfg, true)

	m.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down"))

	err := l.Wait(context.Background())
	assert.ErrorContains(t, err, "redis rate limiter unavailable")
}

func TestLimiter_Wait_ContextCanceled(t *testing.T) {
	m := setupTestLimiter(t)
	l := newLimiterWithMocks(t, m, testConfig(), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestLimiter_Wait_MaxQueueTime(t *testing.T) {
	m := setupTestLimiter(t)
	cfg := testConfig()
	cfg.MaxQueueTime = 20 * time.Millisecond
	l := newLimiterWithMocks(t, m, cfg, true)

	m.redisRateLimiter.EXPECT().
		Allow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&redis_rate.Result{Allowed: 0, RetryAfter: time.Second}, nil)
	m.clock.EXPECT().After(gomock.Any()).Return(make(<-chan time.Time))

	assert.ErrorIs(t, l.Wait(context.Background()), context.DeadlineExceeded)
}

func TestTransport_WaitsBeforeRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	limiter := mocks.NewMockLimiter(ctrl)
	next := mocks.NewMockTransport(ctrl)
	rt := ratelimit.NewTransport(next, limiter)

	req := &transport.Request{Method: "GET", Path: "/api/verify/balance"}

	gomock.InOrder(
		limiter.EXPECT().Wait(gomock.Any()).Return(nil),
		next.EXPECT().Do(gomock.Any(), req).Return(&transport.Response{StatusCode: 200}, nil),
	)
	resp, err := rt.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	limiter.EXPECT().Wait(gomock.Any()).Return(context.DeadlineExceeded)
	_, err = rt.Do(context.Background(), req)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
