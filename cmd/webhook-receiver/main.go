package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	verifly "github.com/verifly/verifly-go"
	"github.com/verifly/verifly-go/internal/adapter"
	"github.com/verifly/verifly-go/internal/api/middleware"
	"github.com/verifly/verifly-go/internal/api/server"
	"github.com/verifly/verifly-go/internal/config"
	"github.com/verifly/verifly-go/internal/dispatcher"
	"github.com/verifly/verifly-go/internal/logger"
	"github.com/verifly/verifly-go/internal/messaging"
	"github.com/verifly/verifly-go/internal/processor"
	"github.com/verifly/verifly-go/internal/providers/jetstream"
	"github.com/verifly/verifly-go/internal/ratelimit"
	"github.com/verifly/verifly-go/internal/replay"
	"github.com/verifly/verifly-go/internal/store"
	"github.com/verifly/verifly-go/transport"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadReceiverConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "webhook-receiver",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Verifly webhook receiver", zap.String("version", verifly.Version))

	clock := adapter.NewClock()

	// Redis backs the replay guard and the shared request budget
	var redisClient adapter.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient = adapter.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Failed to close Redis client", zap.Error(err))
			}
		}()
		logger.InfoCtx(ctx, "Configured Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Verifly client
	opts := []verifly.Option{
		verifly.WithBaseURL(cfg.Verifly.BaseURL),
		verifly.WithTimeout(cfg.Verifly.Timeout),
		verifly.WithMaxRetries(cfg.Verifly.MaxRetries),
		verifly.WithDebug(cfg.Debug),
		verifly.WithLogger(logger.Default()),
	}
	if cfg.RateLimiter.Distributed {
		limiter, err := ratelimit.NewLimiter(ratelimit.Config{
			Key:                     cfg.Verifly.APIKey,
			RequestsPerSecond:       int(cfg.Verifly.RateLimit),
			Burst:                   cfg.Verifly.RateBurst,
			RedisKeyPrefix:          cfg.RateLimiter.KeyPrefix,
			EnableLocalFallback:     cfg.RateLimiter.LocalFallback,
			LocalFallbackMultiplier: cfg.RateLimiter.FallbackMultiplier,
			MaxQueueTime:            cfg.RateLimiter.MaxQueueTime,
		}, redisClient, clock)
		if err != nil {
			logger.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		defer func() { _ = limiter.Close() }()

		base := transport.NewHTTPTransport(cfg.Verifly.BaseURL,
			transport.WithTimeout(cfg.Verifly.Timeout),
			transport.WithMaxRetries(cfg.Verifly.MaxRetries),
			transport.WithUserAgent(verifly.DefaultUserAgent),
			transport.WithLogger(logger.Default()),
		)
		opts = append(opts, verifly.WithTransport(ratelimit.NewTransport(base, limiter)))
	} else if cfg.Verifly.RateLimit > 0 {
		opts = append(opts, verifly.WithRateLimit(cfg.Verifly.RateLimit, cfg.Verifly.RateBurst))
	}

	client, err := verifly.New(cfg.Verifly.APIKey, cfg.Verifly.SecretKey, opts...)
	if err != nil {
		logger.Fatal("Failed to create Verifly client", zap.Error(err))
	}
	handle := verifly.NewHandle(client)

	// Database is optional; without it webhooks are not recorded
	var dataStore store.Store
	if cfg.Database.Enabled() {
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
			logger.Fatal("Failed to configure connection pool", zap.Error(err))
		}
		if err := store.Migrate(db); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.InfoCtx(ctx, "Connected to database",
			zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
			zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
		)
		dataStore = store.NewPGStore(db, clock)
	} else {
		logger.WarnCtx(ctx, "Database not configured, webhooks will not be recorded")
	}

	// NATS JetStream fan-out is optional
	var publisher messaging.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			SubjectPrefix:  cfg.NATS.SubjectPrefix,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapter.NewNatsJetStream())
		if err != nil {
			logger.Fatal("Failed to create NATS publisher", zap.Error(err))
		}
		defer publisher.Close()
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	var guard replay.Guard
	if cfg.Replay.Enabled {
		guard = replay.NewGuard(replay.Config{
			TTL:     cfg.Replay.TTL,
			MaxSkew: cfg.Replay.MaxSkew,
		}, redisClient, clock)
	}

	// Event handlers run on a worker pool
	disp := dispatcher.New(ctx, dispatcher.Config{
		WorkerPoolSize:  cfg.Worker.WorkerPoolSize,
		WorkerQueueSize: cfg.Worker.WorkerQueueSize,
	}, dataStore)
	dispatcher.RegisterDefaultHandlers(disp, dataStore)

	proc := processor.New(processor.Deps{
		Guard:      guard,
		Store:      dataStore,
		Publisher:  publisher,
		Dispatcher: disp,
		Clock:      clock,
	})

	auth, err := middleware.NewAuthenticator(middleware.AuthConfig{
		JWTPublicKey: cfg.Auth.JWTPublicKey,
		APIKeys:      cfg.Auth.APIKeys,
	}, clock)
	if err != nil {
		logger.Fatal("Failed to create authenticator", zap.Error(err))
	}
	if !auth.Enabled() {
		logger.WarnCtx(ctx, "No management API credentials configured, /api/v1 will reject every request")
	}

	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, handle, dataStore, proc, auth)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// SIGHUP reloads the secret, SIGINT and SIGTERM shut down
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				rotateSecret(handle)
				continue
			}
			logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
			break loop
		case err := <-errCh:
			logger.ErrorCtx(ctx, err, zap.String("component", "server"))
			break loop
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop accepting webhooks first, then drain the events already acknowledged.
	// ctx stays live until the pool is empty.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(fmt.Errorf("server forced to shutdown: %w", err))
	}
	disp.Stop()
	cancel()

	logger.Info("Webhook receiver stopped")
}

// rotateSecret reloads the configuration and swaps the secret in place.
// In-flight requests finish with the secret they started with.
func rotateSecret(handle *verifly.Handle) {
	cfg, err := config.LoadReceiverConfig(*configFile, *envPath)
	if err != nil {
		logger.Error(fmt.Errorf("failed to reload config: %w", err))
		return
	}
	if err := handle.RotateSecret(cfg.Verifly.SecretKey); err != nil {
		logger.Error(fmt.Errorf("failed to rotate secret: %w", err))
		return
	}
	logger.Info("Rotated Verifly secret key")
}
