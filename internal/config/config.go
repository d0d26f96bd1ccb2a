package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// VeriflyConfig holds the API credentials and client settings
type VeriflyConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  float64       `mapstructure:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst  int           `mapstructure:"rate_burst"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // e.g. "5m", "1h"
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // e.g. "10m", "30m"
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ReplayConfig controls the replay guard of the webhook receiver
type ReplayConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
	// MaxSkew rejects webhooks whose timestamp is further than this from now, 0 disables the check
	MaxSkew time.Duration `mapstructure:"max_skew"`
}

// RateLimiterConfig controls sharing the Verifly request budget across replicas through Redis
type RateLimiterConfig struct {
	Distributed        bool          `mapstructure:"distributed"`
	KeyPrefix          string        `mapstructure:"key_prefix"`
	LocalFallback      bool          `mapstructure:"local_fallback"`
	FallbackMultiplier float64       `mapstructure:"fallback_multiplier"`
	MaxQueueTime       time.Duration `mapstructure:"max_queue_time"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds

	// CORSOrigins are the origins allowed to call the management API, empty allows all
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// AuthConfig holds credentials accepted by the management API
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// ReceiverConfig holds configuration for the webhook receiver
type ReceiverConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Verifly     VeriflyConfig     `mapstructure:"verifly"`
	Server      ServerConfig      `mapstructure:"server"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Replay      ReplayConfig      `mapstructure:"replay"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Worker      WorkerConfig      `mapstructure:"worker"`
}

// CLIConfig holds configuration for the verifly command line tool
type CLIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Verifly    VeriflyConfig `mapstructure:"verifly"`
	// NATS is used by the events subcommand
	NATS NATSConfig `mapstructure:"nats"`
}

// LoadReceiverConfig loads configuration for the webhook receiver
func LoadReceiverConfig(configFile string, envPath string) (*ReceiverConfig, error) {
	v := configureViper("webhook-receiver", configFile, envPath)

	// Set defaults
	setVeriflyDefaults(v)
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	setNATSDefaults(v)
	v.SetDefault("redis.db", 0)
	v.SetDefault("replay.enabled", false)
	v.SetDefault("replay.ttl", "10m")
	v.SetDefault("replay.max_skew", "0s")
	v.SetDefault("rate_limiter.distributed", false)
	v.SetDefault("rate_limiter.key_prefix", "verifly:limiter:")
	v.SetDefault("rate_limiter.local_fallback", true)
	v.SetDefault("rate_limiter.fallback_multiplier", 0.5)
	v.SetDefault("rate_limiter.max_queue_time", "30s")
	v.SetDefault("worker.pool_size", 20)
	v.SetDefault("worker.queue_size", 2048)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg ReceiverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Verifly.APIKey == "" {
		return nil, errors.New("verifly.api_key is required")
	}
	if cfg.Verifly.SecretKey == "" {
		return nil, errors.New("verifly.secret_key is required")
	}
	if cfg.Replay.Enabled && cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required when replay is enabled")
	}
	if cfg.RateLimiter.Distributed {
		if cfg.Redis.Addr == "" {
			return nil, errors.New("redis.addr is required when rate_limiter.distributed is set")
		}
		if cfg.Verifly.RateLimit <= 0 {
			return nil, errors.New("verifly.rate_limit must be positive when rate_limiter.distributed is set")
		}
	}

	return &cfg, nil
}

// LoadCLIConfig loads configuration for the command line tool
func LoadCLIConfig(configFile string, envPath string) (*CLIConfig, error) {
	v := configureViper("verifly", configFile, envPath)

	setVeriflyDefaults(v)
	setNATSDefaults(v)

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setNATSDefaults(v *viper.Viper) {
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "VERIFLY_EVENTS")
	v.SetDefault("nats.subject_prefix", "verifly.events")
}

func setVeriflyDefaults(v *viper.Viper) {
	v.SetDefault("verifly.base_url", "https://www.verifly.net")
	v.SetDefault("verifly.timeout", "30s")
	v.SetDefault("verifly.max_retries", 0)
	v.SetDefault("verifly.rate_limit", 0)
	v.SetDefault("verifly.rate_burst", 1)
}

// readConfig reads the config file, falling back to environment variables
// when the file does not exist
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search order: current directory, service directory, config directory
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("VERIFLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Verifly
		"verifly.api_key",
		"verifly.secret_key",
		"verifly.base_url",
		"verifly.timeout",
		"verifly.max_retries",
		"verifly.rate_limit",
		"verifly.rate_burst",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.cors_origins",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.subject_prefix",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		// Replay
		"replay.enabled",
		"replay.ttl",
		"replay.max_skew",
		// Rate limiter
		"rate_limiter.distributed",
		"rate_limiter.key_prefix",
		"rate_limiter.local_fallback",
		"rate_limiter.fallback_multiplier",
		"rate_limiter.max_queue_time",
		// Worker
		"worker.pool_size",
		"worker.queue_size",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for n := 0; n < 5; n++ {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// Enabled reports whether a database is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != "" && c.DBName != ""
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
