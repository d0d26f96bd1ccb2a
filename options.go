package verifly

import (
	"time"

	"go.uber.org/zap"

	"github.com/verifly/verifly-go/signature"
	"github.com/verifly/verifly-go/transport"
)

type settings struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	debug      bool
	maxRetries int
	rateLimit  float64
	rateBurst  int
	logger     *zap.Logger
	transport  transport.Transport
	clock      signature.Clock
}

func defaultSettings() settings {
	return settings{
		baseURL:   DefaultBaseURL,
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
	}
}

// Option configures a Client
type Option func(*settings)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP timeout, 30 seconds by default
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(userAgent string) Option {
	return func(s *settings) {
		if userAgent != "" {
			s.userAgent = userAgent
		}
	}
}

// WithDebug logs every signed request and response at debug level
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.debug = debug
	}
}

// WithLogger sets the logger. Without one the client is silent, or logs to a
// development logger when debug is on.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMaxRetries retries network errors and 429/502/503 responses.
// Retries are off by default.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		s.maxRetries = n
	}
}

// WithRateLimit throttles outgoing requests on the client side
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

// WithTransport replaces the HTTP transport. Timeout, user agent, retry and
// rate limit options only apply to the default transport.
func WithTransport(t transport.Transport) Option {
	return func(s *settings) {
		s.transport = t
	}
}

// WithClock sets the clock used for request timestamps
func WithClock(clock signature.Clock) Option {
	return func(s *settings) {
		s.clock = clock
	}
}
