package signature

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/verifly/verifly-go/canonical"
)

// Clock supplies the signing time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Headers are the authentication headers of one request
type Headers struct {
	APIKey    string
	Signature string
	Timestamp string
}

// Apply sets the authentication headers and the JSON content type on h
func (a Headers) Apply(h http.Header) {
	h.Set(HeaderAPIKey, a.APIKey)
	h.Set(HeaderSignature, a.Signature)
	h.Set(HeaderTimestamp, a.Timestamp)
	h.Set(HeaderContentType, ContentTypeJSON)
}

// Signer builds authentication headers for outgoing requests.
// A Signer is immutable and safe for concurrent use.
type Signer struct {
	apiKey string
	secret []byte
	clock  Clock
	logger *zap.Logger
	debug  bool
}

// SignerOption configures a Signer
type SignerOption func(*Signer)

// WithClock sets the clock used for timestamps
func WithClock(clock Clock) SignerOption {
	return func(s *Signer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) SignerOption {
	return func(s *Signer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebug logs payload, timestamp and signature of every signed request
func WithDebug(debug bool) SignerOption {
	return func(s *Signer) {
		s.debug = debug
	}
}

// NewSigner creates a Signer for the given credentials
func NewSigner(apiKey, secret string, opts ...SignerOption) *Signer {
	s := &Signer{
		apiKey: apiKey,
		secret: []byte(secret),
		clock:  systemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildHeaders canonicalizes body, stamps it with the current time and signs
// it. The canonical bytes are returned so the caller can send exactly what was
// signed. A nil body is signed as "{}".
func (s *Signer) BuildHeaders(body any) (Headers, []byte, error) {
	payload, err := canonical.Canonicalize(body)
	if err != nil {
		return Headers{}, nil, err
	}

	timestamp := Timestamp(s.clock.Now())
	sig, err := Sign(s.secret, string(payload), timestamp)
	if err != nil {
		return Headers{}, nil, err
	}

	if s.debug {
		s.logger.Debug("Generated request signature",
			zap.ByteString("payload", payload),
			zap.String("timestamp", timestamp),
			zap.String("signature", sig),
		)
	}

	return Headers{
		APIKey:    s.apiKey,
		Signature: sig,
		Timestamp: timestamp,
	}, payload, nil
}

// BuildHeaders signs body with the given credentials at the current time
func BuildHeaders(apiKey, secret string, body any) (Headers, []byte, error) {
	return NewSigner(apiKey, secret).BuildHeaders(body)
}
