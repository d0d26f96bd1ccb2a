// Package verifly is a Go client for the Verifly two-factor verification API.
//
// Every request is signed with HMAC-SHA256 over the canonical JSON body and a
// Unix timestamp. The same secret verifies the webhooks Verifly sends back:
//
//	client, err := verifly.New(apiKey, secretKey)
//	session, err := client.Verification().Create(ctx, verifly.CreateParams{
//		Phone:   "5551234567",
//		Methods: []verifly.Method{verifly.MethodSMS, verifly.MethodWhatsApp},
//	})
//
// A Client is immutable. WithSecretKey and WithDebug return a new Client, and
// Handle swaps clients atomically for long running processes.
package verifly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/signature"
	"github.com/verifly/verifly-go/transport"
	"github.com/verifly/verifly-go/webhook"
)

const (
	// Version is the SDK version
	Version = "1.0.0"
	// DefaultBaseURL is the Verifly API endpoint
	DefaultBaseURL = "https://www.verifly.net"
	// DefaultTimeout bounds each HTTP attempt
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent identifies the SDK to the API
	DefaultUserAgent = "Verifly-Go-SDK/" + Version
)

// Client talks to the Verifly API
type Client struct {
	apiKey    string
	secretKey string
	settings  settings
	transport transport.Transport
	signer    *signature.Signer
	verifier  *webhook.Verifier
	logger    *zap.Logger
}

// New creates a Client. Both credentials are required.
func New(apiKey, secretKey string, opts ...Option) (*Client, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return newClient(apiKey, secretKey, s)
}

func newClient(apiKey, secretKey string, s settings) (*Client, error) {
	if apiKey == "" {
		return nil, apierrors.New(apierrors.KindConfiguration, "API key is required")
	}
	if secretKey == "" {
		return nil, apierrors.New(apierrors.KindConfiguration, "secret key is required")
	}
	if s.baseURL == "" {
		return nil, apierrors.New(apierrors.KindConfiguration, "base URL is required")
	}
	return build(apiKey, secretKey, s), nil
}

// build wires a client from validated credentials
func build(apiKey, secretKey string, s settings) *Client {
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
		if s.debug {
			if dev, err := zap.NewDevelopment(); err == nil {
				logger = dev
			}
		}
	}
	logger = logger.Named("verifly")

	t := s.transport
	if t == nil {
		t = transport.NewHTTPTransport(s.baseURL,
			transport.WithTimeout(s.timeout),
			transport.WithUserAgent(s.userAgent),
			transport.WithMaxRetries(s.maxRetries),
			transport.WithRateLimit(s.rateLimit, s.rateBurst),
			transport.WithLogger(logger),
		)
	}

	signerOpts := []signature.SignerOption{
		signature.WithLogger(logger),
		signature.WithDebug(s.debug),
	}
	if s.clock != nil {
		signerOpts = append(signerOpts, signature.WithClock(s.clock))
	}

	return &Client{
		apiKey:    apiKey,
		secretKey: secretKey,
		settings:  s,
		transport: t,
		signer:    signature.NewSigner(apiKey, secretKey, signerOpts...),
		verifier:  webhook.NewVerifier(secretKey),
		logger:    logger,
	}
}

// WithSecretKey returns a new Client using secretKey. The receiver is unchanged.
func (c *Client) WithSecretKey(secretKey string) (*Client, error) {
	return newClient(c.apiKey, secretKey, c.settings)
}

// WithDebug returns a new Client with debug logging switched on or off
func (c *Client) WithDebug(debug bool) *Client {
	s := c.settings
	s.debug = debug
	return build(c.apiKey, c.secretKey, s)
}

// APIKey returns the public API key
func (c *Client) APIKey() string {
	return c.apiKey
}

// Debug reports whether debug logging is enabled
func (c *Client) Debug() bool {
	return c.settings.debug
}

// Verification returns the verification session API
func (c *Client) Verification() *VerificationService {
	return &VerificationService{client: c}
}

// Webhook returns the verifier for webhooks signed with the client secret
func (c *Client) Webhook() *webhook.Verifier {
	return c.verifier
}

// Do sends a signed request and decodes the JSON response into out.
// GET requests carry no body but are signed as "{}". Other methods with a nil
// body, such as cancel and abort, send a literal "{}" body, so the bytes sent
// are always the bytes signed.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apierrors.Wrap(apierrors.KindUnknown, "failed to decode response", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if method == http.MethodGet {
		body = nil
	}

	headers, payload, err := c.signer.BuildHeaders(body)
	if err != nil {
		return nil, err
	}

	req := &transport.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Header: http.Header{},
	}
	headers.Apply(req.Header)
	if method != http.MethodGet {
		req.Body = payload
	}

	if c.settings.debug {
		c.logger.Debug("Sending request",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("query", query.Encode()),
			zap.ByteString("body", payload),
		)
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, c.transportError(err)
	}

	if c.settings.debug {
		c.logger.Debug("Received response",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", resp.Body),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierrors.FromResponse(resp.StatusCode, resp.Body)
	}

	return resp.Body, nil
}

func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return apierrors.Wrap(apierrors.KindTransport,
			fmt.Sprintf("request timeout after %s", c.settings.timeout), err)
	}
	return apierrors.Wrap(apierrors.KindTransport, "request failed", err)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
