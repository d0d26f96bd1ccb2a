package verifly

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/verifly/verifly-go/canonical"
	apierrors "github.com/verifly/verifly-go/errors"
)

// Method is a verification channel
type Method string

const (
	MethodSMS      Method = "sms"
	MethodWhatsApp Method = "whatsapp"
	MethodCall     Method = "call"
	MethodEmail    Method = "email"
)

// Session limits enforced before a request is sent
const (
	MinSessionTimeout = 1
	MaxSessionTimeout = 15
	// MaxSessionDataSize is the largest canonical size of CreateParams.Data
	MaxSessionDataSize = 100 * 1024
)

// CreateParams are the options of a new verification session.
// Zero values are left out of the request.
type CreateParams struct {
	Phone       string
	Email       string
	Methods     []Method
	Lang        string
	WebhookURL  string
	RedirectURL string
	// Timeout is the session lifetime in minutes, 1 to 15
	Timeout int
	// Data is attached to the session and echoed in webhooks
	Data any
}

// SelectMethodParams pick the channel of a session
type SelectMethodParams struct {
	Method Method
	// RecipientContact is required when the session was created without one
	RecipientContact string
}

// Session is a verification session
type Session struct {
	SessionID        string          `json:"sessionId"`
	IframeURL        string          `json:"iframeUrl,omitempty"`
	Status           string          `json:"status,omitempty"`
	Method           string          `json:"method,omitempty"`
	RecipientContact string          `json:"recipientContact,omitempty"`
	ExpiresAt        string          `json:"expiresAt,omitempty"`
	Data             json.RawMessage `json:"data,omitempty"`
	// Raw is the unwrapped response
	Raw json.RawMessage `json:"-"`
}

// Result is the outcome of cancel and abort
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	// Raw is the full response
	Raw json.RawMessage `json:"-"`
}

// Transaction is a balance movement
type Transaction struct {
	ID          string  `json:"id,omitempty"`
	Type        string  `json:"type,omitempty"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// Balance is the account balance with recent transactions
type Balance struct {
	Balance            float64         `json:"balance"`
	Currency           string          `json:"currency"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
	Raw                json.RawMessage `json:"-"`
}

// VerificationService manages verification sessions
type VerificationService struct {
	client *Client
}

// Create starts a verification session
func (s *VerificationService) Create(ctx context.Context, params CreateParams) (*Session, error) {
	body, err := params.payload()
	if err != nil {
		return nil, err
	}

	raw, err := s.client.do(ctx, http.MethodPost, "/api/verify/create", nil, body)
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

// Get returns the current state of a session
func (s *VerificationService) Get(ctx context.Context, sessionID string) (*Session, error) {
	path, err := sessionPath(sessionID, "")
	if err != nil {
		return nil, err
	}

	raw, err := s.client.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

// SelectMethod chooses the channel the code is sent through
func (s *VerificationService) SelectMethod(ctx context.Context, sessionID string, params SelectMethodParams) (*Session, error) {
	path, err := sessionPath(sessionID, "select-method")
	if err != nil {
		return nil, err
	}
	if params.Method == "" {
		return nil, apierrors.New(apierrors.KindValidation, "method is required")
	}

	body := canonical.Object(canonical.Field("method", canonical.String(string(params.Method))))
	if params.RecipientContact != "" {
		body = body.Set("recipientContact", canonical.String(params.RecipientContact))
	}

	raw, err := s.client.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

// Cancel stops a session temporarily
func (s *VerificationService) Cancel(ctx context.Context, sessionID string) (*Result, error) {
	return s.finish(ctx, sessionID, "cancel")
}

// Abort stops a session permanently
func (s *VerificationService) Abort(ctx context.Context, sessionID string) (*Result, error) {
	return s.finish(ctx, sessionID, "abort")
}

// Balance returns the account balance and recent transactions
func (s *VerificationService) Balance(ctx context.Context) (*Balance, error) {
	raw, err := s.client.do(ctx, http.MethodGet, "/api/verify/balance", nil, nil)
	if err != nil {
		return nil, err
	}

	data := unwrap(raw)
	var balance Balance
	if err := json.Unmarshal(data, &balance); err != nil {
		return nil, apierrors.Wrap(apierrors.KindUnknown, "failed to decode balance", err)
	}
	balance.Raw = data
	return &balance, nil
}

func (s *VerificationService) finish(ctx context.Context, sessionID, action string) (*Result, error) {
	path, err := sessionPath(sessionID, action)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.do(ctx, http.MethodPost, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var result Result
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, apierrors.Wrap(apierrors.KindUnknown, "failed to decode "+action+" response", err)
		}
	}
	result.Raw = raw
	return &result, nil
}

// payload builds the request body with keys in the order the API documents
func (p CreateParams) payload() (canonical.Value, error) {
	body := canonical.Object()

	if p.Phone != "" {
		body = body.Set("phone", canonical.String(p.Phone))
	}
	if p.Email != "" {
		body = body.Set("email", canonical.String(p.Email))
	}
	if len(p.Methods) > 0 {
		methods := make([]canonical.Value, len(p.Methods))
		for i, m := range p.Methods {
			methods[i] = canonical.String(string(m))
		}
		body = body.Set("methods", canonical.Array(methods...))
	}
	if p.Lang != "" {
		body = body.Set("lang", canonical.String(p.Lang))
	}
	if p.WebhookURL != "" {
		body = body.Set("webhookUrl", canonical.String(p.WebhookURL))
	}
	if p.RedirectURL != "" {
		body = body.Set("redirectUrl", canonical.String(p.RedirectURL))
	}
	if p.Timeout != 0 {
		if p.Timeout < MinSessionTimeout || p.Timeout > MaxSessionTimeout {
			return canonical.Value{}, apierrors.Newf(apierrors.KindValidation,
				"timeout must be between %d and %d minutes", MinSessionTimeout, MaxSessionTimeout)
		}
		body = body.Set("timeout", canonical.Int(int64(p.Timeout)))
	}
	if p.Data != nil {
		data, err := canonical.FromAny(p.Data)
		if err != nil {
			return canonical.Value{}, err
		}
		encoded, err := canonical.Encode(data)
		if err != nil {
			return canonical.Value{}, err
		}
		if len(encoded) > MaxSessionDataSize {
			return canonical.Value{}, apierrors.Newf(apierrors.KindValidation,
				"data must not exceed %d bytes", MaxSessionDataSize)
		}
		body = body.Set("data", data)
	}

	return body, nil
}

func sessionPath(sessionID, action string) (string, error) {
	if sessionID == "" {
		return "", apierrors.New(apierrors.KindValidation, "session ID is required")
	}
	path := "/api/verify/" + url.PathEscape(sessionID)
	if action != "" {
		path += "/" + action
	}
	return path, nil
}

// unwrap returns the "data" field of a response when it is present
func unwrap(raw []byte) json.RawMessage {
	if data := gjson.GetBytes(raw, "data"); data.Exists() {
		return json.RawMessage(data.Raw)
	}
	return raw
}

func decodeSession(raw []byte) (*Session, error) {
	data := unwrap(raw)
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, apierrors.Wrap(apierrors.KindUnknown, "failed to decode session", err)
	}
	session.Raw = data
	return &session, nil
}
