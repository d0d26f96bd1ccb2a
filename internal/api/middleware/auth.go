package middleware

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/verifly/verifly-go/internal/adapter"
	apierrors "github.com/verifly/verifly-go/internal/api/shared/errors"
	"github.com/verifly/verifly-go/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	AUTH_TYPE_KEY    contextKey = "auth_type"
	AUTH_SUBJECT_KEY contextKey = "auth_subject"
)

const (
	AuthTypeJWT    = "jwt"
	AuthTypeAPIKey = "apikey"
)

// AuthConfig holds the credentials accepted by the management API
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	APIKeys      []string
}

// AuthResult holds the result of authentication
type AuthResult struct {
	AuthType string
	Subject  string
}

// Authenticator checks "Bearer <jwt>" and "ApiKey <key>" Authorization headers
type Authenticator struct {
	publicKey *rsa.PublicKey
	apiKeys   [][sha256.Size]byte
	clock     adapter.Clock
}

// NewAuthenticator parses the configured credentials. A nil clock uses the system clock.
func NewAuthenticator(cfg AuthConfig, clock adapter.Clock) (*Authenticator, error) {
	if clock == nil {
		clock = adapter.NewClock()
	}
	a := &Authenticator{clock: clock}

	if cfg.JWTPublicKey != "" {
		key, err := parseRSAPublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		a.publicKey = key
	}

	for _, key := range cfg.APIKeys {
		if key != "" {
			a.apiKeys = append(a.apiKeys, sha256.Sum256([]byte(key)))
		}
	}

	return a, nil
}

// Enabled reports whether any credential is configured
func (a *Authenticator) Enabled() bool {
	return a.publicKey != nil || len(a.apiKeys) > 0
}

// Authenticate validates an Authorization header value
func (a *Authenticator) Authenticate(authHeader string) (*AuthResult, error) {
	if authHeader == "" {
		return nil, errors.New("missing Authorization header")
	}

	scheme, credentials, ok := strings.Cut(authHeader, " ")
	if !ok || credentials == "" {
		return nil, errors.New("invalid Authorization header format")
	}

	switch strings.ToLower(scheme) {
	case "bearer":
		claims, err := a.validateJWT(credentials)
		if err != nil {
			return nil, err
		}
		return &AuthResult{AuthType: AuthTypeJWT, Subject: claims.Subject}, nil
	case "apikey":
		if err := a.validateAPIKey(credentials); err != nil {
			return nil, err
		}
		return &AuthResult{AuthType: AuthTypeAPIKey}, nil
	default:
		return nil, fmt.Errorf("unsupported authorization type: %s", scheme)
	}
}

// Middleware rejects requests that do not authenticate
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := a.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiErr)
			return
		}

		c.Set(AUTH_TYPE_KEY, result.AuthType)
		if result.Subject != "" {
			c.Set(AUTH_SUBJECT_KEY, result.Subject)
		}
		c.Next()
	}
}

func (a *Authenticator) validateJWT(tokenString string) (*jwt.RegisteredClaims, error) {
	if a.publicKey == nil {
		return nil, errors.New("JWT public key not configured")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return a.publicKey, nil
		},
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

func (a *Authenticator) validateAPIKey(apiKey string) error {
	if len(a.apiKeys) == 0 {
		return errors.New("no API keys configured")
	}

	sum := sha256.Sum256([]byte(apiKey))
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare(sum[:], key[:]) == 1 {
			return nil
		}
	}
	return errors.New("invalid API key")
}

// parseRSAPublicKey parses an RSA public key in PKIX or PKCS1 PEM form
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	return rsaKey, nil
}
