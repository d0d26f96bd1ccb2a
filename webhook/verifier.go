// Package webhook verifies callbacks delivered by Verifly.
//
// Verifly signs each webhook body with the application secret the same way
// the SDK signs requests: HMAC-SHA256 over the canonical JSON payload followed
// by the X-Timestamp value. The timestamp is not checked for freshness; a
// receiver that needs replay protection must track seen signatures itself.
package webhook

import (
	"github.com/verifly/verifly-go/canonical"
	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/signature"
)

// ErrInvalidSignature is returned by ConstructEvent when verification fails
var ErrInvalidSignature = apierrors.New(apierrors.KindAuthentication, "invalid signature")

// Verifier checks webhook signatures. It is immutable and safe for concurrent use.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// GenerateSignature returns the signature Verifly would send for payload and timestamp
func (v *Verifier) GenerateSignature(payload any, timestamp string) (string, error) {
	body, err := canonical.Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return signature.Sign(v.secret, string(body), timestamp)
}

// Verify reports whether sig is the signature of payload at timestamp.
// A payload that cannot be canonicalized never verifies.
func (v *Verifier) Verify(payload any, sig, timestamp string) bool {
	ok, err := v.verify(payload, sig, timestamp)
	return err == nil && ok
}

// ConstructEvent verifies the payload and returns it as an Event.
// It fails with ErrInvalidSignature when the signature does not match, and
// with an encoding error when the payload cannot be canonicalized.
func (v *Verifier) ConstructEvent(payload any, sig, timestamp string) (*Event, error) {
	ok, err := v.verify(payload, sig, timestamp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidSignature
	}

	value, err := canonical.FromAny(payload)
	if err != nil {
		return nil, err
	}
	return newEvent(payload, value)
}

// ConstructEventFromBytes parses a raw request body, keeping member order,
// and verifies it
func (v *Verifier) ConstructEventFromBytes(body []byte, sig, timestamp string) (*Event, error) {
	value, err := canonical.Parse(body)
	if err != nil {
		return nil, err
	}
	return v.ConstructEvent(value, sig, timestamp)
}

func (v *Verifier) verify(payload any, sig, timestamp string) (bool, error) {
	expected, err := v.GenerateSignature(payload, timestamp)
	if err != nil {
		return false, err
	}
	return signature.Equal(expected, sig), nil
}
