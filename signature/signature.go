// Package signature implements the HMAC-SHA256 request signature used by
// Verifly. The signed message is the canonical JSON body immediately
// followed by the Unix timestamp, with no delimiter.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
	"unicode/utf8"

	apierrors "github.com/verifly/verifly-go/errors"
)

// Header names expected by the Verifly API
const (
	HeaderAPIKey      = "X-API-Key"
	HeaderSignature   = "X-Signature"
	HeaderTimestamp   = "X-Timestamp"
	HeaderContentType = "Content-Type"

	ContentTypeJSON = "application/json"
)

// Size is the length of a hex encoded signature
const Size = sha256.Size * 2

// Sign returns the lowercase hex HMAC-SHA256 of payload+timestamp keyed by secret
func Sign(secret []byte, payload, timestamp string) (string, error) {
	if !utf8.ValidString(payload) {
		return "", apierrors.New(apierrors.KindEncoding, "signature: payload is not valid UTF-8")
	}
	if !utf8.ValidString(timestamp) {
		return "", apierrors.New(apierrors.KindEncoding, "signature: timestamp is not valid UTF-8")
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Equal compares two signatures in constant time
func Equal(expected, actual string) bool {
	return hmac.Equal([]byte(expected), []byte(actual))
}

// Timestamp formats t as decimal Unix seconds
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
