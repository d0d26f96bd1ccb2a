package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apierrors "github.com/verifly/verifly-go/errors"
	"github.com/verifly/verifly-go/signature"
)

// MaxBodySize bounds the webhook body read by ParseRequest. Session data is
// limited to 100KB, so 1MB leaves room for the envelope.
const MaxBodySize = 1 << 20

// ErrMissingHeaders is returned when X-Signature or X-Timestamp is absent
var ErrMissingHeaders = apierrors.New(apierrors.KindValidation, "missing signature headers")

// ParseRequest reads and verifies a webhook request. Missing signature
// headers are rejected before the body is read.
func (v *Verifier) ParseRequest(r *http.Request) (*Event, error) {
	sig := r.Header.Get(signature.HeaderSignature)
	timestamp := r.Header.Get(signature.HeaderTimestamp)
	if sig == "" || timestamp == "" {
		return nil, ErrMissingHeaders
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
	if err != nil {
		return nil, apierrors.Wrap(apierrors.KindValidation, "failed to read webhook body", err)
	}
	if len(body) > MaxBodySize {
		return nil, apierrors.New(apierrors.KindValidation, "webhook body too large")
	}

	return v.ConstructEventFromBytes(body, sig, timestamp)
}

// StatusCode maps a ParseRequest error to the HTTP status to answer with
func StatusCode(err error) int {
	switch apierrors.KindOf(err) {
	case apierrors.KindValidation, apierrors.KindEncoding:
		return http.StatusBadRequest
	case apierrors.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Write sends resp as JSON with its status
func Write(w http.ResponseWriter, resp Response) error {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set(signature.HeaderContentType, signature.ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(resp)
}

// Handler returns an http.Handler that verifies each request and passes the
// event to fn. The Response returned by fn is written back to Verifly.
func (v *Verifier) Handler(fn func(r *http.Request, event *Event) Response) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		event, err := v.ParseRequest(r)
		if err != nil {
			status := StatusCode(err)
			if status == http.StatusUnauthorized {
				_ = Write(w, Unauthorized("Invalid signature"))
				return
			}
			_ = Write(w, Failure(errMessage(err), status))
			return
		}
		_ = Write(w, fn(r, event))
	})
}

func errMessage(err error) string {
	var e *apierrors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
