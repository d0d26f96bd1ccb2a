package verifly

import (
	"sync/atomic"

	apierrors "github.com/verifly/verifly-go/errors"
)

// Handle holds the current Client of a long running process. Loads and
// rotations are atomic: a caller sees either the old client or the new one,
// and requests already started keep the client they loaded.
type Handle struct {
	current atomic.Pointer[Client]
}

// NewHandle creates a Handle holding client
func NewHandle(client *Client) *Handle {
	h := &Handle{}
	h.current.Store(client)
	return h
}

// Load returns the current client
func (h *Handle) Load() *Client {
	return h.current.Load()
}

// Store replaces the current client
func (h *Handle) Store(client *Client) error {
	if client == nil {
		return apierrors.New(apierrors.KindConfiguration, "client is required")
	}
	h.current.Store(client)
	return nil
}

// RotateSecret swaps in a copy of the current client using secretKey.
// Settings of a client stored concurrently are kept.
func (h *Handle) RotateSecret(secretKey string) error {
	for {
		old := h.current.Load()
		if old == nil {
			return apierrors.New(apierrors.KindConfiguration, "handle has no client")
		}
		next, err := old.WithSecretKey(secretKey)
		if err != nil {
			return err
		}
		if h.current.CompareAndSwap(old, next) {
			return nil
		}
	}
}
