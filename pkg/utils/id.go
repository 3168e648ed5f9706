package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewPartyID returns a fresh party identifier.
func NewPartyID() string {
	return uuid.NewString()
}

// NewPeerID returns an anonymous identity that stays stable for the process lifetime.
func NewPeerID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewRequestID generates a unique request ID
func NewRequestID() string {
	return "req_" + uuid.NewString()
}
