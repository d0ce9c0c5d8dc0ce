package authcore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IDSource produces unique identifiers (token jti, session ids). Tests inject
// deterministic sources.
type IDSource func() (string, error)

// Clock returns the current time.
type Clock func() time.Time

// NewRandomID returns a random (version 4) UUID string.
func NewRandomID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}

// DefaultSessionTTL is applied when a session or token is created without an
// explicit expiry.
const DefaultSessionTTL = 30 * time.Minute

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

func (s IDSource) next() (string, error) {
	if s == nil {
		return NewRandomID()
	}
	return s()
}
