package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Mode selects how session proofs are issued and checked.
type Mode int

const (
	// ModeUnset is the zero value and is rejected by New.
	ModeUnset Mode = iota
	// ModeStateful keeps session records in the host's SessionStore.
	ModeStateful
	// ModeStateless issues self-contained signed tokens.
	ModeStateless
)

func (m Mode) String() string {
	switch m {
	case ModeStateful:
		return "stateful"
	case ModeStateless:
		return "stateless"
	default:
		return "unset"
	}
}

// ParseMode parses "stateful" or "stateless" (case insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stateful":
		return ModeStateful, nil
	case "stateless":
		return ModeStateless, nil
	}
	return ModeUnset, fmt.Errorf("%w: unknown session mode %q", ErrConfigurationInvalid, s)
}

// UnmarshalText lets Mode be read from env vars and config files.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// SessionStrategy issues and checks a user's active-session proof. Both modes
// implement every method; operations a mode cannot perform return
// ErrUnsupportedOperation.
//
// "Not authenticated" is never an error: Verify returns "" and Get/Payload
// return nil for unknown, expired or tampered proofs.
type SessionStrategy interface {
	Mode() Mode

	// Create issues a proof for subject. A zero expiresAt means now + TTL.
	Create(ctx context.Context, subject string, expiresAt time.Time) (string, error)

	// Verify returns the subject of a currently valid proof, or "".
	Verify(ctx context.Context, token string) (string, error)

	// Get returns the raw session record without expiry filtering.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete revokes a session. Idempotent.
	Delete(ctx context.Context, token string) error

	// Payload returns decoded token claims regardless of expiry.
	Payload(ctx context.Context, token string) (*TokenClaims, error)
}

// SessionOption customizes a session strategy.
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	ttl      time.Duration
	clock    Clock
	ids      IDSource
	logger   *slog.Logger
	issuer   string
	audience string
}

func newSessionOptions(opts []SessionOption) sessionOptions {
	o := sessionOptions{ttl: DefaultSessionTTL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl <= 0 {
		o.ttl = DefaultSessionTTL
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithSessionTTL sets the lifetime used when Create gets a zero expiry.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(o *sessionOptions) { o.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(clock Clock) SessionOption {
	return func(o *sessionOptions) { o.clock = clock }
}

// WithIDSource overrides the token id (jti) generator.
func WithIDSource(ids IDSource) SessionOption {
	return func(o *sessionOptions) { o.ids = ids }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = logger }
}

// WithIssuer sets the iss claim on issued tokens and requires it on verify.
func WithIssuer(issuer string) SessionOption {
	return func(o *sessionOptions) { o.issuer = issuer }
}

// WithAudience sets the aud claim on issued tokens and requires it on verify.
func WithAudience(audience string) SessionOption {
	return func(o *sessionOptions) { o.audience = audience }
}

func (o *sessionOptions) expiry(now, expiresAt time.Time) time.Time {
	if expiresAt.IsZero() {
		return now.Add(o.ttl)
	}
	return expiresAt
}
