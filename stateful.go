package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StatefulSession keeps sessions in a host SessionStore. It holds no state of
// its own; revocation is a delete in the store.
type StatefulSession struct {
	store SessionStore
	opts  sessionOptions
}

var _ SessionStrategy = (*StatefulSession)(nil)

// NewStatefulSession returns a strategy backed by store. A nil store fails with
// ErrCapabilityMissing.
func NewStatefulSession(store SessionStore, opts ...SessionOption) (*StatefulSession, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: storage does not implement SessionStore", ErrCapabilityMissing)
	}
	return &StatefulSession{store: store, opts: newSessionOptions(opts)}, nil
}

func (s *StatefulSession) Mode() Mode { return ModeStateful }

func (s *StatefulSession) Create(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	exp := s.opts.expiry(s.opts.clock.now(), expiresAt)
	id, err := s.store.CreateSession(ctx, subject, exp)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (s *StatefulSession) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", nil
	}
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return "", fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return "", nil
	}
	if session.IsExpired(s.opts.clock.now()) {
		s.opts.logger.DebugContext(ctx, "session expired", "subject", session.Subject, "expires_at", session.ExpiresAt)
		return "", nil
	}
	return session.Subject, nil
}

func (s *StatefulSession) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *StatefulSession) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *StatefulSession) Payload(ctx context.Context, token string) (*TokenClaims, error) {
	return nil, fmt.Errorf("%w: stateful sessions carry no token payload", ErrUnsupportedOperation)
}
