// Package memory provides in-process UserStore and SessionStore
// implementations for tests and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/panyam/authcore"
)

// Store implements authcore.UserStore and authcore.SessionStore over maps.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*authcore.User // keyed by username
	sessions map[string]*authcore.Session
	newID    authcore.IDSource
	clock    authcore.Clock
}

var (
	_ authcore.UserStore    = (*Store)(nil)
	_ authcore.SessionStore = (*Store)(nil)
)

// Option customizes a Store.
type Option func(*Store)

// WithIDSource overrides the generator for user and session ids.
func WithIDSource(ids authcore.IDSource) Option {
	return func(s *Store) { s.newID = ids }
}

// WithClock overrides time.Now for CreatedAt stamps.
func WithClock(clock authcore.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]*authcore.User),
		sessions: make(map[string]*authcore.Session),
		newID:    authcore.NewRandomID,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) FindUserByUniqueField(ctx context.Context, identifier string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[identifier]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *Store) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	key := user.Username

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return nil, authcore.ErrDuplicateUser
	}
	stored := *user
	if stored.ID == "" {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		stored.ID = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock().UTC().Truncate(time.Second)
	}
	s.users[key] = &stored
	out := stored
	return &out, nil
}

func (s *Store) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &authcore.Session{ID: id, Subject: subject, ExpiresAt: expiresAt}
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	out := *sess
	return &out, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Sweep removes sessions that expired at or before now and returns how many
// were dropped.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
