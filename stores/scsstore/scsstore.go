// Package scsstore adapts any github.com/alexedwards/scs/v2 Store (memstore,
// redisstore, postgresstore, ...) to authcore.SessionStore, so hosts already
// running scs can keep authcore sessions in the same backend.
package scsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/panyam/authcore"
)

// DefaultTokenPrefix namespaces authcore sessions inside a shared scs store.
const DefaultTokenPrefix = "authcore:"

// Store implements authcore.SessionStore on top of an scs.Store. The scs
// backend owns expiry: records are committed with their ExpiresAt.
type Store struct {
	backend scs.Store
	prefix  string
	NewID   authcore.IDSource
}

var _ authcore.SessionStore = (*Store)(nil)

// New wraps backend. An empty prefix uses DefaultTokenPrefix.
func New(backend scs.Store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultTokenPrefix
	}
	return &Store{backend: backend, prefix: prefix, NewID: authcore.NewRandomID}
}

func (s *Store) token(id string) string { return s.prefix + id }

func (s *Store) find(ctx context.Context, token string) ([]byte, bool, error) {
	if cs, ok := s.backend.(scs.CtxStore); ok {
		return cs.FindCtx(ctx, token)
	}
	return s.backend.Find(token)
}

func (s *Store) commit(ctx context.Context, token string, b []byte, expiry time.Time) error {
	if cs, ok := s.backend.(scs.CtxStore); ok {
		return cs.CommitCtx(ctx, token, b, expiry)
	}
	return s.backend.Commit(token, b, expiry)
}

func (s *Store) delete(ctx context.Context, token string) error {
	if cs, ok := s.backend.(scs.CtxStore); ok {
		return cs.DeleteCtx(ctx, token)
	}
	return s.backend.Delete(token)
}

func (s *Store) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	newID := s.NewID
	if newID == nil {
		newID = authcore.NewRandomID
	}
	id, err := newID()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(&authcore.Session{ID: id, Subject: subject, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return "", err
	}
	if err := s.commit(ctx, s.token(id), data, expiresAt); err != nil {
		return "", fmt.Errorf("scs commit: %w", err)
	}
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	data, found, err := s.find(ctx, s.token(id))
	if err != nil {
		return nil, fmt.Errorf("scs find: %w", err)
	}
	if !found {
		return nil, nil
	}
	var session authcore.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.delete(ctx, s.token(id)); err != nil {
		return fmt.Errorf("scs delete: %w", err)
	}
	return nil
}
