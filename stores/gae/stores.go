//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	"github.com/panyam/authcore"
)

// Kind constants for Datastore entities
const (
	KindUser    = "User"
	KindSession = "Session"
)

type base struct {
	client    *datastore.Client
	namespace string
	NewID     authcore.IDSource
}

func (b *base) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = b.namespace
	return key
}

func (b *base) newID() (string, error) {
	if b.NewID == nil {
		return authcore.NewRandomID()
	}
	return b.NewID()
}

// Store implements both authcore.UserStore and authcore.SessionStore in one
// namespace.
type Store struct {
	*UserStore
	*SessionStore
}

// NewStore returns a Store for namespace ("" is the default namespace).
func NewStore(client *datastore.Client, namespace string) *Store {
	return &Store{
		UserStore:    NewUserStore(client, namespace),
		SessionStore: NewSessionStore(client, namespace),
	}
}

// ============================================================================
// UserStore
// ============================================================================

// UserStore implements authcore.UserStore using Google Cloud Datastore
type UserStore struct {
	base
}

var _ authcore.UserStore = (*UserStore)(nil)

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{base{client: client, namespace: namespace}}
}

func (s *UserStore) FindUserByUniqueField(ctx context.Context, identifier string) (*authcore.User, error) {
	if identifier == "" {
		return nil, nil
	}
	var entity UserEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindUser, identifier), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, nil
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

// CreateUser inserts the user inside a transaction so a concurrent insert of
// the same username aborts one of the two.
func (s *UserStore) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	if user.Username == "" {
		return nil, errors.New("username is required")
	}
	key := s.namespacedKey(KindUser, user.Username)
	entity := &UserEntity{
		Key:          key,
		UserID:       user.ID,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if entity.UserID == "" {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		entity.UserID = id
	}
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return authcore.ErrDuplicateUser
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	})
	if err != nil {
		if errors.Is(err, authcore.ErrDuplicateUser) {
			return nil, authcore.ErrDuplicateUser
		}
		if errors.Is(err, datastore.ErrConcurrentTransaction) {
			// the other transaction created the same username
			return nil, authcore.ErrDuplicateUser
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

// ============================================================================
// SessionStore
// ============================================================================

// SessionStore implements authcore.SessionStore using Google Cloud Datastore
type SessionStore struct {
	base
}

var _ authcore.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new Datastore-backed SessionStore
func NewSessionStore(client *datastore.Client, namespace string) *SessionStore {
	return &SessionStore{base{client: client, namespace: namespace}}
}

func (s *SessionStore) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", err
	}
	key := s.namespacedKey(KindSession, id)
	entity := &SessionEntity{
		Key:       key,
		Subject:   subject,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.client.Put(ctx, key, entity); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	if id == "" {
		return nil, nil
	}
	var entity SessionEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindSession, id), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, nil
		}
		return nil, err
	}
	return entity.ToSession(), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Delete(ctx, s.namespacedKey(KindSession, id))
}

// CleanupExpiredSessions deletes sessions that expired at or before now and
// returns how many were removed.
func (s *SessionStore) CleanupExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	query := datastore.NewQuery(KindSession).
		FilterField("expires_at", "<=", now.UTC()).
		KeysOnly()
	if s.namespace != "" {
		query = query.Namespace(s.namespace)
	}

	var keys []*datastore.Key
	it := s.client.Run(ctx, query)
	for {
		key, err := it.Next(nil)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.client.DeleteMulti(ctx, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}
