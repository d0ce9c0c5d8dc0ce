package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"

	"github.com/panyam/authcore"
)

// Config for the Redis-backed stores. Defaults can be loaded via envdecode.
type Config struct {
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// RedisPassword. ENV: REDIS_PASSWORD
	RedisPassword string `env:"REDIS_PASSWORD"`
	// RedisDB selects the logical database. ENV: REDIS_DB
	RedisDB int `env:"REDIS_DB,default=0"`
	// KeyPrefix for all keys. ENV: AUTH_REDIS_KEY_PREFIX
	KeyPrefix string `env:"AUTH_REDIS_KEY_PREFIX,default=authcore:"`
}

// Store implements authcore.SessionStore over Redis.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	NewID     authcore.IDSource
}

var _ authcore.SessionStore = (*Store)(nil)

// New connects using cfg and verifies the connection with PING.
func New(cfg Config) (*Store, error) {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err := cl.Ping(context.Background()).Err(); err != nil {
		cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(cl, cfg.KeyPrefix), nil
}

// NewWithClient wraps an existing client (including cluster or sentinel
// clients).
func NewWithClient(client redis.UniversalClient, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = "authcore:"
	}
	return &Store{client: client, keyPrefix: keyPrefix, NewID: authcore.NewRandomID}
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv() (*Store, error) {
	var cfg Config
	// Defaults come from the struct tags; a decode error only means nothing was set.
	_ = envdecode.Decode(&cfg)
	return New(cfg)
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

// --- Key helpers ---

func (s *Store) sessionKey(id string) string     { return s.keyPrefix + "session:" + id }
func (s *Store) verifierKey(state string) string { return s.keyPrefix + "pkce:" + state }

// --- Sessions ---

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

	// Already-expired sessions are never written; GetSession reports them
	// as unknown.
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return id, nil
	}
	if err := s.client.Set(ctx, s.sessionKey(id), data, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var session authcore.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// --- Verifiers ---

// Verifiers returns an authcore.VerifierStore sharing this store's client.
func (s *Store) Verifiers() *VerifierStore {
	return &VerifierStore{store: s}
}

// VerifierStore implements authcore.VerifierStore over Redis.
type VerifierStore struct {
	store *Store
}

var _ authcore.VerifierStore = (*VerifierStore)(nil)

func (v *VerifierStore) Put(ctx context.Context, state, verifier string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = authcore.DefaultPendingTTL
	}
	if err := v.store.client.Set(ctx, v.store.verifierKey(state), verifier, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (v *VerifierStore) Take(ctx context.Context, state string) (string, error) {
	verifier, err := v.store.client.GetDel(ctx, v.store.verifierKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return verifier, nil
}

func (v *VerifierStore) Delete(ctx context.Context, state string) error {
	if err := v.store.client.Del(ctx, v.store.verifierKey(state)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
