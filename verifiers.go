package authcore

import (
	"context"
	"sync"
	"time"
)

// DefaultPendingTTL is how long a retained PKCE verifier waits for its exchange.
const DefaultPendingTTL = 10 * time.Minute

// VerifierStore retains PKCE code verifiers between AuthURL and ExchangeCode,
// keyed by the OAuth state parameter. Keying by state lets one OAuthDelegate
// serve any number of concurrent authorization attempts.
type VerifierStore interface {
	// Put retains verifier for state until ttl elapses. An existing entry for
	// the same state is replaced.
	Put(ctx context.Context, state, verifier string, ttl time.Duration) error

	// Take returns and removes the verifier for state. Returns "" when there is
	// none or it has expired.
	Take(ctx context.Context, state string) (string, error)

	// Delete drops the verifier for state, if any.
	Delete(ctx context.Context, state string) error
}

type pendingVerifier struct {
	verifier  string
	expiresAt time.Time
}

// MemoryVerifierStore is an in-process VerifierStore. Expired entries are
// pruned on every write.
type MemoryVerifierStore struct {
	mu      sync.Mutex
	entries map[string]pendingVerifier
	clock   Clock
}

// NewMemoryVerifierStore returns an empty store. A nil clock uses time.Now.
func NewMemoryVerifierStore(clock Clock) *MemoryVerifierStore {
	return &MemoryVerifierStore{entries: make(map[string]pendingVerifier), clock: clock}
}

func (m *MemoryVerifierStore) Put(ctx context.Context, state, verifier string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	now := m.clock.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if !e.expiresAt.After(now) {
			delete(m.entries, k)
		}
	}
	m.entries[state] = pendingVerifier{verifier: verifier, expiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryVerifierStore) Take(ctx context.Context, state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[state]
	if !ok {
		return "", nil
	}
	delete(m.entries, state)
	if !e.expiresAt.After(m.clock.now()) {
		return "", nil
	}
	return e.verifier, nil
}

func (m *MemoryVerifierStore) Delete(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, state)
	return nil
}

// Len returns the number of retained (possibly expired) verifiers.
func (m *MemoryVerifierStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
