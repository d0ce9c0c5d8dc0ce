package authcore

import (
	"context"
	"time"
)

// User is an account known to the host's storage. PasswordHash is empty for
// identities that only ever sign in through OAuth.
type User struct {
	ID           string    `json:"id,omitempty"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether the user can authenticate with local credentials.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// Session is a server-side session record (stateful mode).
type Session struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session is no longer valid at now.
// A session is valid only while ExpiresAt is strictly after now.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// UserStore manages user accounts.
type UserStore interface {
	// FindUserByUniqueField looks a user up by its unique identifier (the
	// username). Returns nil, nil when no such user exists.
	FindUserByUniqueField(ctx context.Context, identifier string) (*User, error)

	// CreateUser persists a new user. Implementations must return an error
	// matching ErrDuplicateUser when the username is taken.
	CreateUser(ctx context.Context, user *User) (*User, error)
}

// SessionStore manages server-side sessions.
type SessionStore interface {
	// CreateSession stores a session for subject and returns its opaque id.
	CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error)

	// GetSession returns the raw record. Returns nil, nil when the id is unknown.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes the session. Deleting an unknown id is not an error.
	DeleteSession(ctx context.Context, id string) error
}

// Capabilities is the result of inspecting a host storage value once, at
// construction. Nil fields are capabilities the storage does not provide.
type Capabilities struct {
	Users    UserStore
	Sessions SessionStore

	// composed is set when the storage was a ComposedStorage, whose nil fields
	// are deliberate omissions rather than missing capabilities.
	composed bool
}

// NegotiateCapabilities inspects storage for the interfaces the core consumes.
func NegotiateCapabilities(storage any) Capabilities {
	var caps Capabilities
	switch s := storage.(type) {
	case nil:
		return caps
	case ComposedStorage:
		return Capabilities{Users: s.UserStore, Sessions: s.SessionStore, composed: true}
	case *ComposedStorage:
		if s == nil {
			return caps
		}
		return Capabilities{Users: s.UserStore, Sessions: s.SessionStore, composed: true}
	}
	if us, ok := storage.(UserStore); ok {
		caps.Users = us
	}
	if ss, ok := storage.(SessionStore); ok {
		caps.Sessions = ss
	}
	return caps
}

// ComposedStorage joins a UserStore and a SessionStore backed by different
// systems (say users in Postgres, sessions in Redis) into one storage value.
type ComposedStorage struct {
	UserStore
	SessionStore
}
