//go:build !wasm
// +build !wasm

package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	"github.com/panyam/authcore"
)

// UserEntity is the Datastore entity for users.
// Key name: username
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	UserID       string         `datastore:"user_id"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
}

func (e *UserEntity) ToUser() *authcore.User {
	return &authcore.User{
		ID:           e.UserID,
		Username:     e.Key.Name,
		PasswordHash: e.PasswordHash,
		CreatedAt:    e.CreatedAt,
	}
}

// SessionEntity is the Datastore entity for sessions.
// Key name: session id
type SessionEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Subject   string         `datastore:"subject"`
	ExpiresAt time.Time      `datastore:"expires_at"`
	CreatedAt time.Time      `datastore:"created_at,noindex"`
}

func (e *SessionEntity) ToSession() *authcore.Session {
	return &authcore.Session{ID: e.Key.Name, Subject: e.Subject, ExpiresAt: e.ExpiresAt}
}
