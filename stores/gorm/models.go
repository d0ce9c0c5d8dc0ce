//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	"github.com/panyam/authcore"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Username     string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) toUser() *authcore.User {
	return &authcore.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

// SessionModel is the GORM model for server-side sessions
type SessionModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Subject   string    `gorm:"size:255;not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) toSession() *authcore.Session {
	return &authcore.Session{ID: m.ID, Subject: m.Subject, ExpiresAt: m.ExpiresAt}
}
