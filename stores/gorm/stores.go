//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/panyam/authcore"
)

// AutoMigrate runs database migrations for all authcore tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&SessionModel{},
	)
}

// isDuplicateKey reports whether err is a unique constraint violation. Drivers
// that do not translate errors are matched on their message.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

// Store implements both authcore.UserStore and authcore.SessionStore over one
// database.
type Store struct {
	*UserStore
	*SessionStore
}

// NewStore returns a Store sharing db between users and sessions.
func NewStore(db *gorm.DB) *Store {
	return &Store{UserStore: NewUserStore(db), SessionStore: NewSessionStore(db)}
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements authcore.UserStore using GORM
type UserStore struct {
	db    *gorm.DB
	NewID authcore.IDSource
}

var _ authcore.UserStore = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db, NewID: authcore.NewRandomID}
}

func (s *UserStore) FindUserByUniqueField(ctx context.Context, identifier string) (*authcore.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "username = ?", identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toUser(), nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	model := &UserModel{
		ID:           user.ID,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if model.ID == "" {
		id, err := s.NewID()
		if err != nil {
			return nil, err
		}
		model.ID = id
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, authcore.ErrDuplicateUser
		}
		return nil, err
	}
	return model.toUser(), nil
}

// =============================================================================
// SessionStore
// =============================================================================

// SessionStore implements authcore.SessionStore using GORM
type SessionStore struct {
	db    *gorm.DB
	NewID authcore.IDSource
}

var _ authcore.SessionStore = (*SessionStore)(nil)

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db, NewID: authcore.NewRandomID}
}

func (s *SessionStore) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	id, err := s.NewID()
	if err != nil {
		return "", err
	}
	model := &SessionModel{ID: id, Subject: subject, ExpiresAt: expiresAt.UTC()}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return "", err
	}
	return id, nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toSession(), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", id).Error
}

// CleanupExpiredSessions deletes sessions that expired at or before now and
// returns how many rows were removed.
func (s *SessionStore) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&SessionModel{}, "expires_at <= ?", now.UTC())
	return result.RowsAffected, result.Error
}
