package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// LocalAuth registers and authenticates users with username/password
// credentials held in a UserStore.
type LocalAuth struct {
	users  UserStore
	logger *slog.Logger
}

// NewLocalAuth returns a LocalAuth over users. A nil store fails with
// ErrCapabilityMissing.
func NewLocalAuth(users UserStore, logger *slog.Logger) (*LocalAuth, error) {
	if users == nil {
		return nil, fmt.Errorf("%w: storage does not implement UserStore", ErrCapabilityMissing)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalAuth{users: users, logger: logger}, nil
}

// Register hashes password and stores a new user. A taken username fails with
// an error matching ErrDuplicateUser.
func (a *LocalAuth) Register(ctx context.Context, username, password string) (*User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user, err := a.users.CreateUser(ctx, &User{Username: username, PasswordHash: passwordHash})
	if err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	a.logger.InfoContext(ctx, "registered local user", "username", username)
	return user, nil
}

// Login returns the user when password matches, or nil when it does not, when
// the user is unknown, or when the user has no password (OAuth-only). Only
// storage failures are errors.
func (a *LocalAuth) Login(ctx context.Context, username, password string) (*User, error) {
	user, err := a.users.FindUserByUniqueField(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.HasPassword() {
		a.logger.DebugContext(ctx, "login rejected: no local credentials", "username", username)
		return nil, nil
	}
	if !VerifyPassword(user.PasswordHash, password) {
		a.logger.DebugContext(ctx, "login rejected: password mismatch", "username", username)
		return nil, nil
	}
	return user, nil
}
