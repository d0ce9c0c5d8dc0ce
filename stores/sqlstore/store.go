package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/panyam/authcore"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Store implements authcore.UserStore and authcore.SessionStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	NewID   authcore.IDSource
}

var (
	_ authcore.UserStore    = (*Store)(nil)
	_ authcore.SessionStore = (*Store)(nil)
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open connects with dialect's driver, applies pending migrations and returns
// a Store.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	s, err := New(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	return Open(ctx, SQLite, dsn)
}

// New wraps an existing connection, applying pending migrations.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect, NewID: authcore.NewRandomID}
	if err := s.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// RunMigrations applies the embedded migrations for the store's dialect.
func (s *Store) RunMigrations(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, s.dialect.migrationDir())
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(s.dialect.gooseDialect(), s.db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newID() (string, error) {
	if s.NewID == nil {
		return authcore.NewRandomID()
	}
	return s.NewID()
}

func (s *Store) FindUserByUniqueField(ctx context.Context, identifier string) (*authcore.User, error) {
	query := s.dialect.rebind(`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`)

	var (
		user      authcore.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, identifier).Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	stored := *user
	if stored.ID == "" {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		stored.ID = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.CreatedAt = fromMillis(toMillis(stored.CreatedAt))

	query := s.dialect.rebind(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query, stored.ID, stored.Username, stored.PasswordHash, toMillis(stored.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, authcore.ErrDuplicateUser
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &stored, nil
}

func (s *Store) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", err
	}
	query := s.dialect.rebind(`INSERT INTO sessions (id, subject, expires_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, id, subject, toMillis(expiresAt)); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	query := s.dialect.rebind(`SELECT id, subject, expires_at FROM sessions WHERE id = ?`)

	var (
		session   authcore.Session
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&session.ID, &session.Subject, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	session.ExpiresAt = fromMillis(expiresAt)
	return &session, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	query := s.dialect.rebind(`DELETE FROM sessions WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CleanupExpiredSessions deletes sessions that expired at or before now and
// returns how many rows were removed.
func (s *Store) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	query := s.dialect.rebind(`DELETE FROM sessions WHERE expires_at <= ?`)
	res, err := s.db.ExecContext(ctx, query, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
