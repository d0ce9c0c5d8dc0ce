package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/panyam/authcore"
)

// FSSessionStore implements authcore.SessionStore with one JSON file per
// session under {StoragePath}/sessions. File names are the sha256 of the
// session id, so a directory listing does not reveal live session ids.
type FSSessionStore struct {
	StoragePath string
	NewID       authcore.IDSource
}

// NewFSSessionStore creates a new filesystem-backed SessionStore
func NewFSSessionStore(storagePath string) *FSSessionStore {
	return &FSSessionStore{StoragePath: storagePath, NewID: authcore.NewRandomID}
}

var _ authcore.SessionStore = (*FSSessionStore)(nil)

func (s *FSSessionStore) getSessionDir() string {
	return filepath.Join(s.StoragePath, "sessions")
}

func (s *FSSessionStore) getSessionPath(id string) string {
	return filepath.Join(s.getSessionDir(), hashName(id))
}

func (s *FSSessionStore) CreateSession(ctx context.Context, subject string, expiresAt time.Time) (string, error) {
	newID := s.NewID
	if newID == nil {
		newID = authcore.NewRandomID
	}
	id, err := newID()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.getSessionDir(), 0700); err != nil {
		return "", err
	}
	data, err := json.Marshal(&authcore.Session{ID: id, Subject: subject, ExpiresAt: expiresAt})
	if err != nil {
		return "", err
	}
	if err := writeAtomicFile(s.getSessionPath(id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *FSSessionStore) GetSession(ctx context.Context, id string) (*authcore.Session, error) {
	data, err := os.ReadFile(s.getSessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var session authcore.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *FSSessionStore) DeleteSession(ctx context.Context, id string) error {
	err := os.Remove(s.getSessionPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CleanupExpiredSessions removes session files that expired at or before now
// and returns how many were removed.
func (s *FSSessionStore) CleanupExpiredSessions(now time.Time) (int, error) {
	entries, err := os.ReadDir(s.getSessionDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.getSessionDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var session authcore.Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if session.IsExpired(now) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
