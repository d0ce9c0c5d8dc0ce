package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/panyam/authcore"
)

// FSUserStore implements authcore.UserStore with one JSON file per user.
//
// # File Structure
//
//	{StoragePath}/
//	└── users/
//	    ├── <sha256(username)>.json   # {"id": "...", "username": "alice", ...}
//	    └── ...
//
// Usernames are hashed into file names so any string is a safe key.
// Creation links a fully written temp file into place, so two processes
// racing on one username see exactly one winner.
type FSUserStore struct {
	StoragePath string
	NewID       authcore.IDSource
}

// NewFSUserStore creates a new filesystem-backed UserStore
func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath, NewID: authcore.NewRandomID}
}

var _ authcore.UserStore = (*FSUserStore)(nil)

func (s *FSUserStore) getUserPath(username string) string {
	return filepath.Join(s.StoragePath, "users", hashName(username))
}

func (s *FSUserStore) FindUserByUniqueField(ctx context.Context, identifier string) (*authcore.User, error) {
	data, err := os.ReadFile(s.getUserPath(identifier))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var user authcore.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSUserStore) CreateUser(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	stored := *user
	if stored.ID == "" {
		newID := s.NewID
		if newID == nil {
			newID = authcore.NewRandomID
		}
		id, err := newID()
		if err != nil {
			return nil, err
		}
		stored.ID = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	path := s.getUserPath(stored.Username)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(&stored, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := createExclusiveFile(path, data); err != nil {
		if errors.Is(err, errExists) {
			return nil, authcore.ErrDuplicateUser
		}
		return nil, err
	}
	return &stored, nil
}
