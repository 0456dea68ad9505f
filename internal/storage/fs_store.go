package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const currentSchemaVersion = "1.0.0"

// stateFile is the on-disk layout of a profile's persisted state.
type stateFile struct {
	Version   string            `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Values    map[string]string `json:"values"`
}

// FileSystemStore implements Store as a JSON document on the local file
// system. Every operation takes an exclusive file lock for its duration, so
// concurrent processes sharing a profile never interleave a read-modify-write.
type FileSystemStore struct {
	path     string
	lockPath string

	mu     sync.Mutex
	closed bool
}

// NewFileSystemStore creates a store for profile inside dir. An empty dir
// selects the default state directory.
func NewFileSystemStore(dir, profile string) (*FileSystemStore, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile cannot be empty")
	}
	if dir == "" {
		var err error
		if dir, err = stateDirectory(); err != nil {
			return nil, fmt.Errorf("failed to get state directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileSystemStore{
		path:     StateFilePath(dir, profile),
		lockPath: StateLockFilePath(dir, profile),
	}, nil
}

// Path returns the state file location.
func (s *FileSystemStore) Path() string { return s.path }

func (s *FileSystemStore) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := s.withLock(ctx, func() error {
		state, err := s.read()
		if err != nil {
			return err
		}
		value, ok = state.Values[key]
		return nil
	})
	return value, ok, err
}

func (s *FileSystemStore) Set(ctx context.Context, key, value string) error {
	return s.withLock(ctx, func() error {
		state, err := s.read()
		if err != nil {
			return err
		}
		state.Values[key] = value
		return s.write(state)
	})
}

func (s *FileSystemStore) Delete(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		state, err := s.read()
		if err != nil {
			return err
		}
		if _, ok := state.Values[key]; !ok {
			return nil
		}
		delete(state.Values, key)
		return s.write(state)
	})
}

// Close marks the store closed. No file handles are held between calls.
func (s *FileSystemStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *FileSystemStore) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	f, err := lockFile(ctx, s.lockPath)
	if err != nil {
		return fmt.Errorf("failed to acquire state lock: %w", err)
	}
	defer func() {
		if err := releaseFileLock(f); err != nil {
			slog.Warn("[Storage] failed to release state lock", "path", s.lockPath, "error", err)
		}
	}()
	return fn()
}

// read loads the state file. A missing file is an empty state.
func (s *FileSystemStore) read() (*stateFile, error) {
	state := &stateFile{Version: currentSchemaVersion}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			state.Values = make(map[string]string)
			return state, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file %s: %w", s.path, err)
	}
	if state.Values == nil {
		state.Values = make(map[string]string)
	}
	return state, nil
}

func (s *FileSystemStore) write(state *stateFile) error {
	state.Version = currentSchemaVersion
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	// The token is a credential: keep the file private to the user.
	if err := AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Ensure FileSystemStore implements Store at compile time
var _ Store = (*FileSystemStore)(nil)
