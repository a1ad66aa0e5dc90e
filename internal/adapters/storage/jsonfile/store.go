package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrCorrupt marks a store file that is not a JSON object of strings.
var ErrCorrupt = errors.New("corrupt json store")

// CorruptSuffix is appended to a corrupt store file when a write sets it
// aside.
const CorruptSuffix = ".corrupt"

// Store is a key/value store persisted as one JSON object in a file.
// Every write rewrites the whole file through a temp file and rename.
type Store struct {
	mu     sync.Mutex
	path   string
	logger Logger
	// last holds the bytes this store most recently wrote, so the watcher
	// can skip its own writes.
	last []byte
}

// Option configures a Store.
type Option func(*Store)

// WithLogger reports corrupt-file recovery to logger.
func WithLogger(logger Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open prepares a store at path. The file is created on first write.
func Open(path string, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("json store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create json store dir: %w", err)
	}
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the value for key and whether it exists.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readLocked()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

// Set writes value under key. A corrupt file is set aside and replaced.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readForWriteLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return s.writeLocked(values)
}

// Remove deletes key. Removing an absent key is not an error. A corrupt
// file is set aside first.
func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readForWriteLocked()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.writeLocked(values)
}

// ownWrite reports whether data equals the last write from this store.
func (s *Store) ownWrite(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last != nil && bytes.Equal(bytes.TrimSpace(data), bytes.TrimSpace(s.last))
}

// readLocked decodes the file; a missing or empty file is an empty map.
func (s *Store) readLocked() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read json store: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode json store %s: %w", s.path, errors.Join(ErrCorrupt, err))
	}
	return values, nil
}

// readForWriteLocked reads the file for a write. A corrupt file is renamed
// to path+CorruptSuffix and the write starts from an empty object.
func (s *Store) readForWriteLocked() (map[string]string, error) {
	values, err := s.readLocked()
	if !errors.Is(err, ErrCorrupt) {
		return values, err
	}
	aside := s.path + CorruptSuffix
	if renameErr := os.Rename(s.path, aside); renameErr != nil {
		aside = ""
		s.warn("corrupt json store could not be set aside", "path", s.path, "err", renameErr)
	}
	s.warn("corrupt json store replaced", "path", s.path, "saved_as", aside, "err", err)
	return map[string]string{}, nil
}

func (s *Store) warn(msg string, keyvals ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keyvals...)
	}
}

// writeLocked atomically replaces the file with values.
func (s *Store) writeLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json store: %w", err)
	}
	data = append(data, '\n')
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp json store: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp json store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp json store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace json store: %w", err)
	}
	s.last = data
	return nil
}
