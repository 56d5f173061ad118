package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileStore keeps one small file per key under the runtime directory.
// Writes go through a temp file and rename so a concurrent reader never
// sees a torn value.
type FileStore struct {
	dir string
}

// NewFileStore creates the runtime directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *FileStore) read(key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading state %q: %w", key, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) write(key, value string) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(value+"\n"), 0644); err != nil {
		return fmt.Errorf("writing state %q: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("committing state %q: %w", key, err)
	}
	return nil
}

// GetInt64 implements Store.
func (s *FileStore) GetInt64(key string) (int64, error) {
	raw, err := s.read(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("state %q holds %q: %w", key, raw, err)
	}
	return v, nil
}

// SetInt64 implements Store.
func (s *FileStore) SetInt64(key string, v int64) error {
	return s.write(key, strconv.FormatInt(v, 10))
}

// GetTime implements Store. Times are stored as unix seconds.
func (s *FileStore) GetTime(key string) (time.Time, error) {
	v, err := s.GetInt64(key)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}

// SetTime implements Store.
func (s *FileStore) SetTime(key string, t time.Time) error {
	return s.SetInt64(key, t.Unix())
}

// Delete implements Store. Deleting an absent key is not an error.
func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting state %q: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }
