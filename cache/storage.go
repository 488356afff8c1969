package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("cache entry not found")

// Storage defines the interface for cache operations
type Storage interface {
	Get(key string) (*Entry, error)
	Set(key string, content []byte) error
	IsExpired(key string, ttl time.Duration) (bool, error)
}

// Entry represents a cached item with its metadata
type Entry struct {
	Content   []byte    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// FileStorage implements Storage using the file system. Each key is stored
// in its own file named after the SHA-256 of the key.
type FileStorage struct {
	baseDir string
	now     func() time.Time
}

// NewFileStorage creates a new file-based cache storage
// It ensures the cache directory exists before returning
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStorage{
		baseDir: baseDir,
		now:     time.Now,
	}, nil
}

// Get retrieves a cached entry by key
func (fs *FileStorage) Get(key string) (*Entry, error) {
	data, err := os.ReadFile(fs.getFilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// Set stores content in the cache with the current timestamp. The file is
// replaced atomically so a crash never leaves a truncated playlist behind.
func (fs *FileStorage) Set(key string, content []byte) error {
	data, err := json.Marshal(Entry{Content: content, Timestamp: fs.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(fs.baseDir, ".entry-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.getFilePath(key)); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// IsExpired checks if a cache entry has exceeded the TTL. A missing entry
// counts as expired.
func (fs *FileStorage) IsExpired(key string, ttl time.Duration) (bool, error) {
	entry, err := fs.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check expiration: %w", err)
	}

	return fs.now().Sub(entry.Timestamp) > ttl, nil
}

func (fs *FileStorage) getFilePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(fs.baseDir, hex.EncodeToString(hash[:])+".json")
}

// PlaylistKey derives the cache key for a playlist URL. The profile token is
// part of the URL so each profile gets its own entry.
func PlaylistKey(url string) string {
	return "playlist:" + url
}
