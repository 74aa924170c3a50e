// Package cache keeps BarcodeAPI metadata responses (types, info) between
// runs.
//
// Entries are stored as JSON files or in redis, keyed by a hash of the
// request. Default TTL is 10 minutes. Disable with BARCODEAPI_NO_CACHE=1.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTTL is how long the CLI keeps metadata responses.
const DefaultTTL = 10 * time.Minute

// Store holds raw response bodies by key.
type Store interface {
	// Get returns the cached body. ok is false on miss, expiry or error.
	Get(ctx context.Context, key string) (body []byte, ok bool)
	// Put saves body. Failures are silent: a cache is never required.
	Put(ctx context.Context, key string, body []byte)
	// Clear removes every entry owned by this store.
	Clear(ctx context.Context) error
}

type entry struct {
	CachedAt time.Time `json:"cached_at"`
	Body     []byte    `json:"body"`
}

// FileStore keeps one JSON file per key in a directory.
type FileStore struct {
	dir string
	ttl time.Duration
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore in dir. A ttl <= 0 means DefaultTTL.
func NewFileStore(dir string, ttl time.Duration) *FileStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileStore{dir: dir, ttl: ttl}
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool) {
	if Disabled() {
		return nil, false
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if time.Since(e.CachedAt) > s.ttl {
		return nil, false
	}
	return e.Body, true
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, key string, body []byte) {
	if Disabled() {
		return
	}
	data, err := json.Marshal(entry{
		CachedAt: time.Now(),
		Body:     body,
	})
	if err != nil {
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return
	}

	// Atomic-ish write: write temp then rename.
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, path)
}

// Clear removes all cache files from the directory. Only files matching this
// package's naming scheme are touched.
func (s *FileStore) Clear(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !isCacheFilename(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, Key(key)+".json")
}

// Key hashes an arbitrary string into a fixed-size cache key.
func Key(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DefaultDir returns BARCODEAPI_CACHE_DIR, or the platform cache directory.
func DefaultDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("BARCODEAPI_CACHE_DIR")); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "barcodeapi-cli"), nil
}

// Disabled reports whether caching is turned off through the environment.
func Disabled() bool {
	return strings.TrimSpace(os.Getenv("BARCODEAPI_NO_CACHE")) != ""
}

func isCacheFilename(name string) bool {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return false
	}
	// A sha1 hex digest is 40 characters.
	if len(base) != 40 {
		return false
	}
	_, err := hex.DecodeString(base)
	return err == nil
}
