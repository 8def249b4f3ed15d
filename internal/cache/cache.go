package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pierrec/lz4/v4"
)

// Entry represents a cached commit diff.
type Entry struct {
	Key string `json:"key"`
	// Payload holds the value, LZ4 block-compressed when Compressed is set.
	Payload    []byte    `json:"payload"`
	Size       int       `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"createdAt"`
	TTL        int       `json:"ttl"`
}

// Cache provides file-based caching for commit diffs.
type Cache struct {
	dir        string
	ttlSeconds int
	enabled    bool
}

// New creates a new Cache. If dir is empty, uses the default cache directory.
func New(enabled bool, dir string, ttlSeconds int) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		dir:        dir,
		ttlSeconds: ttlSeconds,
		enabled:    true,
	}, nil
}

// Get retrieves a cached value by key. Returns ("", false) on miss.
func (c *Cache) Get(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil {
		return "", false
	}
	if c.expired(entry) {
		os.Remove(path)
		return "", false
	}
	value, err := entry.value()
	if err != nil {
		os.Remove(path)
		return "", false
	}
	return value, true
}

// Put stores a value in the cache.
func (c *Cache) Put(key, value string) error {
	if !c.enabled {
		return nil
	}
	entry := Entry{
		Key:       HashKey(key),
		Size:      len(value),
		CreatedAt: time.Now(),
		TTL:       c.ttlSeconds,
	}
	entry.Payload, entry.Compressed = compress([]byte(value))

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	// Write then rename so concurrent readers never see a partial entry.
	path := c.entryPath(key)
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes all cache entries and reports how many were removed.
func (c *Cache) Clear() (int, error) {
	if !c.enabled || c.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	var removed int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Stats returns cache statistics.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	// RawBytes is the uncompressed size of all cached values.
	RawBytes int64 `json:"rawBytes"`
	Expired  int   `json:"expired"`
}

// GetStats returns information about the cache.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	if !c.enabled || c.dir == "" {
		return stats, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		entry, err := readEntry(filepath.Join(c.dir, e.Name()))
		if err != nil {
			continue
		}
		stats.RawBytes += int64(entry.Size)
		if c.expired(entry) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// CommitDiffKey creates the cache key of a commit diff. Scope separates
// sources that render diffs differently, such as a GitHub repository and a
// local clone.
func CommitDiffKey(scope, sha string) string {
	return HashKey(fmt.Sprintf("commit-diff:%s:%s", scope, sha))
}

func (c *Cache) expired(e Entry) bool {
	return c.ttlSeconds > 0 && time.Since(e.CreatedAt) > time.Duration(c.ttlSeconds)*time.Second
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, HashKey(key)+".json")
}

func readEntry(path string) (Entry, error) {
	var entry Entry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, err
	}
	return entry, nil
}

// compress returns the LZ4 block of data, or data itself when it does not
// compress.
func compress(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return data, false
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil || written == 0 || written >= len(data) {
		return data, false
	}
	return compressed[:written], true
}

func (e Entry) value() (string, error) {
	if !e.Compressed {
		return string(e.Payload), nil
	}
	out := make([]byte, e.Size)
	n, err := lz4.UncompressBlock(e.Payload, out)
	if err != nil {
		return "", fmt.Errorf("decompressing cache entry: %w", err)
	}
	if n != e.Size {
		return "", fmt.Errorf("decompressing cache entry: got %d bytes, want %d", n, e.Size)
	}
	return string(out), nil
}

// DefaultDir returns the OS-appropriate cache directory.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "prchanges"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "prchanges"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "prchanges", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "prchanges", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "prchanges"), nil
	}
}
