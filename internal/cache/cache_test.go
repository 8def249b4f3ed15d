package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,2 +1,4 @@
 package main
+
+import "fmt"
 func main() {}
`

func TestCache_PutGet(t *testing.T) {
	t.Parallel()

	c, err := New(true, t.TempDir(), 86400)
	require.NoError(t, err)

	key := CommitDiffKey("owner/repo", "abc123")

	_, ok := c.Get(key)
	assert.False(t, ok, "miss before put")

	require.NoError(t, c.Put(key, sampleDiff))

	got, ok := c.Get(key)
	require.True(t, ok, "hit after put")
	assert.Equal(t, sampleDiff, got)
}

func TestCache_CompressesLargeValues(t *testing.T) {
	t.Parallel()

	c, err := New(true, t.TempDir(), 0)
	require.NoError(t, err)

	value := strings.Repeat(sampleDiff, 200)
	require.NoError(t, c.Put("big", value))

	data, err := os.ReadFile(c.entryPath("big"))
	require.NoError(t, err)

	var entry Entry
	require.NoError(t, json.Unmarshal(data, &entry))
	require.True(t, entry.Compressed, "repetitive value should be stored compressed")
	assert.Less(t, len(entry.Payload), len(value))
	assert.Equal(t, len(value), entry.Size)

	got, ok := c.Get("big")
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestCache_EmptyValue(t *testing.T) {
	t.Parallel()

	c, err := New(true, t.TempDir(), 0)
	require.NoError(t, err)
	require.NoError(t, c.Put("empty", ""))

	got, ok := c.Get("empty")
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()

	c, err := New(true, t.TempDir(), 0)
	require.NoError(t, err)

	entry := Entry{Payload: []byte("not lz4"), Size: 100, Compressed: true, CreatedAt: time.Now()}
	data, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.entryPath("bad"), data, 0o644))

	_, ok := c.Get("bad")
	assert.False(t, ok, "corrupt entry should miss")
	assert.NoFileExists(t, c.entryPath("bad"), "corrupt entry should be removed")
}

func TestCache_TTLExpiration(t *testing.T) {
	t.Parallel()

	c, err := New(true, t.TempDir(), 1)
	require.NoError(t, err)

	key := "expire-test"
	require.NoError(t, c.Put(key, "data"))

	_, ok := c.Get(key)
	assert.True(t, ok, "hit before expiration")

	time.Sleep(1100 * time.Millisecond)

	_, ok = c.Get(key)
	assert.False(t, ok, "miss after TTL expiration")
}

func TestCache_Disabled(t *testing.T) {
	t.Parallel()

	c, err := New(false, "", 0)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	assert.NoError(t, c.Put("key", "value"))
	_, ok := c.Get("key")
	assert.False(t, ok, "disabled cache always misses")

	n, err := c.Clear()
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Put(string(rune('a'+i)), "data"))
	}
	require.Equal(t, 5, countEntries(t, dir))

	removed, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.Zero(t, countEntries(t, dir))
}

func TestCache_GetStats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c, err := New(true, dir, 86400)
	require.NoError(t, err)

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)

	require.NoError(t, c.Put("key1", "value1"))
	require.NoError(t, c.Put("key2", sampleDiff))

	stats, err = c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalBytes)
	assert.Equal(t, int64(len("value1")+len(sampleDiff)), stats.RawBytes)
	assert.Equal(t, dir, stats.Dir)
}

func TestHashKey(t *testing.T) {
	t.Parallel()

	h1 := HashKey("test")
	assert.Equal(t, h1, HashKey("test"))
	assert.NotEqual(t, h1, HashKey("other"))
	assert.Len(t, h1, 64)
}

func TestCommitDiffKey(t *testing.T) {
	t.Parallel()

	k1 := CommitDiffKey("owner/repo", "abc")
	assert.Equal(t, k1, CommitDiffKey("owner/repo", "abc"))
	assert.NotEqual(t, k1, CommitDiffKey("local:/src/repo", "abc"), "scope is part of the key")
}

func TestDefaultDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dir, err := DefaultDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-cache", "prchanges"), dir)
}
