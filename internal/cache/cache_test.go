package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/parishscope/internal/model"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("https://stanne.org/mass", false)
	b := CacheKey("https://stanne.org/mass", true)

	assert.True(t, strings.HasPrefix(a, "parishscope:v1:"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, CacheKey("https://stanne.org/mass", false))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("https://stanne.org/", false)

	require.NoError(t, c.Set(key, []byte("<html></html>"), 0))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "<html></html>", string(got))

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = c.Get(key)
	assert.False(t, ok)
	_, err := os.Stat(c.path(key))
	assert.True(t, os.IsNotExist(err), "expired entry should be removed")
}

func TestDiskCache_CorruptEntryDropped(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("https://stpaul.org/", false)

	path := c.path(key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, ok := c.Get(key)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	assert.NoError(t, c.Delete("parishscope:v1:missing"))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	mem := NewMemoryCache(time.Minute, time.Minute)
	c := &LayeredCache{memory: mem, disk: disk}

	require.NoError(t, disk.Set("k", []byte("v"), 0))
	_, inMem := mem.Get("k")
	require.False(t, inMem)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	_, inMem = mem.Get("k")
	assert.True(t, inMem)

	require.NoError(t, c.Clear())
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestPageCache_StoresUnderFinalURL(t *testing.T) {
	pc := NewPageCache(NewMemoryCache(time.Minute, time.Minute), 0)
	page := &model.RenderedPage{
		RequestURL: "http://stanne.org",
		FinalURL:   "https://www.stanne.org/",
		HTML:       "<h1>St. Anne</h1>",
		StatusCode: 200,
		FetchedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pc.Put(page))

	for _, u := range []string{page.RequestURL, page.FinalURL} {
		got, ok := pc.Get(u, false)
		require.True(t, ok, u)
		assert.Equal(t, page.HTML, got.HTML)
		assert.True(t, page.FetchedAt.Equal(got.FetchedAt))
	}

	_, ok := pc.Get(page.RequestURL, true)
	assert.False(t, ok, "rendered lookup must not see the HTTP copy")
}

func TestNewPageCacheFromConfig(t *testing.T) {
	assert.Nil(t, NewPageCacheFromConfig(model.CacheConfig{Enabled: false}))

	pc := NewPageCacheFromConfig(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute})
	require.NotNil(t, pc)
	_, isMem := pc.store.(*MemoryCache)
	assert.True(t, isMem)

	pc = NewPageCacheFromConfig(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour})
	require.NotNil(t, pc)
	_, isLayered := pc.store.(*LayeredCache)
	assert.True(t, isLayered)
}
