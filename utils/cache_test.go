package utils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume/config"
)

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	config.SetForTesting(config.AppConfig{JWTSecret: "test-secret", ListingCacheTTLSeconds: 20})
	mr := miniredis.RunT(t)
	SetRedisForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return mr
}

func TestListingCacheKeyCanonical(t *testing.T) {
	// parameter order must not change the key
	a := ListingCacheKey("/api/v1/posts", "page=2&page_size=10")
	b := ListingCacheKey("/api/v1/posts", "page_size=10&page=2")
	assert.Equal(t, a, b)

	assert.Equal(t, ListingCachePrefix+"/api/v1/posts", ListingCacheKey("/api/v1/posts", ""))
	assert.NotEqual(t,
		ListingCacheKey("/api/v1/posts", "page=1"),
		ListingCacheKey("/api/v1/posts", "page=2"))
}

func TestCacheRoundTrip(t *testing.T) {
	setupCache(t)

	key := ListingCacheKey("/api/v1/posts", "page=1")
	_, ok := CacheGetBytes(key)
	assert.False(t, ok)

	CacheSetBytes(key, []byte(`{"code":0}`), ListingTTL())
	b, ok := CacheGetBytes(key)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"code":0}`), b)
}

func TestCacheExpiresByTimeOnly(t *testing.T) {
	mr := setupCache(t)

	key := ListingCacheKey("/api/v1/posts", "")
	CacheSetBytes(key, []byte("rendered"), ListingTTL())

	mr.FastForward(19 * time.Second)
	_, ok := CacheGetBytes(key)
	assert.True(t, ok, "entry should survive inside the window")

	mr.FastForward(2 * time.Second)
	_, ok = CacheGetBytes(key)
	assert.False(t, ok, "entry should expire after the window")
}

func TestClearListingCache(t *testing.T) {
	setupCache(t)

	CacheSetBytes(ListingCacheKey("/api/v1/posts", "page=1"), []byte("a"), time.Minute)
	CacheSetBytes(ListingCacheKey("/api/v1/groups/go/posts", ""), []byte("b"), time.Minute)
	// a non-listing key must survive the clear
	CacheSetBytes("jwt:blacklist:tok", []byte("1"), time.Minute)

	ClearListingCache()

	_, ok := CacheGetBytes(ListingCacheKey("/api/v1/posts", "page=1"))
	assert.False(t, ok)
	_, ok = CacheGetBytes(ListingCacheKey("/api/v1/groups/go/posts", ""))
	assert.False(t, ok)
	_, ok = CacheGetBytes("jwt:blacklist:tok")
	assert.True(t, ok)
}
