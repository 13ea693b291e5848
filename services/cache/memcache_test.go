package cache

import (
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
)

func TestBlockKey(t *testing.T) {
	assert.Equal(t, "blocked:www.encuentra24.com", BlockKey("www.encuentra24.com"))
}

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheBlockList(t *testing.T) {
	bl := NewMemcacheBlockList("localhost:11211")

	_, err := bl.client.Get("ping")
	if err != nil && err != memcache.ErrCacheMiss {
		t.Skip("Memcached is not available, skipping test")
	}

	blocked, err := bl.Blocked("example.com")
	assert.NoError(t, err, "a missing cooldown key is not an error")
	assert.False(t, blocked)

	err = bl.Block("example.com", 1*time.Second)
	assert.NoError(t, err)

	blocked, err = bl.Blocked("example.com")
	assert.NoError(t, err)
	assert.True(t, blocked)

	err = bl.Unblock("example.com")
	assert.NoError(t, err)

	blocked, err = bl.Blocked("example.com")
	assert.NoError(t, err)
	assert.False(t, blocked)

	assert.NoError(t, bl.Unblock("example.com"), "lifting an absent cooldown is a no-op")
}
