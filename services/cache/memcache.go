package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// MemcacheBlockList backs the domain blocklist with memcached. A
// blocked domain is a key whose TTL is the cooldown, so expiry lifts
// the block without any bookkeeping on our side, and concurrent
// crawler processes share one list.
type MemcacheBlockList struct {
	client *memcache.Client
}

// NewMemcacheBlockList connects to the memcached instance at serverAddr.
func NewMemcacheBlockList(serverAddr string) *MemcacheBlockList {
	return &MemcacheBlockList{
		client: memcache.New(serverAddr),
	}
}

// Blocked reports whether the domain's cooldown key is still live.
func (m *MemcacheBlockList) Blocked(domain string) (bool, error) {
	_, err := m.client.Get(BlockKey(domain))
	if err == memcache.ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Block writes the domain's cooldown key with the cooldown as TTL.
func (m *MemcacheBlockList) Block(domain string, cooldown time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        BlockKey(domain),
		Value:      []byte("1"),
		Expiration: int32(cooldown.Seconds()),
	})
}

// Unblock drops the domain's cooldown key if it exists.
func (m *MemcacheBlockList) Unblock(domain string) error {
	err := m.client.Delete(BlockKey(domain))
	if err == memcache.ErrCacheMiss {
		return nil
	}
	return err
}
