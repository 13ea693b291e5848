package cache

import (
	"time"
)

// BlockList tracks domains the target site has started refusing.
// Blocking is best effort: a worker that cannot reach the list keeps
// crawling and eats one more refused response before the next check.
type BlockList interface {
	// Blocked reports whether the domain is under cooldown.
	Blocked(domain string) (bool, error)

	// Block puts the domain under cooldown for the given duration.
	Block(domain string, cooldown time.Duration) error

	// Unblock lifts a cooldown early. Lifting an absent one is a no-op.
	Unblock(domain string) error
}

// BlockKey is the storage key for a domain's cooldown entry. While
// the key exists, no requests go to the domain.
func BlockKey(domain string) string {
	return "blocked:" + domain
}
