package cache

import (
	"github.com/pkg/errors"
)

// CheckConsistency compares the recency list with the index. It is a test
// and diagnostics hook: it never mutates the cache and only gives a
// meaningful answer while no other call is in flight.
//
// The list must be a single chain from head to tail with valid back links,
// no entry may appear twice, and every member must be the entry indexed
// under its key.
func (c *LruCache[K, V]) CheckConsistency() error {
	list := c.recencyList
	seen := make(map[*Entry[K, V]]struct{}, c.itemsIndex.Len())

	var walkErr error
	previous := list.head
	list.walk(func(entry *Entry[K, V]) bool {
		if _, duplicate := seen[entry]; duplicate {
			walkErr = errors.Errorf("key=%v appears twice in the recency list", entry.key)
			return false
		}
		seen[entry] = struct{}{}

		entry.spinLock()
		back, state := entry.prev, entry.state
		entry.Unlock()

		if back != previous {
			walkErr = errors.Errorf("key=%v has a broken back link", entry.key)
			return false
		}
		if state != entryLinked {
			walkErr = errors.Errorf("key=%v is in the recency list but marked %s", entry.key, state)
			return false
		}
		if indexed, ok := c.itemsIndex.Get(entry.key); !ok || indexed != entry {
			walkErr = errors.Errorf("key=%v is in the recency list but not in the index", entry.key)
			return false
		}
		previous = entry
		return true
	})
	if walkErr != nil {
		return walkErr
	}

	list.tail.spinLock()
	last := list.tail.prev
	list.tail.Unlock()
	if last != previous {
		return errors.New("recency list does not end at the tail sentinel")
	}

	if linked, indexed := len(seen), c.itemsIndex.Len(); linked != indexed {
		return errors.Errorf("index holds %d entries but the recency list links %d", indexed, linked)
	}
	return nil
}
