package trigger

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheMaxSize = 100
	defaultCacheTTL     = 5 * time.Minute

	// Lookups within the same quarter hour share a cache entry.
	bucketMinutes = 15
)

// snapshotEntry holds a cached activity snapshot along with the time it
// was stored.
type snapshotEntry struct {
	snap     Snapshot
	storedAt time.Time
}

// snapshotCache is a TTL'd LRU over activity snapshots. Expired entries
// are evicted on read and also swept on a timer, so a quiet cache does
// not hold stale rows until the next lookup.
type snapshotCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, snapshotEntry]
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func newSnapshotCache(maxSize int, ttl time.Duration) *snapshotCache {
	if maxSize <= 0 {
		maxSize = defaultCacheMaxSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	entries, err := lru.New[string, snapshotEntry](maxSize)
	if err != nil {
		// lru.New only errors on non-positive size, guarded above.
		panic(err)
	}
	return &snapshotCache{
		entries: entries,
		ttl:     ttl,
		done:    make(chan struct{}),
	}
}

func (c *snapshotCache) get(key string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries.Get(key)
	if !ok {
		return Snapshot{}, false
	}
	if time.Since(entry.storedAt) >= c.ttl {
		c.entries.Remove(key)
		return Snapshot{}, false
	}
	return entry.snap, true
}

func (c *snapshotCache) put(key string, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, snapshotEntry{snap: snap, storedAt: time.Now()})
}

// startSweeper evicts expired entries on a timer independent of reads.
func (c *snapshotCache) startSweeper() {
	go func() {
		t := time.NewTicker(c.ttl)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.sweep()
			case <-c.done:
				return
			}
		}
	}()
}

func (c *snapshotCache) stop() {
	c.once.Do(func() { close(c.done) })
}

func (c *snapshotCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.entries.Keys() {
		if entry, ok := c.entries.Peek(key); ok && time.Since(entry.storedAt) >= c.ttl {
			c.entries.Remove(key)
		}
	}
}

func (c *snapshotCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// bucketKey scopes a cache entry to a chat, a date, and a coarse time
// bucket so the answer to "what is happening now" refreshes at least
// every quarter hour.
func bucketKey(chatID string, t time.Time) string {
	minute := t.Hour()*60 + t.Minute()
	return fmt.Sprintf("%s|%s|%d", chatID, t.Format("2006-01-02"), minute/bucketMinutes)
}
