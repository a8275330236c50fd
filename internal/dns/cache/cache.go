// Package cache implements the resolver's response cache: a TTL-expiring,
// weight-bounded store keyed by (lowercased name, type). Class is not part
// of the key; every supported query runs under class IN.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/valarpirai/rr-dns/internal/dns/common/clock"
	"github.com/valarpirai/rr-dns/internal/dns/domain"
)

// entry is what the backing LRU actually stores: the record vector plus
// the absolute expiry and the weight charged against the memory budget.
type entry struct {
	records []domain.Record
	expiry  int64 // unix seconds
	weight  int
}

// Stats is a snapshot of cache-wide activity.
type Stats struct {
	Hits             uint64
	Misses           uint64
	Evictions        uint64
	Entries          int
	ApproximateBytes int
}

// Cache is a response cache safe for concurrent readers and writers.
// Entries below config.MinTTLSeconds are never stored, and insertion
// evicts least-recently-used entries until both the entry-count and
// memory-weight budgets are satisfied.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, *entry]
	clock clock.Clock

	maxEntries     int
	maxMemoryBytes int
	minTTLSeconds  uint32

	totalWeight int
	hits        uint64
	misses      uint64
	evictions   uint64
}

// Config bounds the cache's size and what it is willing to store.
type Config struct {
	MaxEntries     int
	MaxMemoryBytes int
	MinTTLSeconds  uint32
}

// New constructs a cache. clk is injected so tests can control expiry
// without sleeping.
func New(cfg Config, clk clock.Clock) (*Cache, error) {
	// golang-lru requires a positive capacity; the weight/min-TTL rules
	// below do the real bounding, so the LRU's own count cap is set to
	// MaxEntries as a backstop against unbounded key growth.
	capacity := cfg.MaxEntries
	if capacity <= 0 {
		capacity = 1
	}
	backing, err := lru.New[string, *entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{
		lru:            backing,
		clock:          clk,
		maxEntries:     cfg.MaxEntries,
		maxMemoryBytes: cfg.MaxMemoryBytes,
		minTTLSeconds:  cfg.MinTTLSeconds,
	}, nil
}

// Get returns the cached records for (name, rrtype) iff present and
// unexpired. Lookup is case-insensitive via domain.CacheKey.
func (c *Cache) Get(name string, rrtype domain.RRType) ([]domain.Record, bool) {
	key := domain.CacheKey(name, rrtype)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expiry <= c.clock.Now().Unix() {
		c.lru.Remove(key)
		c.totalWeight -= e.weight
		c.misses++
		return nil, false
	}
	c.hits++
	out := make([]domain.Record, len(e.records))
	copy(out, e.records)
	return out, true
}

// Put inserts records under the key (name, rrtype). A no-op if records is
// empty or if the minimum TTL among them is below the configured floor.
// Otherwise the entry expires at now + min(ttl), and enough
// least-recently-used entries are evicted first to keep both the entry
// count and the approximate weight within budget.
func (c *Cache) Put(name string, rrtype domain.RRType, records []domain.Record) {
	if len(records) == 0 {
		return
	}

	minTTL := records[0].TTL
	for _, rr := range records[1:] {
		if rr.TTL < minTTL {
			minTTL = rr.TTL
		}
	}
	if minTTL < c.minTTLSeconds {
		return
	}

	key := domain.CacheKey(name, rrtype)
	weight := entryWeight(key, records)
	if c.maxMemoryBytes > 0 && weight > c.maxMemoryBytes {
		// An entry that alone exceeds the budget can never fit.
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(key); ok {
		c.totalWeight -= old.weight
		c.lru.Remove(key)
	}

	for c.maxMemoryBytes > 0 && c.totalWeight+weight > c.maxMemoryBytes && c.lru.Len() > 0 {
		if !c.evictOldestLocked() {
			break
		}
	}
	for c.maxEntries > 0 && c.lru.Len() >= c.maxEntries && c.lru.Len() > 0 {
		if !c.evictOldestLocked() {
			break
		}
	}

	e := &entry{
		records: append([]domain.Record(nil), records...),
		expiry:  c.clock.Now().Unix() + int64(minTTL),
		weight:  weight,
	}
	c.lru.Add(key, e)
	c.totalWeight += weight
}

// evictOldestLocked removes the least-recently-used entry. Caller must
// hold c.mu.
func (c *Cache) evictOldestLocked() bool {
	_, evicted, ok := c.lru.RemoveOldest()
	if !ok {
		return false
	}
	c.totalWeight -= evicted.weight
	c.evictions++
	return true
}

// Clear drops all entries and resets the weight accumulator; stats
// counters (hits/misses/evictions) are left intact since they describe
// cache activity over its lifetime, not its current contents.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.totalWeight = 0
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:             c.hits,
		Misses:           c.misses,
		Evictions:        c.evictions,
		Entries:          c.lru.Len(),
		ApproximateBytes: c.totalWeight,
	}
}

// entryWeight approximates the octet footprint of a cache entry: the key
// string plus, per record, its name, a fixed per-record overhead for the
// type/class/ttl/rdlength fields, and the rdata itself.
func entryWeight(key string, records []domain.Record) int {
	w := len(key) + 4
	for _, rr := range records {
		w += len(rr.Name) + 10 + len(rr.RData)
	}
	return w
}
