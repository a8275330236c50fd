package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valarpirai/rr-dns/internal/dns/common/clock"
	"github.com/valarpirai/rr-dns/internal/dns/domain"
)

func newTestCache(t *testing.T, cfg Config, mock *clock.MockClock) *Cache {
	t.Helper()
	c, err := New(cfg, mock)
	require.NoError(t, err)
	return c
}

func sampleRecords(ttl uint32) []domain.Record {
	return []domain.Record{
		{Name: "example.com", Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: ttl, RData: []byte{1, 2, 3, 4}, Text: "1.2.3.4"},
	}
}

func TestCacheGetMissOnEmpty(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	_, ok := c.Get("example.com", domain.RRTypeA)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestCachePutGetRoundTrip(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	c.Put("Example.COM", domain.RRTypeA, sampleRecords(300))

	got, ok := c.Get("example.com", domain.RRTypeA)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "1.2.3.4", got[0].Text)
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestCacheKeyIgnoresClassButNotType(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	c.Put("example.com", domain.RRTypeA, sampleRecords(300))
	_, ok := c.Get("example.com", domain.RRTypeAAAA)
	assert.False(t, ok, "a cache entry for one type must not satisfy a lookup of a different type")
}

func TestCacheBelowMinTTLIsNotStored(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 30}, mock)

	c.Put("example.com", domain.RRTypeA, sampleRecords(5))

	_, ok := c.Get("example.com", domain.RRTypeA)
	assert.False(t, ok)
}

func TestCacheEmptyRecordsIsNoop(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	c.Put("example.com", domain.RRTypeA, nil)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	c.Put("example.com", domain.RRTypeA, sampleRecords(60))
	mock.Advance(61 * time.Second)

	_, ok := c.Get("example.com", domain.RRTypeA)
	assert.False(t, ok, "entry should have expired once its TTL elapsed")
	assert.Equal(t, 0, c.Stats().Entries, "expired entry should be purged on access")
}

func TestCacheEvictsByMaxEntries(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 2, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	c.Put("a.example.com", domain.RRTypeA, sampleRecords(300))
	c.Put("b.example.com", domain.RRTypeA, sampleRecords(300))
	c.Put("c.example.com", domain.RRTypeA, sampleRecords(300))

	assert.LessOrEqual(t, c.Stats().Entries, 2)
	assert.GreaterOrEqual(t, c.Stats().Evictions, uint64(1))

	// the most recently inserted entry must survive
	_, ok := c.Get("c.example.com", domain.RRTypeA)
	assert.True(t, ok)
}

func TestCacheEvictsByMaxMemory(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	// Budget only large enough for one entry's weight (44 octets each).
	c := newTestCache(t, Config{MaxEntries: 1000, MaxMemoryBytes: 60, MinTTLSeconds: 10}, mock)

	c.Put("a.example.com", domain.RRTypeA, sampleRecords(300))
	c.Put("b.example.com", domain.RRTypeA, sampleRecords(300))

	stats := c.Stats()
	assert.LessOrEqual(t, stats.ApproximateBytes, 60)
	assert.GreaterOrEqual(t, stats.Evictions, uint64(1))
}

func TestCacheRejectsEntryLargerThanBudget(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 1000, MaxMemoryBytes: 10, MinTTLSeconds: 10}, mock)

	c.Put("a.example.com", domain.RRTypeA, sampleRecords(300))

	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 0, stats.ApproximateBytes)
	assert.Equal(t, uint64(0), stats.Evictions)
}

func TestCacheClearResetsEntriesNotCounters(t *testing.T) {
	mock := &clock.MockClock{CurrentTime: time.Unix(1000, 0)}
	c := newTestCache(t, Config{MaxEntries: 100, MaxMemoryBytes: 1 << 20, MinTTLSeconds: 10}, mock)

	c.Put("example.com", domain.RRTypeA, sampleRecords(300))
	_, _ = c.Get("example.com", domain.RRTypeA)
	c.Clear()

	stats := c.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, 0, stats.ApproximateBytes)
	assert.Equal(t, uint64(1), stats.Hits, "lifetime hit counter should survive a clear")
}
