package cache

import (
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	return c
}

func TestSetThenGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	key := Key("whois", "example.com")

	require.NoError(t, c.Set("whois", key, json.RawMessage(`{"registrar":"x"}`), time.Hour))

	payload, ok := c.Get("whois", key)
	require.True(t, ok)
	assert.JSONEq(t, `{"registrar":"x"}`, string(payload))
}

func TestGetMissAfterTTL(t *testing.T) {
	c := newTestCache(t)
	key := Key("whois", "example.com")

	require.NoError(t, c.Set("whois", key, json.RawMessage(`{}`), -time.Second))

	_, ok := c.Get("whois", key)
	assert.False(t, ok)
}

func TestGetOrFetchDedupsConcurrentCallers(t *testing.T) {
	c := newTestCache(t)
	key := Key("ct", "example.com")

	var calls int32
	fetch := func() (json.RawMessage, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return json.RawMessage(`{"count":1}`), nil
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			_, err := c.GetOrFetch("ct", key, time.Hour, fetch)
			assert.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClearExpiredRemovesOnlyStale(t *testing.T) {
	c := newTestCache(t)
	fresh := Key("whois", "fresh.com")
	stale := Key("whois", "stale.com")

	require.NoError(t, c.Set("whois", fresh, json.RawMessage(`{}`), time.Hour))
	require.NoError(t, c.Set("whois", stale, json.RawMessage(`{}`), -time.Second))

	removed := c.ClearExpired()
	assert.Equal(t, 1, removed)

	_, ok := c.Get("whois", fresh)
	assert.True(t, ok)
}

func TestGetStatsCounts(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("whois", Key("a"), json.RawMessage(`{}`), time.Hour))
	require.NoError(t, c.Set("ct", Key("b"), json.RawMessage(`{}`), -time.Second))

	stats := c.GetStats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.ExpiredEntries)
	assert.Equal(t, 1, stats.ValidEntries)
}

func TestGetOrFetchOnNilCacheAlwaysCallsFetch(t *testing.T) {
	var c *Cache
	calls := 0
	fetch := func() (json.RawMessage, error) {
		calls++
		return json.RawMessage(`{"v":1}`), nil
	}

	_, err := c.GetOrFetch("whois", Key("example.com"), time.Hour, fetch)
	require.NoError(t, err)
	_, err = c.GetOrFetch("whois", Key("example.com"), time.Hour, fetch)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "a nil cache must never memoize across calls")
}
