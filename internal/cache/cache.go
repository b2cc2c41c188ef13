// Package cache implements the Cache component (spec §4.6): a keyed,
// TTL'd, file-backed memoization store for WHOIS and threat-intel results.
// The on-disk layout and entry envelope follow spec §6:
//
//	<cache_dir>/<namespace>/<sha256-hex[0:2]>/<sha256-hex>.entry
//
// Structurally this is the teacher's internal/vulnscan/cve_cache.go
// (memory map in front of a disk directory, TTL on read) generalized from
// a single CVE namespace to the namespace-per-caller the scanner needs,
// plus two guarantees cve_cache.go didn't need: atomic write-then-rename
// (no torn reads) and single-flight dedup of concurrent fetches for the
// same key (grounded in marco-2806-magpie's refreshOnce singleflight.Group
// pattern in backend/internal/blacklist/manager.go).
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rootsploit/typo-sniper/internal/errs"
)

// entry is the on-disk envelope for every cached value.
type entry struct {
	CreatedAt  int64           `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Payload    json.RawMessage `json:"payload"`
}

func (e entry) expired(now time.Time) bool {
	return now.Unix() > e.CreatedAt+e.TTLSeconds
}

// Cache is a namespaced, TTL'd, file-backed store with at-most-one
// concurrent fetch per (namespace, key) via single-flight.
type Cache struct {
	dir   string
	group singleflight.Group

	mu     sync.Mutex
	memory map[string]entry // fast path; disk remains the durable copy
}

// New creates a Cache rooted at dir, creating it if necessary.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &errs.CacheIOError{Key: dir, Err: err}
	}
	return &Cache{dir: dir, memory: make(map[string]entry)}, nil
}

// Key hashes a logical key with SHA-256 the way the Python original's
// Cache._get_cache_path does, so the same logical key always maps to the
// same filename.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) path(namespace, key string) string {
	shard := key
	if len(shard) >= 2 {
		shard = key[:2]
	}
	return filepath.Join(c.dir, namespace, shard, key+".entry")
}

func (c *Cache) memKey(namespace, key string) string { return namespace + "/" + key }

// Get returns the cached payload for (namespace, key) and true on a fresh
// hit, or (nil, false) on a miss (absent or expired). Expired files are
// deleted on read, matching spec's "TTL is enforced on read only".
func (c *Cache) Get(namespace, key string) (json.RawMessage, bool) {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.memory[c.memKey(namespace, key)]; ok {
		c.mu.Unlock()
		if e.expired(now) {
			c.evict(namespace, key)
			return nil, false
		}
		return e.Payload, true
	}
	c.mu.Unlock()

	path := c.path(namespace, key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		os.Remove(path)
		return nil, false
	}
	if e.expired(now) {
		os.Remove(path)
		return nil, false
	}

	c.mu.Lock()
	c.memory[c.memKey(namespace, key)] = e
	c.mu.Unlock()
	return e.Payload, true
}

// Set writes payload under (namespace, key) with the given TTL, atomically
// (write to a temp file in the same directory, then rename) so concurrent
// readers never observe a torn write.
func (c *Cache) Set(namespace, key string, payload json.RawMessage, ttl time.Duration) error {
	e := entry{
		CreatedAt:  time.Now().Unix(),
		TTLSeconds: int64(ttl.Seconds()),
		Payload:    payload,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return &errs.CacheIOError{Key: key, Err: err}
	}

	path := c.path(namespace, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &errs.CacheIOError{Key: key, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return &errs.CacheIOError{Key: key, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &errs.CacheIOError{Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &errs.CacheIOError{Key: key, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &errs.CacheIOError{Key: key, Err: err}
	}

	c.mu.Lock()
	c.memory[c.memKey(namespace, key)] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) evict(namespace, key string) {
	c.mu.Lock()
	delete(c.memory, c.memKey(namespace, key))
	c.mu.Unlock()
	os.Remove(c.path(namespace, key))
}

// GetOrFetch is the single-flight entry point: concurrent callers for the
// same (namespace, key) share one in-flight fetch (spec §4.6's "at most
// one fetch per key in flight"). A cache hit never invokes fetch at all.
// A nil *Cache (the --no-cache case) always misses and calls fetch
// directly, with no single-flight dedup.
func (c *Cache) GetOrFetch(namespace, key string, ttl time.Duration, fetch func() (json.RawMessage, error)) (json.RawMessage, error) {
	if c == nil {
		return fetch()
	}
	if payload, ok := c.Get(namespace, key); ok {
		return payload, nil
	}

	v, err, _ := c.group.Do(namespace+"/"+key, func() (interface{}, error) {
		if payload, ok := c.Get(namespace, key); ok {
			return payload, nil
		}
		payload, err := fetch()
		if err != nil {
			return nil, err
		}
		if err := c.Set(namespace, key, payload, ttl); err != nil {
			// Bypass-cache-on-write-failure: the fetched value is still
			// usable for this call even if persisting it failed.
			return payload, nil
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Stats summarizes cache contents, matching the fields the Python
// original's get_stats() exposes (spec §9 supplement).
type Stats struct {
	TotalEntries   int            `json:"total_entries"`
	ExpiredEntries int            `json:"expired_entries"`
	ValidEntries   int            `json:"valid_entries"`
	TotalSizeBytes int64          `json:"total_size_bytes"`
	Namespaces     map[string]int `json:"namespaces"`
}

// GetStats walks the cache directory and reports aggregate counts.
func (c *Cache) GetStats() Stats {
	stats := Stats{Namespaces: make(map[string]int)}
	now := time.Now()

	filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".entry" {
			return nil
		}
		stats.TotalEntries++
		stats.TotalSizeBytes += info.Size()

		rel, _ := filepath.Rel(c.dir, path)
		if ns := filepath.Dir(filepath.Dir(rel)); ns != "." {
			stats.Namespaces[ns]++
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.ExpiredEntries++
			return nil
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || e.expired(now) {
			stats.ExpiredEntries++
		}
		return nil
	})
	stats.ValidEntries = stats.TotalEntries - stats.ExpiredEntries
	return stats
}

// ClearExpired deletes every entry past its TTL and returns the count
// removed, matching the Python original's clear_expired().
func (c *Cache) ClearExpired() int {
	count := 0
	now := time.Now()

	filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() || filepath.Ext(path) != ".entry" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			os.Remove(path)
			count++
			return nil
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || e.expired(now) {
			os.Remove(path)
			count++
		}
		return nil
	})

	c.mu.Lock()
	for k, e := range c.memory {
		if e.expired(now) {
			delete(c.memory, k)
		}
	}
	c.mu.Unlock()
	return count
}

// Clear removes every cache entry unconditionally and returns the count.
func (c *Cache) Clear() int {
	count := 0
	filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() || filepath.Ext(path) != ".entry" {
			return nil
		}
		os.Remove(path)
		count++
		return nil
	})
	c.mu.Lock()
	c.memory = make(map[string]entry)
	c.mu.Unlock()
	return count
}
