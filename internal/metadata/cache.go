package metadata

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odatakit/odatakit/internal/edm"
	"github.com/odatakit/odatakit/internal/edm/edmx"
)

// Entry is a parsed metadata file together with its raw lines
type Entry struct {
	Metadata *edm.Metadata
	Index    *edmx.Index
	Lines    []string
	Path     string
	Hash     uint64 // xxhash of the file content
	LoadedAt time.Time
}

// Cache holds parsed metadata keyed by resolved file path. Entries are never
// evicted on their own; Invalidate is the only way to drop one.
type Cache struct {
	entries map[string]*Entry
	mu      sync.RWMutex
	group   singleflight.Group
	clock   func() time.Time

	hookMu       sync.RWMutex
	onInvalidate []func(path string)
}

// NewCache creates an empty cache. A nil clock means time.Now.
func NewCache(clock func() time.Time) *Cache {
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		entries: make(map[string]*Entry),
		clock:   clock,
	}
}

// Get retrieves a cached entry by resolved path
func (c *Cache) Get(path string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	return entry, ok
}

// GetOrLoad returns the cached entry for path, calling load on a miss.
// Concurrent misses for the same path share a single load. Failed loads are
// not cached. cached reports whether the entry was already in the cache;
// callers that waited on a shared load get false.
func (c *Cache) GetOrLoad(path string, load func() (*Entry, error)) (entry *Entry, cached bool, err error) {
	if entry, ok := c.Get(path); ok {
		return entry, true, nil
	}

	v, err, _ := c.group.Do(path, func() (interface{}, error) {
		// another flight may have finished between Get and Do
		if entry, ok := c.Get(path); ok {
			cached = true
			return entry, nil
		}
		entry, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(path, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Entry), cached, nil
}

// Set stores an entry, stamping it with the cache clock
func (c *Cache) Set(path string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Path = path
	entry.LoadedAt = c.clock()
	c.entries[path] = entry
}

// Invalidate removes an entry from the cache
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	_, existed := c.entries[path]
	delete(c.entries, path)
	c.mu.Unlock()

	if existed {
		c.notify(path)
	}
}

// InvalidateAll clears the entire cache
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	paths := make([]string, 0, len(c.entries))
	for path := range c.entries {
		paths = append(paths, path)
	}
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	for _, path := range paths {
		c.notify(path)
	}
}

// OnInvalidate registers fn to be called after an entry is invalidated
func (c *Cache) OnInvalidate(fn func(path string)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	c.onInvalidate = append(c.onInvalidate, fn)
}

func (c *Cache) notify(path string) {
	c.hookMu.RLock()
	hooks := append([]func(string){}, c.onInvalidate...)
	c.hookMu.RUnlock()

	for _, fn := range hooks {
		fn(path)
	}
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Paths returns the cached paths
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.entries))
	for path := range c.entries {
		paths = append(paths, path)
	}
	return paths
}
