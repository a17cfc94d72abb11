// Package cache keeps loaded textures resident under a file count and a
// memory budget. Textures are handed out as reference-counted handles;
// only textures nobody holds are evicted, least recently released first.
package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/echoflaresat/facetex/texture"
	"github.com/hashicorp/golang-lru/simplelru"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxFiles is the file budget used when Options.MaxFiles is not positive.
	DefaultMaxFiles = 1000
	// DefaultMaxMem is the memory budget, in bytes, used when Options.MaxMem is not positive.
	DefaultMaxMem = 100 << 20

	// idleCapacity is far above any budget, so the idle list only shrinks
	// through enforceBudget.
	idleCapacity = 1 << 30
)

var (
	// ErrClosed is returned by Get after Close.
	ErrClosed = errors.New("texture cache closed")
	// ErrOutstandingHandles is returned by Close while handles are still held.
	ErrOutstandingHandles = errors.New("texture cache has outstanding handles")
)

// Loader reads the texture stored at path.
type Loader func(path string) (*texture.Texture, error)

// Options configure a Cache. Zero budgets use the defaults.
type Options struct {
	MaxFiles   int
	MaxMem     int64
	SearchPath []string
	// Loader defaults to texture.Load.
	Loader Loader
}

// Stats is a snapshot of cache activity.
type Stats struct {
	OpenFiles  int
	MemoryUsed int64
	Hits       int64
	Misses     int64
	Loads      int64
	Evictions  int64
}

// Cache maps texture identifiers to loaded textures. It is safe for
// concurrent use; lookups of resident textures take only a read lock.
type Cache struct {
	maxFiles int
	maxMem   int64
	load     Loader
	group    singleflight.Group

	mu         sync.RWMutex
	entries    map[string]*entry // resolved path -> entry
	aliases    map[string]string // identifier -> resolved path
	idle       *simplelru.LRU    // resolved path -> unreferenced entry
	searchPath []string
	open       int
	mem        int64
	closed     bool

	hits, misses, loads, evictions atomic.Int64
}

type entry struct {
	path string
	tex  *texture.Texture
	size int64
	// refs is the number of live handles; -1 once the entry is unloaded.
	refs atomic.Int32
	// detached entries were purged from the map and are unloaded on last release.
	detached bool
}

// acquire takes a reference unless the entry was unloaded.
func (e *entry) acquire() bool {
	for {
		n := e.refs.Load()
		if n < 0 {
			return false
		}
		if e.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Handle is a reference to a resident texture. The texture stays loaded
// until Release is called.
type Handle struct {
	e        *entry
	c        *Cache
	released atomic.Bool
}

// Texture returns the texture. It must not be used after Release.
func (h *Handle) Texture() *texture.Texture { return h.e.tex }

// Path returns the resolved file path of the texture.
func (h *Handle) Path() string { return h.e.path }

// Release drops the reference. Further calls do nothing.
func (h *Handle) Release() {
	if h.released.CompareAndSwap(false, true) {
		h.c.release(h.e)
	}
}

// New creates a cache. Budgets are fixed for the cache's lifetime.
func New(opts Options) *Cache {
	c := &Cache{
		maxFiles:   opts.MaxFiles,
		maxMem:     opts.MaxMem,
		load:       opts.Loader,
		entries:    make(map[string]*entry),
		aliases:    make(map[string]string),
		searchPath: append([]string(nil), opts.SearchPath...),
	}
	if c.maxFiles <= 0 {
		c.maxFiles = DefaultMaxFiles
	}
	if c.maxMem <= 0 {
		c.maxMem = DefaultMaxMem
	}
	if c.load == nil {
		c.load = texture.Load
	}
	c.idle, _ = simplelru.NewLRU(idleCapacity, c.onEvict)
	return c
}

// SetSearchPath sets the directories used to resolve relative identifiers,
// searched in order.
func (c *Cache) SetSearchPath(dirs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchPath = append([]string(nil), dirs...)
	clear(c.aliases)
}

// SearchPath returns the current search path.
func (c *Cache) SearchPath() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.searchPath...)
}

// Get returns a handle to the texture named by id, loading it on first use.
// Concurrent calls for the same texture load it once. Failures wrap
// texture.ErrNotFound, texture.ErrFormat or ErrClosed.
func (c *Cache) Get(id string) (*Handle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty identifier", texture.ErrNotFound)
	}
	for {
		c.mu.RLock()
		closed := c.closed
		e := c.entries[c.aliases[id]]
		c.mu.RUnlock()
		if closed {
			return nil, ErrClosed
		}
		if e != nil && e.acquire() {
			c.hits.Add(1)
			return &Handle{e: e, c: c}, nil
		}

		c.misses.Add(1)
		path := c.resolve(id)
		v, err, _ := c.group.Do(path, func() (any, error) {
			return c.loadEntry(path)
		})
		if err != nil {
			return nil, err
		}
		e = v.(*entry)
		if e.acquire() {
			c.mu.Lock()
			if !c.closed && c.entries[path] == e {
				c.aliases[id] = path
			}
			c.mu.Unlock()
			return &Handle{e: e, c: c}, nil
		}
		// Unloaded between load and acquire; look it up again.
	}
}

// resolve maps id to a file path: absolute paths are used as is, relative
// ones are looked up in each search directory in order and finally
// relative to the working directory.
func (c *Cache) resolve(id string) string {
	if filepath.IsAbs(id) {
		return filepath.Clean(id)
	}
	for _, dir := range c.SearchPath() {
		p := filepath.Join(dir, id)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Clean(id)
}

func (c *Cache) loadEntry(path string) (*entry, error) {
	c.mu.RLock()
	e, closed := c.entries[path], c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if e != nil {
		return e, nil
	}

	c.loads.Add(1)
	tex, err := c.load(path)
	if err != nil {
		return nil, err
	}
	e = &entry{path: path, tex: tex, size: tex.MemoryUsage()}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.entries[path] = e
	c.open++
	c.mem += e.size
	slog.Debug("texture loaded", "path", path, "id", tex.ID, "faces", tex.NumFaces(), "bytes", e.size)
	c.enforceBudget()
	return e, nil
}

func (c *Cache) release(e *entry) {
	if e.refs.Add(-1) != 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.refs.Load() != 0 {
		return
	}
	if e.detached {
		if e.refs.CompareAndSwap(0, -1) {
			c.unload(e)
		}
		return
	}
	c.idle.Add(e.path, e)
	c.enforceBudget()
}

// enforceBudget evicts idle entries while over budget. Must hold c.mu.
func (c *Cache) enforceBudget() {
	for c.overBudget() && c.idle.Len() > 0 {
		c.idle.RemoveOldest()
	}
	if c.overBudget() {
		slog.Debug("texture cache over budget, all entries in use",
			"open", c.open, "maxFiles", c.maxFiles, "mem", c.mem, "maxMem", c.maxMem)
	}
}

func (c *Cache) overBudget() bool {
	return c.open > c.maxFiles || c.mem > c.maxMem
}

// onEvict runs for entries leaving the idle list. Entries that were
// reacquired in the meantime stay loaded. Must hold c.mu.
func (c *Cache) onEvict(_ interface{}, value interface{}) {
	e := value.(*entry)
	if !e.refs.CompareAndSwap(0, -1) {
		return
	}
	if !e.detached {
		c.evictions.Add(1)
		slog.Debug("texture evicted", "path", e.path, "bytes", e.size)
	}
	c.unload(e)
}

// unload drops an unreferenced entry. Must hold c.mu.
func (c *Cache) unload(e *entry) {
	if c.entries[e.path] == e {
		delete(c.entries, e.path)
	}
	c.open--
	c.mem -= e.size
}

// Purge drops the texture named by id so the next Get reloads it.
// Handles already held stay valid until released.
func (c *Cache) Purge(id string) bool {
	path := c.resolve(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[path]
	if e == nil {
		return false
	}
	c.detach(e)
	return true
}

// PurgeFunc drops every texture whose resolved path satisfies match and
// returns how many were dropped.
func (c *Cache) PurgeFunc(match func(path string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for path, e := range c.entries {
		if match(path) {
			c.detach(e)
			n++
		}
	}
	return n
}

// PurgeAll drops every texture.
func (c *Cache) PurgeAll() {
	c.PurgeFunc(func(string) bool { return true })
}

// detach removes e from lookup. Must hold c.mu.
func (c *Cache) detach(e *entry) {
	e.detached = true
	delete(c.entries, e.path)
	for id, p := range c.aliases {
		if p == e.path {
			delete(c.aliases, id)
		}
	}
	// Unreferenced entries are unloaded right away by onEvict.
	if !c.idle.Remove(e.path) && e.refs.CompareAndSwap(0, -1) {
		c.unload(e)
	}
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		OpenFiles:  c.open,
		MemoryUsed: c.mem,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Loads:      c.loads.Load(),
		Evictions:  c.evictions.Load(),
	}
}

// Close unloads every texture. It fails with ErrOutstandingHandles, and
// leaves the cache usable, while any handle is still held.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	var killed []*entry
	held := 0
	for _, e := range c.entries {
		if e.refs.CompareAndSwap(0, -1) {
			killed = append(killed, e)
		} else {
			held++
		}
	}
	if held > 0 {
		for _, e := range killed {
			e.refs.Store(0)
		}
		return fmt.Errorf("%w: %d textures in use", ErrOutstandingHandles, held)
	}

	c.closed = true
	for _, e := range killed {
		c.unload(e)
	}
	c.idle.Purge()
	clear(c.aliases)
	return nil
}
