package cog

import (
	"container/list"
	"sync"
)

// tileKey identifies a decoded tile of level 0.
type tileKey struct {
	col, row int
}

type tileEntry struct {
	key  tileKey
	data []float32
}

// TileCache is an LRU cache of decoded float32 tiles. Requests that are not
// aligned to the file's tile grid touch the same source tile several times;
// the cache avoids decompressing it again.
type TileCache struct {
	mu      sync.Mutex
	entries map[tileKey]*list.Element
	order   *list.List // front = most recently used
	maxSize int

	hits, misses uint64
}

// NewTileCache creates a tile cache with the given maximum number of entries.
func NewTileCache(maxEntries int) *TileCache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &TileCache{
		entries: make(map[tileKey]*list.Element, maxEntries),
		order:   list.New(),
		maxSize: maxEntries,
	}
}

// Get returns the cached tile or nil.
func (tc *TileCache) Get(col, row int) []float32 {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if el, ok := tc.entries[tileKey{col, row}]; ok {
		tc.order.MoveToFront(el)
		tc.hits++
		return el.Value.(*tileEntry).data
	}
	tc.misses++
	return nil
}

// Put stores a tile, evicting the least recently used entry when full.
func (tc *TileCache) Put(col, row int, data []float32) {
	key := tileKey{col, row}
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if el, ok := tc.entries[key]; ok {
		tc.order.MoveToFront(el)
		return
	}
	for tc.order.Len() >= tc.maxSize {
		oldest := tc.order.Back()
		tc.order.Remove(oldest)
		delete(tc.entries, oldest.Value.(*tileEntry).key)
	}
	tc.entries[key] = tc.order.PushFront(&tileEntry{key: key, data: data})
}

// Len returns the number of cached tiles.
func (tc *TileCache) Len() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.order.Len()
}

// Stats returns the number of hits and misses so far.
func (tc *TileCache) Stats() (hits, misses uint64) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.hits, tc.misses
}
