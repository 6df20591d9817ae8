package preview

import (
	"container/list"
	"fmt"
	"image"
	"sync"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
)

// ThumbnailCache is an LRU of encoded thumbnails keyed by file identity.
type ThumbnailCache struct {
	mu      sync.Mutex
	entries map[string]*thumbnailEntry
	lru     *list.List // front = most recent
	maxSize int
}

type thumbnailEntry struct {
	key      string
	data     []byte
	original image.Point
	element  *list.Element
}

// NewThumbnailCache creates a cache holding at most maxEntries thumbnails.
func NewThumbnailCache(maxEntries int) *ThumbnailCache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &ThumbnailCache{
		entries: make(map[string]*thumbnailEntry),
		lru:     list.New(),
		maxSize: maxEntries,
	}
}

// CacheKey identifies f by name, size and modification time, so a changed
// file misses.
func CacheKey(f *host.File) string {
	if f.Path != "" {
		return fmt.Sprintf("%s|%d|%d", f.Path, f.Size, f.ModTime.UnixNano())
	}
	return fmt.Sprintf("%s|%d|%d", f.Name, f.Size, f.ModTime.UnixNano())
}

// Get returns the cached thumbnail and the original image dimensions.
func (tc *ThumbnailCache) Get(key string) ([]byte, image.Point, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	entry, ok := tc.entries[key]
	if !ok {
		return nil, image.Point{}, false
	}
	tc.lru.MoveToFront(entry.element)
	return entry.data, entry.original, true
}

// Put stores a thumbnail, evicting the least recently used entries.
func (tc *ThumbnailCache) Put(key string, data []byte, original image.Point) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if entry, ok := tc.entries[key]; ok {
		entry.data = data
		entry.original = original
		tc.lru.MoveToFront(entry.element)
		return
	}

	for tc.lru.Len() >= tc.maxSize {
		oldest := tc.lru.Back()
		if oldest == nil {
			break
		}
		old := oldest.Value.(*thumbnailEntry)
		delete(tc.entries, old.key)
		tc.lru.Remove(oldest)
		debug.Log(debug.PREVIEW, "thumbnail cache: evicted %s", old.key)
	}

	entry := &thumbnailEntry{key: key, data: data, original: original}
	entry.element = tc.lru.PushFront(entry)
	tc.entries[key] = entry
}

// Clear drops every entry.
func (tc *ThumbnailCache) Clear() {
	tc.mu.Lock()
	tc.entries = make(map[string]*thumbnailEntry)
	tc.lru = list.New()
	tc.mu.Unlock()
	debug.Log(debug.PREVIEW, "thumbnail cache: cleared")
}

// Size returns the number of cached thumbnails.
func (tc *ThumbnailCache) Size() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.entries)
}
