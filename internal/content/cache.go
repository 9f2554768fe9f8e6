package content

import (
	"io/fs"
	"sync"
	"time"

	"github.com/aweris/fscms/internal/record"
)

// DefaultCacheSize is the number of decoded documents kept by a LocalStore.
const DefaultCacheSize = 1024

// docCache keeps decoded documents keyed by path. An entry is only served while
// the file keeps the modification time and size it had when it was decoded, so
// files edited outside the store are read again.
type docCache struct {
	maxSize int
	items   map[string]cachedDoc
	mu      sync.RWMutex
}

type cachedDoc struct {
	modTime time.Time
	size    int64
	post    record.Post
}

func newDocCache(maxSize int) *docCache {
	return &docCache{
		maxSize: maxSize,
		items:   make(map[string]cachedDoc),
	}
}

func (c *docCache) get(path string, info fs.FileInfo) (record.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.items[path]
	if !ok || doc.size != info.Size() || !doc.modTime.Equal(info.ModTime()) {
		return record.Post{}, false
	}
	return doc.post.Clone(), true
}

func (c *docCache) add(path string, info fs.FileInfo, post record.Post) {
	if c.maxSize <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// evict any one entry when full
	if _, ok := c.items[path]; !ok && len(c.items) >= c.maxSize {
		for k := range c.items {
			delete(c.items, k)
			break
		}
	}
	c.items[path] = cachedDoc{modTime: info.ModTime(), size: info.Size(), post: post.Clone()}
}

func (c *docCache) remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, path)
}

func (c *docCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
