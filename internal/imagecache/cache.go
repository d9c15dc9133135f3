// Package imagecache decodes source photos once and shares them between
// preview and export renders.
package imagecache

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/singleflight"

	"github.com/starford/lumina/internal/apperr"
)

// Loader resolves an image identifier to a decoded bitmap.
type Loader interface {
	Load(ctx context.Context, id string) (image.Image, error)
}

// Source is the byte-level storage a StoreLoader reads from.
type Source interface {
	Read(ctx context.Context, loc string) ([]byte, error)
}

// StoreLoader decodes images read from a Source.
type StoreLoader struct {
	src Source
}

// NewStoreLoader returns a loader over src.
func NewStoreLoader(src Source) *StoreLoader {
	return &StoreLoader{src: src}
}

// Load reads and decodes id.
func (l *StoreLoader) Load(ctx context.Context, id string) (image.Image, error) {
	data, err := l.src.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", id, apperr.ErrImageLoad, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", id, apperr.ErrImageLoad, err)
	}
	return img, nil
}

// Cache memoizes a Loader. Concurrent misses for the same id share one
// load; failures are not cached. A load that overlaps an Invalidate or
// Clear of its id is returned to its callers but not stored.
type Cache struct {
	loader Loader

	mu      sync.RWMutex
	entries map[string]image.Image
	gens    map[string]uint64
	epoch   uint64
	group   singleflight.Group
}

// New returns an empty cache over loader.
func New(loader Loader) *Cache {
	return &Cache{loader: loader, entries: make(map[string]image.Image), gens: make(map[string]uint64)}
}

func (c *Cache) generation(id string) uint64 {
	return c.epoch + c.gens[id]
}

// Load returns the decoded image for id, loading it on a miss.
func (c *Cache) Load(ctx context.Context, id string) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		c.mu.RLock()
		gen := c.generation(id)
		c.mu.RUnlock()
		img, err := c.loader.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation(id) == gen {
			c.entries[id] = img
		}
		c.mu.Unlock()
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(image.Image), nil
}

// Invalidate drops id from the cache.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.gens[id]++
	c.mu.Unlock()
	c.group.Forget(id)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]image.Image)
	c.epoch++
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys returns the cached identifiers.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}
