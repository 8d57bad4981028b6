package sidecar

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 64

// Reader loads sidecars through a small LRU so a magnitude sidecar consulted
// while stitching is not decoded twice within a unit.
type Reader struct {
	cache *lru.Cache[string, Metadata]
}

// NewReader builds a reader caching up to size decoded sidecars.
func NewReader(size int) *Reader {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, Metadata](size)
	if err != nil {
		return &Reader{}
	}
	return &Reader{cache: cache}
}

// Read returns a private copy of the sidecar at path.
func (r *Reader) Read(path string) (Metadata, error) {
	if r != nil && r.cache != nil {
		if m, ok := r.cache.Get(path); ok {
			return m.Clone(), nil
		}
	}
	m, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if r != nil && r.cache != nil {
		r.cache.Add(path, m)
	}
	return m.Clone(), nil
}

// Purge drops every cached sidecar; call it between units.
func (r *Reader) Purge() {
	if r != nil && r.cache != nil {
		r.cache.Purge()
	}
}
