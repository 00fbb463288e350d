// Copyright 2026 The Ultrasearch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pathcache implements the Path Cache: a bounded
// LRU mapping a doc key to its reconstructed absolute path, with
// string-interned segments and back-edge invalidation.
package pathcache

import (
	"container/list"
	"sync"

	"github.com/shaneholloman/ultrasearch/internal/docid"
)

const defaultCapacity = 1000

// FetchMiss resolves a single doc key's metadata on a cache miss, the
// fallback into the metadata index on a cache miss.
type FetchMiss func(key docid.DocKey) (name string, parent docid.DocKey, hasParent bool, ok bool)

// Result is the outcome of a Resolve call.
type Result struct {
	Path      string
	Truncated bool
}

type entry struct {
	key       docid.DocKey
	path      string
	truncated bool
	elem      *list.Element
}

// Cache is a bounded LRU of resolved paths, invalidated by back-edge: a
// write touching any doc_key on a cached path's parent chain evicts that
// cached path too.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // most-recently-used at front
	entries  map[docid.DocKey]*entry

	// backEdges[ancestor] is the set of cached leaf doc_keys whose
	// resolved path passed through ancestor, so invalidating ancestor
	// evicts every dependent cached path.
	backEdges map[docid.DocKey]map[docid.DocKey]struct{}

	// intern dedupes identical name-segment strings across entries.
	intern map[string]string
}

// New creates a Cache with the given capacity. A capacity of 0 uses the
// documented default of 1,000 entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache{
		capacity:  capacity,
		ll:        list.New(),
		entries:   make(map[docid.DocKey]*entry),
		backEdges: make(map[docid.DocKey]map[docid.DocKey]struct{}),
		intern:    make(map[string]string),
	}
}

func (c *Cache) internSegment(s string) string {
	if v, ok := c.intern[s]; ok {
		return v
	}
	c.intern[s] = s
	return s
}

// Resolve returns the absolute path for key, ascending the parent chain
// via fetchMiss on a cache miss. A chain that fails to terminate (missing
// parent metadata) yields a partial path and Truncated=true; a detected
// cycle does the same rather than looping forever.
func (c *Cache) Resolve(key docid.DocKey, fetchMiss FetchMiss) Result {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.ll.MoveToFront(e.elem)
		result := Result{Path: e.path, Truncated: e.truncated}
		c.mu.Unlock()
		return result
	}
	c.mu.Unlock()

	var segments []string
	chain := []docid.DocKey{}
	visited := make(map[docid.DocKey]bool)
	cur := key
	truncated := false

	for {
		if visited[cur] {
			truncated = true // cycle
			break
		}
		visited[cur] = true
		chain = append(chain, cur)

		name, parent, hasParent, ok := fetchMiss(cur)
		if !ok {
			truncated = true
			break
		}
		segments = append(segments, name)
		if !hasParent {
			break
		}
		cur = parent
	}

	// segments were accumulated leaf-to-root; reverse for root-to-leaf.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var path string
	for _, s := range segments {
		seg := c.internSegment(s)
		if path == "" {
			path = seg
		} else {
			path = path + `\` + seg
		}
	}

	c.insertLocked(key, path, truncated, chain)
	return Result{Path: path, Truncated: truncated}
}

func (c *Cache) insertLocked(key docid.DocKey, path string, truncated bool, chain []docid.DocKey) {
	e := &entry{key: key, path: path, truncated: truncated}
	e.elem = c.ll.PushFront(e)
	c.entries[key] = e

	for _, ancestor := range chain {
		if ancestor == key {
			continue
		}
		set, ok := c.backEdges[ancestor]
		if !ok {
			set = make(map[docid.DocKey]struct{})
			c.backEdges[ancestor] = set
		}
		set[key] = struct{}{}
	}

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.evictLocked(oldest.Value.(*entry).key)
	}
}

// Invalidate evicts key's own cached path, and every cached path that
// passed through key as an ancestor.
func (c *Cache) Invalidate(key docid.DocKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked(key)
	for dependent := range c.backEdges[key] {
		c.evictLocked(dependent)
	}
	delete(c.backEdges, key)
}

func (c *Cache) evictLocked(key docid.DocKey) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.ll.Remove(e.elem)
	delete(c.entries, key)
}

// Len reports the number of cached resolved paths.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
