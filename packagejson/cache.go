/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package packagejson

import "sync"

// Cache holds parsed dependency manifests keyed by content fingerprint, so a
// manifest shared by several platforms in one pass is parsed once.
type Cache interface {
	// GetOrLoad returns the cached result for fingerprint or runs loader.
	// Only one goroutine executes the loader for a given fingerprint; others wait.
	GetOrLoad(fingerprint string, loader func() (map[string]string, error)) (map[string]string, error)

	// Invalidate drops a cached entry.
	Invalidate(fingerprint string)
}

// cacheEntry holds a cached value and coordinates concurrent loading.
type cacheEntry struct {
	deps map[string]string
	err  error
	once sync.Once
}

// MemoryCache is a thread-safe in-memory implementation of Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[string]map[string]string
	loading sync.Map // map[string]*cacheEntry for in-flight loads
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{cache: make(map[string]map[string]string)}
}

// Invalidate removes a cached entry and any in-flight loading state.
func (c *MemoryCache) Invalidate(fingerprint string) {
	c.mu.Lock()
	delete(c.cache, fingerprint)
	c.mu.Unlock()
	c.loading.Delete(fingerprint)
}

// GetOrLoad implements Cache. Failed loads are returned to every waiter but
// not cached, so a later call retries.
func (c *MemoryCache) GetOrLoad(fingerprint string, loader func() (map[string]string, error)) (map[string]string, error) {
	c.mu.RLock()
	if deps, ok := c.cache[fingerprint]; ok {
		c.mu.RUnlock()
		return deps, nil
	}
	c.mu.RUnlock()

	actual, _ := c.loading.LoadOrStore(fingerprint, &cacheEntry{})
	entry := actual.(*cacheEntry)

	entry.once.Do(func() {
		entry.deps, entry.err = loader()
		if entry.err == nil {
			c.mu.Lock()
			c.cache[fingerprint] = entry.deps
			c.mu.Unlock()
		} else {
			c.loading.CompareAndDelete(fingerprint, entry)
		}
	})

	return entry.deps, entry.err
}
