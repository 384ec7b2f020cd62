package profile

import "sync"

// Cache is the page-session profile cache, read-shared across all mounted
// chat surfaces. Concurrent fetches for overlapping id sets may overwrite
// the same entries; profiles are immutable-ish so last write wins.
type Cache struct {
	mutex sync.RWMutex
	byID  map[string]Profile
}

func NewCache() *Cache {
	return &Cache{byID: make(map[string]Profile)}
}

func (c *Cache) Get(id string) (Profile, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	p, ok := c.byID[id]
	return p, ok
}

func (c *Cache) Put(profiles ...Profile) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, p := range profiles {
		if p.ID != "" {
			c.byID[p.ID] = p
		}
	}
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.byID)
}
