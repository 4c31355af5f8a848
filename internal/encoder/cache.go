package encoder

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"

	"github.com/hyperjump/cohort/internal/models"
)

// VectorCache is an LRU cache of encoded vectors keyed by schema version and
// field content, so an edited profile never hits a stale entry.
type VectorCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value models.FeatureVector
}

// NewVectorCache creates a cache holding at most capacity vectors.
func NewVectorCache(capacity int) *VectorCache {
	return &VectorCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// CacheKey derives the cache key of a profile under a schema version.
// encoding/json sorts map keys, so equal field maps yield equal keys.
func CacheKey(version string, fields map[string]any) (string, bool) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", false
	}
	h := sha256.New()
	h.Write([]byte(version))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), true
}

// Get returns a copy of the cached vector for key if present.
func (c *VectorCache) Get(key string) (models.FeatureVector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return cloneVector(elem.Value.(*cacheEntry).value), true
	}
	return models.FeatureVector{}, false
}

// Set stores a copy of the vector for key, evicting the least recently used entry at capacity.
func (c *VectorCache) Set(key string, value models.FeatureVector) {
	value = cloneVector(value)
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	c.cache[key] = c.lru.PushFront(&cacheEntry{key: key, value: value})
	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached vectors.
func (c *VectorCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func cloneVector(v models.FeatureVector) models.FeatureVector {
	v.Values = slices.Clone(v.Values)
	return v
}
