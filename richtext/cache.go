package richtext

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
)

// Cache memoizes Serialize for raw inputs, keyed by a hash of the input.
// Entries are last-writer-wins; a miss only costs a re-render.
type Cache struct {
	cache *cache.Cache
}

// NewCache creates a cache whose entries expire after ttl. A ttl <= 0 keeps
// entries until Flush.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{cache: cache.New(cache.NoExpiration, 0)}
	}
	return &Cache{cache: cache.New(ttl, 2*ttl)}
}

// Serialize is Serialize with memoization. Only string, []byte and
// json.RawMessage inputs are cached; decoded trees are rendered directly.
func (c *Cache) Serialize(input any) string {
	key, ok := cacheKey(input)
	if !ok {
		return Serialize(input)
	}
	if v, found := c.cache.Get(key); found {
		return v.(string)
	}
	out := Serialize(input)
	c.cache.Set(key, out, cache.DefaultExpiration)
	return out
}

func (c *Cache) Len() int {
	return c.cache.ItemCount()
}

func (c *Cache) Flush() {
	c.cache.Flush()
}

// cacheKey prefixes the hash with the input type: a string and a byte
// slice with the same content do not serialize alike.
func cacheKey(input any) (string, bool) {
	switch v := input.(type) {
	case string:
		return "s" + strconv.FormatUint(xxhash.Sum64String(v), 16), true
	case []byte:
		return "b" + strconv.FormatUint(xxhash.Sum64(v), 16), true
	case json.RawMessage:
		return "b" + strconv.FormatUint(xxhash.Sum64(v), 16), true
	}
	return "", false
}
