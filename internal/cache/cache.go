package cache

import (
	"github.com/iTrooz/resource-cache/internal/digest"
	"github.com/iTrooz/resource-cache/internal/resource"

	"github.com/sirupsen/logrus"
)

// KeyPrefix starts every key derived from a resource address
const KeyPrefix = "cache."

// Key derives the storage key of an absolute address
func Key(address string) string {
	return KeyPrefix + digest.String(address)
}

// Cache stores raw resource bodies in a Storage and parses them on the way out
type Cache struct {
	storage Storage
}

// New creates a cache over storage
func New(storage Storage) *Cache {
	return &Cache{
		storage: storage,
	}
}

// Load returns the cached value of res. A missing entry and an entry the
// parser rejects are both reported as a miss.
func Load[A any](c *Cache, res resource.Resource[A]) (A, bool) {
	var zero A

	key := Key(res.Address())
	data, ok := c.storage.Get(key)
	if !ok {
		logrus.Debugf("Cache miss for %s", res.Address())
		return zero, false
	}

	value, err := res.Parse(data)
	if err != nil {
		logrus.Debugf("Cached entry %s for %s is not parseable, treating as miss: %v", key, res.Address(), err)
		return zero, false
	}

	logrus.Debugf("Cache hit for %s", res.Address())
	return value, true
}

// Save stores the raw body of res, not its parsed value
func Save[A any](c *Cache, data []byte, res resource.Resource[A]) {
	if data == nil {
		data = []byte{}
	}
	c.storage.Set(Key(res.Address()), data)
}

// Contains reports whether an entry exists for address
func (c *Cache) Contains(address string) bool {
	return c.storage.Exists(Key(address))
}

// Invalidate removes the entry for address
func (c *Cache) Invalidate(address string) {
	c.storage.Delete(Key(address))
}

// Clear removes every entry
func (c *Cache) Clear() {
	c.storage.Clear()
}
