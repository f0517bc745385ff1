package cache

import (
	"sync"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"

	"github.com/domino14/lapidary/config"
)

// The cache holds objects that are expensive to build and are looked up
// repeatedly from the shell: parsed catalog files and finished optimizer
// results. Entries are keyed by a 64-bit xxhash and evicted oldest first
// once the cache is full.

const DefaultLimit = 256

type cache struct {
	sync.Mutex
	objects map[uint64]any
	order   []uint64
	limit   int
}

type loadFunc func(cfg *config.Config, key string) (any, error)

// GlobalObjectCache is shared by every package that caches.
var GlobalObjectCache *cache

func newCache(limit int) *cache {
	return &cache{objects: make(map[uint64]any), limit: limit}
}

// Key hashes parts into a cache key. Parts are separated so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...[]byte) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		d.Write(p)
		d.Write([]byte{0})
	}
	return d.Sum64()
}

func (c *cache) store(key uint64, obj any) {
	if _, ok := c.objects[key]; !ok {
		c.order = append(c.order, key)
	}
	c.objects[key] = obj
	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.objects, oldest)
		log.Debug().Uint64("key", oldest).Msg("evicted-from-cache")
	}
}

func (c *cache) get(cfg *config.Config, name string, loadFunc loadFunc) (any, error) {
	key := Key([]byte(name))
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("name", name).Msg("getting-obj-from-cache")
		return obj, nil
	}
	log.Debug().Str("name", name).Msg("loading-into-cache")
	obj, err := loadFunc(cfg, name)
	if err != nil {
		return nil, err
	}
	c.store(key, obj)
	return obj, nil
}

func CreateGlobalObjectCache() {
	GlobalObjectCache = newCache(DefaultLimit)
}

func global() *cache {
	if GlobalObjectCache == nil {
		CreateGlobalObjectCache()
	}
	return GlobalObjectCache
}

// Load returns the object cached under name, building it with loadFunc the
// first time.
func Load(cfg *config.Config, name string, loadFunc loadFunc) (any, error) {
	return global().get(cfg, name, loadFunc)
}

// Get looks up an object stored with Put.
func Get(key uint64) (any, bool) {
	c := global()
	c.Lock()
	defer c.Unlock()
	obj, ok := c.objects[key]
	return obj, ok
}

func Put(key uint64, obj any) {
	c := global()
	c.Lock()
	defer c.Unlock()
	c.store(key, obj)
}

// Len is the number of cached objects.
func Len() int {
	c := global()
	c.Lock()
	defer c.Unlock()
	return len(c.objects)
}
