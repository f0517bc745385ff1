package cache

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/lapidary/config"
)

func TestKeySeparatesParts(t *testing.T) {
	is := is.New(t)
	is.True(Key([]byte("ab"), []byte("c")) != Key([]byte("a"), []byte("bc")))
	is.Equal(Key([]byte("x")), Key([]byte("x")))
}

func TestLoadOnce(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	calls := 0
	loader := func(cfg *config.Config, key string) (any, error) {
		calls++
		return key + "!", nil
	}
	cfg := config.DefaultConfig()
	obj, err := Load(cfg, "catalog", loader)
	is.NoErr(err)
	is.Equal(obj.(string), "catalog!")
	_, err = Load(cfg, "catalog", loader)
	is.NoErr(err)
	is.Equal(calls, 1)
}

func TestLoadErrorNotCached(t *testing.T) {
	is := is.New(t)
	CreateGlobalObjectCache()
	boom := errors.New("boom")
	_, err := Load(config.DefaultConfig(), "bad", func(*config.Config, string) (any, error) {
		return nil, boom
	})
	is.True(errors.Is(err, boom))
	is.Equal(Len(), 0)
}

func TestEviction(t *testing.T) {
	is := is.New(t)
	GlobalObjectCache = newCache(2)
	Put(1, "a")
	Put(2, "b")
	Put(3, "c")
	_, ok := Get(1)
	is.True(!ok)
	v, ok := Get(3)
	is.True(ok)
	is.Equal(v.(string), "c")
	is.Equal(Len(), 2)
}
