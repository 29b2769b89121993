package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", "value")
	v, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestExpiry(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute})
	defer c.Close()

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	evicted := map[string]any{}
	c := New(Config{
		DefaultTTL: time.Minute,
		OnEviction: func(key string, value any) { evicted[key] = value },
	})
	defer c.Close()

	c.Set("key", "value")
	c.Delete("key")

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, "value", evicted["key"])
}

func TestMaxItemsEviction(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxItems: 2})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	count := 0
	for _, key := range []string{"a", "b", "c"} {
		if _, ok := c.Get(key); ok {
			count++
		}
	}
	assert.Equal(t, 2, count)

	// Overwriting an existing key does not evict.
	_, cOk := c.Get("c")
	assert.True(t, cOk)
}
