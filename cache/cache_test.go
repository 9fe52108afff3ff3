package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO3Cache(t *testing.T) {
	t.Run("Should store and return values", func(t *testing.T) {
		c := NewFIFO3Cache[int](4)
		c.Set("a", 1)

		v, ok := c.Get("a")

		assert.True(t, ok)
		assert.Equal(t, 1, v)
		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("Should evict oldest cold entry first", func(t *testing.T) {
		c := NewFIFO3Cache[string](2)
		c.Set("first", "1")
		c.Set("second", "2")
		c.Set("third", "3")

		_, hasFirst := c.Get("first")
		_, hasSecond := c.Get("second")
		_, hasThird := c.Get("third")

		assert.False(t, hasFirst)
		assert.True(t, hasSecond)
		assert.True(t, hasThird)
		assert.Equal(t, 2, c.Size())
		assert.Equal(t, 1, c.GetMetrics().EvictionCount)
	})

	t.Run("Should promote frequently read entries and protect them from eviction", func(t *testing.T) {
		c := NewFIFO3Cache[int](2)
		c.Set("hot", 1)
		for i := 0; i < 3; i++ {
			c.Get("hot")
		}
		m := c.GetMetrics()
		assert.Equal(t, 1, m.Level2Size)

		c.Set("cold", 2)
		c.Set("newer", 3)

		_, hasHot := c.Get("hot")
		_, hasCold := c.Get("cold")
		assert.True(t, hasHot)
		assert.False(t, hasCold)
	})

	t.Run("Should reach hot level", func(t *testing.T) {
		c := NewFIFO3Cache[int](2)
		c.Set("k", 1)
		for i := 0; i < 5; i++ {
			c.Get("k")
		}

		m := c.GetMetrics()

		assert.Equal(t, 1, m.Level1Size)
		assert.Zero(t, m.Level2Size)
		assert.Zero(t, m.Level3Size)
	})

	t.Run("Should overwrite existing value without growing", func(t *testing.T) {
		c := NewFIFO3Cache[int](2)
		c.Set("a", 1)
		c.Set("a", 2)

		v, _ := c.Get("a")

		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Size())
	})

	t.Run("Should remove and clear", func(t *testing.T) {
		c := NewFIFO3Cache[int](3)
		c.Set("a", 1)
		c.Set("b", 2)
		c.Remove("a")
		assert.Equal(t, 1, c.Size())

		c.Clear()

		assert.Zero(t, c.Size())
		_, ok := c.Get("b")
		assert.False(t, ok)
	})

	t.Run("Should compute hit rate", func(t *testing.T) {
		c := NewFIFO3Cache[int](3)
		c.Set("a", 1)
		c.Get("a")
		c.Get("b")

		m := c.GetMetrics()

		assert.Equal(t, 1, m.Hits)
		assert.Equal(t, 1, m.Misses)
		assert.InDelta(t, 0.5, m.HitRate, 1e-9)
		assert.Contains(t, m.String(), "HitRate=50.00%")
	})

	t.Run("Should be safe for concurrent use", func(t *testing.T) {
		c := NewFIFO3Cache[int](8)
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("k%d", i%10)
				for j := 0; j < 100; j++ {
					c.Set(key, j)
					c.Get(key)
				}
			}(i)
		}
		wg.Wait()

		assert.LessOrEqual(t, c.Size(), 8)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should default to FIFO3", func(t *testing.T) {
		c, err := New[string](Config{MaxSize: 5})

		require.NoError(t, err)
		assert.Equal(t, 5, c.MaxSize())
	})

	t.Run("Should reject unknown type", func(t *testing.T) {
		_, err := New[string](Config{Type: "lru"})

		assert.Error(t, err)
	})
}
