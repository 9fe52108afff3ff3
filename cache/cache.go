// Package cache трехуровневый FIFO кэш для разобранных таблиц реестра.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cache интерфейс для универсального кэша
type Cache[V any] interface {
	// Get возвращает значение по ключу и флаг наличия
	Get(key string) (V, bool)

	// Set устанавливает значение по ключу
	Set(key string, value V)

	// Remove удаляет значение по ключу
	Remove(key string)

	// Clear очищает весь кэш
	Clear()

	// GetMetrics возвращает статистику кэша
	GetMetrics() Metrics

	// Size возвращает текущий размер кэша
	Size() int

	// MaxSize возвращает максимальный размер кэша
	MaxSize() int
}

var _ Cache[int] = (*FIFO3Cache[int])(nil)

// Пороги обращений для перехода на уровень выше
const (
	promoteToWarm = 3
	promoteToHot  = 5
)

const (
	levelHot = iota
	levelWarm
	levelCold
	levelCount
)

type item[V any] struct {
	key         string
	value       V
	level       int
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// FIFO3Cache FIFO с тремя уровнями приоритета. Новые элементы попадают на холодный
// уровень, часто запрашиваемые поднимаются выше. Вытесняется самый старый элемент
// самого холодного непустого уровня.
type FIFO3Cache[V any] struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	levels  [levelCount]*list.List
	maxSize int

	hits, misses, evictions int
	totalAccessTime         time.Duration
	accessCount             int
}

// NewFIFO3Cache создает новый FIFO3 кэш
func NewFIFO3Cache[V any](maxSize int) *FIFO3Cache[V] {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &FIFO3Cache[V]{
		index:   make(map[string]*list.Element),
		maxSize: maxSize,
	}
	for i := range c.levels {
		c.levels[i] = list.New()
	}
	return c
}

// Get возвращает значение по ключу
func (c *FIFO3Cache[V]) Get(key string) (V, bool) {
	start := time.Now()
	c.mu.Lock()
	defer func() {
		c.totalAccessTime += time.Since(start)
		c.accessCount++
		c.mu.Unlock()
	}()

	el, found := c.index[key]
	if !found {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++

	it := el.Value.(*item[V])
	it.lastAccess = time.Now()
	it.accessCount++
	switch {
	case it.level == levelCold && it.accessCount > promoteToWarm:
		c.move(el, levelWarm)
	case it.level == levelWarm && it.accessCount > promoteToHot:
		c.move(el, levelHot)
	}
	return it.value, true
}

func (c *FIFO3Cache[V]) move(el *list.Element, level int) {
	it := el.Value.(*item[V])
	c.levels[it.level].Remove(el)
	it.level = level
	c.index[it.key] = c.levels[level].PushBack(it)
}

// Set устанавливает значение по ключу
func (c *FIFO3Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, exists := c.index[key]; exists {
		it := el.Value.(*item[V])
		it.value = value
		it.lastAccess = time.Now()
		return
	}

	if len(c.index) >= c.maxSize {
		c.evict()
	}

	now := time.Now()
	it := &item[V]{key: key, value: value, level: levelCold, createdAt: now, lastAccess: now, accessCount: 1}
	c.index[key] = c.levels[levelCold].PushBack(it)
}

// evict вытесняет один элемент по алгоритму FIFO
func (c *FIFO3Cache[V]) evict() {
	for level := levelCold; level >= levelHot; level-- {
		if front := c.levels[level].Front(); front != nil {
			c.levels[level].Remove(front)
			delete(c.index, front.Value.(*item[V]).key)
			c.evictions++
			return
		}
	}
}

// Remove удаляет значение по ключу
func (c *FIFO3Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, exists := c.index[key]; exists {
		c.levels[el.Value.(*item[V]).level].Remove(el)
		delete(c.index, key)
	}
}

// Clear очищает весь кэш, счетчики сохраняются
func (c *FIFO3Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]*list.Element)
	for i := range c.levels {
		c.levels[i].Init()
	}
}

// Size возвращает текущий размер кэша
func (c *FIFO3Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// MaxSize возвращает максимальный размер кэша
func (c *FIFO3Cache[V]) MaxSize() int {
	return c.maxSize
}
