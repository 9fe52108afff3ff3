package cache

import (
	"fmt"
	"time"
)

// Metrics метрики кэша
type Metrics struct {
	Level1Size        int           `json:"level1_size"`
	Level2Size        int           `json:"level2_size"`
	Level3Size        int           `json:"level3_size"`
	TotalSize         int           `json:"total_size"`
	MaxSize           int           `json:"max_size"`
	Hits              int           `json:"hits"`
	Misses            int           `json:"misses"`
	HitRate           float64       `json:"hit_rate"`
	EvictionCount     int           `json:"eviction_count"`
	AverageAccessTime time.Duration `json:"average_access_time_ns"`
}

// GetMetrics возвращает метрики кэша
func (c *FIFO3Cache[V]) GetMetrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := 0.0
	if c.hits+c.misses > 0 {
		hitRate = float64(c.hits) / float64(c.hits+c.misses)
	}

	avgAccessTime := time.Duration(0)
	if c.accessCount > 0 {
		avgAccessTime = c.totalAccessTime / time.Duration(c.accessCount)
	}

	return Metrics{
		Level1Size:        c.levels[levelHot].Len(),
		Level2Size:        c.levels[levelWarm].Len(),
		Level3Size:        c.levels[levelCold].Len(),
		TotalSize:         len(c.index),
		MaxSize:           c.maxSize,
		Hits:              c.hits,
		Misses:            c.misses,
		HitRate:           hitRate,
		EvictionCount:     c.evictions,
		AverageAccessTime: avgAccessTime,
	}
}

// String возвращает строковое представление метрик
func (m Metrics) String() string {
	return fmt.Sprintf(
		"Cache Metrics: Level1=%d, Level2=%d, Level3=%d, Total=%d/%d, HitRate=%.2f%%, Evictions=%d, AvgAccessTime=%v",
		m.Level1Size, m.Level2Size, m.Level3Size, m.TotalSize, m.MaxSize, m.HitRate*100, m.EvictionCount, m.AverageAccessTime,
	)
}
