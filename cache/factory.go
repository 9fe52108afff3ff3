package cache

import "fmt"

// CacheType тип кэша
type CacheType string

const (
	FIFO3CacheType CacheType = "fifo3"
)

// Config конфигурация для создания кэша
type Config struct {
	Type    CacheType
	MaxSize int
}

// New создает кэш по конфигурации. Пустой тип означает FIFO3.
func New[V any](config Config) (Cache[V], error) {
	switch config.Type {
	case "", FIFO3CacheType:
		return NewFIFO3Cache[V](config.MaxSize), nil
	default:
		return nil, fmt.Errorf("неизвестный тип кэша: %s", config.Type)
	}
}
