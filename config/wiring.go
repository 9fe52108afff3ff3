package config

import (
	"context"

	"innscanner/cache"
	"innscanner/logger"
	"innscanner/metrics"
	"innscanner/parser"
	"innscanner/registry"
)

// LoggerConfig настройки логгера
func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(c.Log.Level)
	cfg.JSON = c.Log.JSON
	return cfg
}

// ScannerOptions настройки сканера папок заявок
func (c *Config) ScannerOptions(rec metrics.Recorder) parser.Options {
	return parser.Options{
		FolderKeyword: c.Scan.FolderKeyword,
		FileKeywords:  c.Scan.FileKeywords,
		Workers:       c.Scan.Workers,
		Policy:        parser.FailurePolicy(c.Scan.FailurePolicy),
		XMLMode:       parser.XMLMode(c.Scan.XMLMode),
		MaxFileBytes:  c.Scan.MaxFileBytes,
		Metrics:       rec,
	}
}

// TableCache настройки кэша таблиц
func (c *Config) TableCache() cache.Config {
	return cache.Config{Type: cache.FIFO3CacheType, MaxSize: c.Cache.MaxSize}
}

// OpenRegistry открывает источник реестра. Возвращаемую функцию нужно вызвать по завершении.
func (c *Config) OpenRegistry(ctx context.Context) (registry.Source, func() error, error) {
	if c.Registry.DSN == "" {
		return registry.ExcelSource{Path: c.Registry.Path, Sheet: c.Registry.Sheet}, func() error { return nil }, nil
	}
	src, err := registry.OpenSQL(ctx, c.Registry.DSN, c.Registry.Table)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}
