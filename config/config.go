// Package config собирает настройки приложения из значений по умолчанию, YAML файла,
// файла .env и переменных окружения с префиксом INNSCAN_.
package config

import (
	"time"

	"innscanner/parser"
)

// Config настройки приложения
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	Scan      ScanConfig      `koanf:"scan"`
	Registry  RegistryConfig  `koanf:"registry"`
	Cache     CacheConfig     `koanf:"cache"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig веб интерфейс
type ServerConfig struct {
	Addr           string        `koanf:"addr"             validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes" validate:"min=1"`
}

// WorkspaceConfig временные файлы загрузки
type WorkspaceConfig struct {
	ArchivePath string `koanf:"archive_path" validate:"required"`
	ExtractDir  string `koanf:"extract_dir"  validate:"required"`
}

// ScanConfig поиск ИНН в папках заявок
type ScanConfig struct {
	FolderKeyword string   `koanf:"folder_keyword" validate:"required"`
	FileKeywords  []string `koanf:"file_keywords"  validate:"required,min=1,dive,required"`
	Workers       int      `koanf:"workers"        validate:"min=1,max=64"`
	FailurePolicy string   `koanf:"failure_policy" validate:"oneof=skip folder abort"`
	XMLMode       string   `koanf:"xml_mode"       validate:"oneof=raw fields"`
	MaxFileBytes  int64    `koanf:"max_file_bytes" validate:"min=1"`
}

// RegistryConfig реестр контрактов. Непустой DSN переключает чтение на PostgreSQL.
type RegistryConfig struct {
	Path  string `koanf:"path"`
	Sheet string `koanf:"sheet"`
	DSN   string `koanf:"dsn"`
	Table string `koanf:"table" validate:"required"`
}

// CacheConfig кэш разобранных таблиц
type CacheConfig struct {
	MaxSize int `koanf:"max_size" validate:"min=1"`
}

// LogConfig журналирование
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `koanf:"json"`
}

// Default значения по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			MaxUploadBytes: 256 << 20,
		},
		Workspace: WorkspaceConfig{
			ArchivePath: "uploaded_archive.zip",
			ExtractDir:  "extracted_files",
		},
		Scan: ScanConfig{
			FolderKeyword: parser.DefaultFolderKeyword,
			FileKeywords:  append([]string(nil), parser.DefaultFileKeywords...),
			Workers:       1,
			FailurePolicy: string(parser.PolicySkip),
			XMLMode:       string(parser.XMLRaw),
			MaxFileBytes:  parser.DefaultMaxFileBytes,
		},
		Registry: RegistryConfig{
			Path:  "db/ДАННЫЕ ДИПЛОМ БОЛЬШИЕ.xlsx",
			Table: "contracts",
		},
		Cache: CacheConfig{MaxSize: 16},
		Log:   LogConfig{Level: "info"},
	}
}
