// Package pipeline связывает распаковку архива, поиск ИНН в заявках и фильтрацию реестра.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"innscanner/archive"
	"innscanner/cache"
	"innscanner/logger"
	"innscanner/parser"
	"innscanner/registry"
)

// Предупреждения, при которых обработка завершается без ошибки
const (
	WarnEmptyArchive = "Архив пуст."
	WarnNoINN        = "Не найдено ИНН для фильтрации таблицы."
)

// ErrNoArchive архив еще не загружен
var ErrNoArchive = errors.New("архив не загружен")

// Report итог обработки архива
type Report struct {
	Files     []string           `json:"files"`
	Scan      *parser.ScanResult `json:"scan,omitempty"`
	Registry  string             `json:"registry,omitempty"`
	TotalRows int                `json:"total_rows"`
	Filtered  *registry.Table    `json:"filtered,omitempty"`
	Summary   *registry.Summary  `json:"summary,omitempty"`
	Warnings  []string           `json:"warnings,omitempty"`
}

func (r *Report) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// Pipeline обработка одного загруженного архива
type Pipeline struct {
	Scanner  *parser.Scanner
	Registry registry.Source
	// Tables кэш разобранных таблиц, nil отключает кэширование
	Tables cache.Cache[*registry.Table]
}

// Process распаковывает архив в extractDir, собирает ИНН и фильтрует по ним реестр.
// При ошибке чтения реестра возвращается и частичный отчет со списком ИНН.
func (p *Pipeline) Process(ctx context.Context, archivePath, extractDir string) (*Report, error) {
	log := logger.FromContext(ctx)
	if _, err := os.Stat(archivePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoArchive, archivePath)
	}

	// остатки прошлой распаковки не должны попасть в поиск
	if err := os.RemoveAll(extractDir); err != nil {
		return nil, fmt.Errorf("ошибка очистки каталога %s: %w", extractDir, err)
	}
	files, err := archive.Extract(ctx, archivePath, extractDir)
	if err != nil {
		return nil, err
	}
	report := &Report{Files: files}
	if len(files) == 0 {
		report.warn(WarnEmptyArchive)
		return report, nil
	}

	scan, err := p.Scanner.Scan(ctx, extractDir)
	if err != nil {
		return report, err
	}
	report.Scan = scan

	table, err := p.LoadTable(ctx)
	if err != nil {
		return report, err
	}
	report.Registry = table.Source
	report.TotalRows = table.Len()

	if len(scan.INNs) == 0 {
		report.warn(WarnNoINN)
		return report, nil
	}

	filtered := table.FilterByINN(scan.INNSet())
	summary := registry.Summarize(filtered)
	report.Filtered = filtered
	report.Summary = &summary
	log.Info("Реестр отфильтрован", "inns", len(scan.INNs), "rows", filtered.Len(), "total", table.Len())
	return report, nil
}

// LoadTable читает реестр, для файлов Excel через кэш
func (p *Pipeline) LoadTable(ctx context.Context) (*registry.Table, error) {
	if p.Registry == nil {
		return nil, errors.New("источник реестра не настроен")
	}
	key := tableKey(p.Registry)
	if p.Tables != nil && key != "" {
		if table, ok := p.Tables.Get(key); ok {
			logger.FromContext(ctx).Debug("Реестр взят из кэша", "key", key)
			return table, nil
		}
	}
	table, err := p.Registry.Load(ctx)
	if err != nil {
		return nil, err
	}
	if p.Tables != nil && key != "" {
		p.Tables.Set(key, table)
	}
	return table, nil
}

// tableKey меняется при любой перезаписи файла. Для БД кэш не используется.
func tableKey(src registry.Source) string {
	excel, ok := src.(registry.ExcelSource)
	if !ok {
		return ""
	}
	info, err := os.Stat(excel.Path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s|%s|%d|%d", excel.Path, excel.Sheet, info.Size(), info.ModTime().UnixNano())
}
