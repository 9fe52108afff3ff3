package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"innscanner/logger"
	"innscanner/metrics"
)

// candidateGlob перечисляет документы с поддерживаемыми расширениями на любой глубине
const candidateGlob = "**/*.{pdf,xml}"

// Options настройки сканера
type Options struct {
	FolderKeyword string
	FileKeywords  []string
	// Workers сколько папок обрабатывается одновременно, 1 означает строго по очереди
	Workers      int
	Policy       FailurePolicy
	XMLMode      XMLMode
	MaxFileBytes int64
	Metrics      metrics.Recorder
}

// Scanner обходит папки заявок и собирает ИНН
type Scanner struct {
	opts      Options
	extractor Extractor
	metrics   metrics.Recorder
}

// NewScanner создает сканер, пустые поля заполняются значениями по умолчанию
func NewScanner(opts Options) *Scanner {
	if opts.FolderKeyword == "" {
		opts.FolderKeyword = DefaultFolderKeyword
	}
	if len(opts.FileKeywords) == 0 {
		opts.FileKeywords = DefaultFileKeywords
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Policy == "" {
		opts.Policy = PolicySkip
	}
	if opts.XMLMode == "" {
		opts.XMLMode = XMLRaw
	}
	rec := opts.Metrics
	if rec == nil {
		rec = metrics.Nop()
	}
	return &Scanner{
		opts:      opts,
		extractor: Extractor{XMLMode: opts.XMLMode, MaxBytes: opts.MaxFileBytes},
		metrics:   rec,
	}
}

// Options возвращает итоговые настройки
func (s *Scanner) Options() Options { return s.opts }

// ProcessFolder обходит поддерево папки и возвращает уникальные ИНН из всех выписок.
// Ошибка возвращается только при отмене контекста, сбое обхода или политике PolicyAbort;
// остальные сбои документов попадают в отчет.
func (s *Scanner) ProcessFolder(ctx context.Context, dir string) (FolderReport, error) {
	log := logger.FromContext(ctx).With("folder", dir)
	report := FolderReport{Name: filepath.Base(dir), Path: dir}
	seen := make(map[string]struct{})

	errStop := errors.New("stop")
	var failure error

	walkErr := doublestar.GlobWalk(os.DirFS(dir), candidateGlob, func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsCandidate(d.Name(), s.opts.FileKeywords) {
			return nil
		}
		format, _ := FormatOf(d.Name())
		path := filepath.Join(dir, filepath.FromSlash(p))

		result := s.processFile(path, format)
		report.Files = append(report.Files, result)
		if !result.OK() {
			if s.opts.Policy != PolicySkip {
				failure = result.Err
				return errStop
			}
			log.Warn("Документ пропущен", "file", path, "error", result.Err)
			return nil
		}
		for _, inn := range result.INNs {
			seen[inn] = struct{}{}
		}
		return nil
	}, doublestar.WithFilesOnly())

	switch {
	case walkErr == nil:
	case errors.Is(walkErr, errStop):
		folderErr := &FolderError{Folder: dir, Err: failure}
		if s.opts.Policy == PolicyAbort {
			return report, folderErr
		}
		log.Error("Папка отброшена из-за ошибки документа", "error", failure)
		report.Failed = folderErr
		report.Error = folderErr.Error()
		report.INNs = []string{}
		return report, nil
	case ctx.Err() != nil:
		return report, ctx.Err()
	default:
		return report, &FolderError{Folder: dir, Err: walkErr}
	}

	report.INNs = sortedKeys(seen)
	return report, nil
}

func (s *Scanner) processFile(path string, format Format) FileResult {
	result := FileResult{Path: path, Format: format}
	text, err := s.extractor.Extract(path, format)
	if err != nil {
		s.metrics.Document(string(format), metrics.OutcomeFailed)
		result.Err = err
		result.Error = err.Error()
		return result
	}
	s.metrics.Document(string(format), metrics.OutcomeOK)
	result.INNs = MatchINN(text)
	s.metrics.INNs(len(result.INNs))
	return result
}

// MatchFolders возвращает все каталоги ниже root (на любой глубине, без самого root),
// в имени которых есть ключевое слово без учета регистра. Порядок лексикографический.
func (s *Scanner) MatchFolders(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("каталог распаковки недоступен: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s не является каталогом", root)
	}

	fold := cases.Fold()
	keyword := fold.String(s.opts.FolderKeyword)
	log := logger.FromContext(ctx)

	var folders []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			log.Warn("Каталог пропущен", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if strings.Contains(fold.String(d.Name()), keyword) {
			folders = append(folders, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// Scan находит папки заявок под root, обрабатывает каждую и объединяет найденные ИНН.
// Отчеты идут в порядке обхода независимо от числа воркеров.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	folders, err := s.MatchFolders(ctx, root)
	if err != nil {
		return nil, err
	}

	reports := make([]FolderReport, len(folders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, dir := range folders {
		g.Go(func() error {
			log.Info("Обработка папки", "path", dir)
			report, err := s.ProcessFolder(gctx, dir)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ScanResult{FolderCount: len(folders), Folders: reports}
	union := make(map[string]struct{})
	for _, report := range reports {
		s.metrics.Folder(report.Empty())
		if report.Empty() {
			log.Warn("В папке не найдено ИНН", "folder", report.Name)
			continue
		}
		log.Info("Найденные ИНН", "folder", report.Name, "inns", strings.Join(report.INNs, ", "))
		for _, inn := range report.INNs {
			union[inn] = struct{}{}
		}
	}
	result.INNs = sortedKeys(union)
	s.metrics.ScanDuration(time.Since(start))
	log.Info("Сканирование завершено",
		"keyword", s.opts.FolderKeyword, "folders", result.FolderCount, "inns", len(result.INNs))
	return result, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
