// Package archive распаковывает загруженные ZIP архивы с заявками и убирает временные файлы.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"innscanner/logger"
)

// ErrCorruptArchive архив не читается или не сходится контрольная сумма
var ErrCorruptArchive = errors.New("ZIP архив поврежден или имеет неподдерживаемый формат")

// ErrUnsafePath запись архива указывает за пределы каталога распаковки
var ErrUnsafePath = errors.New("недопустимый путь в архиве")

// Extract проверяет архив целиком и распаковывает его в dir.
// Возвращает отсортированные имена верхнего уровня в dir.
func Extract(ctx context.Context, zipPath, dir string) ([]string, error) {
	log := logger.FromContext(ctx)

	// небезопасные имена отсекает safeJoin при распаковке
	zr, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ошибка при извлечении ZIP архива: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	defer zr.Close()

	if err := verify(ctx, &zr.Reader); err != nil {
		return nil, err
	}
	log.Debug("ZIP архив не поврежден", "path", zipPath, "entries", len(zr.File))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога %s: %w", dir, err)
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := extractEntry(f, base); err != nil {
			return nil, err
		}
	}
	log.Info("Файлы извлечены", "dir", dir)

	return topLevel(dir)
}

// verify читает каждую запись до конца, zip сверяет CRC32 на EOF
func verify(ctx context.Context, zr *zip.Reader) error {
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, EntryName(f), err)
		}
		_, err = io.Copy(io.Discard, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, EntryName(f), err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, base string) error {
	name := EntryName(f)
	target, err := safeJoin(base, name)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() || strings.HasSuffix(name, "/") {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: %s: %v", ErrCorruptArchive, name, err)
	}
	return out.Close()
}

// EntryName имя записи в UTF-8. Архиваторы Windows пишут кириллицу в CP866 без флага UTF-8.
func EntryName(f *zip.File) string {
	if f.NonUTF8 && !utf8.ValidString(f.Name) {
		if decoded, err := charmap.CodePage866.NewDecoder().String(f.Name); err == nil {
			return decoded
		}
	}
	return f.Name
}

func safeJoin(base, name string) (string, error) {
	clean := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(base, clean)
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func topLevel(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Clear удаляет архив и каталог распаковки. Отсутствующие пути не считаются ошибкой.
func Clear(archivePath, dir string) error {
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка при удалении временных файлов: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("ошибка при удалении временных файлов: %w", err)
	}
	return nil
}
