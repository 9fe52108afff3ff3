package parser

import (
	"errors"
	"fmt"
)

var (
	ErrOpen        = errors.New("не удалось открыть файл")
	ErrCorrupt     = errors.New("файл поврежден")
	ErrNoText      = errors.New("в документе нет извлекаемого текста")
	ErrUnsupported = errors.New("неподдерживаемый формат файла")
	ErrTooLarge    = errors.New("файл слишком большой")
)

// ExtractionError ошибка извлечения текста из конкретного документа
type ExtractionError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("ошибка при извлечении текста из %s файла %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionError(path string, format Format, err error) error {
	return &ExtractionError{Path: path, Format: format, Err: err}
}

// FolderError ошибка обработки папки целиком
type FolderError struct {
	Folder string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("ошибка при обработке папки %s: %v", e.Folder, e.Err)
}

func (e *FolderError) Unwrap() error { return e.Err }
