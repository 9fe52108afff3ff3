package parser

import (
	"fmt"
	"strings"
)

// Format тип документа выписки
type Format string

const (
	FormatXML Format = "xml"
	FormatPDF Format = "pdf"
)

// FormatOf определяет формат по расширению. Сравнение чувствительно к регистру,
// "выписка.PDF" не считается документом.
func FormatOf(name string) (Format, bool) {
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return FormatPDF, true
	case strings.HasSuffix(name, ".xml"):
		return FormatXML, true
	default:
		return "", false
	}
}

// DefaultFileKeywords подстроки имени файла выписки
var DefaultFileKeywords = []string{"ЕГРЮЛ", "Выписка"}

// DefaultFolderKeyword подстрока имени папки заявки
const DefaultFolderKeyword = "Заявка"

// IsCandidate решает, обрабатывать ли файл: имя должно содержать одно из ключевых
// слов (с учетом регистра) И оканчиваться на .pdf или .xml. Расширение проверяется
// для всех ключевых слов, а не только для последнего.
func IsCandidate(name string, keywords []string) bool {
	if _, ok := FormatOf(name); !ok {
		return false
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// FailurePolicy что делать, если документ не удалось прочитать
type FailurePolicy string

const (
	// PolicySkip пропускает файл, соседние файлы продолжают давать ИНН
	PolicySkip FailurePolicy = "skip"
	// PolicyFolder отбрасывает все ИНН папки, остальные папки обрабатываются
	PolicyFolder FailurePolicy = "folder"
	// PolicyAbort прерывает все сканирование первой же ошибкой
	PolicyAbort FailurePolicy = "abort"
)

// ParsePolicy разбирает значение политики из конфигурации
func ParsePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyFolder, PolicyAbort:
		return p, nil
	default:
		return "", fmt.Errorf("неизвестная политика ошибок: %q", s)
	}
}

// XMLMode как искать ИНН в XML
type XMLMode string

const (
	// XMLRaw ищет по сырому тексту файла
	XMLRaw XMLMode = "raw"
	// XMLFields ищет по плоскому списку "имя: значение" из элементов и атрибутов
	XMLFields XMLMode = "fields"
)

// FileResult результат обработки одного документа
type FileResult struct {
	Path   string   `json:"path"`
	Format Format   `json:"format"`
	INNs   []string `json:"inns,omitempty"`
	Error  string   `json:"error,omitempty"`
	Err    error    `json:"-"`
}

// OK документ прочитан без ошибок
func (f FileResult) OK() bool { return f.Err == nil }

// FolderReport результат обработки папки заявки
type FolderReport struct {
	Name   string       `json:"folder_name"`
	Path   string       `json:"path"`
	INNs   []string     `json:"inn_list"`
	Files  []FileResult `json:"files"`
	Error  string       `json:"error,omitempty"`
	Failed error        `json:"-"`
}

// Empty в папке не найдено ни одного ИНН
func (r FolderReport) Empty() bool { return len(r.INNs) == 0 }

// Failures документы, которые не удалось обработать
func (r FolderReport) Failures() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if !f.OK() {
			out = append(out, f)
		}
	}
	return out
}

// ScanResult итог по всем папкам заявок
type ScanResult struct {
	INNs        []string       `json:"inns"`
	FolderCount int            `json:"folder_count"`
	Folders     []FolderReport `json:"folders"`
}

// INNSet набор ИНН для фильтрации таблицы контрактов
func (r *ScanResult) INNSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.INNs))
	for _, inn := range r.INNs {
		set[inn] = struct{}{}
	}
	return set
}
