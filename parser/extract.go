package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// DefaultMaxFileBytes предел размера одного документа
const DefaultMaxFileBytes int64 = 64 << 20

// Extractor достает текст из документов выписок
type Extractor struct {
	XMLMode  XMLMode
	MaxBytes int64
}

// ExtractText достает текст документа с настройками по умолчанию
func ExtractText(path string, format Format) (string, error) {
	return Extractor{}.Extract(path, format)
}

// Extract возвращает текст документа. Любая ошибка оборачивается в *ExtractionError с путем файла.
func (e Extractor) Extract(path string, format Format) (string, error) {
	maxBytes := e.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	var (
		text string
		err  error
	)
	switch format {
	case FormatXML:
		text, err = extractXML(path, maxBytes, e.XMLMode)
	case FormatPDF:
		text, err = extractPDF(path, maxBytes)
	default:
		err = ErrUnsupported
	}
	if err != nil {
		return "", extractionError(path, format, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", extractionError(path, format, ErrNoText)
	}
	return text, nil
}

func openLimited(path string, maxBytes int64) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if info.Size() > maxBytes {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %d байт, допустимо %d", ErrTooLarge, info.Size(), maxBytes)
	}
	return f, info.Size(), nil
}

// extractPDF склеивает текст всех страниц по порядку
func extractPDF(path string, maxBytes int64) (text string, err error) {
	file, size, err := openLimited(path, maxBytes)
	if err != nil {
		return "", err
	}
	defer file.Close()

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if !mt.Is("application/pdf") {
		return "", fmt.Errorf("%w: содержимое %s вместо PDF", ErrUnsupported, mt.String())
	}

	// pdf паникует на некоторых битых файлах
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	reader, err := pdf.NewReader(file, size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var content strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: страница %d: %v", ErrCorrupt, pageIndex, err)
		}
		content.WriteString(pageText)
	}
	return content.String(), nil
}

func extractXML(path string, maxBytes int64, mode XMLMode) (string, error) {
	file, _, err := openLimited(path, maxBytes)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrNoText
	}
	if mt := mimetype.Detect(data); !isTextual(mt) {
		return "", fmt.Errorf("%w: содержимое %s вместо XML", ErrUnsupported, mt.String())
	}

	if mode == XMLFields {
		return flattenXML(data)
	}
	return decodeText(data)
}

func isTextual(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("text/xml") || m.Is("application/xml") {
			return true
		}
	}
	return false
}

var xmlEncodingDecl = regexp.MustCompile(`^\s*<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText возвращает содержимое как UTF-8. Выписки ФНС часто приходят в
// windows-1251: кодировка берется из пролога XML, иначе угадывается.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, name := detectEncoding(data)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("%w: перекодировка из %s: %v", ErrCorrupt, name, err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("%w: после перекодировки из %s получен не UTF-8", ErrCorrupt, name)
	}
	return string(decoded), nil
}

// detectEncoding без объявления и без уверенного определения считает файл windows-1251
func detectEncoding(data []byte) (encoding.Encoding, string) {
	if m := xmlEncodingDecl.FindSubmatch(data); m != nil {
		if enc, name := charset.Lookup(string(m[1])); enc != nil {
			return enc, name
		}
	}
	enc, name, certain := charset.DetermineEncoding(data, "text/xml")
	if !certain {
		if cp1251, cpName := charset.Lookup("windows-1251"); cp1251 != nil {
			return cp1251, cpName
		}
	}
	return enc, name
}

// flattenXML превращает дерево элементов в строки "имя: значение" для атрибутов и
// текстовых узлов, так что <СвЮЛ ИНН="7712345678"> дает "ИНН: 7712345678".
func flattenXML(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) && xmlEncodingDecl.Find(data) == nil {
		decoded, err := decodeText(data)
		if err != nil {
			return "", err
		}
		data = []byte(decoded)
	}
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		out   strings.Builder
		stack []string
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			for _, attr := range t.Attr {
				fmt.Fprintf(&out, "%s: %s\n", attr.Name.Local, attr.Value)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if value := strings.TrimSpace(string(t)); value != "" && len(stack) > 0 {
				fmt.Fprintf(&out, "%s: %s\n", stack[len(stack)-1], value)
			}
		}
	}
	return out.String(), nil
}
