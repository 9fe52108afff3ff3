package parser

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildPDF собирает минимальный одностраничный PDF без шрифтов, строки выводятся как есть
func buildPDF(lines ...string) []byte {
	return buildPDFPages(lines)
}

// buildPDFPages собирает PDF из нескольких страниц. Страница nil учитывается в /Count,
// но отсутствует в /Kids, такую страницу библиотека отдает пустой.
func buildPDFPages(pages ...[]string) []byte {
	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>", ""}
	var kids []string
	for _, lines := range pages {
		if lines == nil {
			continue
		}
		stream := pageStream(lines)
		pageObj := len(objects) + 1
		kids = append(kids, fmt.Sprintf("%d 0 R", pageObj))
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R >>", pageObj+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}
	objects[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func pageStream(lines []string) string {
	var content strings.Builder
	content.WriteString("BT\n")
	for i, line := range lines {
		if i > 0 {
			content.WriteString("T*\n")
		}
		escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
		fmt.Fprintf(&content, "(%s) Tj\n", escaped)
	}
	content.WriteString("ET")
	return content.String()
}

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writePDF(t *testing.T, path string, lines ...string) string {
	t.Helper()
	return writeFile(t, path, buildPDF(lines...))
}

func writeXML(t *testing.T, path, body string) string {
	t.Helper()
	return writeFile(t, path, []byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+body))
}
