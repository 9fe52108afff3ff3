package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"innscanner/parser"
	"innscanner/pipeline"
	"innscanner/registry"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScan(w io.Writer, keyword string, result *parser.ScanResult) {
	for _, folder := range result.Folders {
		fmt.Fprintf(w, "Обработка папки: %s\n", folder.Path)
		for _, f := range folder.Failures() {
			fmt.Fprintf(w, "  ошибка: %s\n", f.Error)
		}
		if folder.Failed != nil {
			fmt.Fprintf(w, "  папка отброшена: %v\n", folder.Failed)
		}
		if folder.Empty() {
			fmt.Fprintf(w, "В папке %s не найдено ИНН.\n", folder.Name)
			continue
		}
		fmt.Fprintf(w, "Найденные ИНН в папке %s: %s\n", folder.Name, strings.Join(folder.INNs, ", "))
	}
	fmt.Fprintf(w, "Количество папок с '%s' в названии: %d\n", keyword, result.FolderCount)
	fmt.Fprintf(w, "Всего уникальных ИНН: %d\n", len(result.INNs))
	for _, inn := range result.INNs {
		fmt.Fprintln(w, inn)
	}
}

func printReport(w io.Writer, keyword string, report *pipeline.Report) {
	if len(report.Files) > 0 {
		fmt.Fprintln(w, "Список файлов в архиве:")
		for _, f := range report.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	if report.Scan != nil {
		printScan(w, keyword, report.Scan)
	}
	if report.Registry != "" {
		fmt.Fprintf(w, "Реестр %s: %d строк\n", report.Registry, report.TotalRows)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintln(w, warning)
	}
	if report.Filtered != nil {
		fmt.Fprintf(w, "Отфильтрованные строки по найденным ИНН: %d\n", report.Filtered.Len())
	}
	if report.Summary != nil {
		printSummary(w, report.Summary)
	}
}

func printSummary(w io.Writer, s *registry.Summary) {
	fmt.Fprintln(w, "Распределение по законам:")
	for _, l := range s.Laws {
		fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", l.Law, l.Count, l.Percent)
	}
	fmt.Fprintln(w, "Топ ответственных лиц:")
	for _, r := range s.Responsible {
		fmt.Fprintf(w, "  %s: %d\n", r.Name, r.Count)
	}
	fmt.Fprintln(w, "Топ поставщиков по сумме контрактов:")
	for _, sup := range s.Suppliers {
		fmt.Fprintf(w, "  %s: %.2f\n", sup.INN, sup.Total)
	}
	fmt.Fprintln(w, "Топ-10 закупок с наибольшей экономией:")
	for _, e := range s.Savings {
		fmt.Fprintf(w, "  %s (%s): %.2f\n", e.Purchase, e.Law, e.Savings)
	}
}
