package registry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"innscanner/logger"
)

// ExcelSource реестр в книге Excel. Пустой Sheet означает первый лист.
type ExcelSource struct {
	Path  string
	Sheet string
}

func (s ExcelSource) String() string { return s.Path }

// Load читает лист целиком. Первая строка считается заголовком.
func (s ExcelSource) Load(ctx context.Context) (*Table, error) {
	if _, err := os.Stat(s.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, err
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия таблицы %s: %w", s.Path, err)
	}
	defer f.Close()

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("в книге %s нет листов", s.Path)
		}
		sheet = sheets[0]
	}

	// сырые значения: даты приходят номером дня, суммы без форматирования
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения листа %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: лист %s пуст", ErrMissingColumn, sheet)
	}

	index, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	table := &Table{Source: s.Path, Rows: make([]Contract, 0, len(rows)-1)}
	for i, row := range rows[1:] {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(row) {
			continue
		}
		values := make(map[string]string, len(index))
		for col, pos := range index {
			if pos < len(row) {
				values[col] = row[pos]
			}
		}
		table.Rows = append(table.Rows, newContract(values))
	}

	logger.FromContext(ctx).Info("Реестр загружен", "path", s.Path, "sheet", sheet, "rows", table.Len())
	return table, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if trimHeader(cell) != "" {
			return false
		}
	}
	return true
}
