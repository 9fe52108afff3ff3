package registry

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
)

func trimHeader(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}

// NormalizeINN приводит ИНН из таблицы к тексту. Числовые ячейки Excel
// иногда приходят как "7707083893.0".
func NormalizeINN(s string) string {
	s = strings.TrimSpace(s)
	if head, tail, ok := strings.Cut(s, "."); ok && strings.Trim(tail, "0") == "" && head != "" {
		s = head
	}
	return s
}

// ParseAmount разбирает денежную сумму. Число в записи Excel (в том числе 1.5E+20)
// читается как есть, иначе запятая считается десятичным разделителем,
// а все символы кроме цифр и точки отбрасываются. Знак не учитывается.
// Неразборчивое значение невалидно.
func ParseAmount(value string) sql.NullFloat64 {
	value = strings.TrimSpace(value)
	if isNumeric(value) {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(floatVal, 0) {
			return sql.NullFloat64{Float64: math.Abs(floatVal), Valid: true}
		}
	}
	cleaned := strings.ReplaceAll(value, ",", ".")
	cleaned = strings.Map(func(r rune) rune {
		if r == '.' || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, cleaned)
	if cleaned == "" {
		return sql.NullFloat64{Valid: false}
	}
	floatVal, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: floatVal, Valid: true}
}

// isNumeric пропускает только цифры, точку, знак и экспоненту,
// чтобы NaN, Inf и шестнадцатеричные записи шли через очистку
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == 'e', r == 'E', r == '+', r == '-':
		default:
			return false
		}
	}
	return true
}

// maxExcelSerial 31.12.9999
const maxExcelSerial = 2958466

var dateFormats = []string{
	"02.01.2006",
	"02.01.2006 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseDate разбирает дату заключения контракта: дд.мм.гггг, ISO из PostgreSQL
// или порядковый номер дня Excel. Неразборчивая дата невалидна.
func ParseDate(dateStr string) sql.NullTime {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return sql.NullTime{Valid: false}
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	if serial, err := strconv.ParseFloat(dateStr, 64); err == nil && serial > 0 && serial < maxExcelSerial {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{Valid: false}
}
