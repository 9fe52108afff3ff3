// Package registry читает реестр контрактов (таблица Excel или PostgreSQL),
// фильтрует его по найденным ИНН и готовит данные для диаграмм.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Колонки реестра контрактов
const (
	ColPurchase    = "Название закупки"
	ColNotice      = "Примечание (Извещение)"
	ColDate        = "Дата заключения контракта"
	ColNumber      = "Номер контракта"
	ColSavings     = "Сумма экономии"
	ColLaw         = "Закон"
	ColResponsible = "Ответственное лицо"
	ColINN         = "ИНН"
	ColAmount      = "Сумма контракта"
)

// Columns колонки, которые обязаны быть в источнике
var Columns = []string{
	ColPurchase, ColNotice, ColDate, ColNumber, ColSavings,
	ColLaw, ColResponsible, ColINN, ColAmount,
}

var (
	// ErrNotFound файл реестра отсутствует
	ErrNotFound = errors.New("файл реестра не найден")
	// ErrMissingColumn в источнике нет обязательной колонки
	ErrMissingColumn = errors.New("в таблице нет обязательной колонки")
)

// Contract строка реестра
type Contract struct {
	Purchase    string
	Notice      string
	Number      string
	Law         string
	Responsible string
	INN         string

	// Date пустая, если дата не разобрана
	Date    sql.NullTime
	Year    int
	Month   int
	Quarter int

	Savings sql.NullFloat64
	Amount  sql.NullFloat64
}

// newContract типизирует сырые значения колонок
func newContract(values map[string]string) Contract {
	c := Contract{
		Purchase:    values[ColPurchase],
		Notice:      values[ColNotice],
		Number:      values[ColNumber],
		Law:         values[ColLaw],
		Responsible: values[ColResponsible],
		INN:         NormalizeINN(values[ColINN]),
		Date:        ParseDate(values[ColDate]),
		Savings:     ParseAmount(values[ColSavings]),
		Amount:      ParseAmount(values[ColAmount]),
	}
	if c.Date.Valid {
		c.Year = c.Date.Time.Year()
		c.Month = int(c.Date.Time.Month())
		c.Quarter = (c.Month-1)/3 + 1
	}
	return c
}

func nullable[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// MarshalJSON отдает русские имена колонок, неразобранные значения становятся null
func (c Contract) MarshalJSON() ([]byte, error) {
	var date *string
	if c.Date.Valid {
		s := c.Date.Time.Format("02.01.2006")
		date = &s
	}
	return json.Marshal(map[string]any{
		ColPurchase:    c.Purchase,
		ColNotice:      c.Notice,
		ColDate:        date,
		ColNumber:      c.Number,
		ColSavings:     nullable(c.Savings.Float64, c.Savings.Valid),
		ColLaw:         c.Law,
		ColResponsible: c.Responsible,
		ColINN:         c.INN,
		ColAmount:      nullable(c.Amount.Float64, c.Amount.Valid),
		"Год":          nullable(c.Year, c.Date.Valid),
		"Месяц":        nullable(c.Month, c.Date.Valid),
		"Квартал":      nullable(c.Quarter, c.Date.Valid),
	})
}

// Table реестр контрактов в порядке строк источника
type Table struct {
	Source string     `json:"source"`
	Rows   []Contract `json:"rows"`
}

// Len число строк
func (t *Table) Len() int { return len(t.Rows) }

// FilterByINN оставляет строки, ИНН которых входит в набор. Сравнение точное, по тексту.
func (t *Table) FilterByINN(inns map[string]struct{}) *Table {
	out := &Table{Source: t.Source, Rows: []Contract{}}
	for _, row := range t.Rows {
		if _, ok := inns[row.INN]; ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Source источник реестра
type Source interface {
	Load(ctx context.Context) (*Table, error)
	String() string
}

// columnIndex сопоставляет обязательные колонки с позициями в заголовке
func columnIndex(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = trimHeader(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	index := make(map[string]int, len(Columns))
	var missing []string
	for _, col := range Columns {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, missing)
	}
	return index, nil
}
