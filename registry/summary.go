package registry

import (
	"math"
	"sort"
)

// TopN размер рейтингов на диаграммах
const TopN = 10

// HistogramBins число корзин гистограммы сумм контрактов
const HistogramBins = 30

// LawShare доля закона в отфильтрованных контрактах
type LawShare struct {
	Law     string  `json:"law"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// NameCount имя и количество контрактов
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SupplierTotal сумма контрактов поставщика
type SupplierTotal struct {
	INN   string  `json:"inn"`
	Total float64 `json:"total"`
}

// SavingsEntry закупка с экономией
type SavingsEntry struct {
	Purchase string  `json:"purchase"`
	Savings  float64 `json:"savings"`
	Law      string  `json:"law"`
}

// Bin корзина гистограммы [Lower, Upper)
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Summary данные для диаграмм по отфильтрованному реестру
type Summary struct {
	Rows        int             `json:"rows"`
	Laws        []LawShare      `json:"laws"`
	Responsible []NameCount     `json:"responsible"`
	Suppliers   []SupplierTotal `json:"suppliers"`
	Savings     []SavingsEntry  `json:"savings"`
	Amounts     []Bin           `json:"amounts"`
}

// Summarize считает все наборы данных для диаграмм
func Summarize(t *Table) Summary {
	s := Summary{Rows: t.Len()}

	for _, c := range valueCounts(t.Rows, func(c Contract) string { return c.Law }) {
		s.Laws = append(s.Laws, LawShare{Law: c.Name, Count: c.Count})
	}
	total := 0
	for _, l := range s.Laws {
		total += l.Count
	}
	for i := range s.Laws {
		s.Laws[i].Percent = float64(s.Laws[i].Count) * 100 / float64(total)
	}

	s.Responsible = head(valueCounts(t.Rows, func(c Contract) string { return c.Responsible }), TopN)
	s.Suppliers = topSuppliers(t.Rows, TopN)
	s.Savings = topSavings(t.Rows, TopN)
	s.Amounts = logHistogram(t.Rows, HistogramBins)
	return s
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// valueCounts считает непустые значения, по убыванию частоты; при равенстве раньше встреченное идет первым
func valueCounts(rows []Contract, key func(Contract) string) []NameCount {
	var out []NameCount
	pos := make(map[string]int)
	for _, row := range rows {
		k := key(row)
		if k == "" {
			continue
		}
		if i, ok := pos[k]; ok {
			out[i].Count++
			continue
		}
		pos[k] = len(out)
		out = append(out, NameCount{Name: k, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// topSuppliers группирует суммы по ИНН, нераспознанные суммы не учитываются
func topSuppliers(rows []Contract, n int) []SupplierTotal {
	totals := make(map[string]float64)
	for _, row := range rows {
		if row.INN == "" {
			continue
		}
		if row.Amount.Valid {
			totals[row.INN] += row.Amount.Float64
		} else if _, ok := totals[row.INN]; !ok {
			totals[row.INN] = 0
		}
	}
	out := make([]SupplierTotal, 0, len(totals))
	for inn, total := range totals {
		out = append(out, SupplierTotal{INN: inn, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].INN < out[j].INN
	})
	return head(out, n)
}

func topSavings(rows []Contract, n int) []SavingsEntry {
	var out []SavingsEntry
	for _, row := range rows {
		if row.Savings.Valid {
			out = append(out, SavingsEntry{Purchase: row.Purchase, Savings: row.Savings.Float64, Law: row.Law})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Savings > out[j].Savings })
	return head(out, n)
}

// logHistogram делит положительные суммы на корзины равной ширины в логарифмической шкале.
// Последняя корзина включает правую границу.
func logHistogram(rows []Contract, bins int) []Bin {
	var logs []float64
	for _, row := range rows {
		if row.Amount.Valid && row.Amount.Float64 > 0 {
			logs = append(logs, math.Log10(row.Amount.Float64))
		}
	}
	if len(logs) == 0 {
		return nil
	}
	lo, hi := logs[0], logs[0]
	for _, v := range logs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = math.Pow(10, lo+float64(i)*width)
		out[i].Upper = math.Pow(10, lo+float64(i+1)*width)
	}
	for _, v := range logs {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}
