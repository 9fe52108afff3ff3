package registry

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amount(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func sampleTable() *Table {
	return &Table{Rows: []Contract{
		{Purchase: "А", Law: "44-ФЗ", Responsible: "Иванов", INN: "1000000001", Amount: amount(100), Savings: amount(5)},
		{Purchase: "Б", Law: "223-ФЗ", Responsible: "Петров", INN: "1000000002", Amount: amount(1000), Savings: amount(50)},
		{Purchase: "В", Law: "44-ФЗ", Responsible: "Иванов", INN: "1000000001", Amount: amount(10000)},
		{Purchase: "Г", Law: "44-ФЗ", Responsible: "", INN: "1000000003", Savings: amount(500)},
	}}
}

func TestSummarize(t *testing.T) {
	t.Run("Should count laws with percentages", func(t *testing.T) {
		s := Summarize(sampleTable())

		require.Len(t, s.Laws, 2)
		assert.Equal(t, "44-ФЗ", s.Laws[0].Law)
		assert.Equal(t, 3, s.Laws[0].Count)
		assert.InDelta(t, 75.0, s.Laws[0].Percent, 1e-9)
		assert.InDelta(t, 25.0, s.Laws[1].Percent, 1e-9)
		assert.Equal(t, 4, s.Rows)
	})

	t.Run("Should rank responsible persons skipping blanks", func(t *testing.T) {
		s := Summarize(sampleTable())

		assert.Equal(t, []NameCount{{Name: "Иванов", Count: 2}, {Name: "Петров", Count: 1}}, s.Responsible)
	})

	t.Run("Should rank suppliers by total amount", func(t *testing.T) {
		s := Summarize(sampleTable())

		assert.Equal(t, []SupplierTotal{
			{INN: "1000000001", Total: 10100},
			{INN: "1000000002", Total: 1000},
			{INN: "1000000003", Total: 0},
		}, s.Suppliers)
	})

	t.Run("Should rank purchases by savings", func(t *testing.T) {
		s := Summarize(sampleTable())

		require.Len(t, s.Savings, 3)
		assert.Equal(t, "Г", s.Savings[0].Purchase)
		assert.Equal(t, "Б", s.Savings[1].Purchase)
		assert.Equal(t, "44-ФЗ", s.Savings[2].Law)
	})

	t.Run("Should build log histogram of positive amounts", func(t *testing.T) {
		s := Summarize(sampleTable())

		require.Len(t, s.Amounts, HistogramBins)
		assert.InDelta(t, 100, s.Amounts[0].Lower, 1e-6)
		assert.InDelta(t, 10000, s.Amounts[HistogramBins-1].Upper, 1e-6)
		assert.Equal(t, 1, s.Amounts[0].Count)
		assert.Equal(t, 1, s.Amounts[HistogramBins-1].Count)
		total := 0
		for _, b := range s.Amounts {
			total += b.Count
		}
		assert.Equal(t, 3, total)
	})

	t.Run("Should cap rankings at ten", func(t *testing.T) {
		table := &Table{}
		for i := 0; i < 15; i++ {
			table.Rows = append(table.Rows, Contract{
				Responsible: string(rune('А' + i)),
				INN:         string(rune('a' + i)),
				Amount:      amount(float64(i + 1)),
				Savings:     amount(float64(i)),
			})
		}

		s := Summarize(table)

		assert.Len(t, s.Responsible, TopN)
		assert.Len(t, s.Suppliers, TopN)
		assert.Len(t, s.Savings, TopN)
		assert.InDelta(t, 15.0, s.Suppliers[0].Total, 1e-9)
	})

	t.Run("Should handle empty table", func(t *testing.T) {
		s := Summarize(&Table{})

		assert.Empty(t, s.Laws)
		assert.Empty(t, s.Amounts)
		assert.Zero(t, s.Rows)
	})

	t.Run("Should widen histogram range for single value", func(t *testing.T) {
		s := Summarize(&Table{Rows: []Contract{{Amount: amount(1000)}}})

		require.Len(t, s.Amounts, HistogramBins)
		total := 0
		for _, b := range s.Amounts {
			total += b.Count
		}
		assert.Equal(t, 1, total)
	})
}
