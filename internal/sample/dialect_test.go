package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeDialect(t *testing.T) {
	tests := []struct {
		name       string
		rows       [][]string
		amountIdx  []int
		dateIdx    int
		european   bool
		dayFirst   bool
		dateFormat string
		currency   string
	}{
		{
			name:       "us amounts, month-first dates",
			rows:       [][]string{{"12/25/2024", "1,234.56"}, {"01/02/2025", "10.00"}},
			amountIdx:  []int{1},
			dateIdx:    0,
			european:   false,
			dayFirst:   false,
			dateFormat: "MM/DD/YYYY",
		},
		{
			name:       "european amounts and euro sign",
			rows:       [][]string{{"25.12.2024", "1.234,56 €"}, {"02.01.2025", "10,00 €"}},
			amountIdx:  []int{1},
			dateIdx:    0,
			european:   true,
			dayFirst:   true,
			dateFormat: "DD.MM.YYYY",
			currency:   "EUR",
		},
		{
			name:       "ambiguous dates default to day-first",
			rows:       [][]string{{"01-02-2024", "5.00"}},
			amountIdx:  []int{1},
			dateIdx:    0,
			dayFirst:   true,
			dateFormat: "DD-MM-YYYY",
		},
		{
			name:       "iso dates",
			rows:       [][]string{{"2024-08-01", "5.00"}},
			amountIdx:  []int{1},
			dateIdx:    0,
			dayFirst:   true,
			dateFormat: "YYYY-MM-DD",
		},
		{
			name:       "month names",
			rows:       [][]string{{"01 Aug 2024", "₹5.00"}},
			amountIdx:  []int{1},
			dateIdx:    0,
			dayFirst:   true,
			dateFormat: "",
			currency:   "INR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ProbeDialect(tt.rows, tt.amountIdx, tt.dateIdx)
			assert.Equal(t, tt.european, d.European)
			assert.Equal(t, tt.dayFirst, d.DayFirst)
			assert.Equal(t, tt.dateFormat, d.DateFormat)
			assert.Equal(t, tt.currency, d.CurrencyHint)
		})
	}
}

func TestAmountHint(t *testing.T) {
	assert.Equal(t, 1, amountHint("1.234,56"))
	assert.Equal(t, -1, amountHint("1,234.56"))
	assert.Equal(t, 1, amountHint("10,5"))
	assert.Equal(t, -1, amountHint("10.50"))
	assert.Equal(t, 0, amountHint("1,234"))
	assert.Equal(t, 0, amountHint("100"))
	assert.Equal(t, 0, amountHint(""))
}
