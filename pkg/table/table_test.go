package table

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendNormalizesCells(t *testing.T) {
	tbl := New("Date", "Debit Amt", "Count", "Note")
	require.NoError(t, tbl.Append("01-08-2024", float32(12.5), 3, nil))
	require.NoError(t, tbl.Append("02-08-2024", math.NaN(), int32(4), "x"))

	assert.Equal(t, []any{"01-08-2024", 12.5, int64(3), nil}, tbl.Row(0))
	assert.Nil(t, tbl.Get(1, "Debit Amt"), "NaN is stored as missing")

	rows, cols := tbl.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 4, cols)
}

func TestAppendArity(t *testing.T) {
	tbl := New("a", "b")
	err := tbl.Append(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values")
	assert.Equal(t, 0, tbl.Len())
}

func TestAppendRejectsUnsupported(t *testing.T) {
	tbl := New("a")
	err := tbl.Append(struct{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "a"`)
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   Kind
	}{
		{"empty", nil, KindNull},
		{"all missing", []any{nil, nil}, KindNull},
		{"ints", []any{int64(1), nil, int64(2)}, KindInt},
		{"ints and floats", []any{int64(1), 2.5}, KindFloat},
		{"floats", []any{1.5, nil}, KindFloat},
		{"bools", []any{true, false}, KindBool},
		{"bool and number", []any{true, int64(1)}, KindString},
		{"text", []any{"a", int64(1)}, KindString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferKind(tt.values))
		})
	}
}

func TestColumnAndIndex(t *testing.T) {
	tbl := New("Date", "Balance").
		MustAppend("01-08-2024", 100.0).
		MustAppend("02-08-2024", 90.0)

	assert.Equal(t, 1, tbl.Index("Balance"))
	assert.Equal(t, -1, tbl.Index("Missing"))
	assert.Equal(t, []any{100.0, 90.0}, tbl.Column("Balance"))
	assert.Nil(t, tbl.Column("Missing"))
	assert.Equal(t, []string{"Date", "Balance"}, tbl.Columns())
}

func TestFromRecordsTypesColumns(t *testing.T) {
	header := []string{"\ufeffDate", "Description", "Debit Amt", "Credit Amt", "Balance"}
	records := [][]string{
		{"01-08-2024", "Salary Credit", "", "1935.3", "6864.58"},
		{"02-08-2024", "Fuel", "1652.61", "", "5212"},
		{"03-08-2024", "ATM"},
	}
	tbl := FromRecords(header, records)

	assert.Equal(t, "Date", tbl.Columns()[0], "byte order mark stripped")
	assert.Equal(t, []Column{
		{Name: "Date", Kind: KindString},
		{Name: "Description", Kind: KindString},
		{Name: "Debit Amt", Kind: KindFloat},
		{Name: "Credit Amt", Kind: KindFloat},
		{Name: "Balance", Kind: KindFloat},
	}, tbl.Schema())
	assert.Equal(t, 5212.0, tbl.Get(1, "Balance"), "ints widen with the column")
	assert.Nil(t, tbl.Get(0, "Debit Amt"))
	assert.Nil(t, tbl.Get(2, "Balance"), "short record padded")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"1,000.00", 1000.0},
		{"", nil},
		{"   ", nil},
		{"-", nil},
		{"abc", nil},
		{"12.5", 12.5},
		{"(12.50)", -12.5},
		{"-1,234.56", -1234.56},
		{"₹ 2,500.00", 2500.0},
		{"$3.10", 3.1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAmount(tt.in))
		})
	}
}

func TestParseAmountNeverZeroForEmpty(t *testing.T) {
	assert.NotEqual(t, 0.0, ParseAmount(""))
	assert.Nil(t, ParseAmount(""))
}

func TestParseAmountEU(t *testing.T) {
	assert.Equal(t, 1234.56, ParseAmountEU("1.234,56"))
	assert.Equal(t, -5.0, ParseAmountEU("-5,00 €"))
	assert.Nil(t, ParseAmountEU(""))
}

func TestJSONRestoresKinds(t *testing.T) {
	tbl := New("Date", "Count", "Balance", "Flag").
		MustAppend("01-08-2024", 1, 1000.0, true).
		MustAppend("02-08-2024", nil, 12.25, false)

	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	var got Table
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, tbl.Columns(), got.Columns())
	assert.Equal(t, int64(1), got.Get(0, "Count"))
	assert.Equal(t, 1000.0, got.Get(0, "Balance"), "whole float stays float")
	assert.Equal(t, true, got.Get(0, "Flag"))
	assert.Nil(t, got.Get(1, "Count"))
}

func TestJSONCarriesInfinities(t *testing.T) {
	tbl := New("Date", "Balance").
		MustAppend("01-08-2024", math.Inf(1)).
		MustAppend("02-08-2024", math.Inf(-1)).
		MustAppend("03-08-2024", 12.5)

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.True(t, math.IsInf(tbl.Get(0, "Balance").(float64), 1), "marshal leaves the table untouched")

	var got Table
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, math.IsInf(got.Get(0, "Balance").(float64), 1))
	assert.True(t, math.IsInf(got.Get(1, "Balance").(float64), -1))
	assert.Equal(t, 12.5, got.Get(2, "Balance"))
}

func TestJSONInfStringInTextColumnStaysText(t *testing.T) {
	tbl := New("Note").MustAppend("+Inf")

	data, err := json.Marshal(tbl)
	require.NoError(t, err)

	var got Table
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "+Inf", got.Get(0, "Note"))
}

func TestJSONEmptyTable(t *testing.T) {
	data, err := json.Marshal(New("a"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[{"name":"a","kind":"null"}],"rows":[]}`, string(data))
}

func TestUnmarshalRejectsRaggedRows(t *testing.T) {
	var got Table
	err := json.Unmarshal([]byte(`{"columns":[{"name":"a","kind":"int"}],"rows":[[1,2]]}`), &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0")
}
