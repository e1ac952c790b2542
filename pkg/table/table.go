// Package table holds parsed statement data: named columns in a fixed order
// and ordered rows of loosely typed values.
//
// A nil cell is the missing-value marker. Appended values are widened so that
// every cell is one of nil, bool, int64, float64 or string, which keeps
// comparison and JSON transport simple. NaN is stored as nil.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the element type observed in a column.
type Kind string

const (
	KindNull   Kind = "null"   // every cell missing
	KindBool   Kind = "bool"   // true/false
	KindInt    Kind = "int"    // whole numbers only
	KindFloat  Kind = "float"  // numbers with at least one fractional value
	KindString Kind = "string" // anything else
)

// IsNumeric reports whether the kind holds numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Column describes one column of a table.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table is an ordered, column-named grid of values.
type Table struct {
	names []string
	index map[string]int
	rows  [][]any
}

// New creates an empty table with the given column names, in order.
func New(names ...string) *Table {
	t := &Table{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if _, dup := t.index[n]; !dup {
			t.index[n] = i
		}
	}
	return t
}

// Append adds a row. The number of values must equal the number of columns.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.names) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.names))
	}
	row := make([]any, len(values))
	for i, v := range values {
		nv, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("column %q: %w", t.names[i], err)
		}
		row[i] = nv
	}
	t.rows = append(t.rows, row)
	return nil
}

// MustAppend is Append for static fixtures; it panics on arity errors.
func (t *Table) MustAppend(values ...any) *Table {
	if err := t.Append(values...); err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names in declared order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// Shape returns (rows, columns).
func (t *Table) Shape() (int, int) {
	if t == nil {
		return 0, 0
	}
	return len(t.rows), len(t.names)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Column returns the values of the named column, or nil if it is absent.
func (t *Table) Column(name string) []any {
	i := t.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]any, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Get returns the cell at row i of the named column.
func (t *Table) Get(i int, name string) any {
	c := t.Index(name)
	if c < 0 || i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i][c]
}

// Kind infers the element type of the named column from its values.
func (t *Table) Kind(name string) Kind {
	return InferKind(t.Column(name))
}

// Schema returns every column with its inferred kind.
func (t *Table) Schema() []Column {
	cols := make([]Column, len(t.names))
	for i, n := range t.names {
		cols[i] = Column{Name: n, Kind: t.Kind(n)}
	}
	return cols
}

// InferKind returns the narrowest kind that holds every non-missing value.
func InferKind(values []any) Kind {
	kind := KindNull
	for _, v := range values {
		var k Kind
		switch v.(type) {
		case nil:
			continue
		case bool:
			k = KindBool
		case int64:
			k = KindInt
		case float64:
			k = KindFloat
		default:
			return KindString
		}
		kind = widen(kind, k)
		if kind == KindString {
			return kind
		}
	}
	return kind
}

func widen(a, b Kind) Kind {
	switch {
	case a == KindNull || a == b:
		return b
	case a.IsNumeric() && b.IsNumeric():
		return KindFloat
	default:
		return KindString
	}
}

// Normalize widens v to one of the cell types a Table stores.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return float64(x), nil
		}
		return int64(x), nil
	case float32:
		return floatCell(float64(x)), nil
	case float64:
		return floatCell(x), nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return floatCell(*x), nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return nil, fmt.Errorf("unsupported cell type %T", v)
	}
}

func floatCell(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

// FromRecords builds a table from a header and string records, typing each
// column by what its cells hold: all integers, all numbers, or text. Empty
// cells become missing values. Short records are padded with missing values.
func FromRecords(header []string, records [][]string) *Table {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	t := New(names...)

	kinds := make([]Kind, len(names))
	for c := range names {
		kinds[c] = recordKind(records, c)
	}

	for _, rec := range records {
		row := make([]any, len(names))
		for c := range names {
			if c >= len(rec) {
				continue
			}
			row[c] = typedCell(strings.TrimSpace(rec[c]), kinds[c])
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func recordKind(records [][]string, c int) Kind {
	kind := KindNull
	for _, rec := range records {
		if c >= len(rec) {
			continue
		}
		s := strings.TrimSpace(rec[c])
		if s == "" {
			continue
		}
		var k Kind
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			k = KindInt
		} else if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
			k = KindFloat
		} else {
			return KindString
		}
		kind = widen(kind, k)
	}
	return kind
}

func typedCell(s string, kind Kind) any {
	if s == "" {
		return nil
	}
	switch kind {
	case KindInt:
		n, _ := strconv.ParseInt(s, 10, 64)
		return n
	case KindFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return floatCell(f)
	default:
		return s
	}
}
