package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type envelope struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the table with its column kinds so that decoding
// restores ints as ints and floats as floats. Infinite floats, which JSON
// cannot hold, are written as the strings "+Inf" and "-Inf".
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		rows[r] = row
		for c, v := range row {
			f, ok := v.(float64)
			if !ok || !math.IsInf(f, 0) {
				continue
			}
			if &rows[r][0] == &row[0] {
				rows[r] = append([]any(nil), row...)
			}
			rows[r][c] = infName(f)
		}
	}
	return json.Marshal(envelope{Columns: t.Schema(), Rows: rows})
}

func infName(f float64) string {
	if f > 0 {
		return posInf
	}
	return negInf
}

const (
	posInf = "+Inf"
	negInf = "-Inf"
)

// UnmarshalJSON decodes a table written by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("decode table: %w", err)
	}

	names := make([]string, len(env.Columns))
	for i, c := range env.Columns {
		names[i] = c.Name
	}
	*t = *New(names...)

	for r, raw := range env.Rows {
		if len(raw) != len(names) {
			return fmt.Errorf("decode table: row %d has %d values, want %d", r, len(raw), len(names))
		}
		row := make([]any, len(raw))
		for c, v := range raw {
			cell, err := decodeCell(v, env.Columns[c].Kind)
			if err != nil {
				return fmt.Errorf("decode table: row %d column %q: %w", r, names[c], err)
			}
			row[c] = cell
		}
		t.rows = append(t.rows, row)
	}
	return nil
}

func decodeCell(v any, kind Kind) (any, error) {
	n, ok := v.(json.Number)
	if !ok {
		if s, isStr := v.(string); isStr && kind == KindFloat {
			switch s {
			case posInf:
				return math.Inf(1), nil
			case negInf:
				return math.Inf(-1), nil
			}
		}
		return Normalize(v)
	}
	if kind == KindInt {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return f, nil
}
