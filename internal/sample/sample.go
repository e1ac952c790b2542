// Package sample loads the reference table for a target and derives the
// schema the prompt and verifier work from.
package sample

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"parsersmith/internal/logging"
	"parsersmith/pkg/table"
)

// DefaultPreviewRows bounds Schema.Preview.
const DefaultPreviewRows = 10

// ErrEmptyReference is returned for a reference without a header row.
var ErrEmptyReference = errors.New("reference table has no header row")

// Schema describes a reference table. It is derived from the loaded data
// and not modified afterwards.
type Schema struct {
	Columns     []string
	ColumnTypes map[string]table.Kind
	RowCount    int
	Preview     [][]string // raw cells as written in the reference, at most PreviewRows
	Dialect     Dialect
}

// Type returns the observed kind of a column.
func (s Schema) Type(name string) table.Kind {
	if k, ok := s.ColumnTypes[name]; ok {
		return k
	}
	return table.KindNull
}

// LoadReference reads a .csv or .xlsx reference table: a header row then
// data rows. Column kinds come from the cells, not from any declaration.
func LoadReference(path string) (*table.Table, error) {
	header, records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	return table.FromRecords(header, records), nil
}

// Analyze loads the reference at path and describes it. previewRows <= 0
// uses DefaultPreviewRows.
func Analyze(path string, previewRows int) (*table.Table, Schema, error) {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	header, records, err := readRecords(path)
	if err != nil {
		return nil, Schema{}, err
	}
	ref := table.FromRecords(header, records)

	cols := ref.Schema()
	schema := Schema{
		Columns:     ref.Columns(),
		ColumnTypes: make(map[string]table.Kind, len(cols)),
		RowCount:    ref.Len(),
	}
	for _, c := range cols {
		schema.ColumnTypes[c.Name] = c.Kind
	}

	n := min(previewRows, len(records))
	schema.Preview = make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(schema.Columns))
		copy(row, records[i])
		schema.Preview[i] = row
	}

	schema.Dialect = ProbeDialect(records, amountColumns(cols), dateColumn(schema.Columns, records))

	logging.Analyze("analyzed %s: %d columns, %d rows", path, len(schema.Columns), schema.RowCount)
	return ref, schema, nil
}

func readRecords(path string) ([]string, [][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		rows, err = readCSV(path)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		return nil, nil, fmt.Errorf("unsupported reference format %q", ext)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrEmptyReference)
	}

	records := rows[1:]
	// Trailing blank lines are common in exported sheets.
	for len(records) > 0 && blank(records[len(records)-1]) {
		records = records[:len(records)-1]
	}
	return rows[0], records, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := gocsv.LazyCSVReader(f)
	if cr, ok := r.(*csv.Reader); ok {
		cr.FieldsPerRecord = -1
	}
	rows, err := r.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s sheet %q: %w", path, sheet, err)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// FormatCell renders a table cell the way the reference preview shows it.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
