// Package fixture provides an ICICI statement workspace for tests: a PDF
// drawn from the reference rows, the reference CSV and a parser that
// passes against both.
package fixture

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"parsersmith/pkg/pdftext/pdftest"
)

// ID is the target id of the fixture statement.
const ID = "icici"

// ColumnWidth is the horizontal cell pitch of the fixture PDF.
const ColumnWidth = 120

var (
	//go:embed testdata/icici_sample.csv
	ReferenceCSV string

	//go:embed testdata/icici_parser.go
	ParserSource string
)

// Paths locates the files written by Workspace.
type Paths struct {
	Root      string
	PDF       string
	Reference string
	Artifact  string
}

// Reference returns the reference CSV as records, header first.
func Reference() [][]string {
	records, err := gocsv.LazyCSVReader(strings.NewReader(ReferenceCSV)).ReadAll()
	if err != nil {
		panic("fixture: bad reference csv: " + err.Error())
	}
	return records
}

// StatementRows is the statement layout: the reference rows framed by
// opening and closing balance lines, as a bank prints them.
func StatementRows() [][]string {
	ref := Reference()
	rows := [][]string{ref[0], {"", "Opening Balance", "", "", "4929.28"}}
	rows = append(rows, ref[1:]...)
	rows = append(rows, []string{"", "Closing Balance", "", "", ref[len(ref)-1][4]})
	return rows
}

// WritePDF writes the statement PDF to path.
func WritePDF(tb testing.TB, path string) string {
	tb.Helper()
	return pdftest.WriteFile(tb, filepath.Dir(path), filepath.Base(path), pdftest.Grid(StatementRows(), ColumnWidth))
}

// Workspace lays out data/<id>/ under root with the PDF and the reference
// CSV. When parser is non-empty it is written to custom_parsers/<id>_parser.go.
func Workspace(tb testing.TB, root, id, parser string) Paths {
	tb.Helper()
	dir := filepath.Join(root, "data", id)
	p := Paths{
		Root:      root,
		PDF:       filepath.Join(dir, id+"_sample.pdf"),
		Reference: filepath.Join(dir, id+"_sample.csv"),
		Artifact:  filepath.Join(root, "custom_parsers", id+"_parser.go"),
	}

	WritePDF(tb, p.PDF)
	write(tb, p.Reference, ReferenceCSV)
	if parser != "" {
		write(tb, p.Artifact, parser)
	}
	return p
}

func write(tb testing.TB, path, content string) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tb.Fatalf("fixture: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tb.Fatalf("fixture: %v", err)
	}
}
