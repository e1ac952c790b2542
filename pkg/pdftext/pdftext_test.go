package pdftext_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dslipak/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsersmith/pkg/pdftext"
	"parsersmith/pkg/pdftext/pdftest"
)

var statementRows = [][]string{
	{"Date", "Description", "Debit Amt", "Credit Amt", "Balance"},
	{"01-08-2024", "Salary Credit XYZ Pvt Ltd", "", "1935.3", "6864.58"},
	{"02-08-2024", "IMPS UPI Payment Amazon", "1652.61", "", "5211.97"},
}

func TestOpenRebuildsRows(t *testing.T) {
	path := pdftest.WriteFile(t, t.TempDir(), "sample.pdf", pdftest.Grid(statementRows, 110))

	doc, err := pdftext.Open(path)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, 1, doc.Pages[0].Number)

	rows := doc.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, statementRows[0], rows[0])
	assert.Equal(t, []string{"01-08-2024", "Salary Credit XYZ Pvt Ltd", "1935.3", "6864.58"}, rows[1],
		"empty cells are not emitted")
}

func TestPageOrderPreserved(t *testing.T) {
	first := pdftest.Grid([][]string{{"page one"}}, 100)
	second := pdftest.Grid([][]string{{"page two"}}, 100)
	path := pdftest.WriteFile(t, t.TempDir(), "two.pdf", first, second)

	text, err := pdftext.Text(path)
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two", text)

	again, err := pdftext.Text(path)
	require.NoError(t, err)
	assert.Equal(t, text, again, "same file yields the same text")
}

func TestRowsHelper(t *testing.T) {
	path := pdftest.WriteFile(t, t.TempDir(), "s.pdf", pdftest.Grid(statementRows, 110))
	rows, err := pdftext.Rows(path)
	require.NoError(t, err)
	assert.Len(t, rows, len(statementRows))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := pdftext.Open(filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.pdf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("not a pdf ", 30)), 0644))

	_, err := pdftext.Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, pdftext.ErrMalformed)
}

func TestOpenTruncated(t *testing.T) {
	data := pdftest.Build(pdftest.Grid(statementRows, 110))
	path := filepath.Join(t.TempDir(), "cut.pdf")
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0644))

	_, err := pdftext.Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, pdftext.ErrMalformed)
}

func TestBuildRowsMergesGlyphs(t *testing.T) {
	// Glyph-per-run layout with real widths, as most producers emit.
	var runs []pdf.Text
	x := 50.0
	for _, ch := range "Balance" {
		runs = append(runs, pdf.Text{X: x, Y: 700, W: 5, FontSize: 10, S: string(ch)})
		x += 5
	}
	x += 40
	for _, ch := range "6864.58" {
		runs = append(runs, pdf.Text{X: x, Y: 700.5, W: 5, FontSize: 10, S: string(ch)})
		x += 5
	}
	runs = append(runs, pdf.Text{X: 50, Y: 680, W: 5, FontSize: 10, S: "A"})

	rows := pdftext.BuildRows(runs)
	assert.Equal(t, [][]string{{"Balance", "6864.58"}, {"A"}}, rows)
}

func TestBuildRowsWordGap(t *testing.T) {
	runs := []pdf.Text{
		{X: 10, Y: 500, W: 20, FontSize: 10, S: "UPI"},
		{X: 33, Y: 500, W: 30, FontSize: 10, S: "Payment"},
	}
	assert.Equal(t, [][]string{{"UPI Payment"}}, pdftext.BuildRows(runs))
}
