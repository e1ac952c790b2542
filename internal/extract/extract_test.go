package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsersmith/pkg/pdftext/pdftest"
)

func TestExtractOK(t *testing.T) {
	rows := [][]string{
		{"Date", "Description", "Balance"},
		{"01-08-2024", "Opening", "100.00"},
	}
	path := pdftest.WriteFile(t, t.TempDir(), "s.pdf", pdftest.Grid(rows, 120))

	res := Extract(path)
	require.True(t, res.OK(), res.Reason)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, "Date Description Balance\n01-08-2024 Opening 100.00", res.Text)
	assert.Len(t, res.Pages, 1)
	assert.NoError(t, res.Err())
}

func TestExtractMissingFile(t *testing.T) {
	res := Extract(filepath.Join(t.TempDir(), "none.pdf"))
	assert.False(t, res.OK())
	assert.Equal(t, "failed", res.Status.String())
	assert.NotEmpty(t, res.Reason)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, IsFailure(err))
}

func TestExtractCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\ngarbage without structure\n"), 0644))

	res := Extract(path)
	assert.False(t, res.OK())
	assert.Empty(t, res.Text)
}

func TestExtractEmptyDocument(t *testing.T) {
	path := pdftest.WriteFile(t, t.TempDir(), "blank.pdf", nil)

	res := Extract(path)
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.Reason)
}

func TestExcerpt(t *testing.T) {
	res := Result{Status: StatusOK, Text: "₹1,000.00 credited"}

	assert.Equal(t, "₹1,", res.Excerpt(3), "cut by rune")
	assert.Equal(t, res.Text, res.Excerpt(2000))
	assert.Equal(t, "", res.Excerpt(0))
	assert.Equal(t, res.Excerpt(5), res.Excerpt(5), "deterministic")
}
