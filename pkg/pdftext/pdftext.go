// Package pdftext reads statement PDFs into ordered pages of text rows.
//
// Rows are rebuilt from positioned glyph runs: runs sharing a baseline form
// a row, rows are ordered top to bottom, and a horizontal gap wider than
// cellGap font sizes starts a new cell. Page and row order always follow the
// document, so the same file yields the same text.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
)

const (
	// lineTolerance is how far apart (in points) two baselines may be and
	// still belong to the same row.
	lineTolerance = 2.0
	// cellGap is the gap, in multiples of the font size, that splits cells.
	cellGap = 1.2
	// wordGap is the gap, in multiples of the font size, that inserts a space.
	wordGap = 0.2
	// defaultFontSize is used when a run reports no size.
	defaultFontSize = 10.0
)

// ErrMalformed marks documents the reader could not make sense of.
var ErrMalformed = errors.New("malformed pdf")

// Page is one page of a document.
type Page struct {
	Number int
	Rows   [][]string
}

// Text joins the page's rows, cells separated by a space.
func (p Page) Text() string {
	lines := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		lines[i] = strings.Join(r, " ")
	}
	return strings.Join(lines, "\n")
}

// Document is a parsed PDF.
type Document struct {
	Path  string
	Pages []Page
}

// Text returns the text of every page, in page order.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		if t := p.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// Rows returns every row of every page, in document order.
func (d *Document) Rows() [][]string {
	var out [][]string
	for _, p := range d.Pages {
		out = append(out, p.Rows...)
	}
	return out
}

// Open reads every page of the PDF at path.
func Open(path string) (doc *Document, err error) {
	r, closeFn, err := newReader(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	defer recoverMalformed(path, &err)

	doc = &Document{Path: path}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		doc.Pages = append(doc.Pages, Page{
			Number: i,
			Rows:   buildRows(p.Content().Text),
		})
	}
	return doc, nil
}

// Text returns the layout text of the PDF at path.
func Text(path string) (string, error) {
	doc, err := Open(path)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// Rows returns the rows of the PDF at path.
func Rows(path string) ([][]string, error) {
	doc, err := Open(path)
	if err != nil {
		return nil, err
	}
	return doc.Rows(), nil
}

// PlainText returns the document text in content-stream order, without
// any row reconstruction.
func PlainText(path string) (text string, err error) {
	r, closeFn, err := newReader(path)
	if err != nil {
		return "", err
	}
	defer closeFn()
	defer recoverMalformed(path, &err)

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", fmt.Errorf("read text of %s: %w", path, err)
	}
	return buf.String(), nil
}

func newReader(path string) (r *pdf.Reader, closeFn func(), err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			f.Close()
			r, closeFn = nil, nil
			err = fmt.Errorf("%w: %s: %v", ErrMalformed, path, rec)
		}
	}()
	r, err = pdf.NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return r, func() { f.Close() }, nil
}

// The underlying reader panics on some corrupt streams.
func recoverMalformed(path string, err *error) {
	if rec := recover(); rec != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrMalformed, path, rec)
	}
}

type line struct {
	y    float64
	runs []pdf.Text
}

func buildRows(texts []pdf.Text) [][]string {
	if len(texts) == 0 {
		return nil
	}

	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines []*line
	for _, t := range sorted {
		if n := len(lines); n > 0 && math.Abs(lines[n-1].y-t.Y) <= lineTolerance {
			lines[n-1].runs = append(lines[n-1].runs, t)
			continue
		}
		lines = append(lines, &line{y: t.Y, runs: []pdf.Text{t}})
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		if cells := splitCells(l.runs); len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	return rows
}

func splitCells(runs []pdf.Text) []string {
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].X < runs[j].X
	})

	var (
		cells []string
		cur   strings.Builder
		end   float64
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}

	for i, t := range runs {
		size := t.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		if i > 0 {
			gap := t.X - end
			switch {
			case gap > size*cellGap:
				flush()
			case gap > size*wordGap && !strings.HasSuffix(cur.String(), " "):
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)
		if e := t.X + t.W; e > end || i == 0 {
			end = e
		}
	}
	flush()
	return cells
}
