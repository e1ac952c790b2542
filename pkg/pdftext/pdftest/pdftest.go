// Package pdftest writes small single-font PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Run is a string drawn at an absolute position (PDF points, origin bottom left).
type Run struct {
	X, Y float64
	Text string
}

const (
	FontSize   = 10
	pageHeight = 792
	top        = 740
)

// Grid lays rows out as a table: one line per row, cells at fixed columns.
func Grid(rows [][]string, colWidth float64) []Run {
	var runs []Run
	for r, row := range rows {
		y := float64(top - r*16)
		for c, cell := range row {
			if cell == "" {
				continue
			}
			runs = append(runs, Run{X: 40 + float64(c)*colWidth, Y: y, Text: cell})
		}
	}
	return runs
}

// Build returns a PDF with one page per element of pages.
func Build(pages ...[]Run) []byte {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// Objects 1-3 are fixed; each page then takes a page and a content object.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, runs := range pages {
		content := contentStream(runs)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 %d] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageHeight, 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// WriteFile writes a PDF built from pages into dir and returns its path.
func WriteFile(tb testing.TB, dir, name string, pages ...[]Run) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		tb.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, Build(pages...), 0644); err != nil {
		tb.Fatalf("write fixture pdf: %v", err)
	}
	return path
}

func contentStream(runs []Run) string {
	var b strings.Builder
	b.WriteString("BT\n")
	fmt.Fprintf(&b, "/F1 %d Tf\n", FontSize)
	for _, r := range runs {
		fmt.Fprintf(&b, "1 0 0 1 %.2f %.2f Tm\n(%s) Tj\n", r.X, r.Y, escape(r.Text))
	}
	b.WriteString("ET")
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
