// Package prompt composes the synthesis request for one attempt.
//
// Build is pure: identical inputs give an identical prompt. The prompt carries
// requirements and a bounded preview of the reference, never the full table.
package prompt

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"parsersmith/internal/candidate"
	"parsersmith/internal/sample"
)

const (
	// SampleChars bounds the extracted-text excerpt.
	SampleChars = 2000
	// PreviewRows bounds the reference preview.
	PreviewRows = 10
)

// Feedback describes the previous failed attempt.
type Feedback struct {
	Attempt int
	Stage   string
	Reason  string
	Detail  string
}

// Request holds everything a prompt is built from.
type Request struct {
	BankID     string
	SampleText string
	Schema     sample.Schema
	Feedback   *Feedback // nil on the first attempt
}

// Builder renders prompts with fixed bounds.
type Builder struct {
	SampleChars int
	PreviewRows int
}

// NewBuilder returns a Builder; non-positive bounds use the defaults.
func NewBuilder(sampleChars, previewRows int) *Builder {
	if sampleChars <= 0 {
		sampleChars = SampleChars
	}
	if previewRows <= 0 {
		previewRows = PreviewRows
	}
	return &Builder{SampleChars: sampleChars, PreviewRows: previewRows}
}

// Build renders a first-attempt prompt with the default bounds.
func Build(bankID, sampleText string, schema sample.Schema) string {
	return NewBuilder(0, 0).Build(Request{BankID: bankID, SampleText: sampleText, Schema: schema})
}

// SystemInstruction frames the model for every request.
const SystemInstruction = `You are an expert Go programmer who writes data extraction code for bank statements.
You answer with one complete Go source file and nothing else.`

// Build renders the prompt for req.
func (b *Builder) Build(req Request) string {
	bank := strings.ToUpper(req.BankID)
	s := req.Schema

	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: write a parser for %s bank statements that extracts every transaction from the PDF.\n\n", bank)

	fmt.Fprintf(&sb, "Sample text from the PDF (first %d characters):\n```\n%s\n```\n\n", b.SampleChars, excerpt(req.SampleText, b.SampleChars))

	sb.WriteString("Expected table schema:\n")
	fmt.Fprintf(&sb, "- Columns (exact names, exact order): %s\n", quoteAll(s.Columns))
	sb.WriteString("- Column types:\n")
	for _, c := range s.Columns {
		fmt.Fprintf(&sb, "  - %q: %s\n", c, s.Type(c))
	}
	fmt.Fprintf(&sb, "- Shape: (%d, %d)\n\n", s.RowCount, len(s.Columns))

	preview := s.Preview
	if len(preview) > b.PreviewRows {
		preview = preview[:b.PreviewRows]
	}
	fmt.Fprintf(&sb, "Expected output, first %d rows:\n```\n%s```\n\n", len(preview), renderPreview(s.Columns, preview))

	sb.WriteString("Requirements:\n")
	fmt.Fprintf(&sb, "- Return a table with exactly these columns in this order: %s. No extra columns.\n", quoteAll(s.Columns))
	sb.WriteString("- Extract every transaction row, in the order it appears in the statement. Skip headers, page footers and summary lines.\n")
	sb.WriteString(numericRule(s.Dialect))
	sb.WriteString("- An empty amount cell is a missing value: append nil, never 0.\n")
	sb.WriteString("- Text columns keep the statement's text, trimmed of surrounding spaces.\n")
	sb.WriteString(dateRule(s.Dialect))
	sb.WriteString("\n")

	sb.WriteString(contract())

	if fb := req.Feedback; fb != nil {
		fmt.Fprintf(&sb, "\nYour previous attempt (%d) failed at the %s stage: %s\n", fb.Attempt, fb.Stage, fb.Reason)
		if fb.Detail != "" {
			fmt.Fprintf(&sb, "Details:\n```\n%s\n```\n", fb.Detail)
		}
		sb.WriteString("Fix that problem in the new file.\n")
	}

	sb.WriteString("\nWrite the complete Go file. Output only code, no explanations.\n")
	return sb.String()
}

func contract() string {
	return fmt.Sprintf(contractTemplate, strings.Join(candidate.AllowedImports(), ", "))
}

const contractTemplate = `Program contract:
- One Go source file in package main.
- It must define exactly this function:

    func Parse(pdfPath string) (*table.Table, error)

- Import "parsersmith/pkg/table" for the result and "parsersmith/pkg/pdftext" to read the PDF.
- Only these imports are allowed: %s.
- No func main, no goroutines, no file writes, no network access.

Available API:
    pdftext.Rows(path string) ([][]string, error)   // every text row of every page, top to bottom; cells split on wide gaps
    pdftext.Text(path string) (string, error)       // the same rows joined: cells by " ", rows by "\n"
    pdftext.Open(path string) (*pdftext.Document, error) // Document.Pages[i].Rows, Document.Pages[i].Number
    table.New(columns ...string) *table.Table
    (*table.Table).Append(values ...any) error      // one value per column; nil is a missing value
    table.ParseAmount(s string) any                 // "1,000.00" -> 1000.0; "" or invalid -> nil
    table.ParseAmountEU(s string) any               // "1.234,56" -> 1234.56
`

func numericRule(d sample.Dialect) string {
	if d.European {
		return "- Amounts use ',' as decimal and '.' as thousands separator (\"1.234,56\" -> 1234.56); use table.ParseAmountEU. Numeric columns hold float64 values.\n"
	}
	return "- Strip thousands separators from amounts (\"1,000.00\" -> 1000.0); use table.ParseAmount. Numeric columns hold float64 values.\n"
}

func dateRule(d sample.Dialect) string {
	switch {
	case d.DateFormat != "" && d.DayFirst:
		return fmt.Sprintf("- Dates are day-first. Output them as strings in %s format (Go layout %q), exactly as in the expected output.\n",
			d.DateFormat, d.DateLayout)
	case d.DateFormat != "":
		return fmt.Sprintf("- Output dates as strings in %s format (Go layout %q), exactly as in the expected output.\n",
			d.DateFormat, d.DateLayout)
	default:
		return "- Output dates as strings formatted exactly as in the expected output.\n"
	}
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

func quoteAll(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = fmt.Sprintf("%q", c)
	}
	return "[" + strings.Join(q, ", ") + "]"
}

func renderPreview(cols []string, rows [][]string) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(cols, "\t"))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i := range cols {
			if i < len(r) && r[i] != "" {
				cells[i] = r[i]
			} else {
				cells[i] = "nil"
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	return sb.String()
}
