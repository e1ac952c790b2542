package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parsersmith/internal/fixture"
	"parsersmith/internal/sample"
	"parsersmith/pkg/table"
)

func icici(t *testing.T) sample.Schema {
	t.Helper()
	ws := fixture.Workspace(t, t.TempDir(), fixture.ID, "")
	_, schema, err := sample.Analyze(ws.Reference, 0)
	require.NoError(t, err)
	return schema
}

func TestBuildIsDeterministic(t *testing.T) {
	schema := icici(t)
	text := "Date Description Debit Amt Credit Amt Balance\n01-08-2024 Salary Credit XYZ Pvt Ltd 1935.3 6864.58"

	first := Build("icici", text, schema)
	assert.Equal(t, first, Build("icici", text, schema))
}

func TestBuildContents(t *testing.T) {
	schema := icici(t)
	p := Build("icici", "01-08-2024 Salary Credit", schema)

	assert.Contains(t, p, "ICICI")
	assert.Contains(t, p, `["Date", "Description", "Debit Amt", "Credit Amt", "Balance"]`)
	assert.Contains(t, p, `"Balance": float`)
	assert.Contains(t, p, `"Date": string`)
	assert.Contains(t, p, "Shape: (12, 5)")
	assert.Contains(t, p, "never 0")
	assert.Contains(t, p, "table.ParseAmount")
	assert.Contains(t, p, "day-first")
	assert.Contains(t, p, "DD-MM-YYYY")
	assert.Contains(t, p, "func Parse(pdfPath string) (*table.Table, error)")
	assert.Contains(t, p, "parsersmith/pkg/table, parsersmith/pkg/pdftext, errors")
	assert.NotContains(t, p, "previous attempt")
	assert.True(t, strings.HasSuffix(p, "Output only code, no explanations.\n"))
}

func TestBuildBoundsExcerpt(t *testing.T) {
	schema := icici(t)
	text := strings.Repeat("a", SampleChars) + "TAIL-MARKER"

	p := Build("icici", text, schema)
	assert.Contains(t, p, strings.Repeat("a", SampleChars))
	assert.NotContains(t, p, "TAIL-MARKER")

	short := Build("icici", "short text", schema)
	assert.Contains(t, short, "```\nshort text\n```")
}

func TestBuildPreviewNeverFullTable(t *testing.T) {
	schema := icici(t)
	require.Len(t, schema.Preview, PreviewRows)

	p := Build("icici", "x", schema)
	assert.Contains(t, p, "first 10 rows")
	assert.Contains(t, p, "25-08-2024", "tenth row is previewed")
	assert.NotContains(t, p, "28-08-2024", "rows past the preview are left out")
	assert.NotContains(t, p, "Cash Withdrawal ATM")
}

func TestBuilderCapsOversizedPreview(t *testing.T) {
	schema := sample.Schema{
		Columns:     []string{"Date", "Amount"},
		ColumnTypes: map[string]table.Kind{"Date": table.KindString, "Amount": table.KindFloat},
		RowCount:    30,
	}
	for i := 1; i <= 30; i++ {
		schema.Preview = append(schema.Preview, []string{fmt.Sprintf("row-%02d", i), ""})
	}

	p := NewBuilder(0, 3).Build(Request{BankID: "sbi", SampleText: "x", Schema: schema})
	assert.Contains(t, p, "row-03")
	assert.NotContains(t, p, "row-04")
	assert.Contains(t, p, "nil", "empty cells render as nil")
	assert.Contains(t, p, "SBI")
}

func TestBuildEuropeanDialect(t *testing.T) {
	schema := sample.Schema{
		Columns:     []string{"Datum", "Betrag"},
		ColumnTypes: map[string]table.Kind{"Datum": table.KindString, "Betrag": table.KindFloat},
		Dialect:     sample.Dialect{European: true, DateFormat: "DD.MM.YYYY", DateLayout: "02.01.2006", DayFirst: true},
	}

	p := Build("dkb", "x", schema)
	assert.Contains(t, p, "table.ParseAmountEU")
	assert.Contains(t, p, `"02.01.2006"`)
}

func TestBuildFeedback(t *testing.T) {
	schema := icici(t)
	req := Request{
		BankID:     "icici",
		SampleText: "x",
		Schema:     schema,
		Feedback:   &Feedback{Attempt: 2, Stage: "verify", Reason: "column Balance doesn't match", Detail: "row 3: 5993.43 vs 5993.0"},
	}

	p := NewBuilder(0, 0).Build(req)
	assert.Contains(t, p, "Your previous attempt (2) failed at the verify stage: column Balance doesn't match")
	assert.Contains(t, p, "row 3: 5993.43 vs 5993.0")

	req.Feedback.Detail = ""
	p = NewBuilder(0, 0).Build(req)
	assert.NotContains(t, p, "Details:")
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder(-1, 0)
	assert.Equal(t, SampleChars, b.SampleChars)
	assert.Equal(t, PreviewRows, b.PreviewRows)

	b = NewBuilder(500, 4)
	assert.Equal(t, 500, b.SampleChars)
	assert.Equal(t, 4, b.PreviewRows)
}
