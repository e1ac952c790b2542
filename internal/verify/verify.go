// Package verify decides whether a candidate's table matches the reference.
//
// Checks run in a fixed order and the first failure wins: execution, shape,
// column presence, column order, then values column by column in reference
// order. The same inputs always produce the same report.
package verify

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"

	"parsersmith/internal/candidate"
	"parsersmith/internal/logging"
	"parsersmith/pkg/table"
)

// Mismatch classifies a failed report.
type Mismatch string

const (
	MismatchNone        Mismatch = ""
	MismatchExecution   Mismatch = "execution"
	MismatchShape       Mismatch = "shape"
	MismatchMissing     Mismatch = "missing_column"
	MismatchColumnOrder Mismatch = "column_order"
	MismatchValue       Mismatch = "value"
)

// Report is the verdict of one verification.
type Report struct {
	Passed   bool
	Mismatch Mismatch
	Reason   string
	// Detail is a longer diagnostic for humans and for the next prompt.
	Detail string
}

func (r Report) String() string {
	if r.Passed {
		return "passed"
	}
	return "failed: " + r.Reason
}

// Verify runs c against pdfPath and compares the result with expected.
func Verify(ctx context.Context, c candidate.Candidate, pdfPath string, expected *table.Table) Report {
	result, err := c.Run(ctx, pdfPath)
	if err != nil {
		r := Report{Mismatch: MismatchExecution, Reason: "execution error: " + err.Error()}
		logging.Verify("verdict: %s", r)
		return r
	}
	r := Compare(result, expected)
	logging.Verify("verdict: %s", r)
	if r.Detail != "" {
		logging.VerifyDebug("detail:\n%s", r.Detail)
	}
	return r
}

// Compare checks result against expected.
func Compare(result, expected *table.Table) Report {
	if result == nil {
		return Report{Mismatch: MismatchExecution, Reason: "execution error: nil result table"}
	}

	rr, rc := result.Shape()
	er, ec := expected.Shape()
	if rr != er || rc != ec {
		reason := fmt.Sprintf("shape mismatch: result (%d, %d) vs expected (%d, %d)", rr, rc, er, ec)
		if name, ok := firstMissing(result, expected); ok {
			reason += "; missing column: " + name
		}
		return Report{
			Mismatch: MismatchShape,
			Reason:   reason,
			Detail:   columnDiagnostics(result, expected),
		}
	}

	if name, ok := firstMissing(result, expected); ok {
		return Report{
			Mismatch: MismatchMissing,
			Reason:   "missing column: " + name,
			Detail:   columnDiagnostics(result, expected),
		}
	}

	if got, want := result.Columns(), expected.Columns(); !slices.Equal(got, want) {
		return Report{
			Mismatch: MismatchColumnOrder,
			Reason:   fmt.Sprintf("column order mismatch: result %q vs expected %q", got, want),
		}
	}

	for _, name := range expected.Columns() {
		got, want := result.Column(name), expected.Column(name)
		if i := firstDifference(got, want); i >= 0 {
			return Report{
				Mismatch: MismatchValue,
				Reason:   fmt.Sprintf("column %s doesn't match", name),
				Detail:   valueDetail(name, i, got, want),
			}
		}
	}

	return Report{Passed: true}
}

// firstMissing returns the first expected column absent from result.
func firstMissing(result, expected *table.Table) (string, bool) {
	for _, name := range expected.Columns() {
		if result.Index(name) < 0 {
			return name, true
		}
	}
	return "", false
}

func firstDifference(got, want []any) int {
	for i := range want {
		if !Equal(got[i], want[i]) {
			return i
		}
	}
	return -1
}

// columnDiagnostics lists missing and unexpected columns, if any.
func columnDiagnostics(result, expected *table.Table) string {
	var lines []string
	for _, name := range expected.Columns() {
		if result.Index(name) < 0 {
			lines = append(lines, "missing column: "+name)
		}
	}
	for _, name := range result.Columns() {
		if expected.Index(name) < 0 {
			lines = append(lines, "unexpected column: "+name)
		}
	}
	return strings.Join(lines, "\n")
}

// scalars limits the comparer to cell values so that cmp still walks slices.
var scalars = cmp.FilterValues(func(x, y any) bool {
	return isScalar(x) && isScalar(y)
}, cmp.Comparer(Equal))

func isScalar(v any) bool {
	switch v.(type) {
	case nil, bool, string, int, int64, float64:
		return true
	}
	return false
}

func valueDetail(name string, row int, got, want []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "first difference in column %q at row %d: result %s vs expected %s\n",
		name, row, formatValue(got[row]), formatValue(want[row]))
	b.WriteString("diff (-expected +result):\n")
	b.WriteString(cmp.Diff(want, got, scalars))
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v (%T)", v, v)
	}
}
