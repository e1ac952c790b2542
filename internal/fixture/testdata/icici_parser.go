package main

import (
	"fmt"
	"regexp"
	"strings"

	"parsersmith/pkg/pdftext"
	"parsersmith/pkg/table"
)

var datePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// Parse reads an ICICI statement. Rows carry one amount cell; a rising
// balance marks it as a credit.
func Parse(pdfPath string) (*table.Table, error) {
	rows, err := pdftext.Rows(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pdfPath, err)
	}

	out := table.New("Date", "Description", "Debit Amt", "Credit Amt", "Balance")
	var prev any
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if strings.HasPrefix(row[0], "Opening Balance") {
			prev = table.ParseAmount(row[len(row)-1])
			continue
		}
		if len(row) < 4 || !datePattern.MatchString(row[0]) {
			continue
		}

		amount := table.ParseAmount(row[len(row)-2])
		balance := table.ParseAmount(row[len(row)-1])
		desc := strings.TrimSpace(strings.Join(row[1:len(row)-2], " "))

		var debit, credit any
		pb, okPrev := prev.(float64)
		b, okBal := balance.(float64)
		if okPrev && okBal && b > pb {
			credit = amount
		} else {
			debit = amount
		}

		if err := out.Append(row[0], desc, debit, credit, balance); err != nil {
			return nil, err
		}
		prev = balance
	}
	return out, nil
}
