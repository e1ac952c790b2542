package sample

import (
	"strings"

	"parsersmith/pkg/table"
)

// Dialect is the regional formatting of a reference table, used to phrase
// locale rules in the prompt.
type Dialect struct {
	DecimalSeparator   rune    // '.' or ','
	ThousandsSeparator rune    // ',' or '.'
	DateFormat         string  // e.g. "DD-MM-YYYY"
	DateLayout         string  // Go time layout for DateFormat, e.g. "02-01-2006"
	DayFirst           bool    // day precedes month
	CurrencyHint       string  // "INR", "EUR", "USD", "BRL" if detected
	Confidence         float64 // 0.0-1.0
	European           bool    // comma is the decimal separator
}

// ProbeDialect inspects raw reference rows. amountIdx lists numeric columns;
// dateIdx is the date column or -1.
func ProbeDialect(rows [][]string, amountIdx []int, dateIdx int) Dialect {
	d := Dialect{
		DecimalSeparator:   '.',
		ThousandsSeparator: ',',
		Confidence:         0.5,
	}

	europeanHints, usHints := 0, 0
	dayFirst, monthFirst := false, false
	var firstDate string

	for _, row := range rows {
		for _, idx := range amountIdx {
			if idx < 0 || idx >= len(row) || row[idx] == "" {
				continue
			}
			switch hint := amountHint(row[idx]); {
			case hint > 0:
				europeanHints++
			case hint < 0:
				usHints++
			}
		}

		if dateIdx >= 0 && dateIdx < len(row) && strings.TrimSpace(row[dateIdx]) != "" {
			v := strings.TrimSpace(row[dateIdx])
			if firstDate == "" {
				firstDate = v
			}
			switch dateOrder(v) {
			case 1:
				dayFirst = true
			case -1:
				monthFirst = true
			}
		}

		for _, cell := range row {
			switch {
			case strings.Contains(cell, "₹") || strings.Contains(cell, "INR") || strings.Contains(cell, "Rs."):
				d.CurrencyHint = "INR"
				usHints++
			case strings.Contains(cell, "€") || strings.Contains(cell, "EUR"):
				d.CurrencyHint = "EUR"
				europeanHints++
			case strings.Contains(cell, "R$") || strings.Contains(cell, "BRL"):
				d.CurrencyHint = "BRL"
				europeanHints++
			case strings.Contains(cell, "$"):
				if d.CurrencyHint == "" {
					d.CurrencyHint = "USD"
				}
				usHints++
			}
		}
	}

	if europeanHints > usHints {
		d.DecimalSeparator = ','
		d.ThousandsSeparator = '.'
		d.European = true
	}

	if total := europeanHints + usHints; total > 0 {
		d.Confidence = float64(max(europeanHints, usHints)) / float64(total)
	}

	switch {
	case dayFirst && !monthFirst:
		d.DayFirst = true
	case monthFirst && !dayFirst:
		d.DayFirst = false
	default:
		// Ambiguous: statements outside the US write the day first.
		d.DayFirst = d.European || d.CurrencyHint != "USD"
	}

	if firstDate != "" {
		d.DateFormat, d.DateLayout = dateFormat(firstDate, d.DayFirst)
	}
	return d
}

// amountHint returns >0 for European notation, <0 for US, 0 if unclear.
func amountHint(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)
	if cleaned == "" {
		return 0
	}

	comma := strings.LastIndex(cleaned, ",")
	dot := strings.LastIndex(cleaned, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			return 1
		}
		return -1
	case comma >= 0:
		if len(cleaned)-comma-1 <= 2 {
			return 1
		}
	case dot >= 0:
		if len(cleaned)-dot-1 <= 2 {
			return -1
		}
	}
	return 0
}

// dateOrder returns 1 when the value can only be day-first, -1 when it can
// only be month-first, 0 when ambiguous or year-first.
func dateOrder(v string) int {
	parts := splitDate(v)
	if len(parts) < 3 || len(parts[0]) == 4 {
		return 0
	}
	a, b := atoi(parts[0]), atoi(parts[1])
	switch {
	case a > 12 && a <= 31 && b <= 12:
		return 1
	case b > 12 && b <= 31 && a <= 12:
		return -1
	}
	return 0
}

func dateFormat(sample string, dayFirst bool) (string, string) {
	sep := ""
	for _, r := range sample {
		if r == '-' || r == '/' || r == '.' {
			sep = string(r)
			break
		}
	}
	parts := splitDate(sample)
	if sep == "" || len(parts) < 3 {
		return "", ""
	}

	year, yearLayout := "YYYY", "2006"
	if len(parts[2]) == 2 {
		year, yearLayout = "YY", "06"
	}
	if len(parts[0]) == 4 {
		return "YYYY" + sep + "MM" + sep + "DD", "2006" + sep + "01" + sep + "02"
	}
	if isMonthName(parts[1]) {
		return "DD" + sep + "MON" + sep + year, "02" + sep + "Jan" + sep + yearLayout
	}
	if dayFirst {
		return "DD" + sep + "MM" + sep + year, "02" + sep + "01" + sep + yearLayout
	}
	return "MM" + sep + "DD" + sep + year, "01" + sep + "02" + sep + yearLayout
}

func splitDate(v string) []string {
	return strings.FieldsFunc(strings.TrimSpace(v), func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == ' '
	})
}

func isMonthName(s string) bool {
	s = strings.ToLower(s)
	for _, m := range []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"} {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func amountColumns(cols []table.Column) []int {
	var idx []int
	for i, c := range cols {
		name := strings.ToLower(c.Name)
		if c.Kind.IsNumeric() || strings.Contains(name, "amount") || strings.Contains(name, "amt") ||
			strings.Contains(name, "balance") || strings.Contains(name, "debit") || strings.Contains(name, "credit") {
			idx = append(idx, i)
		}
	}
	return idx
}

func dateColumn(names []string, records [][]string) int {
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), "date") {
			return i
		}
	}
	for i := range names {
		for _, rec := range records {
			if i < len(rec) && len(splitDate(rec[i])) >= 3 && atoi(rec[i]) > 0 {
				return i
			}
		}
	}
	return -1
}
