package table

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarks = []string{"R$", "Rs.", "Rs", "INR", "USD", "EUR", "GBP", "BRL", "₹", "$", "€", "£"}

// ParseAmount parses a statement amount written with '.' as the decimal
// separator and ',' as thousands separator ("1,000.00" -> 1000.0).
// Currency marks and spaces are ignored, a leading '-' or surrounding
// parentheses make the value negative. An empty or unparsable amount
// returns nil, never 0.
func ParseAmount(s string) any {
	return parseAmount(s, false)
}

// ParseAmountEU parses an amount written as "1.234,56".
func ParseAmountEU(s string) any {
	return parseAmount(s, true)
}

// ParseDecimal is ParseAmount returning the exact decimal value.
func ParseDecimal(s string, european bool) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	for _, sym := range currencyMarks {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}

	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\'' {
			return -1
		}
		return r
	}, s)
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

func parseAmount(s string, european bool) any {
	d, ok := ParseDecimal(s, european)
	if !ok {
		return nil
	}
	return d.InexactFloat64()
}
