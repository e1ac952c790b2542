package verify

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// relTolerance is the relative difference under which two floats are equal.
var relTolerance = decimal.New(1, -9)

// Equal compares two cell values. Missing equals missing; numbers compare by
// value whatever their Go type, and a numeric string compares as a number
// against a number. Strings compare exactly. An infinite float equals only
// the same infinity.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isInf(a) || isInf(b) {
		fa, aOK := a.(float64)
		fb, bOK := b.(float64)
		return aOK && bOK && fa == fb
	}

	da, aNum := number(a)
	db, bNum := number(b)
	if aNum && bNum {
		return closeEnough(da, db)
	}

	sa, aStr := a.(string)
	sb, bStr := b.(string)
	switch {
	case aStr && bStr:
		return sa == sb
	case aStr && bNum:
		d, ok := parseNumeric(sa)
		return ok && closeEnough(d, db)
	case bStr && aNum:
		d, ok := parseNumeric(sb)
		return ok && closeEnough(da, d)
	}

	ba, aBool := a.(bool)
	bb, bBool := b.(bool)
	if aBool && bBool {
		return ba == bb
	}
	return false
}

func number(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	}
	return decimal.Decimal{}, false
}

func isInf(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsInf(f, 0)
}

func parseNumeric(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	return d, err == nil
}

func closeEnough(a, b decimal.Decimal) bool {
	if a.Equal(b) {
		return true
	}
	scale := decimal.Max(a.Abs(), b.Abs())
	return a.Sub(b).Abs().LessThanOrEqual(scale.Mul(relTolerance))
}
