package ledger

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ErrBlankValue is returned when a cell holds no value at all.
var ErrBlankValue = errors.New("blank value")

var amountNoise = regexp.MustCompile(`[^\d,.\-]`)

// dateLayouts are tried in order. Day-first layouts win over month-first
// ones because the exports are Brazilian.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02/01/06",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// isBlank is true for nil, empty or whitespace strings, the literal "nan"
// in any case, and NaN floats.
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(x)
		return s == "" || strings.EqualFold(s, "nan")
	case *string:
		return x == nil || isBlank(*x)
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case *decimal.Decimal:
		return x == nil
	}
	return false
}

// isZero is true for blank values and for values that parse to zero.
func isZero(v any) bool {
	if isBlank(v) {
		return true
	}
	d, err := ParseAmount(v)
	return err == nil && d.IsZero()
}

// cellString renders a raw cell as trimmed text. Blank cells become "".
func cellString(v any) string {
	if isBlank(v) {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case *string:
		return strings.TrimSpace(*x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case decimal.Decimal:
		return x.String()
	case *decimal.Decimal:
		return x.String()
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ParseAmount coerces a raw cell into a decimal. Strings may carry currency
// symbols and either Brazilian ("1.234,56") or plain ("1234.56") separators.
func ParseAmount(v any) (decimal.Decimal, error) {
	if isBlank(v) {
		return decimal.Zero, ErrBlankValue
	}
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		return *x, nil
	case float64:
		if math.IsInf(x, 0) {
			return decimal.Zero, fmt.Errorf("non-finite amount %v", x)
		}
		return decimal.NewFromFloat(x), nil
	case float32:
		if math.IsInf(float64(x), 0) {
			return decimal.Zero, fmt.Errorf("non-finite amount %v", x)
		}
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case int32:
		return decimal.NewFromInt(int64(x)), nil
	case string:
		return parseAmountString(x)
	case *string:
		return parseAmountString(*x)
	}
	return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
}

// parseAmountString accepts plain and scientific notation as is, which is
// how raw XLSX numeric cells arrive, before falling back to currency text.
func parseAmountString(s string) (decimal.Decimal, error) {
	if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
		return d, nil
	}

	cleaned := amountNoise.ReplaceAllString(s, "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("no digits in amount %q", s)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// ParseDate coerces a raw cell into a calendar date.
func ParseDate(v any) (civil.Date, error) {
	if isBlank(v) {
		return civil.Date{}, ErrBlankValue
	}
	switch x := v.(type) {
	case civil.Date:
		if !x.IsValid() {
			return civil.Date{}, ErrBlankValue
		}
		return x, nil
	case time.Time:
		if x.IsZero() {
			return civil.Date{}, ErrBlankValue
		}
		return civil.DateOf(x), nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return civil.Date{}, ErrBlankValue
		}
		return civil.DateOf(*x), nil
	}

	s := cellString(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("unrecognized date %q", s)
}
