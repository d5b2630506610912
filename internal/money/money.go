// Package money provides lenient numeric parsing and currency formatting for
// purchase order amounts.
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Parse converts loosely typed input into a decimal. Anything that cannot be
// read as a number yields zero.
func Parse(v any) decimal.Decimal {
	switch t := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case Amount:
		return t.Decimal
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case float64:
		return decimal.NewFromFloat(t)
	case json.Number:
		return ParseString(t.String())
	case string:
		return ParseString(t)
	default:
		return ParseString(fmt.Sprint(t))
	}
}

// ParseString reads a decimal from user text, tolerating currency symbols,
// thousands separators and surrounding whitespace.
func ParseString(s string) decimal.Decimal {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount as dollars with two decimals and grouping,
// e.g. $1,234.50 or -$5.00.
func Format(d decimal.Decimal) string {
	rounded := d.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "$" + printer.Sprintf("%.2f", rounded.InexactFloat64())
}

// Amount is a decimal that decodes from JSON numbers, numeric strings, empty
// strings and null alike.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.Decimal = ParseString(s)
		return nil
	}
	a.Decimal = ParseString(string(data))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return a.Decimal.MarshalJSON()
}
