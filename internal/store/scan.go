package store

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Lenient scans numeric or text columns into a decimal. Values that do not
// parse, including NULL, become zero.
type Lenient struct {
	decimal.Decimal
}

// Scan implements sql.Scanner.
func (l *Lenient) Scan(src any) error {
	l.Decimal = decimal.Zero
	var raw string
	switch v := src.(type) {
	case nil:
		return nil
	case int64:
		l.Decimal = decimal.NewFromInt(v)
		return nil
	case float64:
		l.Decimal = decimal.NewFromFloat(v)
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		raw = fmt.Sprint(v)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
	if err == nil {
		l.Decimal = d
	}
	return nil
}
