package i18n

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency describes how money amounts are printed.
type Currency struct {
	Symbol string
	// SymbolFirst prints the symbol before the amount ("$ 10.00").
	SymbolFirst bool
	Decimals    int
}

// Formatter prints money and plain numbers with locale-aware separators.
type Formatter struct {
	printer  *message.Printer
	currency Currency
	decimals int
}

// NewFormatter builds a formatter for tag. numberDecimals is the default
// precision of Number.
func NewFormatter(tag language.Tag, currency Currency, numberDecimals int) *Formatter {
	if currency.Decimals < 0 {
		currency.Decimals = 2
	}
	if numberDecimals < 0 {
		numberDecimals = 2
	}
	return &Formatter{
		printer:  message.NewPrinter(tag),
		currency: currency,
		decimals: numberDecimals,
	}
}

// Money formats v with the currency symbol. An explicit decimals argument
// overrides the currency precision.
func (f *Formatter) Money(v decimal.Decimal, decimals ...int) string {
	d := f.currency.Decimals
	if len(decimals) > 0 && decimals[0] >= 0 {
		d = decimals[0]
	}
	amount := f.format(v, d)
	switch {
	case f.currency.Symbol == "":
		return amount
	case f.currency.SymbolFirst:
		return f.currency.Symbol + " " + amount
	default:
		return amount + " " + f.currency.Symbol
	}
}

// Number formats v without symbol.
func (f *Formatter) Number(v decimal.Decimal, decimals ...int) string {
	d := f.decimals
	if len(decimals) > 0 && decimals[0] >= 0 {
		d = decimals[0]
	}
	return f.format(v, d)
}

func (f *Formatter) format(v decimal.Decimal, d int) string {
	rounded := v.Round(int32(d))
	out := f.printer.Sprint(number.Decimal(rounded.InexactFloat64(), number.Scale(d)))
	// Avoid "-0,00" after rounding tiny negatives.
	if rounded.IsZero() {
		out = strings.TrimPrefix(out, "-")
	}
	return out
}
