package fines

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders money amounts with locale digit grouping, e.g. "KES 1,250.00".
type Formatter struct {
	currency string
	printer  *message.Printer
}

// NewFormatter builds a formatter for a currency code and BCP 47 locale.
// Unknown locales fall back to English.
func NewFormatter(currency, locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{currency: currency, printer: message.NewPrinter(tag)}
}

func (f *Formatter) Format(amount decimal.Decimal) string {
	value := f.printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	if f.currency == "" {
		return value
	}
	return f.currency + " " + value
}

func (f *Formatter) Currency() string {
	return f.currency
}
