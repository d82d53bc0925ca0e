package money

import (
	"strconv"
	"strings"
)

const DefaultCurrency = "RUB"

const nbsp = "\u00a0"

var symbols = map[string]string{
	"RUB": "₽",
	"USD": "$",
	"EUR": "€",
	"KZT": "₸",
	"UAH": "₴",
	"BYN": "Br",
}

// Money is an amount in minor units with its display label. Kopeks is nil when
// the backend sent only a label.
type Money struct {
	Kopeks *int64
	Label  string
}

// FromKopeks builds a Money with a formatted label.
func FromKopeks(kopeks int64, currency string) Money {
	return Money{Kopeks: &kopeks, Label: Format(kopeks, currency)}
}

// LabelOnly builds a Money that carries no numeric value.
func LabelOnly(label string) Money {
	return Money{Label: label}
}

// Value returns the amount or 0 when unknown.
func (m Money) Value() int64 {
	if m.Kopeks == nil {
		return 0
	}
	return *m.Kopeks
}

// Known reports whether the amount is numeric.
func (m Money) Known() bool {
	return m.Kopeks != nil
}

// IsEmpty reports whether neither an amount nor a label is present.
func (m Money) IsEmpty() bool {
	return m.Kopeks == nil && m.Label == ""
}

// NormalizeCurrency upper-cases code and falls back to RUB.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	return code
}

// Format renders minor units in ru-RU style: "1 350 ₽", "13,5 $".
// Fraction digits are shown only when non-zero, at most two.
func Format(kopeks int64, currency string) string {
	sign := ""
	if kopeks < 0 {
		sign = "-"
		kopeks = -kopeks
	}

	whole := groupThousands(strconv.FormatInt(kopeks/100, 10))

	fraction := ""
	if cents := kopeks % 100; cents != 0 {
		digits := strconv.FormatInt(cents, 10)
		if cents < 10 {
			digits = "0" + digits
		}
		fraction = "," + strings.TrimRight(digits, "0")
	}

	currency = NormalizeCurrency(currency)
	symbol, ok := symbols[currency]
	if !ok {
		symbol = currency
	}

	return sign + whole + fraction + nbsp + symbol
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(nbsp)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
