package money

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		kopeks   int64
		currency string
		want     string
	}{
		{name: "whole rubles", kopeks: 13500, currency: "RUB", want: "135\u00a0₽"},
		{name: "thousands grouped", kopeks: 142000, currency: "rub", want: "1\u00a0420\u00a0₽"},
		{name: "million", kopeks: 123456700, currency: "RUB", want: "1\u00a0234\u00a0567\u00a0₽"},
		{name: "trailing zero trimmed", kopeks: 1350, currency: "USD", want: "13,5\u00a0$"},
		{name: "two fraction digits", kopeks: 1005, currency: "EUR", want: "10,05\u00a0€"},
		{name: "unknown code", kopeks: 500, currency: "GBP", want: "5\u00a0GBP"},
		{name: "empty currency", kopeks: 0, currency: "", want: "0\u00a0₽"},
		{name: "negative", kopeks: -2500, currency: "RUB", want: "-25\u00a0₽"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.kopeks, tt.currency); got != tt.want {
				t.Errorf("Format(%d, %q) = %q, want %q", tt.kopeks, tt.currency, got, tt.want)
			}
		})
	}
}

func TestMoneyAccessors(t *testing.T) {
	m := FromKopeks(1000, "RUB")
	if !m.Known() || m.Value() != 1000 {
		t.Errorf("FromKopeks lost amount: %+v", m)
	}

	label := LabelOnly("$10")
	if label.Known() || label.Value() != 0 || label.IsEmpty() {
		t.Errorf("LabelOnly accessors wrong: %+v", label)
	}

	if !(Money{}).IsEmpty() {
		t.Error("zero Money should be empty")
	}
}
