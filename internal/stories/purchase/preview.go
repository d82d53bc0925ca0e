package purchase

import (
	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
)

// NormalizePreview maps a preview payload into a Preview, or nil when raw is
// not an object. opts may be nil.
func NormalizePreview(raw any, opts *Options, ctx Context) *Preview {
	top := payload.AsObject(raw)
	if top == nil {
		return nil
	}
	root := top.FirstObj("preview", "data", "summary")
	if root == nil {
		root = top
	}

	currency := ctx.currency()
	if opts != nil && opts.Currency != "" {
		currency = opts.Currency
	}
	currency = money.NormalizeCurrency(currency)

	p := &Preview{
		Total: ResolvePrice(
			values(root, "total_price_kopeks", "totalPriceKopeks", "final_price_kopeks", "finalPriceKopeks",
				"price_kopeks", "priceKopeks", "amount_kopeks", "amountKopeks"),
			values(root, "total_price_label", "totalPriceLabel", "final_price_label", "finalPriceLabel",
				"price_label", "priceLabel", "amount_label", "amountLabel"),
			currency,
		),
		Original: ResolvePrice(
			values(root, "original_price_kopeks", "originalPriceKopeks", "base_price_kopeks", "basePriceKopeks"),
			values(root, "original_price_label", "originalPriceLabel", "base_price_label", "basePriceLabel"),
			currency,
		),
		PerMonth: ResolvePrice(
			values(root, "per_month_price_kopeks", "perMonthPriceKopeks", "monthly_price_kopeks", "monthlyPriceKopeks"),
			values(root, "per_month_price_label", "perMonthPriceLabel", "monthly_price_label", "monthlyPriceLabel"),
			currency,
		),
		DiscountPercent: payload.IntPtr(root.Coalesce("discount_percent", "discountPercent")),
		DiscountLabel:   root.FirstString("discount_label", "discountLabel"),
		DiscountLines:   discountLines(root.First("discount_lines", "discountLines", "promo", "discounts")),
		Breakdown:       breakdown(root.First("breakdown", "items")),
		StatusMessage: firstNonEmpty(
			root.FirstString("status_message", "statusMessage"),
			top.FirstString("status_message", "statusMessage"),
		),
		Raw: top,
	}

	balance := payload.PositiveIntPtr(firstPresent(
		root.Coalesce("balance_kopeks", "balanceKopeks"),
		top.Coalesce("balance_kopeks", "balanceKopeks"),
	))
	if balance == nil && opts != nil {
		balance = opts.Balance.Kopeks
	}
	if balance == nil && ctx.User != nil {
		balance = ctx.User.BalanceKopeks
	}
	p.Balance = labelled(balance, root.FirstString("balance_label", "balanceLabel"), currency)

	missing := payload.PositiveIntPtr(root.Coalesce(
		"missing_amount_kopeks", "missingAmountKopeks",
		"balance_needed_kopeks", "balanceNeededKopeks",
		"amount_due_kopeks", "amountDueKopeks",
	))
	p.Missing = labelled(missing, root.FirstString("missing_amount_label", "missingAmountLabel"), currency)

	p.CanPurchase = payload.Bool(root.Coalesce("can_purchase", "canPurchase"), missing == nil || *missing <= 0)

	return p
}

func values(o payload.Object, keys ...string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = o.Get(k)
	}
	return out
}

func labelled(kopeks *int64, label, currency string) money.Money {
	m := money.Money{Kopeks: kopeks, Label: label}
	if m.Label == "" && kopeks != nil {
		m.Label = money.Format(*kopeks, currency)
	}
	return m
}

func discountLines(v any) []string {
	out := make([]string, 0)
	for _, line := range payload.AsList(v) {
		if s, ok := line.(string); ok {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		if label, ok := payload.NonBlank(payload.AsObject(line).Get("label")); ok {
			out = append(out, label)
		}
	}
	return out
}

func breakdown(v any) []BreakdownLine {
	out := make([]BreakdownLine, 0)
	for _, item := range payload.AsList(v) {
		obj := payload.AsObject(item)
		if obj == nil {
			continue
		}
		label := obj.FirstString("label", "title")
		value := obj.FirstString("value_label", "valueLabel", "value")
		if label == "" && value == "" {
			continue
		}
		out = append(out, BreakdownLine{
			Label:     label,
			Value:     value,
			Highlight: payload.Bool(obj.Coalesce("highlight", "emphasis", "isImportant"), false),
		})
	}
	return out
}
