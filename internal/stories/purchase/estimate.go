package purchase

import (
	"math"

	"kitsura-miniapp/internal/money"
)

// Estimate adds add-on prices to the period price on the client:
// period price + (traffic tier price + selected server prices) × months.
// Months come from the period, else ceil(days/30), else 1. The result is nil
// when the selected period is unknown or has no numeric price.
func Estimate(opts *Options, sel Selection) *Preview {
	period := opts.Period(sel.PeriodID)
	if period == nil || !period.Price.Known() {
		return nil
	}

	var addons int64
	if sel.TrafficValue != nil {
		for _, o := range period.Traffic.Options {
			if o.Value == *sel.TrafficValue {
				addons += o.Price.Value()
				break
			}
		}
	}
	for _, id := range sel.Servers.Sorted() {
		if server := period.Servers.Option(id); server != nil {
			addons += server.Price.Value()
		}
	}

	total := period.Price.Value() + addons*estimateMonths(period)
	p := &Preview{
		Total:           money.FromKopeks(total, opts.Currency),
		DiscountPercent: period.DiscountPercent,
		Balance:         opts.Balance,
		Estimated:       true,
		CanPurchase:     true,
	}
	p.Total.Label = "~" + p.Total.Label

	if period.OriginalPrice.Known() {
		p.Original = money.FromKopeks(period.OriginalPrice.Value()+addons*estimateMonths(period), opts.Currency)
	}
	if opts.Balance.Known() {
		missing := total - opts.Balance.Value()
		if missing < 0 {
			missing = 0
		}
		p.Missing = money.FromKopeks(missing, opts.Currency)
		p.CanPurchase = missing == 0
	}

	return p
}

func estimateMonths(p *Period) int64 {
	if p.Months != nil && *p.Months > 0 {
		return int64(*p.Months)
	}
	if p.Days != nil && *p.Days > 0 {
		return int64(math.Ceil(float64(*p.Days) / 30))
	}
	return 1
}
