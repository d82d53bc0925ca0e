package purchase

import (
	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
)

type Mode string

const (
	ModePurchase Mode = "purchase"
	ModeRenewal  Mode = "renewal"
)

type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseLoadingOptions Phase = "loading_options"
	PhaseReady          Phase = "ready"
	PhasePreviewing     Phase = "previewing"
	PhaseSubmitting     Phase = "submitting"
	PhaseSuccess        Phase = "success"
	PhaseFailed         Phase = "failed"
)

// Options is the purchase or renewal catalogue.
type Options struct {
	Currency         string
	Balance          money.Money
	Periods          []Period
	Traffic          TrafficConfig
	Servers          ServersConfig
	Devices          DevicesConfig
	DefaultSelection payload.Object
	Summary          payload.Object
	Promo            any
	SubscriptionID   string
	Raw              payload.Object
}

// Period carries its effective configs: the base config with the period's
// own override applied on top.
type Period struct {
	ID              string
	Days            *int
	Months          *int
	Label           string
	Price           money.Money
	OriginalPrice   money.Money
	DiscountPercent *int
	Best            bool
	Description     string
	Traffic         TrafficConfig
	Servers         ServersConfig
	Devices         DevicesConfig
	Raw             payload.Object
}

type TrafficConfig struct {
	Mode       string
	Selectable bool
	Options    []TrafficOption
	// Fixed is the value used when the tier is not selectable.
	Fixed      *int64
	Hint       string
}

// TrafficOption values are gigabytes; zero or less means unlimited.
type TrafficOption struct {
	Value     int64
	Label     string
	Price     money.Money
	Default   bool
	Available bool
}

type ServersConfig struct {
	Options        []ServerOption
	Min            int
	Max            int
	SelectableFlag bool
	Defaults       []string
	Hint           string
}

type ServerOption struct {
	UUID            string
	Name            string
	Price           money.Money
	OriginalPrice   money.Money
	DiscountPercent *int
	Available       bool
	Description     string
}

// DevicesConfig bounds the device limit. Max 0 means unbounded.
type DevicesConfig struct {
	Min      int
	Max      int
	Step     int
	Current  *int
	Default  *int
	Included *int
	Base     *int
	Price    money.Money
	Hint     string
}

type Preview struct {
	Total           money.Money
	Original        money.Money
	PerMonth        money.Money
	DiscountPercent *int
	DiscountLabel   string
	DiscountLines   []string
	Breakdown       []BreakdownLine
	Balance         money.Money
	Missing         money.Money
	CanPurchase     bool
	StatusMessage   string
	// Estimated marks a client-side estimate made without a backend quote.
	Estimated       bool
	Raw             payload.Object
}

type BreakdownLine struct {
	Label     string
	Value     string
	Highlight bool
}

// Period looks up a period by id.
func (o *Options) Period(id string) *Period {
	if o == nil {
		return nil
	}
	for i := range o.Periods {
		if o.Periods[i].ID == id {
			return &o.Periods[i]
		}
	}
	return nil
}

// FirstPeriod returns the first period or nil.
func (o *Options) FirstPeriod() *Period {
	if o == nil || len(o.Periods) == 0 {
		return nil
	}
	return &o.Periods[0]
}

// AvailableOptions returns the tiers that can currently be chosen.
func (c TrafficConfig) AvailableOptions() []TrafficOption {
	out := make([]TrafficOption, 0, len(c.Options))
	for _, o := range c.Options {
		if o.Available {
			out = append(out, o)
		}
	}
	return out
}

// AvailableIDs returns enabled server ids in catalogue order.
func (c ServersConfig) AvailableIDs() []string {
	out := make([]string, 0, len(c.Options))
	for _, o := range c.Options {
		if o.Available && o.UUID != "" {
			out = append(out, o.UUID)
		}
	}
	return out
}

// Option looks up a server by id.
func (c ServersConfig) Option(id string) *ServerOption {
	for i := range c.Options {
		if c.Options[i].UUID == id {
			return &c.Options[i]
		}
	}
	return nil
}
