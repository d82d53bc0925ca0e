package settings

import (
	"kitsura-miniapp/internal/money"
	"kitsura-miniapp/internal/payload"
)

// Settings describes what the subscription holder can change in place.
type Settings struct {
	SubscriptionID string
	Currency       string
	Current        Current
	Servers        Servers
	Traffic        Traffic
	Devices        Devices
	Raw            payload.Object
}

type Current struct {
	// Servers is sorted.
	Servers      []string
	TrafficLabel string
	DeviceLimit  int64
}

type Servers struct {
	Available []ServerOption
	Min       int64
	Max       int64
	CanUpdate bool
	Hint      string
}

type ServerOption struct {
	UUID            string
	Name            string
	Price           money.Money
	DiscountPercent *int
	Connected       bool
	Available       bool
	DisabledReason  string
}

type Traffic struct {
	Options   []TrafficOption
	Current   *int64
	CanUpdate bool
	Hint      string
}

type TrafficOption struct {
	Value     int64
	Label     string
	Price     money.Money
	Current   bool
	Available bool
}

type Devices struct {
	Options   []DeviceOption
	Current   int64
	Min       int64
	Max       int64
	Step      int64
	CanUpdate bool
	Price     money.Money
	Hint      string
}

type DeviceOption struct {
	Value     int64
	Label     string
	Price     money.Money
	Current   bool
	Available bool
}

// Selections is the pending edit, seeded from Current on every load.
type Selections struct {
	Servers []string
	Traffic *int64
	Devices *int64
}
