package purchase

import (
	"sort"

	"github.com/samber/lo"

	"kitsura-miniapp/internal/payload"
	"kitsura-miniapp/internal/stories/userdata"
)

// ServerSet is an unordered set of server ids.
type ServerSet map[string]struct{}

func NewServerSet(ids ...string) ServerSet {
	s := make(ServerSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s ServerSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order so payloads are stable.
func (s ServerSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Selection is the user's in-progress choice. Values are copied on every
// change, so a Selection handed out by the negotiator is never mutated.
type Selection struct {
	PeriodID     string
	TrafficValue *int64
	Servers      ServerSet
	// Devices 0 means unset.
	Devices int
}

// Clone deep-copies the selection.
func (s Selection) Clone() Selection {
	out := s
	if s.TrafficValue != nil {
		v := *s.TrafficValue
		out.TrafficValue = &v
	}
	out.Servers = make(ServerSet, len(s.Servers))
	for id := range s.Servers {
		out.Servers[id] = struct{}{}
	}
	return out
}

func (s Selection) WithPeriod(id string) Selection {
	out := s.Clone()
	out.PeriodID = id
	return out
}

func (s Selection) WithTraffic(value int64) Selection {
	out := s.Clone()
	out.TrafficValue = &value
	return out
}

func (s Selection) ToggleServer(id string) Selection {
	out := s.Clone()
	if out.Servers.Has(id) {
		delete(out.Servers, id)
	} else {
		out.Servers[id] = struct{}{}
	}
	return out
}

func (s Selection) WithDevices(n int) Selection {
	out := s.Clone()
	out.Devices = n
	return out
}

func (s Selection) Equal(other Selection) bool {
	if s.PeriodID != other.PeriodID || s.Devices != other.Devices {
		return false
	}
	if (s.TrafficValue == nil) != (other.TrafficValue == nil) {
		return false
	}
	if s.TrafficValue != nil && *s.TrafficValue != *other.TrafficValue {
		return false
	}
	if len(s.Servers) != len(other.Servers) {
		return false
	}
	for id := range s.Servers {
		if !other.Servers.Has(id) {
			return false
		}
	}
	return true
}

// SelectionFromDefaults seeds a selection from the catalogue's default
// selection object, falling back to the first period.
func SelectionFromDefaults(opts *Options) Selection {
	sel := Selection{Servers: NewServerSet()}
	if opts == nil {
		return sel
	}
	defaults := opts.DefaultSelection

	periodID := defaults.FirstString("period_id", "periodId", "period")
	if periodID == "" {
		if days := payload.IntPtr(defaults.Coalesce("period_days", "periodDays", "days")); days != nil {
			for _, p := range opts.Periods {
				if p.Days != nil && *p.Days == *days {
					periodID = p.ID
					break
				}
			}
		}
	}
	if opts.Period(periodID) == nil {
		if first := opts.FirstPeriod(); first != nil {
			periodID = first.ID
		}
	}
	sel.PeriodID = periodID

	if v, ok := trafficValue(defaults.Coalesce("traffic_value", "trafficValue", "traffic", "traffic_gb", "trafficGb")); ok {
		sel.TrafficValue = &v
	}
	sel.Servers = NewServerSet(userdata.ServerIDs(defaults.First("servers", "countries", "server_uuids", "serverUuids"))...)
	if n := payload.IntPtr(defaults.Coalesce("devices", "device_limit", "deviceLimit")); n != nil {
		sel.Devices = *n
	}

	return RepairForPeriod(opts.Period(periodID), sel, opts)
}

// RepairForPeriod makes sel valid for period. A nil period falls back to the
// catalogue's base configs. The result is a fresh value and repairing it again
// returns an equal selection.
func RepairForPeriod(period *Period, sel Selection, opts *Options) Selection {
	out := sel.Clone()

	var (
		traffic TrafficConfig
		servers ServersConfig
		devices DevicesConfig
	)
	switch {
	case period != nil:
		out.PeriodID = period.ID
		traffic, servers, devices = period.Traffic, period.Servers, period.Devices
	case opts != nil:
		traffic, servers, devices = opts.Traffic, opts.Servers, opts.Devices
	}

	out.TrafficValue = repairTraffic(traffic, out.TrafficValue)
	out.Servers = repairServers(servers, out.Servers)
	out.Devices = repairDevices(devices, out.Devices)

	return out
}

func repairTraffic(cfg TrafficConfig, current *int64) *int64 {
	if !cfg.Selectable {
		if cfg.Fixed == nil {
			return nil
		}
		v := *cfg.Fixed
		return &v
	}

	available := cfg.AvailableOptions()
	if current != nil {
		for _, o := range available {
			if o.Value == *current {
				v := o.Value
				return &v
			}
		}
	}
	for _, o := range available {
		if o.Default {
			v := o.Value
			return &v
		}
	}
	if len(available) > 0 {
		v := available[0].Value
		return &v
	}
	return nil
}

func repairServers(cfg ServersConfig, current ServerSet) ServerSet {
	available := cfg.AvailableIDs()
	if len(available) == 0 {
		return NewServerSet()
	}

	minCount := clamp(cfg.Min, 0, len(available))
	maxCount := len(available)
	if cfg.Max > 0 && cfg.Max < maxCount {
		maxCount = cfg.Max
	}
	selectable := cfg.SelectableFlag && len(available) > 1 && cfg.Max != 1

	if !selectable {
		return NewServerSet(available[0])
	}

	kept := lo.Filter(available, func(id string, _ int) bool {
		return current.Has(id)
	})

	if len(kept) == 0 {
		for _, id := range cfg.Defaults {
			if lo.Contains(available, id) && !lo.Contains(kept, id) {
				kept = append(kept, id)
			}
		}
	}
	for _, id := range available {
		if len(kept) >= minCount {
			break
		}
		if !lo.Contains(kept, id) {
			kept = append(kept, id)
		}
	}
	if len(kept) > maxCount {
		kept = kept[:maxCount]
	}

	return NewServerSet(kept...)
}

func repairDevices(cfg DevicesConfig, current int) int {
	value := current
	if value <= 0 {
		value = firstPositive(cfg.Current, cfg.Default, cfg.Included, cfg.Base)
	}
	if value <= 0 {
		value = cfg.Min
		if value <= 0 {
			value = 1
		}
	}
	if value < cfg.Min {
		value = cfg.Min
	}
	if cfg.Max > 0 && value > cfg.Max {
		value = cfg.Max
	}
	return value
}

func firstPositive(values ...*int) int {
	for _, v := range values {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
