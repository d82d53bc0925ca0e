package autopay

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"kitsura-miniapp/internal/payload"
)

var optionKeys = []string{
	"autopay_days_options", "autopayDaysOptions",
	"days_options", "daysOptions",
	"available_days", "availableDays",
}

// Normalize reads one autopay source. It returns nil when raw is not an
// object. The days before and default days are folded into Options.
func Normalize(raw any) *State {
	obj := payload.AsObject(raw)
	if obj == nil {
		return nil
	}

	st := &State{
		DaysBefore: intPtr(obj.Coalesce("autopay_days_before", "days_before", "daysBefore", "days", "value")),
		DefaultDaysBefore: intPtr(obj.Coalesce(
			"default_autopay_days_before", "default_autopay_days",
			"default_days_before", "default_days",
			"defaultDaysBefore", "defaultDays", "default",
		)),
	}
	if b, ok := payload.BoolOpt(obj.Coalesce("autopay_enabled", "enabled", "is_enabled", "active")); ok {
		st.Enabled = &b
	}

	set := map[int]struct{}{}
	for _, key := range optionKeys {
		for _, item := range optionItems(obj.Get(key)) {
			if n := optionValue(item); n != nil {
				set[*n] = struct{}{}
			}
		}
	}
	if st.DaysBefore != nil {
		set[*st.DaysBefore] = struct{}{}
	}
	if st.DefaultDaysBefore != nil {
		set[*st.DefaultDaysBefore] = struct{}{}
	}
	st.Options = sortedKeys(set)

	return st
}

// EnvelopeSources collects the autopay blocks of a response envelope. The
// envelope and its settings or data root count when they carry autopay_
// prefixed keys; nested autopay objects always count.
func EnvelopeSources(raw any) []any {
	top := payload.AsObject(raw)
	if top == nil {
		return nil
	}
	roots := []payload.Object{top}
	if root := top.FirstObj("settings", "data"); root != nil {
		roots = append(roots, root)
	}

	out := make([]any, 0, len(roots)*2)
	for _, root := range roots {
		flat := lo.SomeBy(root.Keys(), func(k string) bool {
			return strings.HasPrefix(k, "autopay_") || strings.HasPrefix(k, "default_autopay_")
		})
		if flat {
			out = append(out, root)
		}
		if obj := root.FirstObj("autopay", "autopay_settings", "autopaySettings"); obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// optionItems accepts a list, an object whose values are the options, or a
// single scalar.
func optionItems(v any) []any {
	if !payload.Truthy(v) {
		return nil
	}
	if obj := payload.AsObject(v); obj != nil {
		return lo.Map(obj.Keys(), func(k string, _ int) any { return obj[k] })
	}
	return payload.AsList(v)
}

func optionValue(item any) *int {
	if item == nil {
		return nil
	}
	if obj := payload.AsObject(item); obj != nil {
		return intPtr(obj.Coalesce("days_before", "daysBefore", "value", "days", "amount"))
	}
	return intPtr(item)
}

func intPtr(v any) *int {
	return payload.IntPtr(v)
}

// Merge folds sources left to right on top of DefaultDayOptions: later
// sources override enabled, days and default days. DaysBefore resolves to
// the explicit value, then the default, then the smallest option. It returns
// nil when no source is an object.
func Merge(sources ...any) *State {
	var (
		hasData     bool
		enabled     *bool
		days        *int
		defaultDays *int
	)
	set := map[int]struct{}{}
	for _, d := range DefaultDayOptions {
		set[d] = struct{}{}
	}

	for _, src := range sources {
		st := Normalize(src)
		if st == nil {
			continue
		}
		hasData = true
		if st.Enabled != nil {
			enabled = st.Enabled
		}
		if st.DaysBefore != nil {
			days = st.DaysBefore
		}
		if st.DefaultDaysBefore != nil {
			defaultDays = st.DefaultDaysBefore
		}
		for _, o := range st.Options {
			set[o] = struct{}{}
		}
	}
	if !hasData {
		return nil
	}

	out := &State{Enabled: enabled, Options: sortedKeys(set)}
	switch {
	case days != nil:
		out.DaysBefore = days
	case defaultDays != nil:
		out.DaysBefore = defaultDays
	case len(out.Options) > 0:
		first := out.Options[0]
		out.DaysBefore = &first
	}
	if defaultDays != nil {
		out.DefaultDaysBefore = defaultDays
	} else {
		out.DefaultDaysBefore = days
	}

	return out
}

func sortedKeys(set map[int]struct{}) []int {
	out := lo.Keys(set)
	sort.Ints(out)
	return out
}
