package autopay

// DefaultDayOptions seed every merge.
var DefaultDayOptions = []int{1, 3, 7, 14}

// State is the merged autopay view. Enabled is nil until some source states it.
type State struct {
	Enabled           *bool
	DaysBefore        *int
	DefaultDaysBefore *int
	Options           []int
}

// Changes requests a new autopay setting. Nil fields keep the current value.
type Changes struct {
	Enabled    *bool
	DaysBefore *int
}

func (s State) clone() State {
	out := State{Options: append([]int(nil), s.Options...)}
	if s.Enabled != nil {
		v := *s.Enabled
		out.Enabled = &v
	}
	if s.DaysBefore != nil {
		v := *s.DaysBefore
		out.DaysBefore = &v
	}
	if s.DefaultDaysBefore != nil {
		v := *s.DefaultDaysBefore
		out.DefaultDaysBefore = &v
	}
	return out
}

// IsEnabled treats an unknown flag as off.
func (s State) IsEnabled() bool {
	return s.Enabled != nil && *s.Enabled
}
