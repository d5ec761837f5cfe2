package loader

// State is a step of the per-identity load sequence.
type State string

// Load states. A resolution only ever moves forward through them.
const (
	StateInit         State = "INIT"
	StateHaveCached   State = "HAVE_CACHED"
	StateHaveBase     State = "HAVE_BASE"
	StateHaveEnhanced State = "HAVE_ENHANCED"
	StateSettled      State = "SETTLED"
	StateDegraded     State = "DEGRADED"
)

var stateRank = map[State]int{
	StateInit:         0,
	StateHaveCached:   1,
	StateHaveBase:     2,
	StateHaveEnhanced: 3,
	StateSettled:      4,
	StateDegraded:     5,
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether no further transition can follow s within one
// resolution.
func (s State) Terminal() bool {
	switch s {
	case StateHaveEnhanced, StateSettled, StateDegraded:
		return true
	}
	return false
}

// Settled reports whether s carries an authoritative view.
func (s State) Settled() bool {
	return s == StateHaveEnhanced || s == StateSettled
}

// canMove reports whether from → to is a forward transition.
func canMove(from, to State) bool {
	if from.Terminal() {
		return false
	}
	return stateRank[to] > stateRank[from]
}
