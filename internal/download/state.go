package download

import "fmt"

// State is a step of a download job.
//
//	Start -> NativeSave   (a Saver is configured)
//	Start -> DirectFetch  (no Saver)
//	NativeSave  -> Done | DirectFetch
//	DirectFetch -> Done | ProxyFetch | Failed
//	ProxyFetch  -> Done | Failed
type State int

const (
	StateStart State = iota
	StateNativeSave
	StateDirectFetch
	StateProxyFetch
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateStart:       "start",
	StateNativeSave:  "native_save",
	StateDirectFetch: "direct_fetch",
	StateProxyFetch:  "proxy_fetch",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// strategy is the metrics label for the step that delivered (or last ran).
func (s State) strategy() string {
	switch s {
	case StateNativeSave:
		return "native"
	case StateDirectFetch:
		return "direct"
	case StateProxyFetch:
		return "proxy"
	default:
		return "none"
	}
}

var transitions = map[State][]State{
	StateStart:       {StateNativeSave, StateDirectFetch},
	StateNativeSave:  {StateDone, StateDirectFetch, StateFailed},
	StateDirectFetch: {StateDone, StateProxyFetch, StateFailed},
	StateProxyFetch:  {StateDone, StateFailed},
}

// CanTransition reports whether from -> to is a defined transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
