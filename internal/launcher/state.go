package launcher

// State is a step of the launch sequence.
type State string

const (
	StateStart                     State = "start"
	StateDirectoryResolved         State = "directory_resolved"
	StateEnvironmentActive         State = "environment_active"
	StateDelegateInvoked           State = "delegate_invoked"
	StateDone                      State = "done"
	StateDirectoryResolveFailed    State = "directory_resolve_failed"
	StateEnvironmentActivateFailed State = "environment_activate_failed"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateDirectoryResolveFailed, StateEnvironmentActivateFailed:
		return true
	default:
		return false
	}
}

var transitions = map[State][]State{
	StateStart:             {StateDirectoryResolved, StateDirectoryResolveFailed},
	StateDirectoryResolved: {StateEnvironmentActive, StateEnvironmentActivateFailed},
	StateEnvironmentActive: {StateDelegateInvoked, StateDone},
	StateDelegateInvoked:   {StateDone},
}

// validTransition reports whether to may directly follow from.
// environment_active -> done covers a panicking delegate.
func validTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
