// Package fsm implements the per-user finite-state machine (§4.3): the
// closed state set, case-insensitive state-name resolution, and the
// state×event transition table with its store side effects.
package fsm

import "strings"

// State is one of the closed set of state tags a User may carry. It
// carries only its tag; no other mutable attribute.
type State int

const (
	Idle State = iota
	Start
	StartConfirmation
	StartRejection
	Revoke
	PrivateMode
	Shuffle
)

var stateNames = map[State]string{
	Idle:              "Idle",
	Start:             "Start",
	StartConfirmation: "StartConfirmation",
	StartRejection:    "StartRejection",
	Revoke:            "Revoke",
	PrivateMode:       "PrivateMode",
	Shuffle:           "Shuffle",
}

// String returns the canonical, persisted tag name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// StateResolutionError marks a persisted state tag that does not match
// any member of the closed set (§4.3 "State resolution"). It is fatal:
// callers surface it rather than recover from it.
type StateResolutionError struct {
	Raw string
}

func (e *StateResolutionError) Error() string {
	return "unrecognized state tag: " + e.Raw
}

// FromName resolves a persisted tag name to a State, case-insensitively.
// An unrecognized name returns a *StateResolutionError.
func FromName(name string) (State, error) {
	lower := strings.ToLower(name)
	for state, canonical := range stateNames {
		if strings.ToLower(canonical) == lower {
			return state, nil
		}
	}
	return 0, &StateResolutionError{Raw: name}
}

// TransitionResult is the two-variant sum every transition method
// returns: TransitionSuccess(newState) or TransitionFailure(currentState).
type TransitionResult struct {
	ok    bool
	state State
}

// TransitionSuccess builds a successful transition result carrying the
// state the user moved to.
func TransitionSuccess(newState State) TransitionResult {
	return TransitionResult{ok: true, state: newState}
}

// TransitionFailure builds a failed transition result carrying the state
// the user remains in.
func TransitionFailure(currentState State) TransitionResult {
	return TransitionResult{ok: false, state: currentState}
}

// OK reports whether the transition succeeded.
func (r TransitionResult) OK() bool { return r.ok }

// State returns the resulting state on success, or the unchanged current
// state on failure.
func (r TransitionResult) State() State { return r.state }
