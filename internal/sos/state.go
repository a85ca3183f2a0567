package sos

import (
	"time"
)

// State is the phase of an SOS session.
type State int

const (
	StateIdle State = iota
	StateArming
	StateDispatched
	StateCooldown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArming:
		return "arming"
	case StateDispatched:
		return "dispatched"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// ParseState converts the textual form back to a State.
func ParseState(s string) (State, bool) {
	for _, st := range []State{StateIdle, StateArming, StateDispatched, StateCooldown} {
		if st.String() == s {
			return st, true
		}
	}

	return StateIdle, false
}

// Source tells what started a session.
type Source string

const (
	SourceManual    Source = "manual"
	SourceDetection Source = "detection"
)

// Trigger describes an activation request.
type Trigger struct {
	Source Source
	// Label is the detected danger for detection-sourced activations.
	Label string
}

// Snapshot is a consistent view of the machine.
type Snapshot struct {
	State State
	// Countdown is the seconds left while Arming; the full countdown otherwise.
	Countdown int
	// StartedAt is the activation time of the current session, zero when Idle.
	StartedAt time.Time
	Trigger   Trigger
	// BatchID identifies the dispatched batch while Dispatched.
	BatchID string
	// Siren reports whether the siren setting is on.
	Siren bool
}
