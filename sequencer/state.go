// Package sequencer resolves named motion sequence requests into queued motion segments and
// plays them back, tick by tick, into bone-local poses.
package sequencer

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// State is a pose state (standing, crouching, ...) identified by the hash of its name.
type State uint32

// StateNone is the state-agnostic state. A controller or sequence in StateNone accepts any transition.
const StateNone State = 0

// Hash returns the 32 bit identifier used for state, sequence and motion names.
func Hash(name string) uint32 {
	return uint32(xxhash.Sum64String(name))
}

// StateOf returns the state named name. The empty name is StateNone.
func StateOf(name string) State {
	if name == "" {
		return StateNone
	}
	return State(Hash(name))
}

func (s State) String() string {
	if s == StateNone {
		return "none"
	}
	return fmt.Sprintf("state(%08x)", uint32(s))
}

func transitionKey(from, to State) uint64 {
	return uint64(from)<<32 | uint64(to)
}
