package mission

import "fmt"

// State is the mission run state.
type State string

const (
	WaitForTag           State = "wait-for-tag"
	LineTrace            State = "line-trace"
	TurnLeft90           State = "turn-left-90"
	TurnRight90          State = "turn-right-90"
	Turn180              State = "turn-180"
	IntersectionDecision State = "intersection-decision"
	ForwardAfterDecision State = "forward-after-decision"
	ForwardAfterTurn     State = "forward-after-turn"
)

// AllStates returns every state in declaration order.
func AllStates() []State {
	return []State{
		WaitForTag,
		LineTrace,
		TurnLeft90,
		TurnRight90,
		Turn180,
		IntersectionDecision,
		ForwardAfterDecision,
		ForwardAfterTurn,
	}
}

// Path is the decision code selected at an intersection.
type Path int

const (
	PathNone     Path = 0
	PathStraight Path = 1
	PathLeft     Path = 2
	PathUTurn    Path = 3
	PathRight    Path = 4
)

func (p Path) String() string {
	switch p {
	case PathNone:
		return "none"
	case PathStraight:
		return "straight"
	case PathLeft:
		return "left"
	case PathUTurn:
		return "uturn"
	case PathRight:
		return "right"
	default:
		return fmt.Sprintf("path(%d)", int(p))
	}
}

// transitions lists the legal successors of each state.
// Maneuver states fall back to WaitForTag when a maneuver is aborted.
var transitions = map[State][]State{
	WaitForTag:           {LineTrace},
	LineTrace:            {IntersectionDecision},
	IntersectionDecision: {Turn180, TurnLeft90, TurnRight90, ForwardAfterDecision},
	TurnLeft90:           {ForwardAfterTurn, WaitForTag},
	TurnRight90:          {ForwardAfterTurn, WaitForTag},
	Turn180:              {ForwardAfterTurn, WaitForTag},
	ForwardAfterDecision: {LineTrace},
	ForwardAfterTurn:     {LineTrace},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   int64
	Path Path
}
