package keeper

// State is one phase of the goalkeeper's cycle.
type State int

// The goalkeeper cycle. Watching observes from the goal line, Chasing
// blocks laterally, Kicking clears the ball, then back to Watching.
const (
	Watching State = iota
	Chasing
	Kicking
)

// next is an explicit transition table; no ordinal arithmetic, so there is
// no wraparound to get wrong.
var next = map[State]State{
	Watching: Chasing,
	Chasing:  Kicking,
	Kicking:  Watching,
}

// Next returns the state that follows s in the fixed cycle.
func (s State) Next() State {
	return next[s]
}

// Origin returns the state a reset lands on. A reset is a full abort, not
// a step back: it is Watching from everywhere.
func (s State) Origin() State {
	return Watching
}

func (s State) String() string {
	switch s {
	case Watching:
		return "watching"
	case Chasing:
		return "chasing"
	case Kicking:
		return "kicking"
	default:
		return "unknown"
	}
}
