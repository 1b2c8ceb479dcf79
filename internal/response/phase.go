// internal/response/phase.go
//
// Lifecycle of a window response: Open → Closed → Released.  Released is
// reachable from Open (request aborted) or Closed (normal cleanup).  Every
// other move is refused and the caller treats it as a no-op.

package response

// Phase is the lifecycle position of a Context.
type Phase int

const (
	Open Phase = iota
	Closed
	Released
)

func (p Phase) String() string {
	switch p {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Phase) bool {
	switch from {
	case Open:
		return to == Closed || to == Released
	case Closed:
		return to == Released
	default:
		return false
	}
}

// transition returns the next phase and whether the move happened.
func transition(from, to Phase) (Phase, bool) {
	if !CanTransition(from, to) {
		return from, false
	}
	return to, true
}
