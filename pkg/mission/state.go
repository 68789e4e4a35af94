package mission

// State is the mission controller's phase.
type State int

const (
	// StateStarting plans and launches the patrol lap.
	StateStarting State = iota

	// StatePatrolFinished monitors the lap and launches the return leg
	// once the lap completes.
	StatePatrolFinished

	// StateGoBack monitors the return leg. The mission holds here; there
	// is no transition out.
	StateGoBack
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePatrolFinished:
		return "patrol_finished"
	case StateGoBack:
		return "go_back"
	default:
		return "unknown"
	}
}
