package executor

import "context"

// Invocation is one symbolic action instance dispatched from a plan, for
// example move with args [r2d2 wp_control wp1].
type Invocation struct {
	Action string
	Args   []string
}

// Text renders the invocation as a parenthesized term.
func (inv *Invocation) Text() string {
	out := "(" + inv.Action
	for _, a := range inv.Args {
		out += " " + a
	}
	return out + ")"
}

// Reporter receives progress and the terminal result of one invocation.
// Feedback may be called from any goroutine; calls after the result are
// ignored.
type Reporter interface {
	// Feedback reports progress as a fraction in [0, 1].
	Feedback(fraction float64, message string)

	// Result settles the invocation. The first call wins.
	Result(success bool, fraction float64, message string)
}

// Performer drives one kind of symbolic action. The engine calls Tick on
// its cadence until the performer reports a result; Tick must not block
// past its own readiness waits. Cancel tells the performer to abandon the
// current invocation and reset for the next one.
type Performer interface {
	Tick(ctx context.Context, inv *Invocation, rep Reporter)
	Cancel()
}
