// Package motion provides the asynchronous navigate-to-pose client used
// by move actions. Goals are fire-and-forget: submission returns a handle
// and progress arrives through callbacks while the caller keeps ticking.
package motion

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teslashibe/go-patrol/pkg/geometry"
)

var (
	// ErrNotConnected is returned when a goal is submitted before the
	// client has a live connection.
	ErrNotConnected = errors.New("motion: not connected to motion server")

	// ErrNotReady is returned when the motion server cannot be reached
	// within the readiness timeout.
	ErrNotReady = errors.New("motion: server not ready")

	// ErrGoalRejected is returned when the server refuses a goal.
	ErrGoalRejected = errors.New("motion: goal rejected")
)

// GoalStatus is the terminal disposition of a navigation goal.
type GoalStatus string

const (
	// StatusPending means the goal is still in flight.
	StatusPending GoalStatus = "pending"

	// StatusSucceeded means the server reports the goal reached.
	StatusSucceeded GoalStatus = "succeeded"

	// StatusAborted means the server gave up on the goal.
	StatusAborted GoalStatus = "aborted"

	// StatusCancelled means the goal was cancelled from our side.
	StatusCancelled GoalStatus = "cancelled"
)

// Goal asks the motion server to drive the robot to a pose.
type Goal struct {
	Target geometry.Pose `json:"target"`
	Frame  string        `json:"frame,omitempty"`
}

// Callbacks receive asynchronous goal events. Handlers run on the client's
// read goroutine and must not block.
type Callbacks struct {
	// OnFeedback is called with the remaining distance in meters.
	OnFeedback func(remaining float64)
}

// Service is the motion server surface the patrol depends on.
type Service interface {
	// WaitReady blocks until the server is reachable or the timeout
	// elapses, in which case it returns ErrNotReady.
	WaitReady(ctx context.Context, timeout time.Duration) error

	// SubmitGoal sends a goal without waiting for its outcome.
	SubmitGoal(ctx context.Context, goal Goal, cb Callbacks) (*GoalHandle, error)
}

// GoalHandle tracks one in-flight goal.
type GoalHandle struct {
	id       string
	cancelFn func() error

	mu     sync.Mutex
	status GoalStatus
	done   chan struct{}
}

func newGoalHandle(id string, cancel func() error) *GoalHandle {
	return &GoalHandle{
		id:       id,
		cancelFn: cancel,
		status:   StatusPending,
		done:     make(chan struct{}),
	}
}

// ID returns the goal's wire identifier.
func (h *GoalHandle) ID() string {
	return h.id
}

// Status returns StatusPending until the goal reaches a terminal state.
func (h *GoalHandle) Status() GoalStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Done is closed when the goal reaches a terminal state.
func (h *GoalHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel asks the server to stop pursuing the goal. The handle settles to
// StatusCancelled when the server confirms.
func (h *GoalHandle) Cancel() error {
	h.mu.Lock()
	settled := h.status != StatusPending
	h.mu.Unlock()
	if settled || h.cancelFn == nil {
		return nil
	}
	return h.cancelFn()
}

// finish settles the handle. The first terminal status wins.
func (h *GoalHandle) finish(status GoalStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != StatusPending {
		return
	}
	h.status = status
	close(h.done)
}
