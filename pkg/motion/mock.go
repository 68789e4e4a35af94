package motion

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is a scriptable Service for tests. Goals settle only when the test
// drives them through Feedback and FinishLast.
type Mock struct {
	mu sync.Mutex

	// FailReady makes the first n WaitReady calls return ErrNotReady.
	FailReady int

	// SubmitErr fails SubmitGoal when set.
	SubmitErr error

	readyCalls  int
	submitted   []Goal
	callbacks   []Callbacks
	handles     []*GoalHandle
	cancelledID []string
}

// WaitReady implements Service.
func (m *Mock) WaitReady(ctx context.Context, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyCalls++
	if m.readyCalls <= m.FailReady {
		return ErrNotReady
	}
	return nil
}

// SubmitGoal implements Service.
func (m *Mock) SubmitGoal(ctx context.Context, goal Goal, cb Callbacks) (*GoalHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}

	id := fmt.Sprintf("goal-%d", len(m.submitted)+1)
	handle := newGoalHandle(id, func() error {
		m.mu.Lock()
		m.cancelledID = append(m.cancelledID, id)
		m.mu.Unlock()
		return nil
	})
	m.submitted = append(m.submitted, goal)
	m.callbacks = append(m.callbacks, cb)
	m.handles = append(m.handles, handle)
	return handle, nil
}

// ReadyCalls returns how many times WaitReady was invoked.
func (m *Mock) ReadyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyCalls
}

// SubmitCount returns how many goals were submitted.
func (m *Mock) SubmitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.submitted)
}

// LastGoal returns the most recently submitted goal.
func (m *Mock) LastGoal() (Goal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submitted) == 0 {
		return Goal{}, false
	}
	return m.submitted[len(m.submitted)-1], true
}

// Feedback drives the latest goal's feedback callback.
func (m *Mock) Feedback(remaining float64) {
	m.mu.Lock()
	var cb Callbacks
	if len(m.callbacks) > 0 {
		cb = m.callbacks[len(m.callbacks)-1]
	}
	m.mu.Unlock()
	if cb.OnFeedback != nil {
		cb.OnFeedback(remaining)
	}
}

// FinishLast settles the latest goal with the given status.
func (m *Mock) FinishLast(status GoalStatus) {
	m.mu.Lock()
	var h *GoalHandle
	if len(m.handles) > 0 {
		h = m.handles[len(m.handles)-1]
	}
	m.mu.Unlock()
	if h != nil {
		h.finish(status)
	}
}

// CancelledIDs returns the goal ids cancelled through their handles.
func (m *Mock) CancelledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.cancelledID))
	copy(out, m.cancelledID)
	return out
}

var _ Service = (*Mock)(nil)
