package executor

// Status is the lifecycle state of one plan step.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ActionStatus is the observable state of one plan step.
type ActionStatus struct {
	// Action is the step's full action term, for example
	// "(move r2d2 wp_control wp1)".
	Action string `json:"action"`

	// Completion is progress in [0, 1].
	Completion float64 `json:"completion"`

	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Result is the terminal outcome of a plan execution.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
