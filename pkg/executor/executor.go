// Package executor runs plans by dispatching each step to a registered
// performer on a fixed tick. Steps run sequentially: a step must report a
// result before the next one starts, and a failed step fails the plan.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-patrol/internal/log"
	"github.com/teslashibe/go-patrol/pkg/planning"
)

// Config holds the engine settings.
type Config struct {
	// TickInterval is the cadence performers are driven at.
	TickInterval time.Duration
}

// DefaultConfig returns the standard executor settings.
func DefaultConfig() Config {
	return Config{TickInterval: 100 * time.Millisecond}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("executor: tick interval must be positive")
	}
	return nil
}

// Engine executes one plan at a time. StartPlanExecution is rejected
// while a run is in flight, so callers never have two plans racing.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.RWMutex
	performers map[string]Performer
	executing  bool
	statuses   []ActionStatus
	result     *Result
	cancelRun  context.CancelFunc
}

// New builds an engine from config.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     log.With("component", "executor"),
		performers: make(map[string]Performer),
	}
}

// Register binds a performer to an action name. Registering during an
// active run takes effect from the next plan.
func (e *Engine) Register(action string, p Performer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.performers[action] = p
}

// StartPlanExecution begins running the plan and reports whether it was
// accepted. A plan is rejected while another one is executing.
func (e *Engine) StartPlanExecution(plan *planning.Plan) bool {
	if plan == nil {
		e.logger.Error("rejecting nil plan")
		return false
	}

	e.mu.Lock()
	if e.executing {
		e.mu.Unlock()
		return false
	}
	e.executing = true
	e.result = nil
	e.statuses = make([]ActionStatus, len(plan.Steps))
	for i, step := range plan.Steps {
		e.statuses[i] = ActionStatus{Action: step.Text(), Status: StatusPending}
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancelRun = cancel
	e.mu.Unlock()

	e.logger.Info("plan accepted", "steps", len(plan.Steps))
	go e.run(ctx, plan)
	return true
}

// IsExecuting reports whether a plan is currently running.
func (e *Engine) IsExecuting() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.executing
}

// Feedback returns the per-step statuses of the current run, or of the
// last run once it finished.
func (e *Engine) Feedback() []ActionStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ActionStatus, len(e.statuses))
	copy(out, e.statuses)
	return out
}

// Result returns the outcome of the last run. ok is false while a run is
// executing and before the first run. The result stays available until
// the next StartPlanExecution.
func (e *Engine) Result() (Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.result == nil {
		return Result{}, false
	}
	return *e.result, true
}

// Cancel aborts the current run, if any. The run settles with a failed
// result once the active performer acknowledges.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancelRun
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) run(ctx context.Context, plan *planning.Plan) {
	for i := range plan.Steps {
		step := plan.Steps[i]
		inv := &Invocation{Action: step.Action, Args: step.Args}

		e.mu.RLock()
		perf, ok := e.performers[step.Action]
		e.mu.RUnlock()
		if !ok {
			msg := fmt.Sprintf("no performer registered for action %q", step.Action)
			e.setStep(i, StatusFailed, 0, msg)
			e.finish(false, msg)
			return
		}

		e.setStep(i, StatusRunning, 0, "")
		e.logger.Info("step started", "step", i, "action", inv.Text())

		res, cancelled := e.runStep(ctx, i, perf, inv)
		if cancelled {
			e.setStep(i, StatusCancelled, e.stepCompletion(i), "execution cancelled")
			e.finish(false, "execution cancelled")
			return
		}
		if !res.Success {
			e.logger.Warn("step failed", "step", i, "action", inv.Text(), "message", res.Message)
			e.finish(false, fmt.Sprintf("%s: %s", inv.Text(), res.Message))
			return
		}
		e.logger.Info("step finished", "step", i, "action", inv.Text())
	}
	e.finish(true, "plan completed")
}

// runStep ticks the performer until it reports a result or the run is
// cancelled.
func (e *Engine) runStep(ctx context.Context, idx int, perf Performer, inv *Invocation) (Result, bool) {
	rep := &stepReporter{engine: e, idx: idx}
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		perf.Tick(ctx, inv, rep)
		if res, ok := rep.result(); ok {
			return res, false
		}
		select {
		case <-ctx.Done():
			perf.Cancel()
			return Result{}, true
		case <-ticker.C:
		}
	}
}

func (e *Engine) finish(success bool, message string) {
	e.mu.Lock()
	e.executing = false
	e.result = &Result{Success: success, Message: message}
	e.cancelRun = nil
	e.mu.Unlock()
	e.logger.Info("plan finished", "success", success, "message", message)
}

func (e *Engine) setStep(idx int, status Status, completion float64, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx >= len(e.statuses) {
		return
	}
	e.statuses[idx].Status = status
	e.statuses[idx].Completion = clamp01(completion)
	if message != "" {
		e.statuses[idx].Message = message
	}
}

func (e *Engine) updateProgress(idx int, fraction float64, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx >= len(e.statuses) || e.statuses[idx].Status != StatusRunning {
		return
	}
	e.statuses[idx].Completion = clamp01(fraction)
	e.statuses[idx].Message = message
}

func (e *Engine) stepCompletion(idx int) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if idx >= len(e.statuses) {
		return 0
	}
	return e.statuses[idx].Completion
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stepReporter routes one step's progress into the engine. The first
// Result call settles the step; everything after is dropped.
type stepReporter struct {
	engine *Engine
	idx    int

	mu   sync.Mutex
	done bool
	res  Result
}

func (r *stepReporter) Feedback(fraction float64, message string) {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done {
		return
	}
	r.engine.updateProgress(r.idx, fraction, message)
}

func (r *stepReporter) Result(success bool, fraction float64, message string) {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.done = true
	r.res = Result{Success: success, Message: message}
	r.mu.Unlock()

	status := StatusSucceeded
	if !success {
		status = StatusFailed
	}
	r.engine.setStep(r.idx, status, fraction, message)
}

func (r *stepReporter) result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.res, r.done
}
