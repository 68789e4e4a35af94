// Package mission runs the patrol mission: seed the knowledge store, plan
// a lap over the patrol waypoints, watch the execution, then send the
// robot to the waypoint picked by the selector marker. Failures replan
// against the live knowledge rather than aborting the mission.
package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-patrol/internal/log"
	"github.com/teslashibe/go-patrol/pkg/executor"
	"github.com/teslashibe/go-patrol/pkg/feeds"
	"github.com/teslashibe/go-patrol/pkg/knowledge"
	"github.com/teslashibe/go-patrol/pkg/planning"
)

// patrolWaypoints are the patrol legs in selector order: marker value n
// sends the robot back to patrolWaypoints[n].
var patrolWaypoints = []string{"wp1", "wp2", "wp3", "wp4"}

// controlWaypoint is where the robot starts and where the patrol lap ends.
const controlWaypoint = "wp_control"

// connections is the traversable waypoint graph.
var connections = [][2]string{
	{"wp_control", "wp1"},
	{"wp1", "wp2"},
	{"wp2", "wp3"},
	{"wp3", "wp4"},
	{"wp4", "wp1"},
	{"wp4", "wp3"},
	{"wp3", "wp2"},
}

// Engine is the plan execution surface the controller drives.
type Engine interface {
	StartPlanExecution(plan *planning.Plan) bool
	IsExecuting() bool
	Feedback() []executor.ActionStatus
	Result() (executor.Result, bool)
}

var _ Engine = (*executor.Engine)(nil)

// Config holds the mission controller settings.
type Config struct {
	// TickInterval is the control loop cadence.
	TickInterval time.Duration

	// Robot is the robot's name in the knowledge store.
	Robot string
}

// DefaultConfig returns the standard mission settings.
func DefaultConfig() Config {
	return Config{
		TickInterval: 200 * time.Millisecond,
		Robot:        "r2d2",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("mission: tick interval must be positive")
	}
	if c.Robot == "" {
		return errors.New("mission: robot name must not be empty")
	}
	return nil
}

// Snapshot is the externally visible mission state.
type Snapshot struct {
	State     string                  `json:"state"`
	Selector  int64                   `json:"selector"`
	Goal      string                  `json:"goal"`
	Executing bool                    `json:"executing"`
	Actions   []executor.ActionStatus `json:"actions,omitempty"`
	Result    *executor.Result        `json:"result,omitempty"`
}

// Controller is the mission state machine. Step runs on a single
// goroutine; Snapshot may be called from anywhere.
type Controller struct {
	cfg      Config
	store    *knowledge.Store
	planner  planning.Service
	engine   Engine
	selector *feeds.SelectorFeed
	logger   *slog.Logger

	mu     sync.RWMutex
	state  State
	notify func(Snapshot)

	// plan and applied track the submitted plan and how many of its
	// leading steps have had their effects folded into the store.
	// Touched only on the Step goroutine.
	plan    *planning.Plan
	applied int
}

// New wires a controller to its collaborators.
func New(cfg Config, store *knowledge.Store, planner planning.Service, engine Engine, selector *feeds.SelectorFeed) *Controller {
	return &Controller{
		cfg:      cfg,
		store:    store,
		planner:  planner,
		engine:   engine,
		selector: selector,
		logger:   log.With("component", "mission"),
	}
}

// SetNotify registers a callback invoked with a fresh snapshot after each
// step. Set it before Run.
func (c *Controller) SetNotify(fn func(Snapshot)) {
	c.mu.Lock()
	c.notify = fn
	c.mu.Unlock()
}

// InitKnowledge seeds the store with the robot, the waypoint graph, and
// the robot's starting position.
func (c *Controller) InitKnowledge() error {
	if err := c.store.AddInstance(c.cfg.Robot, "robot"); err != nil {
		return err
	}
	for _, wp := range append([]string{controlWaypoint}, patrolWaypoints...) {
		if err := c.store.AddInstance(wp, "waypoint"); err != nil {
			return err
		}
	}
	if err := c.store.AddPredicate(fmt.Sprintf("(robot_at %s %s)", c.cfg.Robot, controlWaypoint)); err != nil {
		return err
	}
	for _, edge := range connections {
		if err := c.store.AddPredicate(fmt.Sprintf("(connected %s %s)", edge[0], edge[1])); err != nil {
			return err
		}
	}
	return nil
}

// Run ticks the controller until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("mission controller running",
		"tick", c.cfg.TickInterval,
		"robot", c.cfg.Robot)

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("mission controller stopped")
			return
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Step advances the mission by one tick.
func (c *Controller) Step(ctx context.Context) {
	switch c.currentState() {
	case StateStarting:
		c.stepStarting(ctx)
	case StatePatrolFinished:
		c.stepPatrolFinished(ctx)
	case StateGoBack:
		c.stepGoBack(ctx)
	default:
		c.logger.Error("tick in unknown state", "state", int(c.currentState()))
	}

	c.mu.RLock()
	notify := c.notify
	c.mu.RUnlock()
	if notify != nil {
		notify(c.Snapshot())
	}
}

// stepStarting sets the patrol goal and launches the lap.
func (c *Controller) stepStarting(ctx context.Context) {
	c.store.SetGoal(c.patrolGoal())

	plan, ok := c.requestPlan(ctx)
	if !ok {
		return
	}
	if c.submit(plan) {
		c.logger.Info("patrol lap started", "steps", len(plan.Steps))
		c.setState(StatePatrolFinished)
	}
}

// stepPatrolFinished waits out the lap, then sends the robot to the
// selector's waypoint. A failed lap replans toward the same goal.
func (c *Controller) stepPatrolFinished(ctx context.Context) {
	c.applyCompletedEffects()
	if c.engine.IsExecuting() {
		c.logProgress()
		return
	}
	res, ok := c.engine.Result()
	if !ok {
		return
	}

	if !res.Success {
		c.logFailures(res)
		c.replan(ctx)
		return
	}

	c.logger.Info("patrol lap complete")
	for _, wp := range patrolWaypoints {
		c.store.RemovePredicate(fmt.Sprintf("(patrolled %s)", wp))
	}

	sel := c.selector.Latest()
	if wp, ok := selectorWaypoint(sel); ok {
		c.store.SetGoal(c.returnGoal(wp))
		c.logger.Info("returning to selected waypoint", "selector", sel, "waypoint", wp)
	} else {
		c.logger.Warn("selector has no valid waypoint, keeping previous goal", "selector", sel)
	}

	plan, ok := c.requestPlan(ctx)
	if !ok {
		return
	}
	if c.submit(plan) {
		c.setState(StateGoBack)
	}
}

// stepGoBack waits out the return leg. On success the robot's position
// fact is retracted and the mission holds; there is no state after this
// one. A failed leg replans.
func (c *Controller) stepGoBack(ctx context.Context) {
	c.applyCompletedEffects()
	if c.engine.IsExecuting() {
		c.logProgress()
		return
	}
	res, ok := c.engine.Result()
	if !ok {
		return
	}

	if !res.Success {
		c.logFailures(res)
		c.replan(ctx)
		return
	}

	sel := c.selector.Latest()
	wp, valid := selectorWaypoint(sel)
	if !valid {
		c.logger.Warn("selector has no valid waypoint", "selector", sel)
		return
	}
	if c.store.RemovePredicate(fmt.Sprintf("(robot_at %s %s)", c.cfg.Robot, wp)) {
		c.logger.Info("mission complete, holding position", "waypoint", wp)
	}
}

// replan asks for a fresh plan toward the current goal and submits it.
// The state is left alone so the calling phase keeps monitoring.
func (c *Controller) replan(ctx context.Context) {
	plan, ok := c.requestPlan(ctx)
	if !ok {
		return
	}
	if c.submit(plan) {
		c.logger.Info("replanned after failure", "steps", len(plan.Steps))
	}
}

// submit hands a plan to the engine and, if accepted, tracks it for
// effect bookkeeping.
func (c *Controller) submit(plan *planning.Plan) bool {
	if !c.engine.StartPlanExecution(plan) {
		return false
	}
	c.plan = plan
	c.applied = 0
	return true
}

// applyCompletedEffects folds the effects of newly finished steps into
// the knowledge store, the same bookkeeping the symbolic planner assumed
// when it produced the plan. Steps complete in order, so the applied
// count only ever advances along a succeeded prefix.
func (c *Controller) applyCompletedEffects() {
	if c.plan == nil {
		return
	}
	fb := c.engine.Feedback()
	for c.applied < len(fb) && c.applied < len(c.plan.Steps) {
		if fb[c.applied].Status != executor.StatusSucceeded {
			return
		}
		c.applyStepEffects(c.plan.Steps[c.applied])
		c.applied++
	}
}

// applyStepEffects mirrors one completed action in the store: a finished
// move relocates the robot fact, a finished patrol marks its waypoint.
func (c *Controller) applyStepEffects(step planning.Step) {
	switch step.Action {
	case "move":
		if len(step.Args) < 3 {
			return
		}
		c.store.RemovePredicate(fmt.Sprintf("(robot_at %s %s)", step.Args[0], step.Args[1]))
		if err := c.store.AddPredicate(fmt.Sprintf("(robot_at %s %s)", step.Args[0], step.Args[2])); err != nil {
			c.logger.Warn("recording robot position", "error", err)
		}
	case "patrol":
		if len(step.Args) < 2 {
			return
		}
		if err := c.store.AddPredicate(fmt.Sprintf("(patrolled %s)", step.Args[1])); err != nil {
			c.logger.Warn("recording patrolled waypoint", "error", err)
		}
	default:
		c.logger.Debug("no knowledge effects for action", "action", step.Action)
	}
}

func (c *Controller) requestPlan(ctx context.Context) (*planning.Plan, bool) {
	domain, err := c.planner.Domain(ctx)
	if err != nil {
		c.logger.Error("fetching planning domain", "error", err)
		return nil, false
	}
	problem, err := c.planner.Problem(ctx)
	if err != nil {
		c.logger.Error("generating planning problem", "error", err)
		return nil, false
	}

	plan, err := c.planner.Plan(ctx, domain, problem)
	if errors.Is(err, planning.ErrNoPlan) {
		c.logger.Warn("no plan found for goal", "goal", c.store.Goal())
		return nil, false
	}
	if err != nil {
		c.logger.Error("requesting plan", "error", err)
		return nil, false
	}
	return plan, true
}

// patrolGoal demands every patrol waypoint visited and the robot parked
// at the last one.
func (c *Controller) patrolGoal() string {
	goal := fmt.Sprintf("(and (robot_at %s %s)", c.cfg.Robot, patrolWaypoints[len(patrolWaypoints)-1])
	for _, wp := range patrolWaypoints {
		goal += fmt.Sprintf(" (patrolled %s)", wp)
	}
	return goal + ")"
}

func (c *Controller) returnGoal(wp string) string {
	return fmt.Sprintf("(and (robot_at %s %s))", c.cfg.Robot, wp)
}

// selectorWaypoint maps a marker value onto a patrol waypoint.
func selectorWaypoint(sel int64) (string, bool) {
	if sel < 0 || sel >= int64(len(patrolWaypoints)) {
		return "", false
	}
	return patrolWaypoints[sel], true
}

func (c *Controller) logProgress() {
	for _, st := range c.engine.Feedback() {
		if st.Status == executor.StatusRunning {
			c.logger.Debug("action progress",
				"action", st.Action,
				"completion", fmt.Sprintf("%.0f%%", st.Completion*100))
		}
	}
}

func (c *Controller) logFailures(res executor.Result) {
	c.logger.Warn("plan execution failed, replanning", "message", res.Message)
	for _, st := range c.engine.Feedback() {
		if st.Status == executor.StatusFailed {
			c.logger.Error("action failed", "action", st.Action, "message", st.Message)
		}
	}
}

// State returns the controller's current phase.
func (c *Controller) State() State {
	return c.currentState()
}

// Snapshot assembles the externally visible mission state.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		State:     c.currentState().String(),
		Selector:  c.selector.Latest(),
		Goal:      c.store.Goal(),
		Executing: c.engine.IsExecuting(),
		Actions:   c.engine.Feedback(),
	}
	if res, ok := c.engine.Result(); ok {
		snap.Result = &res
	}
	return snap
}

func (c *Controller) currentState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	c.logger.Info("mission state changed", "from", prev.String(), "to", s.String())
}
