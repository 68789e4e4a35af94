package mission

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/teslashibe/go-patrol/pkg/executor"
	"github.com/teslashibe/go-patrol/pkg/feeds"
	"github.com/teslashibe/go-patrol/pkg/knowledge"
	"github.com/teslashibe/go-patrol/pkg/planning"
)

// fakeEngine is a scriptable Engine. Tests settle runs with finish.
type fakeEngine struct {
	mu        sync.Mutex
	executing bool
	result    *executor.Result
	feedback  []executor.ActionStatus
	started   []*planning.Plan
}

func (f *fakeEngine) StartPlanExecution(plan *planning.Plan) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.executing {
		return false
	}
	f.executing = true
	f.result = nil
	f.feedback = make([]executor.ActionStatus, len(plan.Steps))
	for i := range plan.Steps {
		f.feedback[i] = executor.ActionStatus{
			Action: plan.Steps[i].Text(),
			Status: executor.StatusPending,
		}
	}
	f.started = append(f.started, plan)
	return true
}

func (f *fakeEngine) IsExecuting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executing
}

func (f *fakeEngine) Feedback() []executor.ActionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]executor.ActionStatus, len(f.feedback))
	copy(out, f.feedback)
	return out
}

func (f *fakeEngine) Result() (executor.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		return executor.Result{}, false
	}
	return *f.result, true
}

func (f *fakeEngine) finish(success bool, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executing = false
	f.result = &executor.Result{Success: success, Message: message}
	if success {
		for i := range f.feedback {
			f.feedback[i].Status = executor.StatusSucceeded
			f.feedback[i].Completion = 1
		}
	}
}

func (f *fakeEngine) succeedStep(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback[i].Status = executor.StatusSucceeded
	f.feedback[i].Completion = 1
}

func (f *fakeEngine) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func cannedPlan() *planning.Plan {
	return &planning.Plan{Steps: []planning.Step{
		{Action: "move", Args: []string{"r2d2", "wp_control", "wp1"}},
		{Action: "patrol", Args: []string{"r2d2", "wp1"}},
	}}
}

type fixture struct {
	ctrl     *Controller
	store    *knowledge.Store
	planner  *planning.Mock
	engine   *fakeEngine
	selector *feeds.SelectorFeed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    knowledge.New(),
		planner:  &planning.Mock{},
		engine:   &fakeEngine{},
		selector: feeds.NewSelectorFeed(),
	}
	f.planner.PlanFunc = func(ctx context.Context, domain, problem string) (*planning.Plan, error) {
		return cannedPlan(), nil
	}
	f.ctrl = New(DefaultConfig(), f.store, f.planner, f.engine, f.selector)
	if err := f.ctrl.InitKnowledge(); err != nil {
		t.Fatalf("InitKnowledge() error = %v", err)
	}
	return f
}

func (f *fixture) step() {
	f.ctrl.Step(context.Background())
}

func TestInitKnowledge(t *testing.T) {
	f := newFixture(t)

	instances := f.store.Instances()
	if got, want := len(instances), 6; got != want {
		t.Errorf("len(Instances()) = %d, want %d (robot plus five waypoints)", got, want)
	}
	if !f.store.HasPredicate("(robot_at r2d2 wp_control)") {
		t.Error("missing robot starting position fact")
	}
	for _, edge := range [][2]string{{"wp_control", "wp1"}, {"wp4", "wp3"}, {"wp3", "wp2"}} {
		fact := fmt.Sprintf("(connected %s %s)", edge[0], edge[1])
		if !f.store.HasPredicate(fact) {
			t.Errorf("missing connectivity fact %s", fact)
		}
	}
	if got, want := len(f.store.Predicates()), 8; got != want {
		t.Errorf("len(Predicates()) = %d, want %d", got, want)
	}
}

func TestStartingLaunchesPatrol(t *testing.T) {
	f := newFixture(t)

	f.step()

	goal := f.store.Goal()
	for _, want := range []string{"(robot_at r2d2 wp4)", "(patrolled wp1)", "(patrolled wp4)"} {
		if !strings.Contains(goal, want) {
			t.Errorf("patrol goal %q missing %q", goal, want)
		}
	}
	if got := f.planner.PlanCalls; got != 1 {
		t.Errorf("PlanCalls = %d, want 1", got)
	}
	if got := f.engine.startCount(); got != 1 {
		t.Errorf("engine starts = %d, want 1", got)
	}
	if got := f.ctrl.State(); got != StatePatrolFinished {
		t.Errorf("State() = %v, want StatePatrolFinished", got)
	}
}

func TestStartingRetriesWhenNoPlan(t *testing.T) {
	f := newFixture(t)
	f.planner.PlanFunc = func(ctx context.Context, domain, problem string) (*planning.Plan, error) {
		return nil, planning.ErrNoPlan
	}

	f.step()
	f.step()

	if got := f.ctrl.State(); got != StateStarting {
		t.Errorf("State() = %v, want StateStarting while unplannable", got)
	}
	if got := f.engine.startCount(); got != 0 {
		t.Errorf("engine starts = %d, want 0", got)
	}
	if got := f.planner.PlanCalls; got != 2 {
		t.Errorf("PlanCalls = %d, want a retry per tick, got %d", got, got)
	}
}

func TestPatrolFinishedWaitsWhileExecuting(t *testing.T) {
	f := newFixture(t)

	f.step() // launch lap
	f.step() // still executing

	if got := f.engine.startCount(); got != 1 {
		t.Errorf("engine starts = %d, want 1 while lap is running", got)
	}
	if got := f.ctrl.State(); got != StatePatrolFinished {
		t.Errorf("State() = %v, want StatePatrolFinished", got)
	}
}

func TestPatrolLapSuccessLaunchesReturn(t *testing.T) {
	f := newFixture(t)
	for _, wp := range []string{"wp1", "wp2", "wp3", "wp4"} {
		if err := f.store.AddPredicate("(patrolled " + wp + ")"); err != nil {
			t.Fatalf("AddPredicate() error = %v", err)
		}
	}

	f.step() // launch lap
	f.engine.finish(true, "plan completed")
	f.selector.Set(2)
	f.step() // lap done: clear patrolled, set return goal, launch

	for _, wp := range []string{"wp1", "wp2", "wp3", "wp4"} {
		if f.store.HasPredicate("(patrolled " + wp + ")") {
			t.Errorf("(patrolled %s) still asserted after lap", wp)
		}
	}
	if got, want := f.store.Goal(), "(and (robot_at r2d2 wp3))"; got != want {
		t.Errorf("Goal() = %q, want %q", got, want)
	}
	if got := f.engine.startCount(); got != 2 {
		t.Errorf("engine starts = %d, want 2", got)
	}
	if got := f.ctrl.State(); got != StateGoBack {
		t.Errorf("State() = %v, want StateGoBack", got)
	}
}

func TestPatrolLapInvalidSelectorKeepsGoal(t *testing.T) {
	f := newFixture(t)

	f.step() // launch lap
	patrolGoal := f.store.Goal()

	f.engine.finish(true, "plan completed")
	// Selector never saw a marker: still the sentinel.
	f.step()

	if got := f.store.Goal(); got != patrolGoal {
		t.Errorf("Goal() = %q, want unchanged patrol goal", got)
	}
	// The return leg still launches against the old goal.
	if got := f.engine.startCount(); got != 2 {
		t.Errorf("engine starts = %d, want 2", got)
	}
	if got := f.ctrl.State(); got != StateGoBack {
		t.Errorf("State() = %v, want StateGoBack", got)
	}
}

func TestEffectsApplyAsStepsComplete(t *testing.T) {
	f := newFixture(t)

	f.step() // launch lap
	f.engine.succeedStep(0)
	f.step() // move done, patrol still running

	if f.store.HasPredicate("(robot_at r2d2 wp_control)") {
		t.Error("(robot_at r2d2 wp_control) still asserted after the move finished")
	}
	if !f.store.HasPredicate("(robot_at r2d2 wp1)") {
		t.Error("missing (robot_at r2d2 wp1) after the move finished")
	}
	if f.store.HasPredicate("(patrolled wp1)") {
		t.Error("(patrolled wp1) asserted before the patrol step finished")
	}

	f.engine.succeedStep(1)
	f.step() // patrol done, lap still executing

	if !f.store.HasPredicate("(patrolled wp1)") {
		t.Error("missing (patrolled wp1) after the patrol step finished")
	}
}

func TestPatrolLapFailureReplans(t *testing.T) {
	f := newFixture(t)

	f.step() // launch lap
	goal := f.store.Goal()

	f.engine.feedback = []executor.ActionStatus{{
		Action:  "(move r2d2 wp1 wp2)",
		Status:  executor.StatusFailed,
		Message: "no route",
	}}
	f.engine.finish(false, "(move r2d2 wp1 wp2): no route")
	f.step() // replan, stay

	if got := f.ctrl.State(); got != StatePatrolFinished {
		t.Errorf("State() = %v, want StatePatrolFinished after replanning", got)
	}
	if got := f.store.Goal(); got != goal {
		t.Errorf("Goal() = %q, want the patrol goal unchanged by the failure", got)
	}
	if f.store.HasPredicate("(robot_at r2d2 wp1)") {
		t.Error("failed step's effects were applied to the store")
	}
	if got := f.engine.startCount(); got != 2 {
		t.Errorf("engine starts = %d, want 2", got)
	}
	if got := f.planner.PlanCalls; got != 2 {
		t.Errorf("PlanCalls = %d, want 2", got)
	}
}

func TestGoBackSuccessHolds(t *testing.T) {
	f := newFixture(t)
	f.selector.Set(0)

	f.step() // launch lap
	f.engine.finish(true, "plan completed")
	f.step() // launch return leg
	if got := f.ctrl.State(); got != StateGoBack {
		t.Fatalf("State() = %v, want StateGoBack", got)
	}

	// The return leg's final move asserts (robot_at r2d2 wp1) through
	// effect bookkeeping; arrival then retracts it.
	f.engine.finish(true, "plan completed")
	f.step() // arrive and hold

	if f.store.HasPredicate("(robot_at r2d2 wp1)") {
		t.Error("(robot_at r2d2 wp1) still asserted after arrival")
	}
	if got := f.ctrl.State(); got != StateGoBack {
		t.Errorf("State() = %v, want StateGoBack forever", got)
	}

	// Further ticks change nothing: no new plans, no state changes.
	starts := f.engine.startCount()
	f.step()
	f.step()
	if got := f.engine.startCount(); got != starts {
		t.Errorf("engine starts grew to %d after mission completed, want %d", got, starts)
	}
	if got := f.ctrl.State(); got != StateGoBack {
		t.Errorf("State() = %v, want StateGoBack forever", got)
	}
}

func TestGoBackFailureReplans(t *testing.T) {
	f := newFixture(t)
	f.selector.Set(3)

	f.step() // launch lap
	f.engine.finish(true, "plan completed")
	f.step() // launch return leg
	f.engine.finish(false, "(move r2d2 wp3 wp4): no route")
	f.step() // replan return leg

	if got := f.ctrl.State(); got != StateGoBack {
		t.Errorf("State() = %v, want StateGoBack after replanning", got)
	}
	if got := f.engine.startCount(); got != 3 {
		t.Errorf("engine starts = %d, want 3", got)
	}
}

func TestSelectorWaypoint(t *testing.T) {
	cases := []struct {
		sel   int64
		want  string
		valid bool
	}{
		{0, "wp1", true},
		{1, "wp2", true},
		{2, "wp3", true},
		{3, "wp4", true},
		{-1, "", false},
		{4, "", false},
		{99, "", false},
	}
	for _, c := range cases {
		got, valid := selectorWaypoint(c.sel)
		if got != c.want || valid != c.valid {
			t.Errorf("selectorWaypoint(%d) = %q, %v; want %q, %v", c.sel, got, valid, c.want, c.valid)
		}
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.selector.Set(1)

	var notified []Snapshot
	f.ctrl.SetNotify(func(s Snapshot) { notified = append(notified, s) })

	f.step()

	snap := f.ctrl.Snapshot()
	if snap.State != "patrol_finished" {
		t.Errorf("Snapshot().State = %q, want patrol_finished", snap.State)
	}
	if snap.Selector != 1 {
		t.Errorf("Snapshot().Selector = %d, want 1", snap.Selector)
	}
	if !snap.Executing {
		t.Error("Snapshot().Executing = false, want true after launch")
	}
	if snap.Goal == "" {
		t.Error("Snapshot().Goal empty, want patrol goal")
	}

	if len(notified) != 1 {
		t.Fatalf("notify called %d times, want once per step", len(notified))
	}
	if notified[0].State != "patrol_finished" {
		t.Errorf("notified state = %q, want patrol_finished", notified[0].State)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}

	bad := DefaultConfig()
	bad.Robot = ""
	if err := bad.Validate(); err == nil {
		t.Error("Validate() accepted empty robot name")
	}

	bad = DefaultConfig()
	bad.TickInterval = 0
	if err := bad.Validate(); err == nil {
		t.Error("Validate() accepted zero tick interval")
	}
}
