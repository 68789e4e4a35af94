// Package move implements the navigate-to-waypoint action. Each
// invocation resolves its destination from the waypoint table, submits a
// navigation goal, and completes when the robot's pose comes within the
// arrival threshold of the destination. Arrival is judged from the pose
// feed, not from the motion server's own verdict.
package move

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
	"github.com/teslashibe/go-patrol/pkg/geometry"
	"github.com/teslashibe/go-patrol/pkg/motion"
	"github.com/teslashibe/go-patrol/pkg/waypoints"
)

// Config holds the move action settings.
type Config struct {
	// ReachedThreshold is the planar distance in meters at which the
	// destination counts as reached.
	ReachedThreshold float64

	// ReadyTimeout bounds one motion server readiness attempt.
	ReadyTimeout time.Duration

	// ReadyAttempts is how many readiness attempts are made before the
	// invocation fails.
	ReadyAttempts int
}

// DefaultConfig returns the standard move settings.
func DefaultConfig() Config {
	return Config{
		ReachedThreshold: 0.3,
		ReadyTimeout:     5 * time.Second,
		ReadyAttempts:    3,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ReachedThreshold <= 0 {
		return errors.New("move: reached threshold must be positive")
	}
	if c.ReadyTimeout <= 0 {
		return errors.New("move: ready timeout must be positive")
	}
	if c.ReadyAttempts <= 0 {
		return errors.New("move: ready attempts must be positive")
	}
	return nil
}

type state int

const (
	stateIdle state = iota
	stateAwaitingServer
	stateNavigating
	stateReached
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingServer:
		return "awaiting_server"
	case stateNavigating:
		return "navigating"
	case stateReached:
		return "reached"
	default:
		return "unknown"
	}
}

// Performer drives move invocations. It implements executor.Performer and
// is reused across plan steps: completing or failing an invocation resets
// it for the next one.
//
// Tick and Cancel run on the engine goroutine. Only the motion feedback
// callback crosses goroutines, so it touches nothing but lastFraction.
type Performer struct {
	cfg    Config
	table  *waypoints.Table
	motion motion.Service
	pose   *feeds.PoseFeed
	logger *slog.Logger

	state    state
	attempts int
	dest     waypoints.Waypoint
	handle   *motion.GoalHandle

	mu           sync.Mutex
	lastFraction float64
}

// New builds a move performer.
func New(cfg Config, table *waypoints.Table, motionSvc motion.Service, pose *feeds.PoseFeed) *Performer {
	return &Performer{
		cfg:    cfg,
		table:  table,
		motion: motionSvc,
		pose:   pose,
		logger: log.With("component", "move"),
	}
}

// Tick advances the move state machine by one step.
func (p *Performer) Tick(ctx context.Context, inv *executor.Invocation, rep executor.Reporter) {
	switch p.state {
	case stateIdle:
		p.tickIdle(rep)
	case stateAwaitingServer:
		p.tickAwaitingServer(ctx, inv, rep)
	case stateNavigating:
		p.tickNavigating(rep)
	case stateReached:
		p.tickReached(rep)
	default:
		p.logger.Error("tick in unknown state", "state", int(p.state))
	}
}

func (p *Performer) tickIdle(rep executor.Reporter) {
	rep.Feedback(0, "Move starting")
	p.attempts = 0
	p.setLastFraction(0)
	p.state = stateAwaitingServer
}

func (p *Performer) tickAwaitingServer(ctx context.Context, inv *executor.Invocation, rep executor.Reporter) {
	if err := p.motion.WaitReady(ctx, p.cfg.ReadyTimeout); err != nil {
		p.attempts++
		if p.attempts >= p.cfg.ReadyAttempts {
			p.fail(rep, fmt.Sprintf("motion server unavailable after %d attempts", p.attempts))
			return
		}
		p.logger.Warn("motion server not ready",
			"attempt", p.attempts,
			"max_attempts", p.cfg.ReadyAttempts,
			"error", err)
		return
	}

	if len(inv.Args) < 3 {
		p.fail(rep, fmt.Sprintf("move needs robot, source and destination args, got %v", inv.Args))
		return
	}
	destID := inv.Args[2]

	wp, err := p.table.Lookup(destID)
	if err != nil {
		p.fail(rep, fmt.Sprintf("unknown destination waypoint %q", destID))
		return
	}

	// The pose feed may still be silent this early in a mission. The
	// original reference distance is then measured from the origin.
	current, _ := p.pose.Latest()
	d0 := geometry.PlanarDistance(current, wp.Pose)

	handle, err := p.motion.SubmitGoal(ctx, motion.Goal{
		Target: wp.Pose,
		Frame:  p.table.Frame(),
	}, motion.Callbacks{
		OnFeedback: func(remaining float64) {
			fraction := progressFraction(remaining, d0)
			p.setLastFraction(fraction)
			rep.Feedback(fraction, "Move running")
		},
	})
	if err != nil {
		p.fail(rep, fmt.Sprintf("submitting navigation goal: %v", err))
		return
	}

	p.dest = wp
	p.handle = handle
	p.state = stateNavigating
	p.logger.Info("navigating to waypoint",
		"waypoint", wp.ID,
		"x", wp.Pose.Position.X,
		"y", wp.Pose.Position.Y,
		"initial_distance", d0)
}

func (p *Performer) tickNavigating(rep executor.Reporter) {
	if p.handle != nil && p.handle.Status() == motion.StatusAborted {
		p.fail(rep, "navigation aborted by motion server")
		return
	}

	current, _ := p.pose.Latest()
	dist := geometry.PlanarDistance(current, p.dest.Pose)
	if dist < p.cfg.ReachedThreshold {
		p.logger.Info("waypoint reached", "waypoint", p.dest.ID, "distance", dist)
		p.state = stateReached
	}
}

func (p *Performer) tickReached(rep executor.Reporter) {
	p.reset()
	rep.Result(true, 1.0, "Move completed")
}

// Cancel abandons the in-flight goal and resets for the next invocation.
func (p *Performer) Cancel() {
	handle := p.handle
	p.reset()
	if handle != nil {
		if err := handle.Cancel(); err != nil {
			p.logger.Warn("cancelling navigation goal", "error", err)
		}
	}
}

func (p *Performer) fail(rep executor.Reporter, msg string) {
	p.logger.Warn("move failed", "reason", msg)
	fraction := p.currentFraction()
	p.reset()
	rep.Result(false, fraction, msg)
}

func (p *Performer) reset() {
	p.state = stateIdle
	p.attempts = 0
	p.dest = waypoints.Waypoint{}
	p.handle = nil
}

func (p *Performer) setLastFraction(f float64) {
	p.mu.Lock()
	p.lastFraction = f
	p.mu.Unlock()
}

func (p *Performer) currentFraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastFraction
}

// progressFraction maps a remaining distance onto [0, 1] against the
// distance measured at submission. A zero-length leg is complete as soon
// as it starts.
func progressFraction(remaining, initial float64) float64 {
	if initial <= 0 {
		return 1
	}
	return clamp01(1 - remaining/initial)
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

var _ executor.Performer = (*Performer)(nil)
