// Package patrol implements the in-place patrol action. Each invocation
// holds the robot at its current waypoint for a fixed dwell, reporting
// progress while the surroundings are swept, then completes. The
// waypoint only counts as patrolled once the dwell runs to the end.
package patrol

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-patrol/internal/log"
	"github.com/teslashibe/go-patrol/pkg/executor"
)

// Config holds the patrol action settings.
type Config struct {
	// Duration is how long one patrol dwell lasts.
	Duration time.Duration
}

// DefaultConfig returns the standard patrol settings.
func DefaultConfig() Config {
	return Config{Duration: 5 * time.Second}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return errors.New("patrol: duration must be positive")
	}
	return nil
}

// Performer drives patrol invocations. It implements executor.Performer
// and is reused across plan steps. Tick and Cancel run on the engine
// goroutine.
type Performer struct {
	cfg    Config
	logger *slog.Logger

	started time.Time
}

// New builds a patrol performer.
func New(cfg Config) *Performer {
	return &Performer{
		cfg:    cfg,
		logger: log.With("component", "patrol"),
	}
}

// Tick advances the dwell. The first tick starts the clock, later ticks
// report elapsed progress until the dwell is over.
func (p *Performer) Tick(ctx context.Context, inv *executor.Invocation, rep executor.Reporter) {
	if p.started.IsZero() {
		p.started = time.Now()
		p.logger.Info("patrolling waypoint", "waypoint", waypointArg(inv))
		rep.Feedback(0, "Patrol running")
		return
	}

	elapsed := time.Since(p.started)
	if elapsed >= p.cfg.Duration {
		p.reset()
		rep.Result(true, 1.0, "Patrol completed")
		return
	}
	rep.Feedback(float64(elapsed)/float64(p.cfg.Duration), "Patrol running")
}

// Cancel abandons the dwell and resets for the next invocation.
func (p *Performer) Cancel() {
	p.reset()
}

func (p *Performer) reset() {
	p.started = time.Time{}
}

// waypointArg names the patrolled waypoint, the action's second
// argument.
func waypointArg(inv *executor.Invocation) string {
	if len(inv.Args) < 2 {
		return ""
	}
	return inv.Args[1]
}

var _ executor.Performer = (*Performer)(nil)
