// Package config provides environment configuration helpers for go-patrol
// commands. Flags take precedence; these supply the env-var layer under
// them.
package config

import "os"

// Default endpoints for a single-host deployment.
const (
	DefaultMotionURL = "ws://localhost:9090/motion"
	DefaultFeedURL   = "ws://localhost:8765/feeds"
	DefaultSolverURL = "http://localhost:8090"
	DefaultWebPort   = "8080"
)

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// MotionURL returns the motion server endpoint from MOTION_URL.
func MotionURL() string {
	return envOr("MOTION_URL", DefaultMotionURL)
}

// FeedURL returns the robot feed endpoint from FEED_URL.
func FeedURL() string {
	return envOr("FEED_URL", DefaultFeedURL)
}

// SolverURL returns the plan solver endpoint from SOLVER_URL.
func SolverURL() string {
	return envOr("SOLVER_URL", DefaultSolverURL)
}

// WebPort returns the dashboard port from WEB_PORT.
func WebPort() string {
	return envOr("WEB_PORT", DefaultWebPort)
}

// LogLevel returns the log level from LOG_LEVEL, defaulting to info.
func LogLevel() string {
	return envOr("LOG_LEVEL", "info")
}
