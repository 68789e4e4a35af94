// Package web serves the patrol HTTP API and streams live mission
// snapshots to dashboards over websocket.
package web

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-patrol/internal/log"
	"github.com/teslashibe/go-patrol/pkg/feeds"
	"github.com/teslashibe/go-patrol/pkg/hub"
	"github.com/teslashibe/go-patrol/pkg/mission"
	"github.com/teslashibe/go-patrol/pkg/waypoints"
)

// Config holds the web server settings.
type Config struct {
	// Port the HTTP listener binds to.
	Port string
}

// DefaultConfig returns the standard web settings.
func DefaultConfig() Config {
	return Config{Port: "8080"}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("web: port must not be empty")
	}
	return nil
}

// MissionSource provides the current mission snapshot.
type MissionSource interface {
	Snapshot() mission.Snapshot
}

// Canceller aborts the running plan execution.
type Canceller interface {
	Cancel()
}

// Server is the patrol dashboard server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	mission MissionSource
	engine  Canceller
	table   *waypoints.Table
	pose    *feeds.PoseFeed

	missionHub *hub.Hub
}

// NewServer wires the server to its data sources.
func NewServer(cfg Config, missionSrc MissionSource, engine Canceller, table *waypoints.Table, pose *feeds.PoseFeed) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     log.With("component", "web"),
		mission:    missionSrc,
		engine:     engine,
		table:      table,
		pose:       pose,
		missionHub: hub.New("mission"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Patrol Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local dashboards.
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/mission", s.handleMission)
	api.Get("/waypoints", s.handleWaypoints)
	api.Post("/cancel", s.handleCancel)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/mission", websocket.New(s.handleMissionWS))

	s.app = app
	return s
}

// Start runs the hub and the HTTP listener. It blocks until the listener
// stops; the hub lives until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.missionHub.Run(ctx)
	s.logger.Info("dashboard listening", "port", s.cfg.Port)
	return s.app.Listen(":" + s.cfg.Port)
}

// StartAsync runs Start in a goroutine.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// BroadcastSnapshot streams a mission snapshot to connected dashboards.
// Wire it to the mission controller's notify hook.
func (s *Server) BroadcastSnapshot(snap mission.Snapshot) {
	if err := s.missionHub.BroadcastJSON(snap); err != nil {
		s.logger.Warn("broadcasting snapshot", "error", err)
	}
}

// ClientCount returns the number of connected dashboard clients.
func (s *Server) ClientCount() int {
	return s.missionHub.ClientCount()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
