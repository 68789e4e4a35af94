package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-patrol/pkg/geometry"
	"github.com/teslashibe/go-patrol/pkg/hub"
)

// statusResponse is the condensed view served at /api/status.
type statusResponse struct {
	State     string         `json:"state"`
	Selector  int64          `json:"selector"`
	Executing bool           `json:"executing"`
	Goal      string         `json:"goal"`
	Pose      *geometry.Pose `json:"pose,omitempty"`
	PoseAgeMS int64          `json:"pose_age_ms,omitempty"`
	Clients   int            `json:"clients"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the mission headline plus the latest pose.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	snap := s.mission.Snapshot()
	resp := statusResponse{
		State:     snap.State,
		Selector:  snap.Selector,
		Executing: snap.Executing,
		Goal:      snap.Goal,
		Clients:   s.missionHub.ClientCount(),
	}
	if pose, ok := s.pose.Latest(); ok {
		resp.Pose = &pose
		resp.PoseAgeMS = time.Since(s.pose.LastUpdate()).Milliseconds()
	}
	return c.JSON(resp)
}

// handleMission returns the full snapshot including per-action statuses.
func (s *Server) handleMission(c *fiber.Ctx) error {
	return c.JSON(s.mission.Snapshot())
}

// handleWaypoints returns the waypoint table.
func (s *Server) handleWaypoints(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"frame":     s.table.Frame(),
		"waypoints": s.table.All(),
	})
}

// handleCancel aborts the current plan execution. The mission controller
// sees the failed result on its next tick and replans.
func (s *Server) handleCancel(c *fiber.Ctx) error {
	s.engine.Cancel()
	s.logger.Info("plan execution cancelled via API")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"cancelled": true})
}

// handleMissionWS streams mission snapshots. New clients get the current
// snapshot immediately, then live updates via the hub.
func (s *Server) handleMissionWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.mission.Snapshot()); err != nil {
		c.Close()
		return
	}
	client := hub.NewClient(s.missionHub, c)
	client.Run()
}
