package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-patrol/internal/log"
)

// Config holds the motion server connection settings.
type Config struct {
	// URL is the motion server websocket endpoint, for example
	// "ws://localhost:9090/motion".
	URL string
}

// DefaultConfig returns settings for a local motion server.
func DefaultConfig() Config {
	return Config{URL: "ws://localhost:9090/motion"}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("motion: server URL must not be empty")
	}
	return nil
}

// Wire message types exchanged with the motion server.
const (
	msgSubmitGoal = "submit_goal"
	msgCancelGoal = "cancel_goal"
	msgFeedback   = "feedback"
	msgResult     = "result"
)

type wsMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

type feedbackData struct {
	RemainingDistance float64 `json:"remaining_distance"`
}

type resultData struct {
	Status string `json:"status"`
}

// WSClient talks to the motion server over a websocket. It implements
// Service. One read goroutine dispatches feedback and results to the
// goals registered at submission time.
type WSClient struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	goals map[string]pendingGoal

	writeMu sync.Mutex
}

type pendingGoal struct {
	handle *GoalHandle
	cb     Callbacks
}

// NewWSClient builds a client from config. No connection is made until
// WaitReady.
func NewWSClient(cfg Config) *WSClient {
	return &WSClient{
		cfg:    cfg,
		logger: log.With("component", "motion"),
		goals:  make(map[string]pendingGoal),
	}
}

// WaitReady dials the motion server unless already connected. A server we
// can complete a websocket handshake with is considered ready to take
// goals.
func (c *WSClient) WaitReady(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()
	if connected {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	c.logger.Info("motion server connected", "url", c.cfg.URL)
	return nil
}

// SubmitGoal sends a goal and returns immediately with its handle.
func (c *WSClient) SubmitGoal(ctx context.Context, goal Goal, cb Callbacks) (*GoalHandle, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	id := uuid.NewString()
	handle := newGoalHandle(id, func() error {
		return c.send(wsMessage{Type: msgCancelGoal, ID: id})
	})

	data, err := json.Marshal(goal)
	if err != nil {
		return nil, fmt.Errorf("motion: encoding goal: %w", err)
	}

	c.mu.Lock()
	c.goals[id] = pendingGoal{handle: handle, cb: cb}
	c.mu.Unlock()

	if err := c.send(wsMessage{Type: msgSubmitGoal, ID: id, Data: data}); err != nil {
		c.mu.Lock()
		delete(c.goals, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("motion: submitting goal: %w", err)
	}

	c.logger.Debug("goal submitted", "goal_id", id,
		"x", goal.Target.Position.X, "y", goal.Target.Position.Y)
	return handle, nil
}

func (c *WSClient) send(msg wsMessage) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.dropConnection(conn, err)
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("dropping bad motion message", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *WSClient) dispatch(msg wsMessage) {
	c.mu.Lock()
	pending, ok := c.goals[msg.ID]
	c.mu.Unlock()
	if !ok {
		return
	}

	switch msg.Type {
	case msgFeedback:
		var fb feedbackData
		if err := json.Unmarshal(msg.Data, &fb); err != nil {
			c.logger.Warn("dropping bad feedback payload", "goal_id", msg.ID, "error", err)
			return
		}
		if pending.cb.OnFeedback != nil {
			pending.cb.OnFeedback(fb.RemainingDistance)
		}
	case msgResult:
		var res resultData
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			c.logger.Warn("dropping bad result payload", "goal_id", msg.ID, "error", err)
			return
		}
		c.mu.Lock()
		delete(c.goals, msg.ID)
		c.mu.Unlock()
		pending.handle.finish(parseStatus(res.Status))
		c.logger.Debug("goal finished", "goal_id", msg.ID, "status", res.Status)
	}
}

// dropConnection settles outstanding goals and clears the connection so
// the next WaitReady redials. A goal whose server vanished is aborted.
func (c *WSClient) dropConnection(conn *websocket.Conn, err error) {
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	orphaned := c.goals
	c.goals = make(map[string]pendingGoal)
	c.mu.Unlock()

	for id, pending := range orphaned {
		pending.handle.finish(StatusAborted)
		c.logger.Warn("goal orphaned by connection loss", "goal_id", id)
	}
	c.logger.Warn("motion server disconnected", "error", err)
}

// Close shuts the connection down. Outstanding goals settle as aborted.
func (c *WSClient) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.dropConnection(conn, nil)
	}
}

func parseStatus(s string) GoalStatus {
	switch s {
	case "succeeded":
		return StatusSucceeded
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusAborted
	}
}

var _ Service = (*WSClient)(nil)
