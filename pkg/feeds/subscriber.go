package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-patrol/internal/log"
	"github.com/teslashibe/go-patrol/pkg/geometry"
)

// SubscriberConfig holds the feed connection settings.
type SubscriberConfig struct {
	// URL is the robot bridge websocket endpoint, for example
	// "ws://localhost:8765/feeds".
	URL string

	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration

	// ReconnectInterval is the pause between connection attempts. The
	// subscriber reconnects forever; a patrol outlives bridge restarts.
	ReconnectInterval time.Duration
}

// DefaultSubscriberConfig returns settings for a local robot bridge.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		URL:               "ws://localhost:8765/feeds",
		HandshakeTimeout:  10 * time.Second,
		ReconnectInterval: 2 * time.Second,
	}
}

// Validate checks the configuration.
func (c SubscriberConfig) Validate() error {
	if c.URL == "" {
		return errors.New("feeds: subscriber URL must not be empty")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("feeds: handshake timeout must be positive")
	}
	if c.ReconnectInterval <= 0 {
		return errors.New("feeds: reconnect interval must be positive")
	}
	return nil
}

// Subscriber receives pose and selector messages over a websocket and
// publishes them into the feeds. It owns the connection lifecycle.
type Subscriber struct {
	cfg      SubscriberConfig
	pose     *PoseFeed
	selector *SelectorFeed
	logger   *slog.Logger
}

// NewSubscriber wires a subscriber to its destination feeds.
func NewSubscriber(cfg SubscriberConfig, pose *PoseFeed, selector *SelectorFeed) *Subscriber {
	return &Subscriber{
		cfg:      cfg,
		pose:     pose,
		selector: selector,
		logger:   log.With("component", "feeds"),
	}
}

// Run connects and consumes messages until ctx is cancelled, redialing
// after connection loss.
func (s *Subscriber) Run(ctx context.Context) {
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("feed connection failed, retrying",
				"url", s.cfg.URL,
				"retry_in", s.cfg.ReconnectInterval,
				"error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ReconnectInterval):
				continue
			}
		}

		s.logger.Info("feed connected", "url", s.cfg.URL)
		s.consume(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ReconnectInterval):
		}
	}
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	return conn, err
}

// consume reads messages until the connection drops or ctx is cancelled.
func (s *Subscriber) consume(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("feed read failed", "error", err)
			}
			return
		}
		s.handle(raw)
	}
}

func (s *Subscriber) handle(raw []byte) {
	msg, err := ParseMessage(raw)
	if err != nil {
		s.logger.Warn("dropping bad feed message", "error", err)
		return
	}

	switch msg.Type {
	case TypePose:
		var pose geometry.Pose
		if err := json.Unmarshal(msg.Data, &pose); err != nil {
			s.logger.Warn("dropping bad pose payload", "error", err)
			return
		}
		s.pose.Set(pose)
	case TypeSelector:
		var sel SelectorData
		if err := json.Unmarshal(msg.Data, &sel); err != nil {
			s.logger.Warn("dropping bad selector payload", "error", err)
			return
		}
		s.selector.Set(sel.Value)
	default:
		// Unknown types are skipped so the bridge can add feeds without
		// breaking old patrols.
	}
}
