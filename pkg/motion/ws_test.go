package motion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-patrol/pkg/geometry"
)

// motionServer accepts one connection and answers each submitted goal
// with scripted feedback followed by a result.
func motionServer(t *testing.T, remaining []float64, status string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg wsMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != msgSubmitGoal {
				continue
			}
			for _, rem := range remaining {
				data, _ := json.Marshal(feedbackData{RemainingDistance: rem})
				conn.WriteJSON(wsMessage{Type: msgFeedback, ID: msg.ID, Data: data})
			}
			data, _ := json.Marshal(resultData{Status: status})
			conn.WriteJSON(wsMessage{Type: msgResult, ID: msg.ID, Data: data})
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSClientGoalLifecycle(t *testing.T) {
	url := motionServer(t, []float64{4.0, 2.0}, "succeeded")
	client := NewWSClient(Config{URL: url})
	defer client.Close()

	ctx := context.Background()
	if err := client.WaitReady(ctx, 2*time.Second); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}

	var mu sync.Mutex
	var got []float64
	handle, err := client.SubmitGoal(ctx, Goal{
		Target: geometry.Pose{Position: geometry.Point{X: 6, Y: 2}},
	}, Callbacks{
		OnFeedback: func(remaining float64) {
			mu.Lock()
			got = append(got, remaining)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("SubmitGoal() error = %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("goal never settled")
	}

	if status := handle.Status(); status != StatusSucceeded {
		t.Errorf("Status() = %q, want %q", status, StatusSucceeded)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 4.0 || got[1] != 2.0 {
		t.Errorf("feedback = %v, want [4 2]", got)
	}
}

func TestWSClientAbortedGoal(t *testing.T) {
	url := motionServer(t, nil, "aborted")
	client := NewWSClient(Config{URL: url})
	defer client.Close()

	ctx := context.Background()
	if err := client.WaitReady(ctx, 2*time.Second); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}

	handle, err := client.SubmitGoal(ctx, Goal{}, Callbacks{})
	if err != nil {
		t.Fatalf("SubmitGoal() error = %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("goal never settled")
	}
	if status := handle.Status(); status != StatusAborted {
		t.Errorf("Status() = %q, want %q", status, StatusAborted)
	}
}

func TestWSClientWaitReadyUnreachable(t *testing.T) {
	client := NewWSClient(Config{URL: "ws://127.0.0.1:1/motion"})

	err := client.WaitReady(context.Background(), 200*time.Millisecond)
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("WaitReady() error = %v, want ErrNotReady", err)
	}
}

func TestWSClientSubmitBeforeConnect(t *testing.T) {
	client := NewWSClient(DefaultConfig())

	_, err := client.SubmitGoal(context.Background(), Goal{}, Callbacks{})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SubmitGoal() error = %v, want ErrNotConnected", err)
	}
}

func TestWSClientConnectionLossAbortsGoals(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Take the goal, then drop the connection without answering.
		var msg wsMessage
		conn.ReadJSON(&msg)
		conn.Close()
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := NewWSClient(Config{URL: url})
	ctx := context.Background()
	if err := client.WaitReady(ctx, 2*time.Second); err != nil {
		t.Fatalf("WaitReady() error = %v", err)
	}

	handle, err := client.SubmitGoal(ctx, Goal{}, Callbacks{})
	if err != nil {
		t.Fatalf("SubmitGoal() error = %v", err)
	}

	select {
	case <-handle.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("goal never settled after connection loss")
	}
	if status := handle.Status(); status != StatusAborted {
		t.Errorf("Status() = %q, want %q", status, StatusAborted)
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]GoalStatus{
		"succeeded": StatusSucceeded,
		"cancelled": StatusCancelled,
		"canceled":  StatusCancelled,
		"aborted":   StatusAborted,
		"rejected":  StatusAborted,
	}
	for in, want := range cases {
		if got := parseStatus(in); got != want {
			t.Errorf("parseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMockReadinessSequence(t *testing.T) {
	m := &Mock{FailReady: 2}
	ctx := context.Background()

	if err := m.WaitReady(ctx, time.Second); !errors.Is(err, ErrNotReady) {
		t.Errorf("first WaitReady() error = %v, want ErrNotReady", err)
	}
	if err := m.WaitReady(ctx, time.Second); !errors.Is(err, ErrNotReady) {
		t.Errorf("second WaitReady() error = %v, want ErrNotReady", err)
	}
	if err := m.WaitReady(ctx, time.Second); err != nil {
		t.Errorf("third WaitReady() error = %v, want nil", err)
	}
	if got := m.ReadyCalls(); got != 3 {
		t.Errorf("ReadyCalls() = %d, want 3", got)
	}
}
