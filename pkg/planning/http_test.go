package planning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func solverServer(t *testing.T, handler http.HandlerFunc) *HTTPSolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPSolver(SolverConfig{URL: srv.URL, Timeout: 5 * time.Second})
}

func TestHTTPSolverSolve(t *testing.T) {
	var gotReq solveRequest
	solver := solverServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/plan" {
			t.Errorf("request path = %q, want /plan", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(solveResponse{
			Plan: "0.000: (move r2d2 wp_control wp1)  [5.000]",
		})
	})

	plan, err := solver.Solve(context.Background(), "domain-text", "problem-text")
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if gotReq.Domain != "domain-text" || gotReq.Problem != "problem-text" {
		t.Errorf("solver request = %+v, want domain and problem text", gotReq)
	}
	if len(plan.Steps) != 1 || plan.Steps[0].Action != "move" {
		t.Errorf("Solve() plan = %+v, want single move step", plan)
	}
}

func TestHTTPSolverNoPlan(t *testing.T) {
	solver := solverServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(solveResponse{Plan: ""})
	})

	_, err := solver.Solve(context.Background(), "d", "p")
	if !errors.Is(err, ErrNoPlan) {
		t.Errorf("Solve() error = %v, want ErrNoPlan", err)
	}
}

func TestHTTPSolverErrorResponse(t *testing.T) {
	solver := solverServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(solveResponse{Error: "domain rejected"})
	})

	_, err := solver.Solve(context.Background(), "d", "p")
	if err == nil || errors.Is(err, ErrNoPlan) {
		t.Errorf("Solve() error = %v, want solver error distinct from ErrNoPlan", err)
	}
}

func TestHTTPSolverBadStatus(t *testing.T) {
	solver := solverServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := solver.Solve(context.Background(), "d", "p")
	if err == nil || errors.Is(err, ErrNoPlan) {
		t.Errorf("Solve() error = %v, want transport error distinct from ErrNoPlan", err)
	}
}

func TestSolverConfigValidate(t *testing.T) {
	if err := DefaultSolverConfig().Validate(); err != nil {
		t.Errorf("DefaultSolverConfig().Validate() error = %v", err)
	}
	if err := (SolverConfig{Timeout: time.Second}).Validate(); err == nil {
		t.Error("Validate() accepted empty URL")
	}
	if err := (SolverConfig{URL: "http://x"}).Validate(); err == nil {
		t.Error("Validate() accepted zero timeout")
	}
}
