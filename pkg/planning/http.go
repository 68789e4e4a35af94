package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-patrol/internal/httpc"
)

// SolverConfig holds the HTTP solver connection settings.
type SolverConfig struct {
	// URL is the solver base URL, for example "http://localhost:8090".
	URL string

	// Timeout bounds a single solve round trip. Planning is allowed to be
	// slow, but not unbounded.
	Timeout time.Duration
}

// DefaultSolverConfig returns solver settings for a local solver.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		URL:     "http://localhost:8090",
		Timeout: 15 * time.Second,
	}
}

// Validate checks the configuration.
func (c SolverConfig) Validate() error {
	if c.URL == "" {
		return errors.New("planning: solver URL must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("planning: solver timeout must be positive")
	}
	return nil
}

// HTTPSolver submits planning requests to an external solver service over
// HTTP. It implements Solver.
type HTTPSolver struct {
	cfg    SolverConfig
	client *http.Client
}

// NewHTTPSolver builds a solver client from config.
func NewHTTPSolver(cfg SolverConfig) *HTTPSolver {
	return &HTTPSolver{
		cfg:    cfg,
		client: httpc.NewClient(cfg.Timeout),
	}
}

type solveRequest struct {
	Domain  string `json:"domain"`
	Problem string `json:"problem"`
}

type solveResponse struct {
	Plan  string `json:"plan"`
	Error string `json:"error,omitempty"`
}

// Solve POSTs the domain and problem to the solver's /plan endpoint and
// parses the returned plan text. A clean response with an empty plan maps
// to ErrNoPlan.
func (s *HTTPSolver) Solve(ctx context.Context, domain, problem string) (*Plan, error) {
	url := strings.TrimRight(s.cfg.URL, "/") + "/plan"
	resp, err := httpc.PostJSON(ctx, s.client, url, solveRequest{
		Domain:  domain,
		Problem: problem,
	})
	if err != nil {
		return nil, fmt.Errorf("planning: solver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("planning: solver returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("planning: decoding solver response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("planning: solver error: %s", out.Error)
	}
	if strings.TrimSpace(out.Plan) == "" {
		return nil, ErrNoPlan
	}
	return ParsePlan(out.Plan)
}
