// Package planning turns the knowledge store into PDDL problems, hands
// them to an external solver, and parses the timed plans that come back.
// The solver itself stays out of process: this package only speaks its
// wire format.
package planning

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

//go:embed data/patrol.pddl
var dataFS embed.FS

var (
	// ErrNoPlan is returned when the solver terminates cleanly but finds no
	// plan for the goal. Callers treat this as a mission condition, not a
	// transport failure.
	ErrNoPlan = errors.New("planning: no plan found for goal")

	// ErrMalformedPlan is returned when solver output cannot be parsed.
	ErrMalformedPlan = errors.New("planning: malformed plan")
)

// Step is one timed action instance in a plan.
type Step struct {
	Start    float64       `json:"start"`
	Action   string        `json:"action"`
	Args     []string      `json:"args"`
	Duration time.Duration `json:"duration"`
}

// Text renders the step as a parenthesized action term, for example
// "(move r2d2 wp_control wp1)".
func (s Step) Text() string {
	if len(s.Args) == 0 {
		return "(" + s.Action + ")"
	}
	return "(" + s.Action + " " + strings.Join(s.Args, " ") + ")"
}

// Plan is an ordered sequence of steps produced by the solver.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Solver produces a plan for a domain and problem, or ErrNoPlan.
type Solver interface {
	Solve(ctx context.Context, domain, problem string) (*Plan, error)
}

// Service exposes the planning operations the mission layer consumes.
type Service interface {
	Domain(ctx context.Context) (string, error)
	Problem(ctx context.Context) (string, error)
	Plan(ctx context.Context, domain, problem string) (*Plan, error)
}

// PDDLService pairs a static domain and a live problem source with a
// solver. It implements Service.
type PDDLService struct {
	domain string
	name   string
	source ProblemSource
	solver Solver
}

// NewService builds a PDDLService. The problem name shows up in generated
// problems and solver logs.
func NewService(domain, problemName string, source ProblemSource, solver Solver) *PDDLService {
	return &PDDLService{
		domain: domain,
		name:   problemName,
		source: source,
		solver: solver,
	}
}

// Domain returns the PDDL domain text.
func (s *PDDLService) Domain(ctx context.Context) (string, error) {
	if s.domain == "" {
		return "", errors.New("planning: no domain configured")
	}
	return s.domain, nil
}

// Problem generates a PDDL problem from the current problem source state.
func (s *PDDLService) Problem(ctx context.Context) (string, error) {
	domainName, err := domainName(s.domain)
	if err != nil {
		return "", err
	}
	return BuildProblem(s.name, domainName, s.source), nil
}

// Plan submits the domain and problem to the solver.
func (s *PDDLService) Plan(ctx context.Context, domain, problem string) (*Plan, error) {
	return s.solver.Solve(ctx, domain, problem)
}

// DefaultDomain returns the patrol domain embedded in the binary.
func DefaultDomain() string {
	data, err := dataFS.ReadFile("data/patrol.pddl")
	if err != nil {
		// The embedded file ships with the binary; failure to read it
		// means a broken build.
		panic(fmt.Sprintf("planning: embedded domain: %v", err))
	}
	return string(data)
}

// LoadDomain reads a PDDL domain from disk.
func LoadDomain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("planning: reading domain %s: %w", path, err)
	}
	return string(data), nil
}

// domainName extracts the name from "(define (domain name) ...)".
func domainName(domain string) (string, error) {
	idx := strings.Index(domain, "(domain")
	if idx < 0 {
		return "", errors.New("planning: domain text has no (domain ...) declaration")
	}
	rest := domain[idx+len("(domain"):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return "", errors.New("planning: unterminated (domain ...) declaration")
	}
	name := strings.TrimSpace(rest[:end])
	if name == "" {
		return "", errors.New("planning: empty domain name")
	}
	return name, nil
}
