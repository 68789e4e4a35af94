package planning

import (
	"context"
	"sync"
)

// Mock is a configurable Service for tests. Zero value returns the
// embedded domain, an empty problem, and ErrNoPlan.
type Mock struct {
	mu sync.Mutex

	// DomainFunc overrides Domain when set.
	DomainFunc func(ctx context.Context) (string, error)

	// ProblemFunc overrides Problem when set.
	ProblemFunc func(ctx context.Context) (string, error)

	// PlanFunc overrides Plan when set.
	PlanFunc func(ctx context.Context, domain, problem string) (*Plan, error)

	// PlanCalls counts Plan invocations.
	PlanCalls int

	// LastProblem records the problem text of the most recent Plan call.
	LastProblem string
}

// Domain implements Service.
func (m *Mock) Domain(ctx context.Context) (string, error) {
	if m.DomainFunc != nil {
		return m.DomainFunc(ctx)
	}
	return DefaultDomain(), nil
}

// Problem implements Service.
func (m *Mock) Problem(ctx context.Context) (string, error) {
	if m.ProblemFunc != nil {
		return m.ProblemFunc(ctx)
	}
	return "", nil
}

// Plan implements Service.
func (m *Mock) Plan(ctx context.Context, domain, problem string) (*Plan, error) {
	m.mu.Lock()
	m.PlanCalls++
	m.LastProblem = problem
	m.mu.Unlock()

	if m.PlanFunc != nil {
		return m.PlanFunc(ctx, domain, problem)
	}
	return nil, ErrNoPlan
}

var _ Service = (*Mock)(nil)
