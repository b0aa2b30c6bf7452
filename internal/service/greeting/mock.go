package greeting

import (
	"context"
	"sync/atomic"
)

// MockService implements Service for handler tests. It returns the same
// greeting on every call.
type MockService struct {
	greeting Greeting
	calls    atomic.Int64
}

var _ Service = (*MockService)(nil)

// NewMockService creates a mock returning g.
func NewMockService(g Greeting) *MockService {
	return &MockService{greeting: g}
}

func (m *MockService) Greet(context.Context) Greeting {
	m.calls.Add(1)
	return m.greeting
}

// Calls reports how many times Greet ran.
func (m *MockService) Calls() int {
	return int(m.calls.Load())
}
