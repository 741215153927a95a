package vision

import (
	"context"
	"sync"
	"time"
)

// MockCoreVision is a configurable CoreVision for tests. It records every
// call and can be told to fail for the first N attempts, which makes it
// useful for exercising the middleware chain.
type MockCoreVision struct {
	mu sync.Mutex

	Response      string
	TokensIn      int
	TokensOut     int
	Err           error
	Model         string
	ResponseDelay time.Duration

	// FailUntilAttempt fails the first N calls, then succeeds.
	FailUntilAttempt int

	CallCount   int
	LastRequest Request
	LastOpts    map[string]any
}

// NewMockCoreVision returns a mock with a successful default response.
func NewMockCoreVision() *MockCoreVision {
	return &MockCoreVision{
		Response:  `{"total_students": 1, "scores": [{"order": 1, "score": 5}]}`,
		TokensIn:  10,
		TokensOut: 20,
		Model:     "test-model",
	}
}

func (m *MockCoreVision) DoRequest(ctx context.Context, req Request, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastRequest = req
	m.LastOpts = opts

	if m.ResponseDelay > 0 {
		select {
		case <-time.After(m.ResponseDelay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}

	if m.FailUntilAttempt > 0 && m.CallCount <= m.FailUntilAttempt {
		if m.Err != nil {
			return "", 0, 0, m.Err
		}
		return "", 0, 0, NewProviderError("mock", ErrorTypeServerError, 500, "simulated failure", nil)
	}
	if m.Err != nil {
		return "", 0, 0, m.Err
	}
	return m.Response, m.TokensIn, m.TokensOut, nil
}

func (m *MockCoreVision) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

func (m *MockCoreVision) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// Calls returns how many times DoRequest ran.
func (m *MockCoreVision) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}
