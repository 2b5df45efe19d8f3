package workflow

import (
	"context"
	"fmt"
	"sync"
)

// MockCompleter is a test implementation of the TextCompleter interface.
// It returns scripted responses in order and records every call.
type MockCompleter struct {
	err       error
	responses []string
	calls     []MockCall
	mu        sync.Mutex
}

// MockCall records details of a completion request.
type MockCall struct {
	SystemPrompt string
	UserPrompt   string
}

// NewMockCompleter creates a mock completer that returns the given
// responses in sequence.
func NewMockCompleter(responses ...string) *MockCompleter {
	return &MockCompleter{responses: responses}
}

// FailWith makes every subsequent call return err.
func (m *MockCompleter) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete returns the next scripted response.
func (m *MockCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	if m.err != nil {
		return "", m.err
	}
	if len(m.calls) > len(m.responses) {
		return "", fmt.Errorf("mock completer exhausted after %d responses", len(m.responses))
	}
	return m.responses[len(m.calls)-1], nil
}

// Calls returns a copy of all recorded calls for verification in tests.
func (m *MockCompleter) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of completion requests received.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
