package mcp

import (
	"sync"
)

// MockCall records a Handle invocation for verification
type MockCall struct {
	Command   string
	RawParams string
}

// MockBridge is a mock implementation of BridgeHandle for testing
type MockBridge struct {
	mu    sync.Mutex
	Calls []MockCall

	// Results maps command name to the envelope Handle should return.
	// Commands without an entry get DefaultResult.
	Results       map[string]map[string]any
	DefaultResult map[string]any

	CommandsResult []string
	VersionResult  string
}

// NewMockBridge creates a mock with sensible defaults
func NewMockBridge() *MockBridge {
	return &MockBridge{
		Results:       make(map[string]map[string]any),
		DefaultResult: map[string]any{"success": true},
		CommandsResult: []string{
			"hierarchy", "click", "clickByText", "find", "input",
		},
		VersionResult: "test",
	}
}

func (m *MockBridge) Handle(command string, rawParams string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Command: command, RawParams: rawParams})

	if env, ok := m.Results[command]; ok {
		return env
	}
	return m.DefaultResult
}

func (m *MockBridge) Commands() []string {
	return m.CommandsResult
}

func (m *MockBridge) Version() string {
	return m.VersionResult
}

// LastCall returns the most recent Handle call, or nil if none happened
func (m *MockBridge) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	c := m.Calls[len(m.Calls)-1]
	return &c
}

// CallCount returns the number of Handle calls so far
func (m *MockBridge) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
