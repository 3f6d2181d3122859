package mock

import (
	"context"
	"sync"

	"github.com/lexrag/lexrag/core"
)

// MockChatModel is a test double for ai.ChatModel.
// Set GenerateFunc to inject behavior; the default echoes the last message.
type MockChatModel struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, messages []core.Message) (string, error)

	mu        sync.Mutex
	calls     [][]core.Message
	callCount int
}

// NewMockChatModel creates a mock chat model with default echo behavior.
// Note: returns the concrete type so tests can reach assertion helpers.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Generate records the call and delegates to GenerateFunc when set.
func (m *MockChatModel) Generate(ctx context.Context, messages []core.Message) (string, error) {
	m.mu.Lock()
	m.callCount++
	snapshot := make([]core.Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}

	if len(messages) == 0 {
		return "", nil
	}
	return "echo: " + messages[len(messages)-1].Content, nil
}

// CallCount returns the number of Generate invocations.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastCall returns the message sequence of the most recent invocation,
// or nil if Generate was never called.
func (m *MockChatModel) LastCall() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Reset clears recorded calls and injected behavior.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.calls = nil
	m.GenerateFunc = nil
}
