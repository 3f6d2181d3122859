package mock

import "github.com/lexrag/lexrag/ai"

// MockProvider is a test double for ai.Provider aggregating mock services.
type MockProvider struct {
	chat     *MockChatModel
	embedder *MockEmbedder
	modelID  string
}

// NewMockProvider creates a provider with default mock services.
//
// Returns ai.Provider for consistency with production constructors; use
// GetMockChat()/GetMockEmbedder() to reach concrete types for assertions.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		chat:     NewMockChatModel(),
		embedder: NewMockEmbedder(),
		modelID:  "mock-model",
	}
}

// Chat returns the mock chat model.
func (p *MockProvider) Chat() ai.ChatModel {
	return p.chat
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// ModelID reports the mock model identifier.
func (p *MockProvider) ModelID() string {
	return p.modelID
}

// Close is a no-op for the mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockChat returns the underlying mock chat model for test assertions.
func (p *MockProvider) GetMockChat() *MockChatModel {
	return p.chat
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

var _ ai.Provider = (*MockProvider)(nil)
