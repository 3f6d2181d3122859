package ai

import (
	"context"

	"github.com/lexrag/lexrag/core"
)

// ChatModel generates a completion from an ordered sequence of messages.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Generate invokes the model with the full prompt sequence and returns
	// the assistant's text reply. Blocking; the call honors ctx cancellation
	// but imposes no timeout of its own.
	Generate(ctx context.Context, messages []core.Message) (string, error)
}

// Embedder turns text into fixed-length numeric vectors for similarity
// comparison. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates an embedding vector for a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embedding vectors for multiple texts in a batch,
	// returned in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider aggregates the model services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Chat returns the chat generation service.
	Chat() ChatModel

	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ModelID reports the identifier of the chat model in use, for telemetry.
	ModelID() string

	// Close releases resources held by the provider and its services.
	Close() error
}
