package bedrock

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	lcembed "github.com/tmc/langchaingo/embeddings/bedrock"

	"github.com/lexrag/lexrag/ai"
)

// Embedder implements ai.Embedder using Bedrock embedding models.
type Embedder struct {
	embedder *lcembed.Bedrock
	logger   *slog.Logger
}

func newEmbedder(client *bedrockruntime.Client, modelID string) (*Embedder, error) {
	embedder, err := lcembed.NewBedrock(
		lcembed.WithClient(client),
		lcembed.WithModel(modelID),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "bedrock-embedder", "model", modelID),
	}, nil
}

// EmbedText generates an embedding vector for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding", "length", len(text))
	return e.embedder.EmbedQuery(ctx, text)
}

// EmbedTexts generates embedding vectors for multiple texts in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding failed", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

var _ ai.Embedder = (*Embedder)(nil)
