// Package chroma implements vectorstore.Store against a Chroma server.
//
// It is selected when CHROMA_URL is configured; the embedded badger store
// serves local-path deployments otherwise.
package chroma

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	lcchroma "github.com/tmc/langchaingo/vectorstores/chroma"

	"github.com/lexrag/lexrag/ai"
	"github.com/lexrag/lexrag/core"
	"github.com/lexrag/lexrag/vectorstore"
)

// Store is a Chroma-server-backed vector store.
type Store struct {
	store  lcchroma.Store
	logger *slog.Logger
}

// New connects to the Chroma server at url, scoping all operations to the
// given collection.
//
// Returns the vectorstore.Store interface to keep callers backend-agnostic.
func New(url, collection string, embedder ai.Embedder) (vectorstore.Store, error) {
	if embedder == nil {
		return nil, vectorstore.ErrEmbedderRequired
	}
	if url == "" {
		return nil, fmt.Errorf("chroma server url required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name required")
	}

	store, err := lcchroma.New(
		lcchroma.WithChromaURL(url),
		lcchroma.WithNameSpace(collection),
		lcchroma.WithEmbedder(&embedderAdapter{embedder: embedder}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect chroma: %w", err)
	}

	return &Store{
		store:  store,
		logger: slog.Default().With("component", "chroma-vectorstore", "collection", collection),
	}, nil
}

// AddDocuments upserts the chunks into the collection.
func (s *Store) AddDocuments(ctx context.Context, docs []vectorstore.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	lcDocs := make([]schema.Document, 0, len(docs))
	for _, doc := range docs {
		metadata := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		lcDocs = append(lcDocs, schema.Document{
			PageContent: doc.Content,
			Metadata:    metadata,
		})
	}

	ids, err := s.store.AddDocuments(ctx, lcDocs)
	if err != nil {
		return 0, fmt.Errorf("chroma add documents: %w", err)
	}

	s.logger.Debug("documents upserted", "count", len(ids))
	return len(ids), nil
}

// SimilaritySearch returns up to k chunks in the server's similarity order.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]core.RetrievedChunk, error) {
	if query == "" {
		return nil, vectorstore.ErrEmptyQuery
	}

	docs, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("chroma similarity search: %w", err)
	}

	chunks := make([]core.RetrievedChunk, 0, len(docs))
	for _, doc := range docs {
		metadata := make(map[string]string, len(doc.Metadata))
		for key, value := range doc.Metadata {
			metadata[key] = fmt.Sprint(value)
		}
		chunks = append(chunks, core.RetrievedChunk{
			Content:  doc.PageContent,
			Metadata: metadata,
		})
	}
	return chunks, nil
}

// Close is a no-op; the Chroma client holds no local resources.
func (s *Store) Close() error {
	return nil
}

// embedderAdapter exposes ai.Embedder through langchaingo's interface.
type embedderAdapter struct {
	embedder ai.Embedder
}

var _ embeddings.Embedder = (*embedderAdapter)(nil)

func (a *embedderAdapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return a.embedder.EmbedTexts(ctx, texts)
}

func (a *embedderAdapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return a.embedder.EmbedText(ctx, text)
}
