package vectorstore

import (
	"context"
	"errors"

	"github.com/lexrag/lexrag/core"
)

var (
	// ErrEmbedderRequired is returned when a store needs an embedder and none
	// was provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyQuery is returned for similarity searches with no query text.
	ErrEmptyQuery = errors.New("query text required")
)

// Document is one chunk to be persisted with its metadata. The embedding is
// computed by the store at upsert time.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Store persists chunk embeddings and answers nearest-neighbor queries.
// Implementations must be thread-safe; serving traffic is read-mostly and
// writes happen only during the offline ingestion phase.
type Store interface {
	// AddDocuments embeds and upserts the given chunks. Returns the number of
	// chunks stored. Re-adding identical content appends duplicates; there is
	// no content-based deduplication.
	AddDocuments(ctx context.Context, docs []Document) (int, error)

	// SimilaritySearch returns up to k chunks ordered by descending
	// similarity to the query text.
	SimilaritySearch(ctx context.Context, query string, k int) ([]core.RetrievedChunk, error)

	// Close releases the backend resources.
	Close() error
}
