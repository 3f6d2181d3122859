// Copyright 2025 Lexrag Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package badger implements vectorstore.Store on an embedded BadgerDB.
//
// Chunks are stored as mus-serialized records keyed by a per-collection
// prefix; similarity search embeds the query and scans the collection with a
// cosine ranking. This is the default backend when no Chroma server URL is
// configured, serving the local-path deployment mode.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/lexrag/lexrag/ai"
	"github.com/lexrag/lexrag/core"
	"github.com/lexrag/lexrag/vectorstore"
)

const chunkKeyPrefix = "chk"

// Store is an embedded vector store over BadgerDB.
type Store struct {
	db         *badger.DB
	embedder   ai.Embedder
	collection string
	logger     *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// New opens (or creates) an embedded store at the given directory.
//
// Returns the vectorstore.Store interface to keep callers backend-agnostic.
func New(path, collection string, embedder ai.Embedder) (vectorstore.Store, error) {
	return open(path, collection, embedder, false)
}

// NewInMemory creates a non-persistent store for testing.
func NewInMemory(collection string, embedder ai.Embedder) (vectorstore.Store, error) {
	return open("", collection, embedder, true)
}

func open(path, collection string, embedder ai.Embedder, inMemory bool) (*Store, error) {
	if embedder == nil {
		return nil, vectorstore.ErrEmbedderRequired
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name required")
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
			info, err = os.Stat(path)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:         db,
		embedder:   embedder,
		collection: collection,
		logger:     slog.Default().With("component", "badger-vectorstore", "collection", collection),
	}, nil
}

// makeChunkKey generates a unique key within the collection namespace.
func (s *Store) makeChunkKey() []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", chunkKeyPrefix, s.collection, uuid.NewString()))
}

func (s *Store) collectionPrefix() []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkKeyPrefix, s.collection))
}

// AddDocuments embeds the chunks in one batch and writes them in a single
// transaction. Keys are random, so re-adding the same content duplicates it.
func (s *Store) AddDocuments(ctx context.Context, docs []vectorstore.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	err = s.db.Update(func(tx *badger.Txn) error {
		for i, doc := range docs {
			record := chunkRecord{
				Content:  doc.Content,
				Metadata: doc.Metadata,
				Vector:   vectors[i],
			}
			if err := tx.Set(s.makeChunkKey(), marshalChunkRecord(record)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("documents upserted", "count", len(docs))
	return len(docs), nil
}

// SimilaritySearch embeds the query and cosine-ranks every chunk in the
// collection, returning the top k.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]core.RetrievedChunk, error) {
	if query == "" {
		return nil, vectorstore.ErrEmptyQuery
	}

	queryVector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		record chunkRecord
		score  float32
	}
	var results []scored

	err = s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.collectionPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record chunkRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = unmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(record.Vector) == 0 {
				continue
			}
			results = append(results, scored{
				record: record,
				score:  cosineSimilarity(queryVector, record.Vector),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b scored) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}

	chunks := make([]core.RetrievedChunk, 0, len(results))
	for _, r := range results {
		metadata := r.record.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		chunks = append(chunks, core.RetrievedChunk{
			Content:  r.record.Content,
			Metadata: metadata,
		})
	}
	return chunks, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-norm vectors score zero.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
