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


// Package retrieval wraps the vector store with the fixed top-k search used
// by the orchestrator, plus source-attribution bookkeeping.
package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexrag/lexrag/core"
	"github.com/lexrag/lexrag/vectorstore"
)

// ErrStoreRequired is returned when no vector store is provided.
var ErrStoreRequired = errors.New("vector store required")

// unknownSource labels chunks whose origin could not be determined.
const unknownSource = "Desconhecido"

// Service performs top-k similarity searches and resolves display sources.
// It trusts the store's ranking verbatim: no deduplication, no re-ranking.
type Service struct {
	store  vectorstore.Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a retrieval service over the given store.
func New(store vectorstore.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Service{
		store:  store,
		logger: slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Search returns the top k chunks for the query with display sources
// resolved. The store is never mutated.
func (s *Service) Search(ctx context.Context, query string, k int) ([]core.RetrievedChunk, error) {
	start := time.Now()

	chunks, err := s.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		s.logger.Error("similarity search failed", "query", query, "err", err)
		return nil, err
	}

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = map[string]string{}
		}
		chunks[i].Source = resolveSource(&chunks[i])
	}

	s.logger.Info("similarity search done",
		"query", query,
		"k", k,
		"hits", len(chunks),
		"elapsed", time.Since(start))
	for i, chunk := range chunks {
		s.logger.Debug("retrieved chunk", "rank", i+1, "source", chunk.Source, "chars", len(chunk.Content))
	}

	return chunks, nil
}

// resolveSource finds a display label for the chunk: the source/file_path
// metadata when present, otherwise a document header recovered from the
// first lines of the content. Labels are reduced to their base filename.
func resolveSource(chunk *core.RetrievedChunk) string {
	source, ok := chunk.Metadata["source"]
	if !ok || source == "" {
		source, ok = chunk.Metadata["file_path"]
	}
	if !ok || source == "" {
		source = sourceFromContent(chunk.Content)
	}
	if source == "" {
		return unknownSource
	}
	return filepath.Base(source)
}

// sourceFromContent scans the first ten lines for an ingestion-stamped
// document header and returns the text after the colon.
func sourceFromContent(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		for _, prefix := range []string{"Documento:", "Arquivo:", "File:"} {
			if idx := strings.Index(line, prefix); idx >= 0 {
				return strings.TrimSpace(line[idx+len(prefix):])
			}
		}
	}
	return ""
}
