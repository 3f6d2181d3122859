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


// Package ingestion pulls documents from an object store, extracts their
// text, chunks it and indexes the chunks into the vector store.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/lexrag/lexrag/core"
	"github.com/lexrag/lexrag/objectstore"
	"github.com/lexrag/lexrag/vectorstore"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 100
)

var (
	// ErrObjectStoreRequired is returned when no object store is provided.
	ErrObjectStoreRequired = errors.New("object store required")
	// ErrVectorStoreRequired is returned when no vector store is provided.
	ErrVectorStoreRequired = errors.New("vector store required")
)

// Extractor turns a downloaded file into its pages of plain text. The
// default extractor reads PDFs; tests swap in plain-text extractors.
type Extractor func(ctx context.Context, path string) ([]string, error)

// Pipeline indexes every document in the object store. Documents are
// processed concurrently; one bad document never aborts the run.
type Pipeline struct {
	objects   objectstore.Store
	vectors   vectorstore.Store
	extract   Extractor
	pool      *ants.Pool
	chunkSize int
	overlap   int
	scratch   string
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithExtractor replaces the default PDF text extractor.
func WithExtractor(extract Extractor) Option {
	return func(p *Pipeline) error {
		if extract == nil {
			return errors.New("extractor cannot be nil")
		}
		p.extract = extract
		return nil
	}
}

// WithChunking sets the splitter's chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		if overlap < 0 || overlap >= size {
			return fmt.Errorf("chunk overlap must be in [0, size), got %d", overlap)
		}
		p.chunkSize = size
		p.overlap = overlap
		return nil
	}
}

// WithWorkers resizes the worker pool.
func WithWorkers(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("worker pool size must be at least 1, got %d", size)
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithScratchDir sets where downloads are staged. Default is os.TempDir().
func WithScratchDir(dir string) Option {
	return func(p *Pipeline) error {
		p.scratch = dir
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates an ingestion pipeline reading from objects and writing to
// vectors.
func New(objects objectstore.Store, vectors vectorstore.Store, opts ...Option) (*Pipeline, error) {
	if objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		objects:   objects,
		vectors:   vectors,
		extract:   extractPDF,
		pool:      pool,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		scratch:   os.TempDir(),
		logger:    slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}
	return p, nil
}

// IngestAll lists the object store and indexes every document. Per-document
// failures are collected into the report instead of aborting the run.
func (p *Pipeline) IngestAll(ctx context.Context) (*core.IngestReport, error) {
	start := time.Now()

	keys, err := p.objects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	p.logger.Info("ingestion started", "documents", len(keys))

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report core.IngestReport
	)

	for _, key := range keys {
		key := key
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()

			chunks, err := p.ingestOne(ctx, key)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Error("document ingestion failed", "key", key, "err", err)
				report.Failed = append(report.Failed, core.IngestFailure{Key: key, Err: err.Error()})
				return
			}
			report.Processed = append(report.Processed, key)
			report.TotalChunks += chunks
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			report.Failed = append(report.Failed, core.IngestFailure{Key: key, Err: submitErr.Error()})
			mu.Unlock()
		}
	}
	wg.Wait()

	report.Elapsed = time.Since(start)
	p.logger.Info("ingestion finished",
		"processed", len(report.Processed),
		"failed", len(report.Failed),
		"chunks", report.TotalChunks,
		"elapsed", report.Elapsed)
	return &report, nil
}

// ingestOne downloads, extracts, chunks and indexes a single document,
// returning how many chunks were written.
func (p *Pipeline) ingestOne(ctx context.Context, key string) (int, error) {
	scratch, err := os.CreateTemp(p.scratch, "lexrag-ingest-*"+filepath.Ext(key))
	if err != nil {
		return 0, fmt.Errorf("creating scratch file: %w", err)
	}
	path := scratch.Name()
	scratch.Close()
	defer os.Remove(path)

	if err := p.objects.Download(ctx, key, path); err != nil {
		return 0, fmt.Errorf("downloading %s: %w", key, err)
	}

	pages, err := p.extract(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("extracting %s: %w", key, err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(p.chunkSize),
		textsplitter.WithChunkOverlap(p.overlap),
	)

	// Every page is stamped with the document header so search results can
	// recover the source even when chunk metadata is lost downstream.
	var docs []vectorstore.Document
	for _, page := range pages {
		stamped := fmt.Sprintf("Documento: %s\n\n%s", key, page)

		pieces, err := splitter.SplitText(stamped)
		if err != nil {
			return 0, fmt.Errorf("splitting %s: %w", key, err)
		}
		for _, piece := range pieces {
			docs = append(docs, vectorstore.Document{
				Content: piece,
				Metadata: map[string]string{
					"source":     key,
					"file_name":  filepath.Base(key),
					"file_path":  key,
					"origin_uri": p.objects.OriginURI(key),
				},
			})
		}
	}

	added, err := p.vectors.AddDocuments(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("indexing %s: %w", key, err)
	}

	p.logger.Info("document ingested", "key", key, "chunks", added)
	return added, nil
}

// Release releases the worker pool. The pipeline should not be used after
// calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
