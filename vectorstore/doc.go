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


// Package vectorstore defines the persistence abstraction for document-chunk
// embeddings: upsert at ingestion time, similarity search at query time.
//
// Two backends implement the Store interface:
//
//   - vectorstore/chroma: a Chroma server reached over HTTP
//   - vectorstore/badger: an embedded BadgerDB store with a cosine scan,
//     used when no Chroma URL is configured
//
// Constructors return the Store interface so the retrieval service and the
// ingestion pipeline stay backend-agnostic.
package vectorstore
