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


// Package ai defines the abstractions for the language-model services
// used by lexrag: chat generation and text embeddings.
//
// Production constructors (bedrock.NewProvider) return the interfaces defined
// here so the orchestration code never couples to a concrete model backend.
// The ai/mock sub-package provides test doubles with injectable behavior.
package ai
