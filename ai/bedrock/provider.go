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


// Package bedrock implements ai.Provider on top of AWS Bedrock via
// langchaingo's bedrock model and embedding clients.
package bedrock

import (
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/lexrag/lexrag/ai"
)

// Config holds the model identifiers for the Bedrock provider.
type Config struct {
	// ModelID is the chat model, e.g. "amazon.nova-micro-v1:0".
	ModelID string

	// EmbeddingModelID is the embedding model, e.g. "amazon.titan-embed-text-v2:0".
	EmbeddingModelID string
}

// Validate checks that both model identifiers are set.
func (c Config) Validate() error {
	if c.ModelID == "" {
		return errors.New("bedrock config: ModelID is required")
	}
	if c.EmbeddingModelID == "" {
		return errors.New("bedrock config: EmbeddingModelID is required")
	}
	return nil
}

// Provider implements ai.Provider using AWS Bedrock services.
type Provider struct {
	chat     *ChatModel
	embedder *Embedder
	config   Config
	logger   *slog.Logger
}

// NewProvider creates a Bedrock-backed AI provider sharing one runtime client.
//
// Returns the ai.Provider interface (not *Provider) to keep callers decoupled
// from Bedrock specifics.
func NewProvider(client *bedrockruntime.Client, config Config) (ai.Provider, error) {
	if client == nil {
		return nil, errors.New("bedrock runtime client required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	chat, err := newChatModel(client, config.ModelID)
	if err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(client, config.EmbeddingModelID)
	if err != nil {
		return nil, err
	}

	return &Provider{
		chat:     chat,
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "bedrock-provider"),
	}, nil
}

// Chat returns the chat generation service.
func (p *Provider) Chat() ai.ChatModel {
	return p.chat
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ModelID reports the configured chat model identifier.
func (p *Provider) ModelID() string {
	return p.config.ModelID
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing bedrock provider")
	return nil
}
