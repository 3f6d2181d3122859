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


// Package advisor decides, per turn, whether a retrieval call is worth
// making and produces the retrieval-optimized rewrite of the user query.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexrag/lexrag/ai"
	"github.com/lexrag/lexrag/core"
)

// ErrChatModelRequired is returned when no chat model is provided.
var ErrChatModelRequired = errors.New("chat model required")

// systemPrompt instructs the model to emit strictly the two-field JSON
// decision, biased toward searching whenever the utterance looks like a
// request or question.
const systemPrompt = `Você é um assistente que monta queries para um serviço de busca por similaridade num banco de dados de vetor.
Com base num histórico de conversa e numa query fornecida, sua responsabilidade é responder se vale a pena buscar no BD para encontrar uma resposta e, além disso, atualizar a query providenciada para obter resultados melhores.
Responda SOMENTE com um JSON seguindo a estrutura:
{
    "worth_searching": true | false,
    "refined_query": string
}
Tal que:
- "worth_searching": booleano. Indica se, de fato, é necessário realizar uma busca para encontrar uma resposta. Na dúvida, coloque true se a query for um pedido (subentendido ou não) ou pergunta.
- "refined_query": string. É uma query usada no BD vetorial para buscar uma resposta para o usuário. Deve ter um valor, obrigatoriamente, se "worth_searching" for true.`

// decision mirrors the JSON shape the model is instructed to produce.
type decision struct {
	WorthSearching bool   `json:"worth_searching"`
	RefinedQuery   string `json:"refined_query"`
}

// Advisor asks the chat model for a per-turn rewrite decision.
type Advisor struct {
	model  ai.ChatModel
	logger *slog.Logger
}

// Option configures an Advisor.
type Option func(*Advisor) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advisor) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// New creates an advisor over the given chat model.
func New(model ai.ChatModel, opts ...Option) (*Advisor, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}

	a := &Advisor{
		model:  model,
		logger: slog.Default().With("component", "advisor"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Decide returns the rewrite decision for one turn.
//
// An empty history short-circuits to RewriteSearch with the query unchanged:
// there is no prior context to disambiguate, so retrieval is always worth a
// try and no model call is made. Model failures and unparseable output
// degrade to RewriteMalformed; they are never retried.
func (a *Advisor) Decide(ctx context.Context, history []core.Message, query string) core.RewriteDecision {
	if len(history) == 0 {
		return core.RewriteDecision{Outcome: core.RewriteSearch, RefinedQuery: query}
	}

	question := fmt.Sprintf("# Histórico de Conversa\n%s\n# Query\n%s\n\njson:",
		renderHistory(history), query)

	output, err := a.model.Generate(ctx, []core.Message{
		core.SystemMessage(systemPrompt),
		core.HumanMessage(question),
	})
	if err != nil {
		a.logger.Error("rewrite decision call failed", "err", err)
		return core.RewriteDecision{Outcome: core.RewriteMalformed}
	}

	var parsed decision
	if err := json.Unmarshal([]byte(stripFences(output)), &parsed); err != nil {
		a.logger.Warn("rewrite decision did not parse", "output", output, "err", err)
		return core.RewriteDecision{Outcome: core.RewriteMalformed}
	}

	if !parsed.WorthSearching {
		return core.RewriteDecision{Outcome: core.RewriteSkip}
	}
	return core.RewriteDecision{Outcome: core.RewriteSearch, RefinedQuery: parsed.RefinedQuery}
}

// renderHistory flattens the transcript to "role: content" lines.
func renderHistory(history []core.Message) string {
	var b strings.Builder
	for _, msg := range history {
		role := "human"
		switch msg.Role {
		case core.RoleAssistant:
			role = "ai"
		case core.RoleSystem:
			role = "system"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// stripFences removes markdown code fences some models wrap JSON output in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
