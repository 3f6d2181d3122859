package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lexrag/lexrag/ai"
	"github.com/lexrag/lexrag/core"
)

// DefaultTokenBudget bounds the working history passed to the model.
const DefaultTokenBudget = 1000

var (
	// ErrChatModelRequired is returned when no chat model is provided.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrStoreRequired is returned when no session store is provided.
	ErrStoreRequired = errors.New("session store required")
)

// Machine is the conversation state machine. Each Step runs the single
// linear path Start → Chatbot → End within one call: load transcript, trim
// to the token budget, generate, persist the new turn.
//
// The machine serializes steps per conversation id with a keyed mutex, so a
// transcript is mutated by at most one in-flight turn; different ids run in
// parallel.
type Machine struct {
	model        ai.ChatModel
	store        Store
	systemPrompt string
	budget       int
	countTokens  TokenCounter
	logger       *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures a Machine.
type Option func(*Machine) error

// WithSystemPrompt sets the instruction message prepended to every model
// call. It is part of the prompt only, never persisted into transcripts.
func WithSystemPrompt(prompt string) Option {
	return func(m *Machine) error {
		m.systemPrompt = prompt
		return nil
	}
}

// WithTokenBudget caps the working history size. Default is DefaultTokenBudget.
func WithTokenBudget(budget int) Option {
	return func(m *Machine) error {
		if budget <= 0 {
			return fmt.Errorf("token budget must be positive, got %d", budget)
		}
		m.budget = budget
		return nil
	}
}

// WithTokenCounter sets a custom token counter.
// Default is the cl100k_base tiktoken encoding.
func WithTokenCounter(counter TokenCounter) Option {
	return func(m *Machine) error {
		if counter == nil {
			return errors.New("token counter cannot be nil")
		}
		m.countTokens = counter
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewMachine creates a state machine over the given model and store.
func NewMachine(model ai.ChatModel, store Store, opts ...Option) (*Machine, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	m := &Machine{
		model:  model,
		store:  store,
		budget: DefaultTokenBudget,
		logger: slog.Default().With("component", "session-machine"),
		locks:  make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if m.countTokens == nil {
		counter, err := NewTiktokenCounter()
		if err != nil {
			return nil, err
		}
		m.countTokens = counter
	}

	return m, nil
}

// Step advances the conversation by exactly one turn.
//
// finalPrompt is the augmented text the model sees this turn; originalPrompt
// is the raw user utterance and the only text persisted into the transcript.
// An empty originalPrompt defaults to finalPrompt. Returns the model reply.
func (m *Machine) Step(ctx context.Context, chatID, finalPrompt, originalPrompt string) (string, error) {
	if chatID == "" {
		return "", core.ErrEmptyChatID
	}
	if finalPrompt == "" {
		return "", core.ErrEmptyQuery
	}
	if originalPrompt == "" {
		originalPrompt = finalPrompt
	}

	unlock := m.lock(chatID)
	defer unlock()

	history, err := m.store.History(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	working := m.trim(history)
	m.logger.Debug("working history assembled",
		"chatID", chatID,
		"stored", len(history),
		"working", len(working))

	prompt := make([]core.Message, 0, len(working)+2)
	if m.systemPrompt != "" {
		prompt = append(prompt, core.SystemMessage(m.systemPrompt))
	}
	prompt = append(prompt, working...)
	prompt = append(prompt, core.HumanMessage(finalPrompt))

	reply, err := m.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	next := make([]core.Message, 0, len(working)+2)
	next = append(next, working...)
	next = append(next, core.HumanMessage(originalPrompt), core.AssistantMessage(reply))

	if err := m.store.Replace(ctx, chatID, next); err != nil {
		return "", fmt.Errorf("persist transcript: %w", err)
	}
	return reply, nil
}

// History returns the latest persisted transcript for the conversation, or
// an empty sequence for an unused id. Read-only and idempotent.
func (m *Machine) History(ctx context.Context, chatID string) ([]core.Message, error) {
	return m.store.History(ctx, chatID)
}

// trim produces the working history: all system messages are retained, then
// the newest non-system messages that fit the remaining token budget, with
// the window anchored so it starts on a human turn.
func (m *Machine) trim(messages []core.Message) []core.Message {
	budget := m.budget

	var systems, rest []core.Message
	for _, msg := range messages {
		if msg.Role == core.RoleSystem {
			systems = append(systems, msg)
			budget -= m.countTokens(msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}

	start := len(rest)
	used := 0
	for i := len(rest) - 1; i >= 0; i-- {
		tokens := m.countTokens(rest[i].Content)
		if used+tokens > budget {
			break
		}
		used += tokens
		start = i
	}

	// Anchor the boundary on a human turn so the window never opens with a
	// dangling assistant reply.
	for start < len(rest) && rest[start].Role != core.RoleHuman {
		start++
	}

	working := make([]core.Message, 0, len(systems)+len(rest)-start)
	working = append(working, systems...)
	working = append(working, rest[start:]...)
	return working
}

// lock acquires the per-conversation mutex and returns its release func.
// Lock entries live for the process lifetime, one per conversation id seen.
func (m *Machine) lock(chatID string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[chatID] = l
	}
	m.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}
