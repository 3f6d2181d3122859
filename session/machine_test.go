package session

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/ai/mock"
	"github.com/lexrag/lexrag/core"
)

// wordCounter approximates tokens as whitespace-separated words, keeping
// tests independent of tokenizer downloads.
func wordCounter(text string) int {
	return len(strings.Fields(text))
}

func newTestMachine(t *testing.T, model *mock.MockChatModel, opts ...Option) *Machine {
	t.Helper()
	opts = append([]Option{WithTokenCounter(wordCounter)}, opts...)
	machine, err := NewMachine(model, NewMemoryStore(), opts...)
	require.NoError(t, err)
	return machine
}

func TestNewMachine(t *testing.T) {
	t.Run("nil model", func(t *testing.T) {
		_, err := NewMachine(nil, NewMemoryStore(), WithTokenCounter(wordCounter))
		assert.Equal(t, ErrChatModelRequired, err)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewMachine(mock.NewMockChatModel(), nil, WithTokenCounter(wordCounter))
		assert.Equal(t, ErrStoreRequired, err)
	})

	t.Run("invalid budget", func(t *testing.T) {
		_, err := NewMachine(mock.NewMockChatModel(), NewMemoryStore(),
			WithTokenCounter(wordCounter), WithTokenBudget(0))
		assert.Error(t, err)
	})
}

func TestStep_RoundTrip(t *testing.T) {
	model := mock.NewMockChatModel()
	model.GenerateFunc = func(ctx context.Context, messages []core.Message) (string, error) {
		return "a resposta", nil
	}
	machine := newTestMachine(t, model)
	ctx := context.Background()

	reply, err := machine.Step(ctx, "chat-1", "prompt aumentado com trechos", "pergunta original")
	require.NoError(t, err)
	assert.Equal(t, "a resposta", reply)

	history, err := machine.History(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, history, 2)

	// The two newest entries are the raw utterance and the reply, in order.
	assert.Equal(t, core.HumanMessage("pergunta original"), history[0])
	assert.Equal(t, core.AssistantMessage("a resposta"), history[1])

	// The augmented prompt never lands in the transcript.
	for _, msg := range history {
		assert.NotContains(t, msg.Content, "aumentado")
	}
}

func TestStep_ModelSeesFinalPromptNotOriginal(t *testing.T) {
	model := mock.NewMockChatModel()
	machine := newTestMachine(t, model, WithSystemPrompt("seja objetivo"))
	ctx := context.Background()

	_, err := machine.Step(ctx, "chat-1", "final", "original")
	require.NoError(t, err)

	prompt := model.LastCall()
	require.NotEmpty(t, prompt)
	assert.Equal(t, core.SystemMessage("seja objetivo"), prompt[0])
	assert.Equal(t, core.HumanMessage("final"), prompt[len(prompt)-1])
}

func TestStep_OriginalDefaultsToFinal(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel())
	ctx := context.Background()

	_, err := machine.Step(ctx, "chat-1", "só a pergunta", "")
	require.NoError(t, err)

	history, err := machine.History(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "só a pergunta", history[0].Content)
}

func TestStep_Validation(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel())
	ctx := context.Background()

	_, err := machine.Step(ctx, "", "p", "p")
	assert.ErrorIs(t, err, core.ErrEmptyChatID)

	_, err = machine.Step(ctx, "chat-1", "", "")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestHistory_Idempotent(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel())
	ctx := context.Background()

	_, err := machine.Step(ctx, "chat-1", "oi", "oi")
	require.NoError(t, err)

	first, err := machine.History(ctx, "chat-1")
	require.NoError(t, err)
	second, err := machine.History(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHistory_UnknownIDIsEmpty(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel())

	history, err := machine.History(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTrim_StartsOnHumanAndKeepsSystem(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel(), WithTokenBudget(8))

	messages := []core.Message{
		core.SystemMessage("regra fixa"),
		core.HumanMessage("uma pergunta antiga com muitas palavras aqui dentro"),
		core.AssistantMessage("resposta antiga"),
		core.HumanMessage("pergunta recente"),
		core.AssistantMessage("resposta recente"),
	}

	working := machine.trim(messages)

	require.NotEmpty(t, working)
	assert.Equal(t, core.RoleSystem, working[0].Role)

	// First non-system entry must be human-authored.
	var firstRest *core.Message
	for i := range working {
		if working[i].Role != core.RoleSystem {
			firstRest = &working[i]
			break
		}
	}
	require.NotNil(t, firstRest)
	assert.Equal(t, core.RoleHuman, firstRest.Role)
	assert.Equal(t, "pergunta recente", firstRest.Content)
}

func TestTrim_UnderBudgetKeepsEverything(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel())

	messages := []core.Message{
		core.HumanMessage("oi"),
		core.AssistantMessage("olá"),
	}
	assert.Equal(t, messages, machine.trim(messages))
}

func TestTrim_BudgetExhaustedBySystem(t *testing.T) {
	machine := newTestMachine(t, mock.NewMockChatModel(), WithTokenBudget(2))

	messages := []core.Message{
		core.SystemMessage("uma instrução longa demais"),
		core.HumanMessage("pergunta"),
		core.AssistantMessage("resposta"),
	}

	working := machine.trim(messages)
	require.Len(t, working, 1)
	assert.Equal(t, core.RoleSystem, working[0].Role)
}

func TestStep_SerializesPerConversation(t *testing.T) {
	const turns = 20

	model := mock.NewMockChatModel()
	machine := newTestMachine(t, model)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := machine.Step(ctx, "same-chat", "pergunta", "pergunta")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// No lost updates: every turn appended exactly one human/assistant pair.
	history, err := machine.History(ctx, "same-chat")
	require.NoError(t, err)
	assert.Len(t, history, 2*turns)
}

func TestStep_IndependentConversationsInParallel(t *testing.T) {
	model := mock.NewMockChatModel()

	release := make(chan struct{})
	started := make(chan string, 2)
	model.GenerateFunc = func(ctx context.Context, messages []core.Message) (string, error) {
		started <- messages[len(messages)-1].Content
		<-release
		return "ok", nil
	}

	machine := newTestMachine(t, model)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"chat-a", "chat-b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := machine.Step(ctx, id, "pergunta "+id, "")
			assert.NoError(t, err)
		}(id)
	}

	// Both steps enter the model concurrently; neither blocks the other.
	<-started
	<-started
	close(release)
	wg.Wait()
}
