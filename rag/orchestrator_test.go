package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexrag/lexrag/core"
)

type stubAdvisor struct {
	decision    core.RewriteDecision
	lastHistory []core.Message
	lastQuery   string
}

func (a *stubAdvisor) Decide(ctx context.Context, history []core.Message, query string) core.RewriteDecision {
	a.lastHistory = history
	a.lastQuery = query
	return a.decision
}

type stubRetriever struct {
	chunks    []core.RetrievedChunk
	err       error
	lastQuery string
	lastK     int
	calls     int
}

func (r *stubRetriever) Search(ctx context.Context, query string, k int) ([]core.RetrievedChunk, error) {
	r.calls++
	r.lastQuery = query
	r.lastK = k
	return r.chunks, r.err
}

type stubStepper struct {
	reply        string
	err          error
	history      []core.Message
	lastFinal    string
	lastOriginal string
	lastChatID   string
}

func (s *stubStepper) Step(ctx context.Context, chatID, finalPrompt, originalPrompt string) (string, error) {
	s.lastChatID = chatID
	s.lastFinal = finalPrompt
	s.lastOriginal = originalPrompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubStepper) History(ctx context.Context, chatID string) ([]core.Message, error) {
	return s.history, nil
}

func newOrchestrator(t *testing.T, adv *stubAdvisor, ret *stubRetriever, step *stubStepper, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(adv, ret, step, "amazon.nova-micro-v1:0", opts...)
	require.NoError(t, err)
	return o
}

func TestNewValidatesDependencies(t *testing.T) {
	adv := &stubAdvisor{}
	ret := &stubRetriever{}
	step := &stubStepper{}

	_, err := New(nil, ret, step, "m")
	assert.ErrorIs(t, err, ErrAdvisorRequired)
	_, err = New(adv, nil, step, "m")
	assert.ErrorIs(t, err, ErrRetrieverRequired)
	_, err = New(adv, ret, nil, "m")
	assert.ErrorIs(t, err, ErrMachineRequired)
}

func TestProcessValidatesInput(t *testing.T) {
	o := newOrchestrator(t, &stubAdvisor{}, &stubRetriever{}, &stubStepper{})

	_, err := o.Process(context.Background(), "  ", "chat-1")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)

	_, err = o.Process(context.Background(), "pergunta", "")
	assert.ErrorIs(t, err, core.ErrEmptyChatID)
}

func TestProcessSearchPath(t *testing.T) {
	adv := &stubAdvisor{decision: core.RewriteDecision{
		Outcome:      core.RewriteSearch,
		RefinedQuery: "prazo de usucapião extraordinária",
	}}
	ret := &stubRetriever{chunks: []core.RetrievedChunk{
		{Content: "Art. 1.238 ...", Source: "codigo_civil.pdf"},
		{Content: "Art. 1.239 ...", Source: "codigo_civil.pdf"},
		{Content: "Súmula ...", Source: "sumulas.pdf"},
	}}
	step := &stubStepper{reply: "O prazo é de quinze anos."}
	o := newOrchestrator(t, adv, ret, step)

	result, err := o.Process(context.Background(), "qual o prazo da usucapião?", "chat-1")
	require.NoError(t, err)

	assert.Equal(t, "prazo de usucapião extraordinária", ret.lastQuery)
	assert.Equal(t, DefaultMaxContextDocs, ret.lastK)

	// The model sees the augmented prompt built on the refined query; the
	// history keeps the raw one.
	assert.Equal(t, "chat-1", step.lastChatID)
	assert.Contains(t, step.lastFinal, "Art. 1.238")
	assert.Contains(t, step.lastFinal, "Por favor, responda: prazo de usucapião extraordinária")
	assert.NotContains(t, step.lastFinal, "Por favor, responda: qual o prazo da usucapião?")
	assert.Equal(t, "qual o prazo da usucapião?", step.lastOriginal)

	assert.Equal(t, "O prazo é de quinze anos.", result.Response)
	assert.Equal(t, 3, result.ContextDocs)
	assert.Equal(t, []string{"codigo_civil.pdf", "codigo_civil.pdf", "sumulas.pdf"}, result.DocumentSources)
	assert.Len(t, result.DocumentSources, result.ContextDocs)
	assert.Equal(t, "amazon.nova-micro-v1:0", result.ModelUsed)
	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)
	assert.Equal(t, float64(3), result.Metrics["context_docs"])
	assert.Contains(t, result.Metrics, "llm_time")
}

func TestProcessSkipPath(t *testing.T) {
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSkip}}
	ret := &stubRetriever{}
	step := &stubStepper{reply: "Olá! Como posso ajudar?"}
	o := newOrchestrator(t, adv, ret, step)

	result, err := o.Process(context.Background(), "bom dia", "chat-1")
	require.NoError(t, err)

	assert.Zero(t, ret.calls)
	assert.Contains(t, step.lastFinal, emptyContext)
	// Without a Search decision there is no rewrite; the raw query is embedded.
	assert.Contains(t, step.lastFinal, "Por favor, responda: bom dia")
	assert.Equal(t, 0, result.ContextDocs)
	assert.Empty(t, result.DocumentSources)
}

func TestProcessMalformedAdvisorDegradesToNoRetrieval(t *testing.T) {
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteMalformed}}
	ret := &stubRetriever{}
	step := &stubStepper{reply: "resposta"}
	o := newOrchestrator(t, adv, ret, step)

	result, err := o.Process(context.Background(), "pergunta", "chat-1")
	require.NoError(t, err)

	assert.Zero(t, ret.calls)
	assert.Equal(t, 0, result.ContextDocs)
	assert.Equal(t, "resposta", result.Response)
}

func TestProcessEmptyRefinedQueryFallsBackToRaw(t *testing.T) {
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSearch}}
	ret := &stubRetriever{}
	step := &stubStepper{reply: "ok"}
	o := newOrchestrator(t, adv, ret, step)

	_, err := o.Process(context.Background(), "pergunta crua", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "pergunta crua", ret.lastQuery)
}

func TestProcessNoHitsUsesEmptyContext(t *testing.T) {
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSearch, RefinedQuery: "q"}}
	ret := &stubRetriever{chunks: nil}
	step := &stubStepper{reply: "ok"}
	o := newOrchestrator(t, adv, ret, step)

	result, err := o.Process(context.Background(), "pergunta", "chat-1")
	require.NoError(t, err)
	assert.Contains(t, step.lastFinal, emptyContext)
	assert.Equal(t, 0, result.ContextDocs)
}

func TestProcessRetrieverErrorWrapped(t *testing.T) {
	retErr := errors.New("store down")
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSearch, RefinedQuery: "q"}}
	o := newOrchestrator(t, adv, &stubRetriever{err: retErr}, &stubStepper{})

	_, err := o.Process(context.Background(), "pergunta", "chat-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, retErr)
	assert.True(t, strings.HasPrefix(err.Error(), "orchestration failed:"))
}

func TestProcessStepErrorWrapped(t *testing.T) {
	stepErr := errors.New("model unavailable")
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSkip}}
	o := newOrchestrator(t, adv, &stubRetriever{}, &stubStepper{err: stepErr})

	_, err := o.Process(context.Background(), "pergunta", "chat-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, stepErr)
}

func TestProcessAdvisorSeesHistoryAndQuery(t *testing.T) {
	history := []core.Message{
		core.HumanMessage("oi"),
		core.AssistantMessage("olá"),
	}
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSkip}}
	step := &stubStepper{reply: "ok", history: history}
	o := newOrchestrator(t, adv, &stubRetriever{}, step)

	_, err := o.Process(context.Background(), "e agora?", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, history, adv.lastHistory)
	assert.Equal(t, "e agora?", adv.lastQuery)
}

func TestWithMaxContextDocs(t *testing.T) {
	adv := &stubAdvisor{decision: core.RewriteDecision{Outcome: core.RewriteSearch, RefinedQuery: "q"}}
	ret := &stubRetriever{}
	o := newOrchestrator(t, adv, ret, &stubStepper{reply: "ok"}, WithMaxContextDocs(2))

	_, err := o.Process(context.Background(), "pergunta", "chat-1")
	require.NoError(t, err)
	assert.Equal(t, 2, ret.lastK)

	_, err = New(adv, ret, &stubStepper{}, "m", WithMaxContextDocs(0))
	assert.Error(t, err)
}
