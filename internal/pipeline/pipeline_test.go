package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/ai"
	"pdfqa/internal/conversation"
	"pdfqa/internal/vectorstore"
)

type fakeRetriever struct {
	mu      sync.Mutex
	results map[uint][]vectorstore.Result
	err     error
	queries []string
}

func (f *fakeRetriever) Query(ctx context.Context, documentID uint, queryText string, k int) ([]vectorstore.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, queryText)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	results, ok := f.results[documentID]
	if !ok {
		return nil, fmt.Errorf("collection doc_collection_%d: %w", documentID, vectorstore.ErrCollectionNotFound)
	}
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	answer  string
	err     error
	delay   time.Duration
	prompts [][]ai.ChatMessage
}

func (f *fakeGenerator) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	copied := make([]ai.ChatMessage, len(messages))
	copy(copied, messages)
	f.prompts = append(f.prompts, copied)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) lastPrompt() []ai.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return nil
	}
	return f.prompts[len(f.prompts)-1]
}

func newTestPipeline(ret *fakeRetriever, gen *fakeGenerator) (*Pipeline, *conversation.MemoryStore) {
	store := conversation.NewMemoryStore()
	return New(ret, gen, store, 3), store
}

func TestAsk_RetrievesContextAndAnswers(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{
		42: {
			{Content: "Paris is the capital of France.", Score: 0.95},
			{Content: "Lyon is a city in France.", Score: 0.4},
		},
	}}
	gen := &fakeGenerator{answer: "The capital of France is Paris."}
	p, store := newTestPipeline(ret, gen)

	answer, err := p.Ask(context.Background(), 42, "What is the capital of France?", nil)
	require.NoError(t, err)
	assert.Equal(t, "The capital of France is Paris.", answer)

	// The system instruction embeds the retrieved chunks in order, separated
	// by a blank line, and the question is the final user message.
	prompt := gen.lastPrompt()
	require.NotEmpty(t, prompt)
	assert.Equal(t, "system", prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "Paris is the capital of France.\n\nLyon is a city in France.")
	assert.Equal(t, "user", prompt[len(prompt)-1].Role)
	assert.Equal(t, "What is the capital of France?", prompt[len(prompt)-1].Content)

	// The completed turn is persisted under the document's thread.
	history, err := store.History(context.Background(), conversation.ThreadID(42))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, conversation.RoleUser, history[0].Role)
	assert.Equal(t, conversation.RoleAssistant, history[1].Role)
}

func TestAsk_MissingCollectionPropagates(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{}}
	gen := &fakeGenerator{answer: "should never be called"}
	p, store := newTestPipeline(ret, gen)

	_, err := p.Ask(context.Background(), 99, "What is this about?", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	// No generation, no history mutation.
	assert.Empty(t, gen.prompts)
	history, err := store.History(context.Background(), conversation.ThreadID(99))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAsk_GenerationFailureBecomesErrorAnswer(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{
		1: {{Content: "some context", Score: 1}},
	}}
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	p, store := newTestPipeline(ret, gen)

	answer, err := p.Ask(context.Background(), 1, "question", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "An error occurred while processing your question")
	assert.Contains(t, answer, "model unavailable")

	// The turn still closes: both messages recorded.
	history, err := store.History(context.Background(), conversation.ThreadID(1))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, answer, history[1].Content)
}

func TestAsk_EmptyGenerationGetsPlaceholder(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{
		1: {{Content: "ctx", Score: 1}},
	}}
	gen := &fakeGenerator{answer: "   "}
	p, _ := newTestPipeline(ret, gen)

	answer, err := p.Ask(context.Background(), 1, "question", nil)
	require.NoError(t, err)
	assert.Equal(t, "The model returned an empty response.", answer)
}

func TestAsk_EmptyQuestionRejected(t *testing.T) {
	p, _ := newTestPipeline(&fakeRetriever{}, &fakeGenerator{})
	_, err := p.Ask(context.Background(), 1, "   ", nil)
	require.Error(t, err)
}

func TestAsk_CallerHistoryIsPromptInput(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{
		5: {{Content: "ctx", Score: 1}},
	}}
	gen := &fakeGenerator{answer: "a2"}
	p, store := newTestPipeline(ret, gen)

	prior := []conversation.Message{
		{Role: conversation.RoleUser, Content: "q1"},
		{Role: conversation.RoleAssistant, Content: "a1"},
	}
	answer, err := p.Ask(context.Background(), 5, "q2", prior)
	require.NoError(t, err)
	assert.Equal(t, "a2", answer)

	prompt := gen.lastPrompt()
	require.Len(t, prompt, 4) // system + q1 + a1 + q2
	assert.Equal(t, "q1", prompt[1].Content)
	assert.Equal(t, "a1", prompt[2].Content)
	assert.Equal(t, "q2", prompt[3].Content)

	// Persisted thread is caller history plus the new turn, not a
	// concatenation with any previously stored state.
	history, err := store.History(context.Background(), conversation.ThreadID(5))
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "q2", history[2].Content)
	assert.Equal(t, "a2", history[3].Content)
}

func TestAsk_TurnsAccumulateInOrder(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{
		7: {{Content: "ctx", Score: 1}},
	}}
	gen := &fakeGenerator{answer: "answer"}
	p, store := newTestPipeline(ret, gen)
	ctx := context.Background()
	thread := conversation.ThreadID(7)

	const turns = 3
	for i := 0; i < turns; i++ {
		prior, err := store.History(ctx, thread)
		require.NoError(t, err)
		_, err = p.Ask(ctx, 7, fmt.Sprintf("question %d", i), prior)
		require.NoError(t, err)
	}

	history, err := store.History(ctx, thread)
	require.NoError(t, err)
	require.Len(t, history, 2*turns)
	for i := 0; i < turns; i++ {
		assert.Equal(t, conversation.RoleUser, history[2*i].Role)
		assert.Equal(t, fmt.Sprintf("question %d", i), history[2*i].Content)
		assert.Equal(t, conversation.RoleAssistant, history[2*i+1].Role)
	}
}

func TestAsk_SerializesPerDocument(t *testing.T) {
	ret := &fakeRetriever{results: map[uint][]vectorstore.Result{
		9: {{Content: "ctx", Score: 1}},
	}}
	gen := &fakeGenerator{answer: "answer", delay: 10 * time.Millisecond}
	p, store := newTestPipeline(ret, gen)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			prior, _ := store.History(ctx, conversation.ThreadID(9))
			_, err := p.Ask(ctx, 9, fmt.Sprintf("concurrent %d", n), prior)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Appends never interleave: history is a whole number of completed
	// turns in user/assistant alternation.
	history, err := store.History(ctx, conversation.ThreadID(9))
	require.NoError(t, err)
	require.NotEmpty(t, history)
	require.Equal(t, 0, len(history)%2)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, conversation.RoleUser, history[i].Role)
		assert.True(t, strings.HasPrefix(history[i].Content, "concurrent "))
		assert.Equal(t, conversation.RoleAssistant, history[i+1].Role)
	}
}

func TestAsk_RetrieverErrorBecomesErrorAnswer(t *testing.T) {
	ret := &fakeRetriever{err: errors.New("embedding backend down")}
	gen := &fakeGenerator{answer: "unused"}
	p, store := newTestPipeline(ret, gen)

	answer, err := p.Ask(context.Background(), 3, "question", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "embedding backend down")

	// Generation is never reached but the turn still closes.
	assert.Empty(t, gen.prompts)
	history, err := store.History(context.Background(), conversation.ThreadID(3))
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
