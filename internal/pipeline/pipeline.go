// Package pipeline runs the conversational retrieval-augmented answering
// flow for one question: retrieve relevant chunks for the document, then
// generate an answer conditioned on that context and the conversation
// history, then persist the completed turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"pdfqa/internal/ai"
	"pdfqa/internal/conversation"
	"pdfqa/internal/vectorstore"
)

// Retriever is the vector index capability the pipeline consumes.
type Retriever interface {
	Query(ctx context.Context, documentID uint, queryText string, k int) ([]vectorstore.Result, error)
}

// Generator is the language model capability. The pipeline must not assume
// the call is idempotent.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

type state int

const (
	stateStart state = iota
	stateRetrieve
	stateGenerate
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateRetrieve:
		return "retrieve"
	case stateGenerate:
		return "generate"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

const systemPromptFormat = "You are a helpful assistant. Use the following pieces of context to answer the user's question. " +
	"If the context does not contain the answer, say so; do not make up facts. Keep your answer concise.\n\n" +
	"Context:\n%s"

const errorAnswerFormat = "An error occurred while processing your question: %s"

type Pipeline struct {
	retriever Retriever
	generator Generator
	history   conversation.Store
	topK      int

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func New(retriever Retriever, generator Generator, history conversation.Store, topK int) *Pipeline {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		history:   history,
		topK:      topK,
		locks:     make(map[uint]*sync.Mutex),
	}
}

// invocation carries one question through the state machine.
type invocation struct {
	state      state
	documentID uint
	messages   []conversation.Message
	context    []string
	answer     string
}

// Ask answers question against documentID. priorHistory is the caller's view
// of the conversation and is authoritative prompt input for this turn; after
// the turn completes, the thread store is overwritten with priorHistory plus
// the two new messages.
//
// Returns vectorstore.ErrCollectionNotFound (wrapped) when the document's
// index is absent — the caller maps that to a "still indexing or failed"
// response. Every other failure closes the turn with a textual error answer
// so the conversation always gets a turn-closing record.
func (p *Pipeline) Ask(ctx context.Context, documentID uint, question string, priorHistory []conversation.Message) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is empty")
	}

	// At most one in-flight invocation per document: two concurrent
	// questions on one thread must not interleave their history writes.
	lock := p.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	inv := &invocation{
		state:      stateStart,
		documentID: documentID,
		messages:   append(cloneMessages(priorHistory), conversation.Message{Role: conversation.RoleUser, Content: question}),
	}

	if err := p.retrieve(ctx, inv); err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			inv.state = stateFailed
			return "", err
		}
		log.Printf("pipeline %s failed for document %d: %v", inv.state, documentID, err)
		inv.answer = fmt.Sprintf(errorAnswerFormat, err)
	} else {
		p.generate(ctx, inv)
	}

	inv.messages = append(inv.messages, conversation.Message{Role: conversation.RoleAssistant, Content: inv.answer})
	inv.state = stateDone

	threadID := conversation.ThreadID(documentID)
	if err := p.history.Replace(ctx, threadID, inv.messages); err != nil {
		log.Printf("persist thread %s failed: %v", threadID, err)
	}
	return inv.answer, nil
}

// retrieve fixes the context for the turn before generation starts. The
// last message must be the user's question; anything else skips retrieval
// and leaves the context empty.
func (p *Pipeline) retrieve(ctx context.Context, inv *invocation) error {
	inv.state = stateRetrieve

	last := inv.messages[len(inv.messages)-1]
	if last.Role != conversation.RoleUser {
		inv.context = nil
		return nil
	}

	results, err := p.retriever.Query(ctx, inv.documentID, last.Content, p.topK)
	if err != nil {
		return err
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	inv.context = texts
	return nil
}

// generate produces the assistant reply from the fixed context plus the full
// message sequence. A failed or empty generation becomes a textual error
// answer rather than a fault.
func (p *Pipeline) generate(ctx context.Context, inv *invocation) {
	inv.state = stateGenerate

	prompt := make([]ai.ChatMessage, 0, len(inv.messages)+1)
	prompt = append(prompt, ai.ChatMessage{
		Role:    "system",
		Content: fmt.Sprintf(systemPromptFormat, strings.Join(inv.context, "\n\n")),
	})
	for _, m := range inv.messages {
		prompt = append(prompt, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	answer, err := p.generator.Complete(ctx, prompt)
	if err != nil {
		log.Printf("pipeline %s failed for document %d: %v", inv.state, inv.documentID, err)
		inv.answer = fmt.Sprintf(errorAnswerFormat, err)
		return
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}
	inv.answer = answer
}

func (p *Pipeline) lockFor(documentID uint) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[documentID] = lock
	}
	return lock
}

func cloneMessages(msgs []conversation.Message) []conversation.Message {
	out := make([]conversation.Message, len(msgs))
	copy(out, msgs)
	return out
}
