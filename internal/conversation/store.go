// Package conversation keeps per-document chat threads so multi-turn context
// survives between questions without the caller re-sending full state.
package conversation

import (
	"context"
	"fmt"
	"sync"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ThreadID derives the thread identifier for a document. One thread per
// document: concurrent questions on the same document share it.
func ThreadID(documentID uint) string {
	return fmt.Sprintf("doc_thread_%d", documentID)
}

// Store holds ordered message history per thread. Replace overwrites a
// thread wholesale with the turn-complete sequence (last-writer-wins), so
// divergent caller-side histories never concatenate into duplicated turns.
type Store interface {
	History(ctx context.Context, threadID string) ([]Message, error)
	Replace(ctx context.Context, threadID string, messages []Message) error
	Delete(ctx context.Context, threadID string) error
}

// MemoryStore is the authoritative in-process store; history lives for the
// process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: make(map[string][]Message)}
}

func (s *MemoryStore) History(ctx context.Context, threadID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.threads[threadID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Replace(ctx context.Context, threadID string, messages []Message) error {
	stored := make([]Message, len(messages))
	copy(stored, messages)
	s.mu.Lock()
	s.threads[threadID] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	delete(s.threads, threadID)
	s.mu.Unlock()
	return nil
}
