// Package service implements the serving-time orchestrator: it lazily and
// exactly-once initializes the capability clients, embeds incoming questions,
// retrieves context from the vector index and invokes the generation model.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
)

// State is the chat session lifecycle.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Clients holds the external capability handles opened during initialization.
// Once the session is ready they are read-only shared state.
type Clients struct {
	Embedder  domain.Embedder
	Generator domain.Generator
	Index     domain.Index
}

// InitFunc opens and validates the capability clients. It runs at most once
// per session unless it fails with a transient provider error, in which case
// the next request re-attempts it.
type InitFunc func(ctx context.Context) (*Clients, error)

// Answer is the orchestrator result: generated text plus the retrieved
// context that grounded it, in descending score order.
type Answer struct {
	Text    string
	Sources []domain.RetrievalResult
}

// ChatService is the process-wide serving facade.
type ChatService struct {
	init InitFunc
	topK int

	state   atomic.Int32
	mu      sync.Mutex // guards the initialization critical section only
	clients *Clients
	initErr error
}

// New creates an uninitialized ChatService. Initialization is deferred to the
// first Ask.
func New(init InitFunc, topK int) *ChatService {
	if topK <= 0 {
		topK = 4
	}
	return &ChatService{init: init, topK: topK}
}

// State reports the current session state.
func (s *ChatService) State() State {
	return State(s.state.Load())
}

// Ask answers a question: embed, retrieve top-k, assemble the augmented
// prompt, generate. Ready-state calls run fully in parallel; only the first
// call (or a retry after a transient init failure) takes the lock.
func (s *ChatService) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidRequest)
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	c := s.clients

	vec, err := c.Embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	results, err := c.Index.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	if len(results) == 0 {
		// Deliberate: an empty index still gets the question answered,
		// just without context.
		logger.Debug("no context retrieved for question")
	}

	text, err := c.Generator.Generate(ctx, BuildPrompt(question, results))
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}
	return &Answer{Text: text, Sources: results}, nil
}

// ensureReady runs the single-flight initialization. The lock is held only
// across the initialization critical section, never across answer calls.
func (s *ChatService) ensureReady(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State() {
	case StateReady:
		// Another request initialized while we waited for the lock.
		return nil
	case StateFailed:
		if !domain.IsTransient(s.initErr) {
			// Sticky failure; a missing index cannot heal without a
			// process restart after ingestion.
			return s.initErr
		}
		logger.Debug("re-attempting initialization after transient failure: %v", s.initErr)
	}

	s.state.Store(int32(StateInitializing))
	clients, err := s.init(ctx)
	if err != nil {
		s.initErr = err
		s.state.Store(int32(StateFailed))
		return err
	}
	s.clients = clients
	s.initErr = nil
	s.state.Store(int32(StateReady))
	return nil
}

// BuildPrompt assembles the augmented prompt: retrieved chunk texts in
// descending score order, then the original question.
func BuildPrompt(question string, results []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Use the following context to answer the question.\n\nContext:\n")
	if len(results) == 0 {
		b.WriteString("(no relevant context found)\n")
	}
	for _, r := range results {
		b.WriteString(r.Chunk.Text)
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
