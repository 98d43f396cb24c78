package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/poiesic/recall/ai"
)

// MockChatModel is a test double for ai.ChatModel.
// By default it streams Fragments in order and then returns Err.
type MockChatModel struct {
	// Fragments are streamed one per chunk callback.
	Fragments []string

	// Err is returned after all fragments have been streamed.
	Err error

	// StreamFunc replaces the default behavior if set.
	StreamFunc func(ctx context.Context, prompt string, onChunk ai.ChunkFunc) error

	callCount  atomic.Int64
	mu         sync.Mutex
	lastPrompt string
}

// NewMockChatModel creates a mock chat model that streams the given fragments.
// Note: Returns concrete type to allow test assertions.
func NewMockChatModel(fragments ...string) *MockChatModel {
	return &MockChatModel{Fragments: fragments}
}

// StreamCompletion records the prompt and streams the scripted output.
func (m *MockChatModel) StreamCompletion(ctx context.Context, prompt string, onChunk ai.ChunkFunc) error {
	m.callCount.Add(1)
	m.mu.Lock()
	m.lastPrompt = prompt
	m.mu.Unlock()

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, prompt, onChunk)
	}

	for _, fragment := range m.Fragments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(ctx, fragment); err != nil {
			return err
		}
	}
	return m.Err
}

// CallCount returns the number of times StreamCompletion was called.
func (m *MockChatModel) CallCount() int {
	return int(m.callCount.Load())
}

// LastPrompt returns the most recent prompt passed to StreamCompletion.
func (m *MockChatModel) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPrompt
}

// Reset clears the call count and custom functions.
func (m *MockChatModel) Reset() {
	m.callCount.Store(0)
	m.StreamFunc = nil
	m.mu.Lock()
	m.lastPrompt = ""
	m.mu.Unlock()
}
