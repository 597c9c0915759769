package llm

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests. Replies are returned in
// order; the last one repeats. Err, when set, is returned instead.
type MockClient struct {
	Err      error
	Replies  []string
	Prompts  []string
	Options  []CompletionOptions
	mu       sync.Mutex
	returned int
}

// Complete records the request and returns the next scripted reply.
func (m *MockClient) Complete(_ context.Context, prompt string, opts CompletionOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.Options = append(m.Options, opts)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	reply := m.Replies[min(m.returned, len(m.Replies)-1)]
	m.returned++
	return reply, nil
}

// Calls returns how many requests were made.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
