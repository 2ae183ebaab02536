package llm

import (
	"context"
	"sync"
)

// StubClient is a canned completion client for tests.
type StubClient struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls [][]Message
}

func (s *StubClient) Complete(_ context.Context, messages []Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]Message, len(messages))
	copy(copied, messages)
	s.calls = append(s.calls, copied)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// Calls returns the message lists of every Complete invocation so far.
func (s *StubClient) Calls() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]Message, len(s.calls))
	copy(out, s.calls)
	return out
}
