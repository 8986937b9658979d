package llm

import "context"

// MockClient replays scripted completion turns in order. Requests after the
// script ends return the last turn again. Used in tests.
type MockClient struct {
	Turns    []*ChatResult
	Err      error
	Requests []*ChatRequest

	next int
}

// Chat records the request and returns the next scripted turn.
func (m *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Turns) == 0 {
		return &ChatResult{}, nil
	}
	turn := m.Turns[m.next]
	if m.next < len(m.Turns)-1 {
		m.next++
	}
	return turn, nil
}

// Model returns a fixed test model name.
func (m *MockClient) Model() string {
	return "mock-model"
}

var _ Client = (*MockClient)(nil)
