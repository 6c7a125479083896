package llm

import (
	"context"
)

// MockClient is a configurable mock for testing tool-calling flows.
// Set the function fields to control behavior in tests.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty response and nil error.
	CompleteFunc func(ctx context.Context, req *Request) (*Response, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	CompleteCalls int
	Requests      []*Request
}

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{Model: "mock-model"}
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	m.CompleteCalls++
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Response{}, nil
}

// GetModel implements Client.
func (m *MockClient) GetModel() string {
	return m.Model
}

// Ensure MockClient implements Client at compile time.
var _ Client = (*MockClient)(nil)
