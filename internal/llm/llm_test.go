package llm

import (
	"context"
	"strings"
	"sync"
	"testing"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ChunkedStreamer streams canned chunks before returning the assembled response.
type ChunkedStreamer struct {
	MockProvider
	Chunks []string
}

func (c *ChunkedStreamer) Stream(ctx context.Context, req CompletionRequest, onDelta func(text string)) (*CompletionResponse, error) {
	for _, chunk := range c.Chunks {
		onDelta(chunk)
	}
	return &CompletionResponse{Content: strings.Join(c.Chunks, "")}, nil
}

// --- Tests ---

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestStreamCompletionFallsBackToComplete(t *testing.T) {
	mock := NewMockProvider("test")

	var deltas []string
	resp, err := StreamCompletion(context.Background(), mock, CompletionRequest{}, func(text string) {
		deltas = append(deltas, text)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Non-streaming providers emit the whole reply as one delta.
	if len(deltas) != 1 || deltas[0] != "mock response" {
		t.Errorf("expected single full delta, got %v", deltas)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected assembled content, got %q", resp.Content)
	}
}

func TestStreamCompletionUsesStreamerWhenAvailable(t *testing.T) {
	streamer := &ChunkedStreamer{Chunks: []string{"hel", "lo ", "world"}}

	var got strings.Builder
	resp, err := StreamCompletion(context.Background(), streamer, CompletionRequest{}, func(text string) {
		got.WriteString(text)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.String() != "hello world" {
		t.Errorf("deltas did not reassemble: %q", got.String())
	}
	if resp.Content != "hello world" {
		t.Errorf("expected assembled content, got %q", resp.Content)
	}
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	for _, p := range []string{"anthropic", "openai"} {
		_, err := NewProvider(p, "some-model")
		if err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider("unknown", "some-model")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestRateLimitedProviderDelegates(t *testing.T) {
	mock := NewMockProvider("inner")
	limited := NewRateLimitedProvider(mock, 60)

	if limited.Name() != "inner" {
		t.Errorf("expected wrapped name, got %q", limited.Name())
	}

	_, err := limited.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 delegated call, got %d", mock.CallCount())
	}
}
