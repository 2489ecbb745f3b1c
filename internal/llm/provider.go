package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// Streamer is implemented by providers that can deliver the reply
// incrementally. onDelta is called with each text fragment in order;
// the returned response holds the fully assembled content.
type Streamer interface {
	Stream(ctx context.Context, req CompletionRequest, onDelta func(text string)) (*CompletionResponse, error)
}

// StreamCompletion streams a completion if the provider supports it,
// otherwise completes normally and emits the whole reply as one delta.
func StreamCompletion(ctx context.Context, p Provider, req CompletionRequest, onDelta func(text string)) (*CompletionResponse, error) {
	if s, ok := p.(Streamer); ok {
		return s.Stream(ctx, req, onDelta)
	}
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content != "" {
		onDelta(resp.Content)
	}
	return resp, nil
}
