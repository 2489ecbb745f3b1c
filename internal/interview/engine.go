package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/specloom/specloom/internal/llm"
	"github.com/specloom/specloom/internal/session"
)

// ChatEvent is one frame of the dialogue stream.
type ChatEvent struct {
	Type             string   `json:"type"` // delta|meta|done|error
	Text             string   `json:"text,omitempty"`
	Error            string   `json:"error,omitempty"`
	SessionID        string   `json:"sessionId,omitempty"`
	ReadyForAnalysis bool     `json:"readyForAnalysis,omitempty"`
	TurnCount        int      `json:"turnCount,omitempty"`
	IsComplete       bool     `json:"isComplete,omitempty"`
	Choices          []string `json:"choices,omitempty"`
}

// Emitter receives stream events as they are produced.
type Emitter func(ChatEvent) error

// Engine turns user input plus conversation history into a streamed
// interviewer reply and tracks readiness for analysis.
type Engine struct {
	store    *session.Store
	provider llm.Provider
	model    string
}

// NewEngine creates a dialogue engine.
func NewEngine(store *session.Store, provider llm.Provider, model string) *Engine {
	return &Engine{store: store, provider: provider, model: model}
}

// Chat appends the user message as a turn, streams the model's reply as
// delta events, persists the assembled reply as one assistant turn, and
// finishes with a done event carrying the readiness flags. Errors after
// the user turn is written are delivered as a terminal error event so
// the stream always closes cleanly.
func (e *Engine) Chat(ctx context.Context, sess *session.Session, message string, emit Emitter) error {
	if _, err := e.store.AppendTurn(ctx, sess.ID, "user", message); err != nil {
		return emit(ChatEvent{Type: "error", Error: fmt.Sprintf("recording message: %v", err)})
	}

	turns, err := e.store.Turns(ctx, sess.ID)
	if err != nil {
		return emit(ChatEvent{Type: "error", Error: fmt.Sprintf("loading history: %v", err)})
	}

	userTurns := 0
	messages := []llm.Message{{Role: llm.RoleSystem, Content: SystemPrompt(sess.Theme)}}
	for _, t := range turns {
		role := llm.RoleAssistant
		if t.Role == "user" {
			role = llm.RoleUser
			userTurns++
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}

	if err := emit(ChatEvent{Type: "meta", SessionID: sess.ID, TurnCount: userTurns}); err != nil {
		return err
	}

	var filter markerFilter
	resp, err := llm.StreamCompletion(ctx, e.provider, llm.CompletionRequest{
		Model:       e.model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	}, func(delta string) {
		if out := filter.feed(delta); out != "" {
			emit(ChatEvent{Type: "delta", Text: out})
		}
	})
	if err != nil {
		return emit(ChatEvent{Type: "error", Error: fmt.Sprintf("generation failed: %v", err)})
	}
	if out := filter.flush(); out != "" {
		if err := emit(ChatEvent{Type: "delta", Text: out}); err != nil {
			return err
		}
	}

	clean, markerPresent := StripMarker(resp.Content)
	clean = strings.TrimSpace(clean)
	if _, err := e.store.AppendTurn(ctx, sess.ID, "assistant", clean); err != nil {
		return emit(ChatEvent{Type: "error", Error: fmt.Sprintf("recording reply: %v", err)})
	}

	return emit(ChatEvent{
		Type:             "done",
		ReadyForAnalysis: Ready(userTurns, markerPresent),
		TurnCount:        userTurns,
		IsComplete:       userTurns >= MaxUserTurns,
	})
}
