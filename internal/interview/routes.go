package interview

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/session"
)

// Tracker records a funnel event for a campaign. May be nil.
type Tracker func(ctx context.Context, campaignID, event string)

// RegisterRoutes mounts the dialogue streaming route.
func RegisterRoutes(r chi.Router, engine *Engine, store *session.Store, track Tracker) {
	r.Post("/api/sessions/{id}/chat", handleChat(engine, store, track))
}

type chatRequest struct {
	Message string `json:"message"`
}

func handleChat(engine *Engine, store *session.Store, track Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, httpx.Validationf("invalid request body"))
			return
		}
		if req.Message == "" {
			httpx.WriteError(w, httpx.Validationf("message is required"))
			return
		}

		// First user turn starts the interview for funnel purposes.
		if track != nil && sess.CampaignID != "" {
			if n, err := store.CountUserTurns(r.Context(), sess.ID); err == nil && n == 0 {
				track(r.Context(), sess.CampaignID, "interviews_started")
			}
		}

		ew, err := httpx.NewEventWriter(w)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		// The request context cancels the in-flight generation when the
		// client disconnects.
		emit := func(ev ChatEvent) error { return ew.Send(ev) }
		if err := engine.Chat(r.Context(), sess, req.Message, emit); err != nil {
			log.Printf("interview: chat stream for %s: %v", sess.ID, err)
		}
	}
}
