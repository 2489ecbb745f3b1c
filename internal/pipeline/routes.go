package pipeline

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/session"
)

// RegisterRoutes mounts the full-pipeline streaming route.
func RegisterRoutes(r chi.Router, orch *Orchestrator, store *session.Store) {
	r.Post("/api/sessions/{id}/pipeline", handlePipeline(orch, store))
}

func handlePipeline(orch *Orchestrator, store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		n, err := store.CountUserTurns(r.Context(), sess.ID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if n == 0 {
			httpx.WriteError(w, httpx.Preconditionf("session has no conversation to analyze"))
			return
		}

		ew, err := httpx.NewEventWriter(w)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		// Lease conflicts and stage failures are reported as error
		// events on the open stream by the orchestrator itself.
		emit := func(ev Event) error { return ew.Send(ev) }
		if err := orch.Run(r.Context(), sess, emit); err != nil {
			log.Printf("[pipeline] session %s: %v", sess.ID, err)
		}
	}
}
