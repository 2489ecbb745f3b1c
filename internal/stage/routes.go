package stage

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/session"
)

// Tracker records a funnel event for a campaign. May be nil.
type Tracker func(ctx context.Context, campaignID, event string)

// RegisterRoutes mounts the per-stage generation routes.
func RegisterRoutes(r chi.Router, gen *Generator, store *session.Store, track Tracker) {
	// Registered with full paths rather than a subrouter mounted at
	// /api/sessions/{id}: a mounted subrouter matches the whole subtree,
	// which would shadow the session package's routes under the same prefix.
	r.Post("/api/sessions/{id}/analyze", handleStage(store, func(ctx context.Context, sess *session.Session) (any, error) {
		return gen.RunFacts(ctx, sess)
	}))
	r.Post("/api/sessions/{id}/hypotheses", handleStage(store, func(ctx context.Context, sess *session.Session) (any, error) {
		return gen.RunHypotheses(ctx, sess)
	}))
	r.Post("/api/sessions/{id}/requirements", handleStage(store, func(ctx context.Context, sess *session.Session) (any, error) {
		artifact, err := gen.RunRequirements(ctx, sess)
		if err == nil && track != nil && sess.CampaignID != "" {
			track(ctx, sess.CampaignID, "requirements_reached")
		}
		return artifact, err
	}))
	r.Post("/api/sessions/{id}/specification", handleStage(store, func(ctx context.Context, sess *session.Session) (any, error) {
		return gen.RunSpecification(ctx, sess)
	}))
	r.Post("/api/sessions/{id}/readiness", handleStage(store, func(ctx context.Context, sess *session.Session) (any, error) {
		return gen.CheckReadiness(ctx, sess)
	}))
	r.Get("/api/sessions/{id}/document", handleDocument(gen, store))
}

type stageFunc func(ctx context.Context, sess *session.Session) (any, error)

// handleStage wraps one stage run: session lookup and ownership, then
// the stage itself, mapping classified errors to their status codes.
func handleStage(store *session.Store, run stageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		result, err := run(r.Context(), sess)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, result)
	}
}

func handleDocument(gen *Generator, store *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		req, err := gen.Requirements(r.Context(), sess.ID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		doc := BuildDocument(sess.Theme, req)
		switch r.URL.Query().Get("format") {
		case "", "markdown":
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.Write([]byte(doc))
		case "html":
			html, err := RenderHTML(doc)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(html))
		default:
			httpx.WriteError(w, httpx.Validationf("format must be markdown or html"))
		}
	}
}
