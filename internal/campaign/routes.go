package campaign

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/session"
)

// RegisterRoutes mounts the campaign API.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/campaigns", func(r chi.Router) {
		r.Post("/", handleCreate(store))
		r.Get("/{id}", handleGet(store))
		r.Post("/{id}/join", handleJoin(store))
		r.Get("/{id}/aggregate", handleAggregate(store))
		r.Post("/{id}/track/{event}", handleTrack(store))
	})
}

// load fetches a campaign, mapping absence to 404. Campaigns are
// readable by anyone holding the link; only aggregation is owner-scoped.
func load(store *Store, r *http.Request) (*Campaign, error) {
	c, err := store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, httpx.NotFoundf("campaign not found")
	}
	return c, nil
}

type createRequest struct {
	Theme string `json:"theme"`
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, httpx.Validationf("invalid request body"))
			return
		}
		if req.Theme == "" {
			httpx.WriteError(w, httpx.Validationf("theme is required"))
			return
		}

		c, err := store.Create(r.Context(), session.AccountID(r), req.Theme)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, c)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := load(store, r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, c)
	}
}

type joinRequest struct {
	RespondentName string `json:"respondent_name"`
}

func handleJoin(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := load(store, r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req joinRequest
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&req)
		}

		sess, err := store.Join(r.Context(), c, req.RespondentName)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, sess)
	}
}

func handleAggregate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := load(store, r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if c.AccountID != "" && c.AccountID != session.AccountID(r) {
			httpx.WriteError(w, httpx.Forbiddenf("not the campaign owner"))
			return
		}

		agg, err := store.Aggregate(r.Context(), c)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, agg)
	}
}

func handleTrack(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := load(store, r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		event := chi.URLParam(r, "event")
		if !validEvents[event] {
			httpx.WriteError(w, httpx.Validationf("unknown event %q", event))
			return
		}

		if err := store.Track(r.Context(), c.ID, event); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}
