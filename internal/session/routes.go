package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/httpx"
)

// AccountID extracts the caller's account from the request. Identity
// issuance is handled upstream; an empty value means anonymous.
func AccountID(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

// Authorize returns a forbidden error when an owned session is accessed
// by anyone but its owner. Unowned (shared/campaign respondent) sessions
// are open.
func Authorize(sess *Session, accountID string) error {
	if sess.AccountID != "" && sess.AccountID != accountID {
		return httpx.Forbiddenf("not the session owner")
	}
	return nil
}

// Load fetches a session and checks ownership, mapping absence to 404.
func (s *Store) Load(r *http.Request, id string) (*Session, error) {
	sess, err := s.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, httpx.NotFoundf("session not found")
	}
	if err := Authorize(sess, AccountID(r)); err != nil {
		return nil, err
	}
	return sess, nil
}

// RegisterRoutes mounts the session record routes.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", handleCreate(store))
		r.Get("/", handleList(store))
		r.Get("/{id}", handleGet(store))
		r.Get("/{id}/turns", handleTurns(store))
		r.Post("/{id}/complete", handleComplete(store))
		r.Get("/{id}/artifacts/{stage}", handleGetArtifact(store))
	})
}

type createRequest struct {
	Theme          string `json:"theme"`
	Mode           Mode   `json:"mode"`
	RespondentName string `json:"respondent_name"`
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
		mode := req.Mode
		if mode == "" {
			mode = ModeSelf
		}
		if mode != ModeSelf && mode != ModeShared {
			httpx.WriteError(w, httpx.Validationf("mode must be self or shared"))
			return
		}

		sess := Session{
			Theme:          req.Theme,
			Mode:           mode,
			RespondentName: req.RespondentName,
		}
		// Shared-link sessions are unowned so respondents can reach them.
		if mode == ModeSelf {
			sess.AccountID = AccountID(r)
		}

		created, err := store.Create(r.Context(), sess)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, created)
	}
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := store.ListByAccount(r.Context(), AccountID(r))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if sessions == nil {
			sessions = []Session{}
		}
		httpx.WriteJSON(w, http.StatusOK, sessions)
	}
}

func handleGet(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, sess)
	}
}

func handleTurns(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		turns, err := store.Turns(r.Context(), sess.ID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if turns == nil {
			turns = []Turn{}
		}
		httpx.WriteJSON(w, http.StatusOK, turns)
	}
}

func handleComplete(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if sess.Mode == ModeSelf {
			httpx.WriteError(w, httpx.Validationf("only shared or campaign sessions can be marked done"))
			return
		}
		if err := store.SetStatus(r.Context(), sess.ID, StatusRespondentDone); err != nil {
			httpx.WriteError(w, err)
			return
		}
		sess.Status = StatusRespondentDone
		httpx.WriteJSON(w, http.StatusOK, sess)
	}
}

func handleGetArtifact(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Load(r, chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		stage := Stage(chi.URLParam(r, "stage"))
		if _, ok := stageStatus[stage]; !ok {
			httpx.WriteError(w, httpx.Validationf("unknown stage %q", stage))
			return
		}
		artifact, err := store.GetArtifact(r.Context(), sess.ID, stage)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		if artifact == nil {
			httpx.WriteError(w, httpx.NotFoundf("no %s artifact for this session", stage))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(artifact.Payload)
	}
}
