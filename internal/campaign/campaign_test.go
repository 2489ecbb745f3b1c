package campaign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/db"
	"github.com/specloom/specloom/internal/session"
	"github.com/specloom/specloom/internal/stage"
)

func setupStore(t *testing.T) (*Store, *session.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	sessions := session.NewStore(database)
	return NewStore(database, sessions), sessions
}

func factsPayload(t *testing.T, facts ...stage.Fact) []byte {
	t.Helper()
	payload, err := json.Marshal(stage.FactsArtifact{Facts: facts})
	if err != nil {
		t.Fatalf("marshal facts: %v", err)
	}
	return payload
}

// respondWith joins the campaign, stores a facts artifact and marks the
// respondent done.
func respondWith(t *testing.T, store *Store, sessions *session.Store, c *Campaign, facts ...stage.Fact) *session.Session {
	t.Helper()
	ctx := context.Background()
	sess, err := store.Join(ctx, c, "respondent")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := sessions.SaveArtifact(ctx, session.Artifact{
		SessionID: sess.ID,
		Stage:     session.StageFacts,
		Payload:   factsPayload(t, facts...),
	}); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	return sess
}

func TestCreateCampaignCreatesOwnerSession(t *testing.T) {
	store, sessions := setupStore(t)
	ctx := context.Background()

	c, err := store.Create(ctx, "acct-1", "freelancer invoicing")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.OwnerSessionID == "" {
		t.Fatal("expected owner session")
	}

	owner, err := sessions.Get(ctx, c.OwnerSessionID)
	if err != nil || owner == nil {
		t.Fatalf("owner session missing: %v", err)
	}
	if owner.Theme != c.Theme || owner.AccountID != "acct-1" || owner.Mode != session.ModeSelf {
		t.Errorf("owner session misconfigured: %+v", owner)
	}
}

func TestJoinCreatesRespondentAndCountsFunnel(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	c, _ := store.Create(ctx, "acct-1", "invoicing")
	sess, err := store.Join(ctx, c, "Sam")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if sess.Mode != session.ModeCampaign || sess.CampaignID != c.ID || sess.RespondentName != "Sam" {
		t.Errorf("respondent session misconfigured: %+v", sess)
	}
	if sess.AccountID != "" {
		t.Error("respondent sessions are unowned")
	}

	counters, _ := store.Counters(ctx, c.ID)
	if counters[EventSessionsCreated] != 1 {
		t.Errorf("sessions_created = %d, want 1", counters[EventSessionsCreated])
	}
}

func TestAggregateGroupsIdenticalContent(t *testing.T) {
	store, sessions := setupStore(t)
	ctx := context.Background()
	c, _ := store.Create(ctx, "acct-1", "invoicing")

	// Three respondents report the same trimmed content.
	for i := 0; i < 3; i++ {
		respondWith(t, store, sessions, c,
			stage.Fact{ID: "f1", Type: "pain", Content: "invoices take too long", Severity: "high"})
	}

	agg, err := store.Aggregate(ctx, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalSessions != 3 || agg.CompletedSessions != 3 {
		t.Errorf("sessions = %d/%d, want 3/3", agg.CompletedSessions, agg.TotalSessions)
	}
	if len(agg.CommonFacts) != 1 {
		t.Fatalf("commonFacts = %d entries, want 1", len(agg.CommonFacts))
	}
	got := agg.CommonFacts[0]
	if got.Content != "invoices take too long" || got.Count != 3 || got.Type != "pain" || got.Severity != "high" {
		t.Errorf("unexpected group: %+v", got)
	}
	if len(agg.PainPoints) != 1 || agg.PainPoints[0].Count != 3 {
		t.Errorf("painPoints = %+v", agg.PainPoints)
	}
	if agg.KeywordCounts["invoices"] != 3 {
		t.Errorf("keyword invoices = %d, want 3", agg.KeywordCounts["invoices"])
	}
	if _, ok := agg.KeywordCounts["too"]; ok {
		t.Error("stopword counted")
	}
}

func TestAggregateSkipsIncompleteRespondents(t *testing.T) {
	store, sessions := setupStore(t)
	ctx := context.Background()
	c, _ := store.Create(ctx, "acct-1", "invoicing")

	respondWith(t, store, sessions, c, stage.Fact{Type: "pain", Content: "slow billing", Severity: "high"})

	// Still interviewing: no artifact, not done.
	if _, err := store.Join(ctx, c, "quitter"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// respondent_done without a facts artifact contributes nothing.
	done, _ := store.Join(ctx, c, "empty")
	sessions.SetStatus(ctx, done.ID, session.StatusRespondentDone)

	agg, err := store.Aggregate(ctx, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.TotalSessions != 3 {
		t.Errorf("totalSessions = %d, want 3", agg.TotalSessions)
	}
	if agg.CompletedSessions != 1 {
		t.Errorf("completedSessions = %d, want 1", agg.CompletedSessions)
	}

	total := 0
	for _, f := range agg.CommonFacts {
		total += f.Count
	}
	if total != 1 {
		t.Errorf("aggregate fact count = %d, want 1", total)
	}
}

func TestAggregateRanksByCount(t *testing.T) {
	store, sessions := setupStore(t)
	ctx := context.Background()
	c, _ := store.Create(ctx, "acct-1", "invoicing")

	respondWith(t, store, sessions, c,
		stage.Fact{Type: "pain", Content: "chasing payments", Severity: "high"},
		stage.Fact{Type: "fact", Content: "uses spreadsheets", Severity: "medium"})
	respondWith(t, store, sessions, c,
		stage.Fact{Type: "pain", Content: "chasing payments", Severity: "medium"})

	agg, err := store.Aggregate(ctx, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.CommonFacts[0].Content != "chasing payments" || agg.CommonFacts[0].Count != 2 {
		t.Errorf("top group = %+v", agg.CommonFacts[0])
	}
	// First occurrence's severity stands for the group.
	if agg.CommonFacts[0].Severity != "high" {
		t.Errorf("group severity = %q, want high", agg.CommonFacts[0].Severity)
	}
}

func TestAggregateFunnelReadsCounters(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	c, _ := store.Create(ctx, "acct-1", "invoicing")

	for i := 0; i < 5; i++ {
		store.Track(ctx, c.ID, EventPageViews)
	}
	store.Track(ctx, c.ID, EventInterviewsStarted)

	agg, err := store.Aggregate(ctx, c)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if agg.Funnel[EventPageViews] != 5 {
		t.Errorf("page_views = %d, want 5", agg.Funnel[EventPageViews])
	}
	if agg.Funnel[EventInterviewsStarted] != 1 {
		t.Errorf("interviews_started = %d, want 1", agg.Funnel[EventInterviewsStarted])
	}
	// Untracked events report zero rather than being absent.
	if v, ok := agg.Funnel[EventRequirementsReached]; !ok || v != 0 {
		t.Errorf("requirements_reached = %d (present=%v), want 0", v, ok)
	}
}

func newRouter(store *Store) *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r
}

func TestRoutes_CreateJoinAggregate(t *testing.T) {
	store, sessions := setupStore(t)
	r := newRouter(store)

	req := httptest.NewRequest("POST", "/api/campaigns", strings.NewReader(`{"theme":"invoicing"}`))
	req.Header.Set("X-Account-ID", "acct-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var c Campaign
	json.Unmarshal(w.Body.Bytes(), &c)

	req = httptest.NewRequest("POST", "/api/campaigns/"+c.ID+"/join", strings.NewReader(`{"respondent_name":"Sam"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("join: %d %s", w.Code, w.Body.String())
	}
	var sess session.Session
	json.Unmarshal(w.Body.Bytes(), &sess)

	if err := sessions.SaveArtifact(context.Background(), session.Artifact{
		SessionID: sess.ID,
		Stage:     session.StageFacts,
		Payload:   factsPayload(t, stage.Fact{Type: "pain", Content: "slow billing", Severity: "high"}),
	}); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/campaigns/"+c.ID+"/aggregate", nil)
	req.Header.Set("X-Account-ID", "acct-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("aggregate: %d %s", w.Code, w.Body.String())
	}
	var agg Aggregate
	json.Unmarshal(w.Body.Bytes(), &agg)
	if agg.CompletedSessions != 1 || len(agg.CommonFacts) != 1 {
		t.Errorf("unexpected aggregate: %+v", agg)
	}
}

func TestRoutes_AggregateForbiddenForNonOwner(t *testing.T) {
	store, _ := setupStore(t)
	r := newRouter(store)
	c, _ := store.Create(context.Background(), "acct-1", "invoicing")

	req := httptest.NewRequest("GET", "/api/campaigns/"+c.ID+"/aggregate", nil)
	req.Header.Set("X-Account-ID", "someone-else")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestRoutes_TrackValidatesEvent(t *testing.T) {
	store, _ := setupStore(t)
	r := newRouter(store)
	c, _ := store.Create(context.Background(), "acct-1", "invoicing")

	req := httptest.NewRequest("POST", "/api/campaigns/"+c.ID+"/track/page_views", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("track: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("POST", "/api/campaigns/"+c.ID+"/track/bogus", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown event, got %d", w.Code)
	}
}

func TestRoutes_MissingCampaignIs404(t *testing.T) {
	store, _ := setupStore(t)
	r := newRouter(store)

	req := httptest.NewRequest("GET", "/api/campaigns/ghost", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
