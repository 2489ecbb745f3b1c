package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/specloom/specloom/internal/db"
	"github.com/specloom/specloom/internal/llm"
	"github.com/specloom/specloom/internal/session"
	"github.com/specloom/specloom/internal/stage"
)

var stageResponses = []string{
	`{"facts":[{"id":"f1","type":"pain","content":"invoices take too long","evidence":"e","severity":"high"}]}`,
	`{"hypotheses":[{"title":"billing friction","description":"d","supportingFacts":["f1"]}]}`,
	`{"problemStatement":"ps","targetUsers":"freelancers","coreFeatures":[{"name":"auto invoice","description":"d","priority":"must"}],"successMetrics":["m"],"outOfScope":[]}`,
	`{"overview":"ov","dataModel":[],"apiEndpoints":[],"techStack":["go"],"risks":[]}`,
}

// sequenceProvider replays responses in order and can be set to fail
// from a given call onward.
type sequenceProvider struct {
	responses []string
	failFrom  int // 0-based call index; -1 never fails
	calls     int
}

func (p *sequenceProvider) Name() string { return "sequence" }

func (p *sequenceProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	i := p.calls
	p.calls++
	if p.failFrom >= 0 && i >= p.failFrom {
		return nil, errors.New("provider down")
	}
	if i >= len(p.responses) {
		return nil, errors.New("no scripted response")
	}
	return &llm.CompletionResponse{Content: p.responses[i]}, nil
}

func setupPipeline(t *testing.T, provider llm.Provider) (*Orchestrator, *session.Store, *LeaseStore) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := session.NewStore(database)
	leases := NewLeaseStore(database)
	gen := stage.NewGenerator(store, provider, "test-model")
	return NewOrchestrator(gen, store, leases), store, leases
}

func seedSession(t *testing.T, store *session.Store) *session.Session {
	t.Helper()
	sess, err := store.Create(context.Background(), session.Session{Theme: "freelancer invoicing"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 6; i++ {
		store.AppendTurn(context.Background(), sess.ID, "user", "invoices take too long")
		store.AppendTurn(context.Background(), sess.ID, "assistant", "tell me more")
	}
	return sess
}

func collect(events *[]Event) Emitter {
	return func(ev Event) error {
		*events = append(*events, ev)
		return nil
	}
}

func TestRunFullPipeline(t *testing.T) {
	orch, store, _ := setupPipeline(t, &sequenceProvider{responses: stageResponses, failFrom: -1})
	sess := seedSession(t, store)
	ctx := context.Background()

	var events []Event
	if err := orch.Run(ctx, sess, collect(&events)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	want := []string{"progress", "data", "progress", "data", "progress", "data", "progress", "data", "done"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("event sequence = %v, want %v", types, want)
	}

	// Progress events walk the stages in dependency order.
	order := []string{"facts", "hypotheses", "requirements", "specification"}
	i := 0
	for _, ev := range events {
		if ev.Type != "progress" {
			continue
		}
		if ev.Stage != order[i] {
			t.Errorf("progress %d = %q, want %q", i, ev.Stage, order[i])
		}
		i++
	}

	if events[len(events)-1].Status != string(session.StatusSpecification) {
		t.Errorf("done status = %q", events[len(events)-1].Status)
	}

	for _, st := range []session.Stage{session.StageFacts, session.StageHypotheses, session.StageRequirements, session.StageSpecification} {
		if a, _ := store.GetArtifact(ctx, sess.ID, st); a == nil {
			t.Errorf("artifact %s not persisted", st)
		}
	}
}

func TestRunHaltsOnFailureKeepingPriorStages(t *testing.T) {
	// Facts and hypotheses succeed, requirements fails.
	orch, store, _ := setupPipeline(t, &sequenceProvider{responses: stageResponses, failFrom: 2})
	sess := seedSession(t, store)
	ctx := context.Background()

	var events []Event
	err := orch.Run(ctx, sess, collect(&events))
	if err == nil {
		t.Fatal("expected run to fail")
	}

	last := events[len(events)-1]
	if last.Type != "error" || last.Stage != "requirements" {
		t.Fatalf("expected error event naming requirements, got %+v", last)
	}
	if strings.Contains(last.Error, "provider down") {
		t.Error("provider detail leaked into error event")
	}

	if a, _ := store.GetArtifact(ctx, sess.ID, session.StageHypotheses); a == nil {
		t.Error("completed stage rolled back after later failure")
	}
	if a, _ := store.GetArtifact(ctx, sess.ID, session.StageRequirements); a != nil {
		t.Error("failed stage persisted an artifact")
	}
}

func TestLeaseBlocksConcurrentRun(t *testing.T) {
	orch, store, leases := setupPipeline(t, &sequenceProvider{responses: stageResponses, failFrom: -1})
	sess := seedSession(t, store)
	ctx := context.Background()

	if _, err := leases.Acquire(ctx, sess.ID); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	var events []Event
	err := orch.Run(ctx, sess, collect(&events))
	if err == nil {
		t.Fatal("expected run to be rejected while lease is held")
	}
	if len(events) != 1 || events[0].Type != "error" {
		t.Fatalf("expected single error event, got %+v", events)
	}
	if !strings.Contains(events[0].Error, "in progress") {
		t.Errorf("error should say a run is in progress: %q", events[0].Error)
	}
}

func TestLeaseReleasedAfterRun(t *testing.T) {
	provider := &sequenceProvider{responses: append(append([]string{}, stageResponses...), stageResponses...), failFrom: -1}
	orch, store, _ := setupPipeline(t, provider)
	sess := seedSession(t, store)
	ctx := context.Background()

	var events []Event
	if err := orch.Run(ctx, sess, collect(&events)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	events = nil
	if err := orch.Run(ctx, sess, collect(&events)); err != nil {
		t.Fatalf("second run should reacquire the lease: %v", err)
	}
}

func TestExpiredLeaseIsTakenOver(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	store := session.NewStore(database)
	sess, _ := store.Create(context.Background(), session.Session{Theme: "t"})

	leases := &LeaseStore{db: database, ttl: -time.Second}
	if _, err := leases.Acquire(context.Background(), sess.ID); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// The first lease is already expired, so a new holder may take it.
	fresh := NewLeaseStore(database)
	token, err := fresh.Acquire(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("takeover of expired lease failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a new token")
	}
}

func TestReleaseIgnoresStaleToken(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	store := session.NewStore(database)
	sess, _ := store.Create(context.Background(), session.Session{Theme: "t"})
	leases := NewLeaseStore(database)

	token, err := leases.Acquire(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := leases.Release(context.Background(), sess.ID, "stale-token"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	// The live lease survives a release with the wrong token.
	if _, err := leases.Acquire(context.Background(), sess.ID); err == nil {
		t.Fatal("lease should still be held")
	}
	if err := leases.Release(context.Background(), sess.ID, token); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := leases.Acquire(context.Background(), sess.ID); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}

func TestPipelineRouteStreamsEvents(t *testing.T) {
	orch, store, _ := setupPipeline(t, &sequenceProvider{responses: stageResponses, failFrom: -1})
	sess := seedSession(t, store)

	r := chi.NewRouter()
	RegisterRoutes(r, orch, store)

	req := httptest.NewRequest("POST", "/api/sessions/"+sess.ID+"/pipeline", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	var events []Event
	scanner := bufio.NewScanner(w.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		events = append(events, ev)
	}

	if len(events) == 0 || events[len(events)-1].Type != "done" {
		t.Fatalf("expected stream ending in done, got %+v", events)
	}
}

func TestPipelineRouteRejectsEmptySession(t *testing.T) {
	orch, store, _ := setupPipeline(t, &sequenceProvider{responses: stageResponses, failFrom: -1})
	sess, _ := store.Create(context.Background(), session.Session{Theme: "t"})

	r := chi.NewRouter()
	RegisterRoutes(r, orch, store)

	req := httptest.NewRequest("POST", "/api/sessions/"+sess.ID+"/pipeline", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
