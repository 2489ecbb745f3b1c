package pipeline

import (
	"context"
	"log"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/session"
	"github.com/specloom/specloom/internal/stage"
)

// Event is one frame of a pipeline run. "progress" fires before a
// stage starts, "data" after its artifact is persisted, "error" when a
// stage fails unrecoverably, and "done" after the last stage.
type Event struct {
	Type     string `json:"type"`
	Stage    string `json:"stage,omitempty"`
	Label    string `json:"label,omitempty"`
	Artifact any    `json:"artifact,omitempty"`
	Error    string `json:"error,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Emitter receives pipeline events as they happen.
type Emitter func(Event) error

// Orchestrator runs all generation stages for one session back to
// back, guarded by a per-session lease so two runs cannot interleave.
type Orchestrator struct {
	gen    *stage.Generator
	store  *session.Store
	leases *LeaseStore
}

func NewOrchestrator(gen *stage.Generator, store *session.Store, leases *LeaseStore) *Orchestrator {
	return &Orchestrator{gen: gen, store: store, leases: leases}
}

type stageStep struct {
	stage session.Stage
	run   func(context.Context, *session.Session) (any, error)
}

func (o *Orchestrator) steps() []stageStep {
	return []stageStep{
		{session.StageFacts, func(ctx context.Context, s *session.Session) (any, error) {
			return o.gen.RunFacts(ctx, s)
		}},
		{session.StageHypotheses, func(ctx context.Context, s *session.Session) (any, error) {
			return o.gen.RunHypotheses(ctx, s)
		}},
		{session.StageRequirements, func(ctx context.Context, s *session.Session) (any, error) {
			return o.gen.RunRequirements(ctx, s)
		}},
		{session.StageSpecification, func(ctx context.Context, s *session.Session) (any, error) {
			return o.gen.RunSpecification(ctx, s)
		}},
	}
}

// Run executes facts, hypotheses, requirements and specification in
// order, emitting events along the way. A stage failure stops the run;
// artifacts already persisted stay in place. The lease is released on
// every exit path so a failed run does not block the session for the
// full lease TTL.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session, emit Emitter) error {
	token, err := o.leases.Acquire(ctx, sess.ID)
	if err != nil {
		emit(Event{Type: "error", Error: httpx.PublicMessage(err)})
		return err
	}
	defer func() {
		if rerr := o.leases.Release(context.WithoutCancel(ctx), sess.ID, token); rerr != nil {
			log.Printf("[pipeline] release lease for %s: %v", sess.ID, rerr)
		}
	}()

	for _, step := range o.steps() {
		label := session.StageLabel(step.stage)
		if err := emit(Event{Type: "progress", Stage: string(step.stage), Label: label}); err != nil {
			return err
		}

		artifact, err := step.run(ctx, sess)
		if err != nil {
			log.Printf("[pipeline] session %s halted at %s: %v", sess.ID, step.stage, err)
			emit(Event{Type: "error", Stage: string(step.stage), Error: label + " failed"})
			return err
		}

		// Reload so later stages see the advanced status.
		if updated, gerr := o.store.Get(ctx, sess.ID); gerr == nil && updated != nil {
			sess = updated
		}

		if err := emit(Event{Type: "data", Stage: string(step.stage), Artifact: artifact}); err != nil {
			return err
		}
	}

	return emit(Event{Type: "done", Status: string(sess.Status)})
}
