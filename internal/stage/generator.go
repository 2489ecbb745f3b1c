package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/llm"
	"github.com/specloom/specloom/internal/session"
)

// Generator runs the distillation stages for a session: each call checks
// its dependency artifacts, asks the generative service for a structured
// result, repairs malformed output into a fallback artifact, and persists
// via upsert.
type Generator struct {
	store    *session.Store
	provider llm.Provider
	model    string
}

// NewGenerator creates a stage generator.
func NewGenerator(store *session.Store, provider llm.Provider, model string) *Generator {
	return &Generator{store: store, provider: provider, model: model}
}

// complete sends one generation request. A service failure is an
// upstream error (500, halts pipelines); the content is returned raw.
func (g *Generator) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		MaxTokens:   4096,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return "", httpx.Upstreamf("generation request failed: %v", err)
	}
	return resp.Content, nil
}

// requireArtifacts enforces stage ordering and loads dependency payloads.
func (g *Generator) requireArtifacts(ctx context.Context, sessionID string, stage session.Stage) (map[session.Stage][]byte, error) {
	payloads := make(map[session.Stage][]byte)
	err := session.CheckDependencies(stage, func(dep session.Stage) bool {
		ok, err := g.store.HasArtifact(ctx, sessionID, dep)
		return err == nil && ok
	})
	if err != nil {
		return nil, err
	}
	for _, dep := range session.Dependencies(stage) {
		a, err := g.store.GetArtifact(ctx, sessionID, dep)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, httpx.Preconditionf("run %s first", session.StageLabel(dep))
		}
		payloads[dep] = a.Payload
	}
	return payloads, nil
}

func (g *Generator) save(ctx context.Context, sessionID string, stage session.Stage, artifact any, fallback bool) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshalling %s artifact: %w", stage, err)
	}
	return g.store.SaveArtifact(ctx, session.Artifact{
		SessionID:     sessionID,
		Stage:         stage,
		Payload:       payload,
		ParseFallback: fallback,
	})
}

// RunFacts extracts facts from the session's interview transcript.
func (g *Generator) RunFacts(ctx context.Context, sess *session.Session) (*FactsArtifact, error) {
	turns, err := g.store.Turns(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, httpx.Validationf("no conversation to analyze")
	}

	content, err := g.complete(ctx, factsSystemPrompt, factsPrompt(sess.Theme, turns))
	if err != nil {
		return nil, err
	}

	outcome := Parse[FactsArtifact](content)
	artifact := normalizeFacts(outcome.Value)
	if !outcome.Parsed {
		log.Printf("stage: facts output for %s not parseable, wrapping as fallback", sess.ID)
		artifact = fallbackFacts(outcome.Raw)
	}

	if err := g.save(ctx, sess.ID, session.StageFacts, artifact, !outcome.Parsed); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// RunHypotheses derives hypotheses from the facts artifact.
func (g *Generator) RunHypotheses(ctx context.Context, sess *session.Session) (*HypothesesArtifact, error) {
	deps, err := g.requireArtifacts(ctx, sess.ID, session.StageHypotheses)
	if err != nil {
		return nil, err
	}

	content, err := g.complete(ctx, hypothesesSystemPrompt, hypothesesPrompt(sess.Theme, deps[session.StageFacts]))
	if err != nil {
		return nil, err
	}

	outcome := Parse[HypothesesArtifact](content)
	artifact := normalizeHypotheses(outcome.Value)
	if !outcome.Parsed {
		log.Printf("stage: hypotheses output for %s not parseable, wrapping as fallback", sess.ID)
		artifact = fallbackHypotheses(outcome.Raw)
	}

	if err := g.save(ctx, sess.ID, session.StageHypotheses, artifact, !outcome.Parsed); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// RunRequirements derives the requirements document from facts and hypotheses.
func (g *Generator) RunRequirements(ctx context.Context, sess *session.Session) (*RequirementsArtifact, error) {
	deps, err := g.requireArtifacts(ctx, sess.ID, session.StageRequirements)
	if err != nil {
		return nil, err
	}

	content, err := g.complete(ctx, requirementsSystemPrompt,
		requirementsPrompt(sess.Theme, deps[session.StageFacts], deps[session.StageHypotheses]))
	if err != nil {
		return nil, err
	}

	outcome := Parse[RequirementsArtifact](content)
	artifact := normalizeRequirements(outcome.Value)
	if !outcome.Parsed {
		log.Printf("stage: requirements output for %s not parseable, wrapping as fallback", sess.ID)
		artifact = fallbackRequirements(outcome.Raw)
	}

	if err := g.save(ctx, sess.ID, session.StageRequirements, artifact, !outcome.Parsed); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// RunSpecification derives the technical specification from requirements.
func (g *Generator) RunSpecification(ctx context.Context, sess *session.Session) (*SpecificationArtifact, error) {
	deps, err := g.requireArtifacts(ctx, sess.ID, session.StageSpecification)
	if err != nil {
		return nil, err
	}

	content, err := g.complete(ctx, specificationSystemPrompt,
		specificationPrompt(sess.Theme, deps[session.StageRequirements]))
	if err != nil {
		return nil, err
	}

	outcome := Parse[SpecificationArtifact](content)
	artifact := normalizeSpecification(outcome.Value)
	if !outcome.Parsed {
		log.Printf("stage: specification output for %s not parseable, wrapping as fallback", sess.ID)
		artifact = fallbackSpecification(outcome.Raw)
	}

	if err := g.save(ctx, sess.ID, session.StageSpecification, artifact, !outcome.Parsed); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// Requirements loads and decodes a session's requirements artifact.
func (g *Generator) Requirements(ctx context.Context, sessionID string) (*RequirementsArtifact, error) {
	a, err := g.store.GetArtifact(ctx, sessionID, session.StageRequirements)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, httpx.Preconditionf("run %s first", session.StageLabel(session.StageRequirements))
	}
	var artifact RequirementsArtifact
	if err := json.Unmarshal(a.Payload, &artifact); err != nil {
		return nil, fmt.Errorf("decoding requirements artifact: %w", err)
	}
	return &artifact, nil
}
