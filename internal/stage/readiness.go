package stage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/specloom/specloom/internal/httpx"
	"github.com/specloom/specloom/internal/session"
)

// CheckReadiness computes the build-readiness checklist from a session's
// persisted artifacts. All four stage artifacts must exist; the checks
// themselves are deterministic.
func (g *Generator) CheckReadiness(ctx context.Context, sess *session.Session) (*ReadinessReport, error) {
	var facts FactsArtifact
	var hyps HypothesesArtifact
	var req RequirementsArtifact
	var spec SpecificationArtifact

	for _, load := range []struct {
		stage session.Stage
		into  any
	}{
		{session.StageFacts, &facts},
		{session.StageHypotheses, &hyps},
		{session.StageRequirements, &req},
		{session.StageSpecification, &spec},
	} {
		a, err := g.store.GetArtifact(ctx, sess.ID, load.stage)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, httpx.Preconditionf("run %s first", session.StageLabel(load.stage))
		}
		if err := json.Unmarshal(a.Payload, load.into); err != nil {
			return nil, fmt.Errorf("decoding %s artifact: %w", load.stage, err)
		}
	}

	report := &ReadinessReport{Ready: true}
	add := func(name string, passed bool, detail string) {
		report.Checks = append(report.Checks, ReadinessCheck{Name: name, Passed: passed, Detail: detail})
		if !passed {
			report.Ready = false
		}
	}

	add("sufficient facts", len(facts.Facts) >= 3,
		fmt.Sprintf("%d facts extracted", len(facts.Facts)))

	grounded := 0
	for _, h := range hyps.Hypotheses {
		if len(h.SupportingFacts) > 0 {
			grounded++
		}
	}
	add("hypotheses grounded in facts",
		len(hyps.Hypotheses) > 0 && grounded == len(hyps.Hypotheses),
		fmt.Sprintf("%d of %d hypotheses cite facts", grounded, len(hyps.Hypotheses)))

	musts := len(featuresByPriority(req.CoreFeatures, "must"))
	add("must-have features defined", musts > 0,
		fmt.Sprintf("%d must-have features", musts))

	add("problem statement present", req.ProblemStatement != "",
		"requirements carry a problem statement")

	add("specification coverage",
		spec.Overview != "" && len(spec.DataModel) > 0 && len(spec.APIEndpoints) > 0,
		fmt.Sprintf("%d entities, %d endpoints", len(spec.DataModel), len(spec.APIEndpoints)))

	// The checklist itself is not persisted; only the status advances.
	if session.Rank(sess.Status) < session.Rank(session.StatusReadiness) {
		if err := g.store.SetStatus(ctx, sess.ID, session.StatusReadiness); err != nil {
			return nil, err
		}
	}

	return report, nil
}
