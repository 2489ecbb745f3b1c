package stage

import (
	"fmt"
	"strings"
)

var validFactTypes = map[string]bool{
	"fact": true, "pain": true, "frequency": true, "workaround": true,
}

var validSeverities = map[string]bool{
	"high": true, "medium": true, "low": true,
}

var validPriorities = map[string]bool{
	"must": true, "should": true, "could": true,
}

// normalizeFacts guarantees schema completeness: sequential IDs where
// missing, defaulted types and severities, non-nil slice.
func normalizeFacts(a FactsArtifact) FactsArtifact {
	if a.Facts == nil {
		a.Facts = []Fact{}
	}
	for i := range a.Facts {
		f := &a.Facts[i]
		if f.ID == "" {
			f.ID = fmt.Sprintf("f%d", i+1)
		}
		f.Type = strings.ToLower(strings.TrimSpace(f.Type))
		if !validFactTypes[f.Type] {
			f.Type = "fact"
		}
		f.Severity = strings.ToLower(strings.TrimSpace(f.Severity))
		if !validSeverities[f.Severity] {
			f.Severity = "medium"
		}
		f.Content = strings.TrimSpace(f.Content)
	}
	return a
}

func normalizeHypotheses(a HypothesesArtifact) HypothesesArtifact {
	if a.Hypotheses == nil {
		a.Hypotheses = []Hypothesis{}
	}
	for i := range a.Hypotheses {
		h := &a.Hypotheses[i]
		if h.ID == "" {
			h.ID = fmt.Sprintf("h%d", i+1)
		}
		if h.SupportingFacts == nil {
			h.SupportingFacts = []string{}
		}
		if h.UnverifiedPoints == nil {
			h.UnverifiedPoints = []string{}
		}
	}
	return a
}

func normalizeRequirements(a RequirementsArtifact) RequirementsArtifact {
	if a.CoreFeatures == nil {
		a.CoreFeatures = []Feature{}
	}
	if a.SuccessMetrics == nil {
		a.SuccessMetrics = []string{}
	}
	if a.OutOfScope == nil {
		a.OutOfScope = []string{}
	}
	for i := range a.CoreFeatures {
		f := &a.CoreFeatures[i]
		if f.ID == "" {
			f.ID = fmt.Sprintf("r%d", i+1)
		}
		f.Priority = strings.ToLower(strings.TrimSpace(f.Priority))
		if !validPriorities[f.Priority] {
			f.Priority = "should"
		}
	}
	return a
}

func normalizeSpecification(a SpecificationArtifact) SpecificationArtifact {
	if a.DataModel == nil {
		a.DataModel = []Entity{}
	}
	if a.APIEndpoints == nil {
		a.APIEndpoints = []Endpoint{}
	}
	if a.TechStack == nil {
		a.TechStack = []string{}
	}
	if a.Risks == nil {
		a.Risks = []string{}
	}
	for i := range a.DataModel {
		if a.DataModel[i].Fields == nil {
			a.DataModel[i].Fields = []string{}
		}
	}
	for i := range a.APIEndpoints {
		a.APIEndpoints[i].Method = strings.ToUpper(strings.TrimSpace(a.APIEndpoints[i].Method))
	}
	return a
}

// Fallback constructors wrap unparseable output as a single
// low-confidence item so an expensive generation call is never discarded.

func fallbackFacts(raw string) FactsArtifact {
	return FactsArtifact{Facts: []Fact{{
		ID:       "f1",
		Type:     "fact",
		Content:  strings.TrimSpace(raw),
		Evidence: "unparsed model output",
		Severity: "low",
	}}}
}

func fallbackHypotheses(raw string) HypothesesArtifact {
	return HypothesesArtifact{Hypotheses: []Hypothesis{{
		ID:               "h1",
		Title:            "Unstructured analysis",
		Description:      strings.TrimSpace(raw),
		SupportingFacts:  []string{},
		UnverifiedPoints: []string{"model output could not be parsed"},
	}}}
}

func fallbackRequirements(raw string) RequirementsArtifact {
	return RequirementsArtifact{
		ProblemStatement: strings.TrimSpace(raw),
		CoreFeatures:     []Feature{},
		SuccessMetrics:   []string{},
		OutOfScope:       []string{},
	}
}

func fallbackSpecification(raw string) SpecificationArtifact {
	return SpecificationArtifact{
		Overview:     strings.TrimSpace(raw),
		DataModel:    []Entity{},
		APIEndpoints: []Endpoint{},
		TechStack:    []string{},
		Risks:        []string{},
	}
}
